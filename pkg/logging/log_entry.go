package logging

// LogEntry represents a structured log record with fields particularly
// relevant to training and collection runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID string // Identifier of the current run
	Mode  string // Operating mode (teacher/student/test/add_expert_q)

	// General structured data
	Fields map[string]interface{}
}
