package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/distill-go/pkg/errors"
)

// Mode is the single active operating mode of a run.
type Mode string

const (
	ModeTeacher    Mode = "teacher"
	ModeStudent    Mode = "student"
	ModeTest       Mode = "test"
	ModeAddExpertQ Mode = "add_expert_q"
)

// Config represents the complete configuration for a distillation run.
type Config struct {
	// Operating mode flags; exactly one must be set
	Mode ModeConfig `yaml:"mode"`

	// Environment configuration
	Env EnvConfig `yaml:"env" validate:"required"`

	// Training and collection hyper-parameters
	Hyper HyperParams `yaml:"hyper_params" validate:"required"`

	// Storage path configuration
	Paths PathsConfig `yaml:"paths,omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Metrics sink configuration
	Metrics MetricsConfig `yaml:"metrics,omitempty" validate:"omitempty"`

	// Compute backend for the learner; threaded into constructors, never a
	// process-wide global
	Device string `yaml:"device,omitempty" validate:"omitempty,oneof=cpu"`

	// Seed for environment and exploration randomness
	Seed int64 `yaml:"seed,omitempty"`
}

// ModeConfig holds the exclusive one-of-four mode flags.
type ModeConfig struct {
	Teacher    bool `yaml:"teacher"`
	Student    bool `yaml:"student"`
	Test       bool `yaml:"test"`
	AddExpertQ bool `yaml:"add_expert_q"`
}

// Active returns the single active mode, or an InvalidConfig error when the
// exactly-one invariant does not hold.
func (m ModeConfig) Active() (Mode, error) {
	var active []Mode
	if m.Teacher {
		active = append(active, ModeTeacher)
	}
	if m.Student {
		active = append(active, ModeStudent)
	}
	if m.Test {
		active = append(active, ModeTest)
	}
	if m.AddExpertQ {
		active = append(active, ModeAddExpertQ)
	}
	if len(active) != 1 {
		return "", errors.WithFields(
			errors.New(errors.InvalidConfig, "exactly one of teacher/student/test/add_expert_q must be set"),
			errors.Fields{"active": len(active)},
		)
	}
	return active[0], nil
}

// EnvConfig identifies the environment and agent a run belongs to. The names
// are used in buffer directory layout, so they must be stable across the
// collection and training runs of one experiment.
type EnvConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Agent  string `yaml:"agent" validate:"required"`
	Render bool   `yaml:"render"`
}

// HyperParams holds the run hyper-parameters.
type HyperParams struct {
	EpisodeNum     int     `yaml:"episode_num" validate:"min=1"`
	InterimTestNum int     `yaml:"interim_test_num" validate:"min=0"`
	SavePeriod     int     `yaml:"save_period" validate:"min=0"`
	BatchSize      int     `yaml:"batch_size" validate:"min=1"`
	BufferSize     int     `yaml:"buffer_size" validate:"min=1"`
	Epochs         int     `yaml:"epochs" validate:"min=1"`
	SoftmaxTau     float64 `yaml:"softmax_tau" validate:"gt=0"`
	Epsilon        float64 `yaml:"max_epsilon" validate:"min=0,max=1"`
	LearningRate   float64 `yaml:"learning_rate" validate:"gt=0"`
	Gamma          float64 `yaml:"gamma" validate:"gt=0,lte=1"`
}

// PathsConfig holds storage locations for the run.
type PathsConfig struct {
	// Root under which per-run buffer directories are created:
	// <data_root>/<env>/<agent>/<timestamp>/
	DataRoot string `yaml:"data_root,omitempty"`

	// Explicit buffer directory. Required input in student mode; optional
	// override of the generated path in test mode.
	DistillationBufferPath string `yaml:"distillation_buffer_path,omitempty"`

	// Source roots of raw state dumps for the add_expert_q pass.
	BufferPath []string `yaml:"buffer_path,omitempty"`

	// Directory student checkpoints are written into.
	CheckpointDir string `yaml:"checkpoint_dir,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig controls the external metrics sink. When disabled all metric
// emission is a no-op.
type MetricsConfig struct {
	Log        bool   `yaml:"log"`
	SQLitePath string `yaml:"sqlite_path,omitempty"`
	// Worker count for the add_expert_q pass; relabeling files is
	// independent per file
	AugmentWorkers int `yaml:"augment_workers,omitempty" validate:"omitempty,min=1"`
}

// Load reads, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ResourceNotFound, "read config file")
	}
	return Parse(data)
}

// Parse decodes raw YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfig, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field invariants that tags
// cannot express.
func (c *Config) Validate() error {
	if _, err := c.Mode.Active(); err != nil {
		return err
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "config validation")
	}

	if c.Mode.Student && c.Paths.DistillationBufferPath == "" {
		return errors.New(errors.InvalidConfig, "student mode requires paths.distillation_buffer_path")
	}
	if c.Mode.AddExpertQ && len(c.Paths.BufferPath) == 0 {
		return errors.New(errors.InvalidConfig, "add_expert_q mode requires paths.buffer_path sources")
	}
	return nil
}
