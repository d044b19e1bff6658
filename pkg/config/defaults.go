package config

import "time"

// Default returns a Config populated with the values a run gets when the
// file leaves them unset. Mode flags intentionally default to all-false so a
// missing mode section fails validation instead of silently picking one.
func Default() *Config {
	return &Config{
		Env: EnvConfig{
			Name:  "CartPole-v1",
			Agent: "dqn",
		},
		Hyper: HyperParams{
			EpisodeNum:     300,
			InterimTestNum: 5,
			SavePeriod:     20,
			BatchSize:      64,
			BufferSize:     50000,
			Epochs:         50,
			SoftmaxTau:     0.01,
			Epsilon:        1.0,
			LearningRate:   1e-3,
			Gamma:          0.99,
		},
		Paths: PathsConfig{
			DataRoot:      "./data/distillation_buffer",
			CheckpointDir: "./checkpoint",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Metrics: MetricsConfig{
			AugmentWorkers: 1,
		},
		Device: "cpu",
		Seed:   time.Now().UnixNano(),
	}
}
