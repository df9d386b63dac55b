package config

// FileSpec is the on-disk (TOML) shape of zr.toml. viper unmarshals into
// this DTO; the loader then translates it into domain.Task/domain.Graph.
type FileSpec struct {
	Root  string             `mapstructure:"root"`
	Tasks map[string]TaskDTO `mapstructure:"tasks"`
}

// RetryDTO is the on-disk shape of a task's retry policy.
type RetryDTO struct {
	MaxAttempts     int    `mapstructure:"max_attempts"`
	BackoffMS       int64  `mapstructure:"backoff_ms"`
	BackoffStrategy string `mapstructure:"backoff_strategy"`
	OnExitCodes     []int  `mapstructure:"on_exit_codes"`
}

// CacheDTO is the on-disk shape of a task's cache policy.
type CacheDTO struct {
	Enabled        bool     `mapstructure:"enabled"`
	InputGlobs     []string `mapstructure:"input_globs"`
	OutputGlobs    []string `mapstructure:"output_globs"`
	ExtraKeyFields []string `mapstructure:"extra_key_fields"`
}

// TaskDTO is the on-disk shape of one [tasks.<name>] table. Cmd may be
// given either as an argv list or, via CmdString, as a single shell string;
// exactly one should be set.
type TaskDTO struct {
	Cmd           []string          `mapstructure:"cmd"`
	CmdString     string            `mapstructure:"cmd_string"`
	Cwd           string            `mapstructure:"cwd"`
	Env           map[string]string `mapstructure:"env"`
	CleanEnv      bool              `mapstructure:"clean_env"`
	Deps          []string          `mapstructure:"deps"`
	Condition     string            `mapstructure:"condition"`
	TimeoutMS     int64             `mapstructure:"timeout_ms"`
	Retry         RetryDTO          `mapstructure:"retry"`
	Cache         CacheDTO          `mapstructure:"cache"`
	IgnoreFailure bool              `mapstructure:"ignore_failure"`
	Stdio         string            `mapstructure:"stdio"`
	Description   string            `mapstructure:"description"`
	Tags          []string          `mapstructure:"tags"`
	Outputs       []string          `mapstructure:"outputs"`
}
