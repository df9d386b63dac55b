// Package config loads the zr.toml configuration file into a domain.Graph.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileName is the name of the configuration file a Loader looks for.
const FileName = "zr.toml"

// Loader implements ports.ConfigLoader using a TOML file read through viper.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds the nearest zr.toml at or above cwd, parses it, and returns
// the resulting task graph.
func (l *Loader) Load(cwd string) (*domain.Graph, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}
	return l.loadFile(configPath)
}

// findConfiguration walks up from cwd to the filesystem root looking for
// zr.toml, mirroring the teacher's bobfile discovery but for one file name.
func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func (l *Loader) loadFile(configPath string) (*domain.Graph, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", configPath)
	}

	var spec FileSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", configPath)
	}

	g := domain.NewGraph()
	root := resolveRoot(configPath, spec.Root)
	g.SetRoot(root)

	taskNames := make(map[string]bool, len(spec.Tasks))
	for name := range spec.Tasks {
		taskNames[name] = true
	}

	for name, dto := range spec.Tasks {
		if err := validateTaskName(name); err != nil {
			return nil, err
		}

		for _, dep := range dto.Deps {
			if !taskNames[dep] {
				return nil, zerr.With(domain.ErrMissingDependency, "missing_dependency", dep)
			}
		}

		workingDir := resolveTaskWorkingDir(root, dto.Cwd)
		task := buildTask(name, dto, workingDir)

		if err := g.AddTask(task); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}
	sorted := make([]string, len(strs))
	copy(sorted, strs)
	slices.Sort(sorted)
	unique := slices.Compact(sorted)
	return domain.NewInternedStrings(unique)
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// validateTaskName checks if the task name is reserved or contains invalid characters.
func validateTaskName(name string) error {
	if name == "all" {
		return zerr.With(domain.ErrReservedTaskName, "task_name", name)
	}
	if strings.Contains(name, ":") {
		err := zerr.With(domain.ErrInvalidTaskName, "invalid_character", ":")
		return zerr.With(err, "task_name", name)
	}
	return nil
}

// buildTask translates a TaskDTO into a domain.Task.
func buildTask(name string, dto TaskDTO, workingDir domain.InternedString) *domain.Task {
	command := dto.Cmd
	if dto.CmdString != "" {
		command = []string{dto.CmdString}
	}

	retryStrategy := domain.BackoffFixed
	if dto.Retry.BackoffStrategy == string(domain.BackoffExponential) {
		retryStrategy = domain.BackoffExponential
	}
	maxAttempts := dto.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	stdio := domain.StdioPolicy(dto.Stdio)
	if stdio != domain.StdioInherit && stdio != domain.StdioPipe {
		stdio = domain.StdioPipe
	}

	return &domain.Task{
		Name:         domain.NewInternedString(name),
		Command:      command,
		Inputs:       canonicalizeStrings(dto.Cache.InputGlobs),
		Outputs:      canonicalizeStrings(dto.Outputs),
		Dependencies: domain.NewInternedStrings(dto.Deps),
		Environment:  dto.Env,
		WorkingDir:   workingDir,
		CleanEnv:     dto.CleanEnv,
		Condition:    dto.Condition,
		TimeoutMS:    dto.TimeoutMS,
		Retry: domain.RetryPolicy{
			MaxAttempts: maxAttempts,
			BackoffMS:   dto.Retry.BackoffMS,
			Strategy:    retryStrategy,
			OnExitCodes: dto.Retry.OnExitCodes,
		},
		Cache: domain.CachePolicy{
			Enabled:        dto.Cache.Enabled,
			InputGlobs:     dto.Cache.InputGlobs,
			OutputGlobs:    dto.Cache.OutputGlobs,
			ExtraKeyFields: dto.Cache.ExtraKeyFields,
		},
		IgnoreFailure: dto.IgnoreFailure,
		Stdio:         stdio,
		Description:   dto.Description,
		Tags:          dto.Tags,
	}
}

// resolveTaskWorkingDir resolves the working directory for a task.
// If configuredWorkingDir is empty, uses baseDir.
// If configuredWorkingDir is absolute, uses it directly.
// Otherwise, joins it with baseDir.
func resolveTaskWorkingDir(baseDir, configuredWorkingDir string) domain.InternedString {
	if configuredWorkingDir == "" {
		return domain.NewInternedString(baseDir)
	}

	if filepath.IsAbs(configuredWorkingDir) {
		return domain.NewInternedString(filepath.Clean(configuredWorkingDir))
	}

	return domain.NewInternedString(filepath.Clean(filepath.Join(baseDir, configuredWorkingDir)))
}
