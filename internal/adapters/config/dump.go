package config

import (
	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// dumpTask is the human-readable shape `zr config dump` renders one task as.
type dumpTask struct {
	Name        string   `yaml:"name"`
	Command     []string `yaml:"command"`
	WorkingDir  string   `yaml:"working_dir"`
	Deps        []string `yaml:"deps,omitempty"`
	Condition   string   `yaml:"condition,omitempty"`
	TimeoutMS   int64    `yaml:"timeout_ms,omitempty"`
	CacheOn     bool     `yaml:"cache_enabled"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Dump re-serialises the resolved task graph as YAML for human inspection,
// in execution order.
func Dump(g *domain.Graph) (string, error) {
	var tasks []dumpTask
	for task := range g.Walk() {
		deps := make([]string, len(task.Dependencies))
		for i, d := range task.Dependencies {
			deps[i] = d.String()
		}

		tasks = append(tasks, dumpTask{
			Name:        task.Name.String(),
			Command:     task.Command,
			WorkingDir:  task.WorkingDir.String(),
			Deps:        deps,
			Condition:   task.Condition,
			TimeoutMS:   task.TimeoutMS,
			CacheOn:     task.Cache.Enabled,
			Description: task.Description,
			Tags:        task.Tags,
		})
	}

	out, err := yaml.Marshal(map[string]any{"root": g.Root(), "tasks": tasks})
	if err != nil {
		return "", zerr.Wrap(err, "failed to render config dump")
	}
	return string(out), nil
}
