package crew

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/resumematch/errors"
)

//go:embed defaults/agents.yaml defaults/tasks.yaml
var defaultFiles embed.FS

// Agent defaults applied when a definition leaves the field unset.
const (
	DefaultMaxRPM        = 10
	DefaultMaxIter       = 15
	DefaultMaxRetryLimit = 2
)

// AgentConfig defines one agent persona.
type AgentConfig struct {
	Name          string   `yaml:"-"`
	Role          string   `yaml:"role" validate:"required"`
	Goal          string   `yaml:"goal" validate:"required"`
	Backstory     string   `yaml:"backstory"`
	Tools         []string `yaml:"tools"`
	MaxRPM        int      `yaml:"max_rpm" validate:"gte=0"`
	MaxIter       int      `yaml:"max_iter" validate:"gte=0"`
	MaxRetryLimit int      `yaml:"max_retry_limit" validate:"gte=0"`
	Verbose       bool     `yaml:"verbose"`
}

// TaskConfig defines one unit of work.
type TaskConfig struct {
	Name           string `yaml:"-"`
	Agent          string `yaml:"agent" validate:"required"`
	Description    string `yaml:"description" validate:"required"`
	ExpectedOutput string `yaml:"expected_output"`
	OutputFile     string `yaml:"output_file"`
	Callback       string `yaml:"callback"`
}

// Definitions holds the agents and the ordered tasks of a crew.
type Definitions struct {
	Agents map[string]AgentConfig
	Tasks  []TaskConfig
}

// Agent returns the named agent definition.
func (d *Definitions) Agent(name string) (AgentConfig, bool) {
	a, ok := d.Agents[name]
	return a, ok
}

// ReportFiles returns the output files declared by tasks, in task order.
func (d *Definitions) ReportFiles() []string {
	var files []string
	for _, t := range d.Tasks {
		if t.OutputFile != "" {
			files = append(files, t.OutputFile)
		}
	}
	return files
}

var validate = validator.New()

// LoadDefinitions loads the embedded agents and tasks, then applies the user
// files when given. User agents replace embedded agents of the same name. A
// user tasks file replaces the whole task list since tasks run in file order.
func LoadDefinitions(agentsPath, tasksPath string) (*Definitions, error) {
	agents, err := loadAgents(mustDefault("defaults/agents.yaml"), "embedded agents.yaml")
	if err != nil {
		return nil, err
	}
	tasks, err := loadTasks(mustDefault("defaults/tasks.yaml"), "embedded tasks.yaml")
	if err != nil {
		return nil, err
	}

	if agentsPath != "" {
		data, err := readDefinitionFile(agentsPath)
		if err != nil {
			return nil, err
		}
		user, err := loadAgents(data, agentsPath)
		if err != nil {
			return nil, err
		}
		for _, a := range user {
			agents = replaceAgent(agents, a)
		}
	}
	if tasksPath != "" {
		data, err := readDefinitionFile(tasksPath)
		if err != nil {
			return nil, err
		}
		if tasks, err = loadTasks(data, tasksPath); err != nil {
			return nil, err
		}
	}

	defs := &Definitions{Agents: make(map[string]AgentConfig, len(agents)), Tasks: tasks}
	for _, a := range agents {
		defs.Agents[a.Name] = a
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return defs, nil
}

// Validate checks field constraints and that every task names a known agent.
func (d *Definitions) Validate() error {
	var problems []string
	for _, t := range d.Tasks {
		if err := validate.Struct(t); err != nil {
			problems = append(problems, fmt.Sprintf("task %s: %v", t.Name, err))
			continue
		}
		if _, ok := d.Agents[t.Agent]; !ok {
			problems = append(problems, fmt.Sprintf("task %s: unknown agent %q", t.Name, t.Agent))
		}
	}
	for name, a := range d.Agents {
		if err := validate.Struct(a); err != nil {
			problems = append(problems, fmt.Sprintf("agent %s: %v", name, err))
		}
	}
	if len(d.Tasks) == 0 {
		problems = append(problems, "no tasks defined")
	}
	if len(problems) > 0 {
		return errors.InvalidInput("invalid crew definitions: " + strings.Join(problems, "; "))
	}
	return nil
}

func mustDefault(name string) []byte {
	data, err := defaultFiles.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

func readDefinitionFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrCodeNotFound, "definition file not found: "+path)
		}
		return nil, errors.Wrap(err, "failed to read "+path)
	}
	return data, nil
}

// mappingEntries decodes a top-level YAML mapping keeping key order.
func mappingEntries(data []byte, source string) ([]string, []*yaml.Node, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "failed to parse "+source)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, errors.InvalidInput(source + ": expected a mapping of names to definitions")
	}
	root := doc.Content[0]
	keys := make([]string, 0, len(root.Content)/2)
	values := make([]*yaml.Node, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
		values = append(values, root.Content[i+1])
	}
	return keys, values, nil
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func loadAgents(data []byte, source string) ([]AgentConfig, error) {
	keys, values, err := mappingEntries(data, source)
	if err != nil {
		return nil, err
	}
	agents := make([]AgentConfig, 0, len(keys))
	for i, name := range keys {
		var a AgentConfig
		if err := values[i].Decode(&a); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, fmt.Sprintf("%s: agent %s", source, name))
		}
		a.Name = name
		a.Role = strings.TrimSpace(a.Role)
		a.Goal = strings.TrimSpace(a.Goal)
		a.Backstory = strings.TrimSpace(a.Backstory)
		// An explicit 0 turns throttling or retries off; max_iter 0 means unset.
		if !hasKey(values[i], "max_rpm") {
			a.MaxRPM = DefaultMaxRPM
		}
		if a.MaxIter == 0 {
			a.MaxIter = DefaultMaxIter
		}
		if !hasKey(values[i], "max_retry_limit") {
			a.MaxRetryLimit = DefaultMaxRetryLimit
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func loadTasks(data []byte, source string) ([]TaskConfig, error) {
	keys, values, err := mappingEntries(data, source)
	if err != nil {
		return nil, err
	}
	tasks := make([]TaskConfig, 0, len(keys))
	for i, name := range keys {
		var t TaskConfig
		if err := values[i].Decode(&t); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, fmt.Sprintf("%s: task %s", source, name))
		}
		t.Name = name
		t.Description = strings.TrimSpace(t.Description)
		t.ExpectedOutput = strings.TrimSpace(t.ExpectedOutput)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func replaceAgent(agents []AgentConfig, a AgentConfig) []AgentConfig {
	for i := range agents {
		if agents[i].Name == a.Name {
			agents[i] = a
			return agents
		}
	}
	return append(agents, a)
}

// Interpolate replaces {key} placeholders with input values. Unknown
// placeholders are left as written.
func Interpolate(text string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return text
	}
	pairs := make([]string, 0, len(inputs)*2)
	for k, v := range inputs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
