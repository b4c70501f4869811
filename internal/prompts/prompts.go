// Package prompts holds the prompt templates bundled with the binary and
// compiles them into invocable functions.
package prompts

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"chatdragon/internal/llm"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Names of the bundled prompt functions.
const (
	NpcGenerateQuick  = "NpcGenerateQuick"
	WorldGenerateTown = "WorldGenerateTown"
)

// Bundled lists the template resources compiled by Load, in order.
var Bundled = []string{
	NpcGenerateQuick + ".yaml",
	WorldGenerateTown + ".yaml",
}

var ErrMissingArgument = errors.New("missing required argument")

// Function names are sent to the model as tool names.
var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Template is the on-disk YAML form of a prompt.
type Template struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	Template          string            `yaml:"template"`
	TemplateFormat    string            `yaml:"template_format"`
	InputVariables    []InputVariable   `yaml:"input_variables"`
	ExecutionSettings ExecutionSettings `yaml:"execution_settings"`
}

type InputVariable struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IsRequired  bool   `yaml:"is_required"`
	Default     string `yaml:"default"`
}

type ExecutionSettings struct {
	MaxTokens      int64    `yaml:"max_tokens"`
	Temperature    *float64 `yaml:"temperature"`
	TopP           *float64 `yaml:"top_p"`
	ResponseFormat string   `yaml:"response_format"`
}

// Function is a compiled prompt template. It is immutable and safe for
// concurrent use.
type Function struct {
	name        string
	description string
	params      []InputVariable
	settings    llm.Settings
	tmpl        *template.Template
}

// Read returns the raw text of a bundled template resource.
func Read(name string) ([]byte, error) {
	data, err := templateFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return nil, fmt.Errorf("prompt resource %q not found: %w", name, err)
	}
	return data, nil
}

// Load compiles every bundled template. Any failure means the process
// should not start.
func Load() ([]*Function, error) {
	functions := make([]*Function, 0, len(Bundled))
	for _, name := range Bundled {
		data, err := Read(name)
		if err != nil {
			return nil, err
		}
		fn, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

// Parse decodes a YAML prompt template and compiles its body.
func Parse(data []byte) (*Function, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	if !validName.MatchString(t.Name) {
		return nil, fmt.Errorf("invalid prompt name %q", t.Name)
	}
	if strings.TrimSpace(t.Template) == "" {
		return nil, fmt.Errorf("prompt %s has an empty template", t.Name)
	}
	if t.TemplateFormat != "" && t.TemplateFormat != "go" {
		return nil, fmt.Errorf("prompt %s: unsupported template_format %q", t.Name, t.TemplateFormat)
	}

	seen := make(map[string]bool, len(t.InputVariables))
	for _, v := range t.InputVariables {
		if v.Name == "" {
			return nil, fmt.Errorf("prompt %s: input variable without a name", t.Name)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("prompt %s: duplicate input variable %q", t.Name, v.Name)
		}
		seen[v.Name] = true
	}

	switch t.ExecutionSettings.ResponseFormat {
	case "", "text", "json_object":
	default:
		return nil, fmt.Errorf("prompt %s: unsupported response_format %q", t.Name, t.ExecutionSettings.ResponseFormat)
	}

	tmpl, err := template.New(t.Name).Option("missingkey=error").Parse(t.Template)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", t.Name, err)
	}

	return &Function{
		name:        t.Name,
		description: strings.TrimSpace(t.Description),
		params:      t.InputVariables,
		settings: llm.Settings{
			MaxTokens:      t.ExecutionSettings.MaxTokens,
			Temperature:    t.ExecutionSettings.Temperature,
			TopP:           t.ExecutionSettings.TopP,
			ResponseFormat: t.ExecutionSettings.ResponseFormat,
		},
		tmpl: tmpl,
	}, nil
}

func (f *Function) Name() string        { return f.name }
func (f *Function) Description() string { return f.description }

// Parameters returns a copy of the declared input variables.
func (f *Function) Parameters() []InputVariable {
	out := make([]InputVariable, len(f.params))
	copy(out, f.params)
	return out
}

func (f *Function) Settings() llm.Settings { return f.settings }

// Render binds args to the declared input variables and executes the
// template. Undeclared arguments are ignored.
func (f *Function) Render(args map[string]any) (string, error) {
	data := make(map[string]any, len(f.params))
	for _, p := range f.params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.IsRequired {
				return "", fmt.Errorf("%s: %w %q", f.name, ErrMissingArgument, p.Name)
			}
			v = p.Default
		}
		data[p.Name] = v
	}

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%s: failed to render prompt: %w", f.name, err)
	}
	return buf.String(), nil
}

// Invoke renders the prompt, sends it as a single user message and returns
// the text of the reply.
func (f *Function) Invoke(ctx context.Context, completer llm.Completer, args map[string]any) (string, error) {
	prompt, err := f.Render(args)
	if err != nil {
		return "", err
	}

	return llm.CompleteText(ctx, completer, llm.CompletionRequest{
		Operation: "prompt." + f.name,
		Function:  f.name,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Settings:  f.settings,
	})
}
