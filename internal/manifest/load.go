package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	template     bool
	templateData map[string]any
}

// WithTemplate renders the manifest as a text/template before parsing.
// data is available as the template dot; sprig functions (env, default,
// trunc, ...) are always available.
func WithTemplate(data map[string]any) LoadOption {
	return func(o *loadOptions) {
		o.template = true
		o.templateData = data
	}
}

// Load reads and parses the manifest at path.
func Load(path string, opts ...LoadOption) (*Manifest, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	if o.template {
		data, err = render(filepath.Base(path), data, o.templateData)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	m, err := decode(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}

// Parse parses manifest content that has already been read.
func Parse(data []byte) (*Manifest, error) {
	m, err := decode(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return m, nil
}

// render executes data as a template with sprig functions.
func render(name string, data []byte, values map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return buf.Bytes(), nil
}

// document is the top-level shape. Environments is kept as a node so a
// missing key can be told apart from an empty sequence.
type document struct {
	Environments yaml.Node `yaml:"environments"`
}

func decode(data []byte) (*Manifest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	node := &doc.Environments
	switch {
	case node.Kind == 0, node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null":
		return nil, ErrMissingEnvironments
	case node.Kind != yaml.SequenceNode:
		return nil, fmt.Errorf("line %d: environments must be a sequence", node.Line)
	}

	m := &Manifest{Environments: make([]Environment, 0, len(node.Content))}
	seen := make(map[string]int, len(node.Content))

	for i, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: environments[%d] must be a mapping", item.Line, i)
		}

		var env Environment
		if err := item.Decode(&env); err != nil {
			return nil, fmt.Errorf("environments[%d]: %w", i, err)
		}
		if env.Name == "" {
			return nil, fmt.Errorf("line %d: environments[%d]: project is required", item.Line, i)
		}
		if env.ProjectID == "" {
			return nil, fmt.Errorf("line %d: environment %q: id is required", item.Line, env.Name)
		}
		if first, ok := seen[env.Name]; ok {
			return nil, fmt.Errorf("%w: %q at environments[%d] and environments[%d]",
				ErrDuplicateEnvironment, env.Name, first, i)
		}
		seen[env.Name] = i

		m.Environments = append(m.Environments, env)
	}

	return m, nil
}

// serviceBody is the decoded form of a single repos entry.
type serviceBody struct {
	Image  string   `yaml:"image"`
	Config any      `yaml:"config"`
	Files  FileList `yaml:"files"`
}

// UnmarshalYAML decodes the repos mapping, keeping document order.
func (l *ServiceList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: repos must be a mapping", node.Line)
	}

	services := make(ServiceList, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return fmt.Errorf("line %d: service %q already defined", key.Line, key.Value)
		}
		seen[key.Value] = true
		svc := Service{Name: key.Value}

		// A bare "name:" entry is a legal no-op.
		if val.Kind == yaml.ScalarNode && val.ShortTag() == "!!null" {
			services = append(services, svc)
			continue
		}
		if val.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: service %q must be a mapping", val.Line, key.Value)
		}

		var body serviceBody
		if err := val.Decode(&body); err != nil {
			return fmt.Errorf("service %q: %w", key.Value, err)
		}
		svc.Image = body.Image
		svc.Config = normalize(body.Config)
		svc.Files = body.Files

		services = append(services, svc)
	}

	*l = services
	return nil
}

// UnmarshalYAML decodes the files mapping, keeping document order.
func (l *FileList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: files must be a mapping", node.Line)
	}

	files := make(FileList, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return fmt.Errorf("line %d: file %q already defined", key.Line, key.Value)
		}
		seen[key.Value] = true
		if val.Kind != yaml.ScalarNode || val.ShortTag() == "!!null" {
			return fmt.Errorf("line %d: file %q must be a URL or inline content", val.Line, key.Value)
		}
		files = append(files, File{Label: key.Value, Source: val.Value})
	}

	*l = files
	return nil
}

// normalize converts any map[any]any produced by the YAML decoder into
// map[string]any so the value can be encoded as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}
