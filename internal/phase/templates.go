package phase

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

// promptsYAML is the compiled-in prompt template set, loaded from
// templates/prompts.yaml at build time.
//
//go:embed templates/prompts.yaml
var promptsYAML []byte

// templateSet mirrors templates/prompts.yaml's top-level keys.
type templateSet struct {
	Planning                  string `yaml:"planning"`
	ImplementationSinglePhase string `yaml:"implementation_single_phase"`
	ImplementationPhase       string `yaml:"implementation_phase"`
	Review                    string `yaml:"review"`
	ReviewWithMCP             string `yaml:"review_with_mcp"`
	Fix                       string `yaml:"fix"`
}

var templates *compiledTemplates

type compiledTemplates struct {
	planning                  *template.Template
	implementationSinglePhase *template.Template
	implementationPhase       *template.Template
	review                    *template.Template
	reviewWithMCP             *template.Template
	fix                       *template.Template
}

func init() {
	var set templateSet
	if err := yaml.Unmarshal(promptsYAML, &set); err != nil {
		panic(fmt.Sprintf("phase: parse embedded prompts.yaml: %v", err))
	}

	templates = &compiledTemplates{
		planning:                  mustCompile("planning", set.Planning),
		implementationSinglePhase: mustCompile("implementation_single_phase", set.ImplementationSinglePhase),
		implementationPhase:       mustCompile("implementation_phase", set.ImplementationPhase),
		review:                    mustCompile("review", set.Review),
		reviewWithMCP:             mustCompile("review_with_mcp", set.ReviewWithMCP),
		fix:                       mustCompile("fix", set.Fix),
	}
}

func mustCompile(name, body string) *template.Template {
	t, err := template.New(name).Parse(body)
	if err != nil {
		panic(fmt.Sprintf("phase: compile template %q: %v", name, err))
	}
	return t
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
