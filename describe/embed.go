package describe

import (
	"embed"

	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/prompt"
)

//go:embed templates/*.prompt
var builtinFS embed.FS

// Builtin template names
const (
	TemplateDescriptor          = "dataset-descriptor"
	TemplateDescriptorWithPrior = "dataset-descriptor-with-prior-observations"
	TemplateSummarizer          = "observation-summarizer"
)

// BuiltinTemplate loads and parses one of the embedded workflow
// templates by name
func BuiltinTemplate(name string) (*prompt.Template, error) {
	raw, err := builtinFS.ReadFile("templates/" + name + ".prompt")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "builtin template %q", name)
	}
	tpl, err := prompt.Parse(string(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "builtin template %q", name)
	}
	return tpl, nil
}

// BuiltinTemplateNames lists the embedded workflow templates
func BuiltinTemplateNames() []string {
	return []string{TemplateDescriptor, TemplateDescriptorWithPrior, TemplateSummarizer}
}
