// Package prompt parses, renders and rewrites prompt-template files.
//
// A template file is YAML front matter followed by role-tagged turn
// sections:
//
//	---
//	model: openai/gpt-4o-mini
//	inputs:
//	  question: the question to answer
//	outputs:
//	  answer: the model's answer
//	---
//
//	<system>
//	Answer concisely.
//	</system>
//
//	<user>
//	{question}
//	</user>
//
// Section bodies interpolate declared inputs with either {name} or
// {{name}} syntax; both refer to the same named variable. The reserved
// placeholder _fewshot_ marks where demonstrations are injected at
// render time and is never declared as an input.
package prompt

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ResponseFormat constrains what shape a completion response must take
type ResponseFormat string

const (
	// FormatText places no structural constraint on the response
	FormatText ResponseFormat = "text"
	// FormatXML requires an <outputs> block with one named entry per output
	FormatXML ResponseFormat = "xml"
	// FormatJSON requires a JSON object keyed by the output names
	FormatJSON ResponseFormat = "json"
)

// Role tags a turn section
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Delimiter is the placeholder style a template uses
type Delimiter int

const (
	// DelimiterDouble is {{name}}
	DelimiterDouble Delimiter = iota
	// DelimiterSingle is {name}
	DelimiterSingle
)

// FewshotPlaceholder is the reserved substitution site for task
// demonstrations. It is injected by Transform and filled (or dropped)
// at render time; declaring it as an input is an error.
const FewshotPlaceholder = "_fewshot_"

// Section is one role-tagged block of a template body
type Section struct {
	Role Role
	Body string
}

// Template is a parsed prompt template: header metadata plus ordered
// turn sections. Instances are immutable once parsed; Transform returns
// a fresh copy rather than mutating.
type Template struct {
	Model          string
	Description    string
	Engine         string // semver constraint on the toolkit version, "" = any
	Inputs         Fields
	Outputs        Fields
	ResponseFormat ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	Sections       []Section
	Delimiter      Delimiter
}

// frontMatter is the YAML header block of a template file
type frontMatter struct {
	Model          string          `yaml:"model"`
	Description    string          `yaml:"description,omitempty"`
	Engine         string          `yaml:"engine,omitempty"`
	Inputs         Fields          `yaml:"inputs,omitempty"`
	Outputs        Fields          `yaml:"outputs,omitempty"`
	ResponseFormat *responseFormat `yaml:"response_format,omitempty"`
	Temperature    *float64        `yaml:"temperature,omitempty"`
	MaxTokens      *int            `yaml:"max_tokens,omitempty"`
}

type responseFormat struct {
	Type string `yaml:"type"`
}

// Section lookup helpers

// Section returns the first section with the given role
func (t *Template) Section(role Role) (*Section, bool) {
	for i := range t.Sections {
		if t.Sections[i].Role == role {
			return &t.Sections[i], true
		}
	}
	return nil, false
}

// HasPlaceholder reports whether any section body references the named
// placeholder, in either delimiter style.
func (t *Template) HasPlaceholder(name string) bool {
	for _, sec := range t.Sections {
		for _, ref := range scanPlaceholders(sec.Body) {
			if ref.name == name {
				return true
			}
		}
	}
	return false
}

// Placeholder wraps a name in this template's delimiter style
func (t *Template) Placeholder(name string) string {
	if t.Delimiter == DelimiterSingle {
		return "{" + name + "}"
	}
	return "{{" + name + "}}"
}

// Clone returns a deep copy
func (t *Template) Clone() *Template {
	out := *t
	out.Inputs = append(Fields(nil), t.Inputs...)
	out.Outputs = append(Fields(nil), t.Outputs...)
	out.Sections = append([]Section(nil), t.Sections...)
	if t.Temperature != nil {
		temp := *t.Temperature
		out.Temperature = &temp
	}
	if t.MaxTokens != nil {
		tokens := *t.MaxTokens
		out.MaxTokens = &tokens
	}
	return &out
}

// Text serializes the template back to file form: ordered YAML front
// matter followed by role-tagged sections. Parse(t.Text()) yields an
// equivalent template.
func (t *Template) Text() (string, error) {
	fm := frontMatter{
		Model:       t.Model,
		Description: t.Description,
		Engine:      t.Engine,
		Inputs:      t.Inputs,
		Outputs:     t.Outputs,
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
	}
	if t.ResponseFormat != "" && t.ResponseFormat != FormatText {
		fm.ResponseFormat = &responseFormat{Type: string(t.ResponseFormat)}
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", newFormatError("header", "failed to serialize front matter: %v", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n")

	for _, sec := range t.Sections {
		b.WriteString("\n<")
		b.WriteString(string(sec.Role))
		b.WriteString(">\n")
		b.WriteString(strings.TrimSpace(sec.Body))
		b.WriteString("\n</")
		b.WriteString(string(sec.Role))
		b.WriteString(">\n")
	}

	return b.String(), nil
}
