package prompt

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Placeholder patterns. The double-brace alternative comes first so
// {{name}} is never read as a brace followed by {name}.
var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}|\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// sectionPattern matches one role-tagged turn section. Go regexps have
// no backreferences, so open/close tag agreement is checked after the
// match.
var sectionPattern = regexp.MustCompile(`(?s)<(system|user|assistant)>(.*?)</(system|user|assistant)>`)

// placeholderRef is one placeholder occurrence in a section body
type placeholderRef struct {
	name   string
	double bool // {{name}} rather than {name}
	start  int
	end    int
}

// scanPlaceholders finds every placeholder occurrence in body, in order
func scanPlaceholders(body string) []placeholderRef {
	matches := placeholderPattern.FindAllStringSubmatchIndex(body, -1)
	refs := make([]placeholderRef, 0, len(matches))
	for _, m := range matches {
		ref := placeholderRef{start: m[0], end: m[1]}
		if m[2] >= 0 {
			ref.name = body[m[2]:m[3]]
			ref.double = true
		} else {
			ref.name = body[m[4]:m[5]]
		}
		refs = append(refs, ref)
	}
	return refs
}

// Parse parses raw template text into a Template. It is a pure
// function: no I/O, same input always yields the same result. Malformed
// or inconsistent input fails with a *FormatError naming the offending
// field.
func Parse(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newFormatError("header", "empty template")
	}

	// Split front matter from body on --- fences
	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 {
		return nil, newFormatError("header", "missing front matter block (--- fences)")
	}
	if strings.TrimSpace(parts[0]) != "" {
		return nil, newFormatError("header", "unexpected text before front matter")
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, newFormatError("header", "malformed front matter YAML: %v", err)
	}

	if fm.Model == "" {
		return nil, newFormatError("model", "required field is missing")
	}

	t := &Template{
		Model:          fm.Model,
		Description:    fm.Description,
		Engine:         fm.Engine,
		Inputs:         fm.Inputs,
		Outputs:        fm.Outputs,
		ResponseFormat: FormatText,
		Temperature:    fm.Temperature,
		MaxTokens:      fm.MaxTokens,
	}

	if fm.ResponseFormat != nil {
		switch ResponseFormat(fm.ResponseFormat.Type) {
		case FormatText, FormatXML, FormatJSON:
			t.ResponseFormat = ResponseFormat(fm.ResponseFormat.Type)
		default:
			return nil, newFormatError("response_format", "unknown type %q (valid: text, xml, json)", fm.ResponseFormat.Type)
		}
	}

	if t.Temperature != nil && (*t.Temperature < 0.0 || *t.Temperature > 2.0) {
		return nil, newFormatError("temperature", "must be between 0.0 and 2.0, got %g", *t.Temperature)
	}
	if t.MaxTokens != nil && *t.MaxTokens < 1 {
		return nil, newFormatError("max_tokens", "must be positive, got %d", *t.MaxTokens)
	}
	if t.Engine != "" {
		if _, err := semver.NewConstraint(t.Engine); err != nil {
			return nil, newFormatError("engine", "invalid version constraint %q: %v", t.Engine, err)
		}
	}

	if t.Inputs.Has(FewshotPlaceholder) {
		return nil, newFormatError("inputs", "%s is reserved and may not be declared", FewshotPlaceholder)
	}

	sections, err := parseSections(parts[2])
	if err != nil {
		return nil, err
	}
	t.Sections = sections

	// Cross-check declared inputs against referenced placeholders and
	// detect the delimiter style along the way.
	sawDouble := false
	sawSingle := false
	referenced := map[string]bool{}
	for _, sec := range t.Sections {
		for _, ref := range scanPlaceholders(sec.Body) {
			referenced[ref.name] = true
			if ref.double {
				sawDouble = true
			} else {
				sawSingle = true
			}
			if ref.name == FewshotPlaceholder {
				continue
			}
			if !t.Inputs.Has(ref.name) {
				return nil, newFormatError(ref.name, "placeholder is not declared in inputs")
			}
		}
	}
	for _, in := range t.Inputs {
		if !referenced[in.Name] {
			return nil, newFormatError(in.Name, "input is declared but never referenced")
		}
	}

	// Single-brace templates keep their style through rewrites;
	// everything else (including mixed and placeholder-free) uses the
	// double-brace default.
	if sawSingle && !sawDouble {
		t.Delimiter = DelimiterSingle
	}

	if len(t.Outputs) == 0 && (t.ResponseFormat == FormatXML || t.ResponseFormat == FormatJSON) {
		return nil, newFormatError("outputs", "response_format %s requires at least one declared output", t.ResponseFormat)
	}

	return t, nil
}

// parseSections splits the body into role-tagged sections, rejecting
// stray text outside them
func parseSections(body string) ([]Section, error) {
	matches := sectionPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return nil, newFormatError("body", "no role-tagged sections (<system>, <user>, <assistant>)")
	}

	var sections []Section
	lastEnd := 0
	for _, m := range matches {
		if stray := body[lastEnd:m[0]]; strings.TrimSpace(stray) != "" {
			return nil, newFormatError("body", "unexpected text outside sections: %q", strings.TrimSpace(stray))
		}
		open := body[m[2]:m[3]]
		closing := body[m[6]:m[7]]
		if open != closing {
			return nil, newFormatError("body", "mismatched section tags <%s>...</%s>", open, closing)
		}
		sections = append(sections, Section{
			Role: Role(open),
			Body: strings.TrimSpace(body[m[4]:m[5]]),
		})
		lastEnd = m[1]
	}
	if stray := body[lastEnd:]; strings.TrimSpace(stray) != "" {
		return nil, newFormatError("body", "unexpected text after sections: %q", strings.TrimSpace(stray))
	}

	return sections, nil
}

// ValidateTemplate checks template text without keeping the result
func ValidateTemplate(text string) error {
	_, err := Parse(text)
	return err
}
