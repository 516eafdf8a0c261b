package prompt

import (
	"strings"
)

// Mode selects the output contract Transform enforces
type Mode string

const (
	// ModeXML constrains responses to an <outputs> block
	ModeXML Mode = "xml"
	// ModeJSON constrains responses to a JSON object
	ModeJSON Mode = "json"
)

// ParseMode converts a string to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "xml":
		return ModeXML, nil
	case "json":
		return ModeJSON, nil
	default:
		return "", newFormatError("mode", "unrecognized output mode %q (valid: xml, json)", s)
	}
}

// Transform rewrites a template so completion responses are constrained
// to a parseable contract. It returns a new Template; the input is
// never mutated. Inputs, Outputs and all original instruction text pass
// through unchanged; only structural additions are made:
//
//   - an output-contract block appended to the system section (created
//     if the template has none), declaring the response shape for the
//     chosen mode;
//   - the reserved few-shot placeholder inserted into the user section,
//     after free-form instructions and before the first input
//     reference;
//   - each input reference wrapped in an <input name="..."> boundary
//     marker to aid downstream parsing.
//
// Applying the same mode twice is a no-op: a template that already
// declares the target response format and already carries the few-shot
// placeholder comes back as an equivalent copy.
func Transform(t *Template, mode Mode) (*Template, error) {
	var target ResponseFormat
	switch mode {
	case ModeXML:
		target = FormatXML
	case ModeJSON:
		target = FormatJSON
	default:
		return nil, newFormatError("mode", "unrecognized transform mode %q (valid: xml, json)", mode)
	}

	if len(t.Outputs) == 0 {
		return nil, newFormatError("outputs", "cannot constrain a template with no declared outputs")
	}

	out := t.Clone()

	// Already transformed to this mode: nothing to add
	if t.ResponseFormat == target && t.HasPlaceholder(FewshotPlaceholder) {
		return out, nil
	}

	out.ResponseFormat = target

	var contract string
	switch mode {
	case ModeXML:
		contract = xmlContract(out.Outputs)
	case ModeJSON:
		contract = jsonContract(out.Outputs)
	}

	if sys, ok := out.Section(RoleSystem); ok {
		if !strings.Contains(sys.Body, contract) {
			sys.Body = strings.TrimSpace(sys.Body) + "\n\n" + contract
		}
	} else {
		out.Sections = append([]Section{{Role: RoleSystem, Body: contract}}, out.Sections...)
	}

	if usr, ok := out.Section(RoleUser); ok {
		usr.Body = injectUserBody(usr.Body, out)
	} else {
		out.Sections = append(out.Sections, Section{
			Role: RoleUser,
			Body: out.Placeholder(FewshotPlaceholder),
		})
	}

	return out, nil
}

// xmlContract declares one named output tag per declared output
func xmlContract(outputs Fields) string {
	var b strings.Builder
	b.WriteString("Structure your response as an outputs block with one named entry per field:\n\n")
	b.WriteString("<outputs>\n")
	for _, out := range outputs {
		b.WriteString(`<output name="`)
		b.WriteString(out.Name)
		b.WriteString(`">`)
		b.WriteString(out.Description)
		b.WriteString("</output>\n")
	}
	b.WriteString("</outputs>")
	return b.String()
}

// jsonContract instructs a JSON object keyed exactly by the outputs
func jsonContract(outputs Fields) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object. Its keys must be exactly:\n")
	for _, out := range outputs {
		b.WriteString("- ")
		b.WriteString(out.Name)
		if out.Description != "" {
			b.WriteString(": ")
			b.WriteString(out.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Output only the JSON object, with no surrounding text.")
	return b.String()
}

// injectUserBody inserts the few-shot placeholder before the first
// input reference and wraps each input reference in a boundary marker.
// References already wrapped, and an already-present few-shot site, are
// left alone.
func injectUserBody(body string, t *Template) string {
	refs := scanPlaceholders(body)

	hasFewshot := false
	firstInput := -1
	for _, ref := range refs {
		if ref.name == FewshotPlaceholder {
			hasFewshot = true
		} else if firstInput == -1 {
			firstInput = ref.start
		}
	}

	var b strings.Builder
	lastEnd := 0
	for _, ref := range refs {
		b.WriteString(body[lastEnd:ref.start])
		lastEnd = ref.end

		if ref.name == FewshotPlaceholder {
			b.WriteString(body[ref.start:ref.end])
			continue
		}

		// Demonstrations go in right before the first input reference
		if !hasFewshot && ref.start == firstInput {
			b.WriteString(t.Placeholder(FewshotPlaceholder))
			b.WriteString("\n\n")
		}

		if wrappedInMarker(body, ref) {
			b.WriteString(body[ref.start:ref.end])
			continue
		}
		b.WriteString(`<input name="`)
		b.WriteString(ref.name)
		b.WriteString(`">`)
		b.WriteString(body[ref.start:ref.end])
		b.WriteString(`</input>`)
	}
	b.WriteString(body[lastEnd:])

	if !hasFewshot && firstInput == -1 {
		// No input references: demonstrations go at the end
		return strings.TrimSpace(b.String()) + "\n\n" + t.Placeholder(FewshotPlaceholder)
	}

	return b.String()
}

// wrappedInMarker reports whether a reference already sits inside its
// own input boundary marker
func wrappedInMarker(body string, ref placeholderRef) bool {
	return strings.HasSuffix(body[:ref.start], `<input name="`+ref.name+`">`) &&
		strings.HasPrefix(body[ref.end:], `</input>`)
}
