package prompt

import (
	"strings"

	"github.com/prompteng/ape/errors"
)

// Render interpolates placeholders from vars and returns the chat pair.
// Multiple sections of the same role are joined with blank lines.
// Assistant sections are excluded: they exist for demonstration turns
// and round-tripping, not for the rendered request.
//
// Every referenced placeholder must have a value in vars, except
// FewshotPlaceholder: its value is optional and the site collapses to
// nothing when absent.
func (t *Template) Render(vars map[string]string) (system, user string, err error) {
	var systemParts, userParts []string

	for _, sec := range t.Sections {
		if sec.Role == RoleAssistant {
			continue
		}
		body, err := renderBody(sec.Body, vars)
		if err != nil {
			return "", "", err
		}
		switch sec.Role {
		case RoleSystem:
			systemParts = append(systemParts, body)
		case RoleUser:
			userParts = append(userParts, body)
		}
	}

	return strings.Join(systemParts, "\n\n"), strings.Join(userParts, "\n\n"), nil
}

// renderBody substitutes one section body from parsed placeholder spans
func renderBody(body string, vars map[string]string) (string, error) {
	refs := scanPlaceholders(body)
	if len(refs) == 0 {
		return body, nil
	}

	var out strings.Builder
	out.Grow(len(body) * 2)

	lastEnd := 0
	for _, ref := range refs {
		out.WriteString(body[lastEnd:ref.start])
		lastEnd = ref.end

		value, ok := vars[ref.name]
		if !ok {
			if ref.name == FewshotPlaceholder {
				continue // optional: collapses to nothing
			}
			return "", errors.Newf("no value for placeholder %q", ref.name)
		}
		out.WriteString(value)
	}
	out.WriteString(body[lastEnd:])

	return collapseBlankRuns(out.String()), nil
}

// collapseBlankRuns squeezes the 3+ newline runs left behind by empty
// substitutions down to a single blank line
func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
