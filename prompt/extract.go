package prompt

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/prompteng/ape/errors"
)

// ExtractOutputs parses a model response according to the template's
// response format and returns one value per declared output. Extraction
// is tolerant of surrounding prose: an XML outputs block or a JSON
// object is located anywhere in the response. A response missing a
// declared output is an error.
func ExtractOutputs(t *Template, response string) (map[string]string, error) {
	if len(t.Outputs) == 0 {
		return nil, errors.New("template declares no outputs to extract")
	}

	switch t.ResponseFormat {
	case FormatXML:
		return extractXML(t.Outputs, response)
	case FormatJSON:
		return extractJSON(t.Outputs, response)
	default:
		return extractText(t.Outputs, response)
	}
}

var outputsBlockPattern = regexp.MustCompile(`(?is)<outputs>(.*?)</outputs>`)

func extractXML(outputs Fields, response string) (map[string]string, error) {
	block := response
	if m := outputsBlockPattern.FindStringSubmatch(response); m != nil {
		block = m[1]
	}

	result := make(map[string]string, len(outputs))
	var missing []string
	for _, out := range outputs {
		pattern := regexp.MustCompile(`(?is)<output\s+name="` + regexp.QuoteMeta(out.Name) + `"\s*>(.*?)</output>`)
		m := pattern.FindStringSubmatch(block)
		if m == nil {
			missing = append(missing, out.Name)
			continue
		}
		result[out.Name] = strings.TrimSpace(m[1])
	}
	if len(missing) > 0 {
		return nil, errors.Newf("response missing output %s", strings.Join(missing, ", "))
	}
	return result, nil
}

func extractJSON(outputs Fields, response string) (map[string]string, error) {
	obj, err := scanJSONObject(response)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(outputs))
	var missing []string
	for _, out := range outputs {
		raw, ok := obj[out.Name]
		if !ok {
			missing = append(missing, out.Name)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			result[out.Name] = strings.TrimSpace(s)
			continue
		}
		// Non-string values pass through as compact JSON
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			result[out.Name] = strings.TrimSpace(string(raw))
			continue
		}
		result[out.Name] = buf.String()
	}
	if len(missing) > 0 {
		return nil, errors.Newf("response missing output %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// scanJSONObject locates and decodes the first well-formed JSON object
// in a response, tolerating prose before and after it.
func scanJSONObject(response string) (map[string]json.RawMessage, error) {
	for i := 0; i < len(response); i++ {
		if response[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(response[i:]))
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err == nil {
			return obj, nil
		}
	}
	return nil, errors.New("response contains no JSON object")
}

func extractText(outputs Fields, response string) (map[string]string, error) {
	if len(outputs) != 1 {
		return nil, errors.Newf("text response format requires exactly one output, template declares %d", len(outputs))
	}
	// A model may still answer with an outputs block; honor it before
	// falling back to the bare response.
	if outputsBlockPattern.MatchString(response) {
		if result, err := extractXML(outputs, response); err == nil {
			return result, nil
		}
	}
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, errors.New("response is empty")
	}
	return map[string]string{outputs[0].Name: trimmed}, nil
}
