package display

import (
	"encoding/json"
	"flag"
)

// MarshalJSON marshals with compact formatting for agent environments,
// pretty formatting for human-readable output
func MarshalJSON(v interface{}) ([]byte, error) {
	// Tests always get pretty formatting so the json: prefix never
	// breaks golden files
	if flag.Lookup("test.v") != nil {
		return json.MarshalIndent(v, "", "  ")
	}

	if IsAgentEnvironment() {
		result, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		// The prefix stops agents from re-detecting and pretty-printing
		return append([]byte("json:"), result...), nil
	}

	return json.MarshalIndent(v, "", "  ")
}
