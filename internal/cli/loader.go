package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
)

// loadPayload reads a flowchart file. YAML is chosen by extension,
// anything else is parsed as JSON.
func loadPayload(path string) (flowchart.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flowchart.Payload{}, WrapExitError(ExitCommandError, "read flowchart", err)
	}
	var p flowchart.Payload
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err = flowchart.DecodeYAMLPayload(data)
	default:
		p, err = flowchart.DecodePayload(data)
	}
	if err != nil {
		return flowchart.Payload{}, WrapExitError(ExitCommandError, path, err)
	}
	return p, nil
}

// flowchartID derives a flowchart id from its file name.
func flowchartID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseAssignments turns repeated name=value flags into a map of queues,
// preserving flag order per name.
func parseAssignments(pairs []string) (map[string][]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string][]any)
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("expected name=value, got %q", p))
		}
		out[name] = append(out[name], value)
	}
	return out, nil
}
