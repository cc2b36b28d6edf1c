package output

import (
	"encoding/json"

	"github.com/handlescan/handlescan/internal/core"
)

// JSONFormatter renders results as JSON. Indent produces the two-space form
// used for terminals; pipelines get the compact form.
type JSONFormatter struct {
	Indent bool
}

// FormatCheck renders the canonical flat check record.
func (f *JSONFormatter) FormatCheck(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatQuick renders a quick check result.
func (f *JSONFormatter) FormatQuick(result *core.QuickResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

func (f *JSONFormatter) marshal(payload any) (string, error) {
	if f.Indent {
		data, err := json.MarshalIndent(payload, "", "  ")
		return string(data), err
	}
	data, err := json.Marshal(payload)
	return string(data), err
}
