package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitshell/packages/core/value"
)

// Format renders a result value as readable text. Scalars print as-is,
// structured values as indented JSON, falling back to %v when a value cannot
// be marshaled.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64, bool, int, int64:
		return value.Format(val)
	case *value.Sentinel:
		return val.String()
	case value.KeyValue:
		return val.String()
	case []byte:
		if pretty, ok := ReformatJSON(val); ok {
			return pretty
		}
		return string(val)
	case fmt.Stringer:
		return val.String()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// ReformatJSON re-indents a JSON document. It reports false when body is not
// valid JSON.
func ReformatJSON(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

// IsSingleLine reports whether s fits on one line.
func IsSingleLine(s string) bool {
	return !strings.ContainsAny(s, "\r\n")
}
