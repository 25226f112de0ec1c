package secrets

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKey holds a secret that is not a JSON object.
const ValueKey = "value"

// Parse decodes a secret string. A JSON object yields its fields with
// non-string values formatted; anything else is returned under ValueKey.
func Parse(raw string) map[string]string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			out := make(map[string]string, len(fields))
			for k, v := range fields {
				switch tv := v.(type) {
				case string:
					out[k] = tv
				case nil:
					out[k] = ""
				default:
					out[k] = fmt.Sprint(tv)
				}
			}
			return out
		}
	}
	return map[string]string{ValueKey: raw}
}
