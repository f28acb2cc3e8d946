package actortest

import (
	"encoding/json"
	"fmt"
)

// Pretty renders v for failure messages, as indented JSON when possible.
func Pretty(v any) string {
	if v == nil {
		return "<nil>"
	}
	if data, err := json.MarshalIndent(v, "", "  "); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%#v", v)
}
