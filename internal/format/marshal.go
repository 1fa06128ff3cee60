package format

import "encoding/json"

// marshalCompact re-serializes an already-decoded value, used to preserve a
// nested structured field (libacars) as an opaque JSON string column.
func marshalCompact(v any) ([]byte, error) {
	return json.Marshal(v)
}
