package cache

import (
	"encoding/json"
	"fmt"
)

// Key is the ordered tuple naming one cached collection, e.g. {"orders", shopID, "open"}.
type Key []any

// String returns the JSON encoding of the key, which is stable for equal tuples.
func (k Key) String() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return string(b)
}
