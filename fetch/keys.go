package fetch

import "fmt"

// keyOf normalizes a join key value into a map key. Different driver
// representations of the same value (int vs int64, []byte vs string) must
// group together.
func keyOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
