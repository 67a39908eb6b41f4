// Package irwriter serialises a compiled internal/ir.Library to the
// external JSON IR schema (C9). The ir package's struct tags already name
// every field the schema requires; this package's only job is to produce
// deterministic bytes — sorted maps, stable key order, no extra
// whitespace beyond standard indentation — so two compiles of the same
// input always produce byte-identical output.
package irwriter

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/mehditeymorian/fidlgo/internal/ir"
)

// libraryAlias is ir.Library under another name, the type Write hands to
// encoding/json. The "declarations" map (map[ir.FQN]string) serialises
// with sorted, repeatable key order because encoding/json sorts the keys
// of maps whose key type is a string type, which ir.FQN is.
type libraryAlias ir.Library

// Write marshals lib as indented JSON and returns the bytes, matching spec §4.8's field
// list. Declaration arrays are expected to already be FQN-sorted by the
// compile phase; Write does not re-sort them, so a caller handing it an
// out-of-order Library gets out-of-order JSON back.
func Write(lib *ir.Library) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode((*libraryAlias)(lib)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SortedFQNs returns lib's declared FQNs in lexicographic order,
// independent of g.Order's topological order — useful for tests and
// tooling that want a canonical listing rather than the compile order.
func SortedFQNs(lib *ir.Library) []ir.FQN {
	out := make([]ir.FQN, 0, len(lib.Declarations))
	for fqn := range lib.Declarations {
		out = append(out, fqn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
