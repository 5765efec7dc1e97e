// Package index provides an in-memory, prefix-ordered index of decoded
// structs keyed by their dotted string identifier, backed by an adaptive
// radix tree so prefix scans over the hierarchical
// "company.volatile.renat.riga"-style namespace are native tree operations.
// Range scans walk every entry in key order and compare each key against
// the bounds.
package index

import (
	art "github.com/plar/go-adaptive-radix-tree/v2"

	"github.com/scsparse/siigo/sii"
)

// Index maps decoded struct identifiers to the structs themselves, ordered
// lexicographically by their dotted string form.
type Index struct {
	tree art.Tree
}

// New returns an empty Index.
func New() *Index {
	return &Index{tree: art.New()}
}

// Insert adds s under its own ID, replacing the key's defining token's worth
// of record state. A Nameless-ID struct still indexes fine: ID.String()
// renders a deterministic "_nameless.xxxx.xxxx.xxxx.xxxx" key for it.
func (idx *Index) Insert(s *sii.Struct) {
	idx.tree.Insert(art.Key(s.ID.String()), s)
}

// Get looks up the struct filed under id's exact string form.
func (idx *Index) Get(id sii.ID) (*sii.Struct, bool) {
	v, found := idx.tree.Search(art.Key(id.String()))
	if !found {
		return nil, false
	}
	return v.(*sii.Struct), true
}

// Len returns the number of indexed structs.
func (idx *Index) Len() int {
	return idx.tree.Size()
}

// WalkPrefix calls fn for every struct whose ID string begins with prefix,
// in lexicographic key order. Walking stops early if fn returns false.
func (idx *Index) WalkPrefix(prefix string, fn func(*sii.Struct) bool) {
	idx.tree.ForEachPrefix(art.Key(prefix), func(node art.Node) bool {
		if node.Kind() != art.Leaf {
			return true
		}
		return fn(node.Value().(*sii.Struct))
	})
}

// Range calls fn for every struct whose ID string lies in [start, end),
// in lexicographic key order. Walking stops early if fn returns false.
func (idx *Index) Range(start, end string, fn func(*sii.Struct) bool) {
	idx.tree.ForEach(func(node art.Node) bool {
		if node.Kind() != art.Leaf {
			return true
		}
		key := string(node.Key())
		if key < start || key >= end {
			return true
		}
		return fn(node.Value().(*sii.Struct))
	}, art.TraverseLeaf)
}
