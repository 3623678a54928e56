package store

import (
	"fmt"

	"go.melnet.tech/stf/merkle"
	"go.melnet.tech/stf/types"
)

// A trieNode is either a leaf holding one key-value pair or a branch with up
// to 16 children, indexed by the next nibble of the key hash.
type trieNode struct {
	leaf     bool
	key      types.Hash256
	val      []byte
	children [16]types.Hash256
}

func (n *trieNode) encode() []byte {
	if n.leaf {
		b := make([]byte, 0, 1+32+len(n.val))
		b = append(b, 0)
		b = append(b, n.key[:]...)
		return append(b, n.val...)
	}
	b := make([]byte, 0, 1+16*32)
	b = append(b, 1)
	for _, c := range n.children {
		b = append(b, c[:]...)
	}
	return b
}

func (n *trieNode) hash() types.Hash256 {
	if n.leaf {
		return merkle.LeafHash(append(n.key[:], n.val...))
	}
	return merkle.Root(n.children[:])
}

func decodeTrieNode(b []byte) (n trieNode, err error) {
	switch {
	case len(b) >= 33 && b[0] == 0:
		n.leaf = true
		copy(n.key[:], b[1:33])
		n.val = b[33:]
	case len(b) == 1+16*32 && b[0] == 1:
		for i := range n.children {
			copy(n.children[i][:], b[1+32*i:])
		}
	default:
		err = fmt.Errorf("invalid trie node (%v bytes)", len(b))
	}
	return
}

func nibble(h types.Hash256, depth int) int {
	if depth%2 == 0 {
		return int(h[depth/2] >> 4)
	}
	return int(h[depth/2] & 0x0f)
}

// A Mapping is a persistent map from byte strings to byte strings, stored as
// a hexary trie over the hashes of its keys. Its root hash commits to its
// contents and does not depend on the order of insertions and deletions.
//
// Nodes are never modified in place, so a copy of a Mapping is an immutable
// snapshot: changes to one copy are not visible in another.
type Mapping struct {
	cas  *CAS
	root types.Hash256
}

// Root returns the commitment to the Mapping's contents. The root of an empty
// Mapping is the zero hash.
func (m Mapping) Root() types.Hash256 { return m.root }

func (m Mapping) node(h types.Hash256) trieNode {
	b, ok := m.cas.Get(h)
	if !ok {
		panic(fmt.Errorf("missing trie node %v", h))
	}
	n, err := decodeTrieNode(b)
	check(err)
	return n
}

func (m Mapping) put(n trieNode) types.Hash256 {
	h := n.hash()
	m.cas.Insert(h, n.encode())
	return h
}

// Get returns the value stored under key.
func (m Mapping) Get(key []byte) ([]byte, bool) {
	kh := types.HashBytes(key)
	h := m.root
	for depth := 0; h != (types.Hash256{}); depth++ {
		n := m.node(h)
		if n.leaf {
			if n.key != kh {
				return nil, false
			}
			return n.val, true
		}
		h = n.children[nibble(kh, depth)]
	}
	return nil, false
}

// Insert stores val under key, replacing any existing value.
func (m *Mapping) Insert(key, val []byte) {
	m.root = m.insert(m.root, 0, types.HashBytes(key), append([]byte(nil), val...))
}

func (m *Mapping) insert(h types.Hash256, depth int, kh types.Hash256, val []byte) types.Hash256 {
	if h == (types.Hash256{}) {
		return m.put(trieNode{leaf: true, key: kh, val: val})
	}
	n := m.node(h)
	if n.leaf {
		if n.key == kh {
			return m.put(trieNode{leaf: true, key: kh, val: val})
		}
		// push the existing leaf down one level
		var b trieNode
		b.children[nibble(n.key, depth)] = h
		n = b
	}
	i := nibble(kh, depth)
	n.children[i] = m.insert(n.children[i], depth+1, kh, val)
	return m.put(n)
}

// Delete removes key, if present.
func (m *Mapping) Delete(key []byte) {
	m.root, _ = m.delete(m.root, 0, types.HashBytes(key))
}

func (m *Mapping) delete(h types.Hash256, depth int, kh types.Hash256) (types.Hash256, bool) {
	if h == (types.Hash256{}) {
		return h, false
	}
	n := m.node(h)
	if n.leaf {
		if n.key != kh {
			return h, false
		}
		return types.Hash256{}, true
	}
	i := nibble(kh, depth)
	c, changed := m.delete(n.children[i], depth+1, kh)
	if !changed {
		return h, false
	}
	n.children[i] = c

	// a branch left holding a single leaf is replaced by that leaf
	var count int
	var only types.Hash256
	for _, c := range n.children {
		if c != (types.Hash256{}) {
			count++
			only = c
		}
	}
	switch {
	case count == 0:
		return types.Hash256{}, true
	case count == 1 && m.node(only).leaf:
		return only, true
	}
	return m.put(n), true
}

// NewMapping returns the Mapping with the given root, whose nodes are stored
// in cas. Use the zero hash for an empty Mapping.
func NewMapping(cas *CAS, root types.Hash256) Mapping {
	return Mapping{cas: cas, root: root}
}
