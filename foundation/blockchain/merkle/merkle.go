// Package merkle provides merkle root and inclusion proof support for the
// transaction hashes recorded in a block.
package merkle

import (
	"crypto/sha256"
	"errors"
)

// Leaf is a 32 byte value placed at the bottom of the tree.
type Leaf = [32]byte

// ErrOutOfRange is returned when a proof is requested for a missing leaf.
var ErrOutOfRange = errors.New("leaf index out of range")

// Step is one sibling on the path from a leaf to the root. Left reports if
// the sibling sits on the left side of the concatenation.
type Step struct {
	Sibling Leaf `json:"sibling"`
	Left    bool `json:"left"`
}

// Root calculates the merkle root for the specified leaves. An odd node at
// any level is paired with itself. The root of an empty set is all zeros.
func Root(leaves []Leaf) Leaf {
	if len(leaves) == 0 {
		return Leaf{}
	}

	level := make([]Leaf, len(leaves))
	for i, l := range leaves {
		level[i] = hashLeaf(l)
	}

	for len(level) > 1 {
		level = nextLevel(level)
	}

	return level[0]
}

// Proof returns the path of siblings needed to prove the leaf at index is
// part of the tree.
func Proof(leaves []Leaf, index int) ([]Step, error) {
	if index < 0 || index >= len(leaves) {
		return nil, ErrOutOfRange
	}

	level := make([]Leaf, len(leaves))
	for i, l := range leaves {
		level[i] = hashLeaf(l)
	}

	var path []Step
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		path = append(path, Step{Sibling: level[sibling], Left: sibling < index})

		level = nextLevel(level)
		index /= 2
	}

	return path, nil
}

// Verify checks that the leaf and proof produce the expected root.
func Verify(root Leaf, leaf Leaf, proof []Step) bool {
	h := hashLeaf(leaf)
	for _, step := range proof {
		switch {
		case step.Left:
			h = hashNode(step.Sibling, h)
		default:
			h = hashNode(h, step.Sibling)
		}
	}

	return h == root
}

// =============================================================================

func nextLevel(level []Leaf) []Leaf {
	next := make([]Leaf, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		j := i + 1
		if j == len(level) {
			j = i
		}
		next = append(next, hashNode(level[i], level[j]))
	}
	return next
}

// hashLeaf and hashNode use different domain bytes so an inner node can
// never be presented as a leaf.
func hashLeaf(l Leaf) Leaf {
	return sha256.Sum256(append([]byte{0x00}, l[:]...))
}

func hashNode(left, right Leaf) Leaf {
	buf := make([]byte, 0, 65)
	buf = append(buf, 0x01)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return sha256.Sum256(buf)
}
