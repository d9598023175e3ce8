// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"fmt"
)

// namer generates unique identifiers for generated source.
type namer struct {
	// usedNames tracks names that have been handed out.
	usedNames map[string]struct{}

	// reserved reports dialect keywords and helper names.
	reserved func(string) bool

	// counter is used to generate unique suffixes.
	counter uint32
}

func newNamer(reserved func(string) bool) *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
		reserved:  reserved,
	}
}

// call generates a unique name based on the given base.
// Reserved words are escaped with a leading underscore first.
func (n *namer) call(base string) string {
	if base == "" {
		base = "_unnamed"
	}
	escaped := base
	if n.reserved != nil && n.reserved(base) {
		escaped = "_" + base
	}

	if _, used := n.usedNames[escaped]; !used {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}

	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}
