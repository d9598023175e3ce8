// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"strconv"
)

// Field names of the synthetic structs.
const (
	laneField = "i"
	wordField = "p"
)

// structRegistry deduplicates synthetic struct definitions. Each distinct
// struct is declared exactly once, in first-use order.
type structRegistry struct {
	defs   []StructDef
	byKey  map[string]int
	keyBuf []byte // reusable buffer for building keys
}

func newStructRegistry() *structRegistry {
	return &structRegistry{
		defs:   make([]StructDef, 0, 4),
		byKey:  make(map[string]int, 4),
		keyBuf: make([]byte, 0, 32),
	}
}

// getOrCreate returns the name of the struct holding count values of typ in
// field, creating it with a name from newName when it does not exist yet.
func (r *structRegistry) getOrCreate(field, typ string, count uint32, newName func() string) string {
	b := r.keyBuf[:0]
	b = append(b, field...)
	b = append(b, ':')
	b = append(b, typ...)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(count), 10)
	r.keyBuf = b
	key := string(b)

	if i, exists := r.byKey[key]; exists {
		return r.defs[i].Name
	}

	def := StructDef{Name: newName(), Field: field, Type: typ, Count: count}
	r.byKey[key] = len(r.defs)
	r.defs = append(r.defs, def)
	return def.Name
}

// all returns the definitions in creation order.
func (r *structRegistry) all() []StructDef {
	return r.defs
}
