// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

// Kernel is one compute kernel in IR form.
type Kernel struct {
	// Name is the kernel entry point name.
	Name string

	// Params lists the kernel parameters in signature order.
	Params []Param

	// Vars holds every variable of the kernel; VarHandle indexes it.
	Vars []Variable

	// Body is the kernel body in program order.
	Body Block
}

// VarHandle references a variable in Kernel.Vars.
type VarHandle uint32

// Param is a kernel parameter.
type Param struct {
	Var VarHandle

	// Mutable marks buffers the kernel writes to.
	Mutable bool
}

// Origin records how a variable came into existence.
type Origin uint8

const (
	// OriginLocal is a value declared in the kernel body.
	OriginLocal Origin = iota

	// OriginParam is a kernel parameter.
	OriginParam

	// OriginIndex is the explicit intermediate produced by an Index instruction.
	OriginIndex

	// OriginBuiltin is bound to a compiler-provided identifier.
	OriginBuiltin
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginParam:
		return "param"
	case OriginIndex:
		return "index"
	case OriginBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Variable is a named, typed IR value.
type Variable struct {
	Name   string
	Type   Type
	Origin Origin

	// Builtin is meaningful only when Origin is OriginBuiltin.
	Builtin Builtin

	// Item optionally carries the descriptor attached by the front end.
	// Lowering checks it against the declared type and honors its packing
	// choice; builtins always use BuiltinItem.
	Item *Item
}

// Builtin identifies a compiler-provided scalar identifier.
type Builtin uint8

const (
	// UnitPos is the linear position of the thread inside its cube.
	UnitPos Builtin = iota
	UnitPosX
	UnitPosY
	UnitPosZ
	CubePosX
	CubePosY
	CubePosZ
	CubeDimX
	CubeDimY
	CubeDimZ
	// AbsolutePosX is CubePosX*CubeDimX + UnitPosX.
	AbsolutePosX

	builtinCount
)

var builtinNames = [builtinCount]string{
	UnitPos:      "unit_pos",
	UnitPosX:     "unit_pos_x",
	UnitPosY:     "unit_pos_y",
	UnitPosZ:     "unit_pos_z",
	CubePosX:     "cube_pos_x",
	CubePosY:     "cube_pos_y",
	CubePosZ:     "cube_pos_z",
	CubeDimX:     "cube_dim_x",
	CubeDimY:     "cube_dim_y",
	CubeDimZ:     "cube_dim_z",
	AbsolutePosX: "absolute_pos_x",
}

// String returns the builtin name used in kernel description files.
func (b Builtin) String() string {
	if b < builtinCount {
		return builtinNames[b]
	}
	return "builtin?"
}

// ParseBuiltin looks up a builtin by name.
func ParseBuiltin(s string) (Builtin, bool) {
	for b := Builtin(0); b < builtinCount; b++ {
		if builtinNames[b] == s {
			return b, true
		}
	}
	return 0, false
}

// Var returns the variable for handle h.
func (k *Kernel) Var(h VarHandle) *Variable {
	return &k.Vars[h]
}

// Lookup finds a variable by name.
func (k *Kernel) Lookup(name string) (VarHandle, bool) {
	for i := range k.Vars {
		if k.Vars[i].Name == name {
			return VarHandle(i), true //nolint:gosec // G115: i indexes Vars
		}
	}
	return 0, false
}

// ParamOf returns the parameter bound to h, if any.
func (k *Kernel) ParamOf(h VarHandle) (Param, bool) {
	for _, p := range k.Params {
		if p.Var == h {
			return p, true
		}
	}
	return Param{}, false
}
