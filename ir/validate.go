// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Kernel      string
	Instruction int // -1 when the error is not tied to an instruction
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Kernel != "" {
		if e.Instruction >= 0 {
			return fmt.Sprintf("in kernel %s, instruction %d: %s", e.Kernel, e.Instruction, e.Message)
		}
		return fmt.Sprintf("in kernel %s: %s", e.Kernel, e.Message)
	}
	return e.Message
}

// Validator validates IR kernels.
type Validator struct {
	kernel *Kernel
	errors []ValidationError

	// counter numbers instructions in program order, nested blocks included.
	counter int

	// assigned tracks OriginIndex variables that already have a value.
	assigned map[VarHandle]bool

	// roots maps index intermediates to the buffer parameter they read from.
	roots map[VarHandle]VarHandle
}

// Validate checks the kernel for structural correctness.
// Returns validation errors if any, or nil if the kernel is valid.
func Validate(k *Kernel) ([]ValidationError, error) {
	if k == nil {
		return nil, fmt.Errorf("kernel is nil")
	}

	v := &Validator{
		kernel:   k,
		errors:   make([]ValidationError, 0),
		assigned: make(map[VarHandle]bool),
		roots:    make(map[VarHandle]VarHandle),
	}
	v.ValidateKernel()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateKernel validates the complete kernel.
func (v *Validator) ValidateKernel() {
	if !isIdentifier(v.kernel.Name) {
		v.addError(-1, fmt.Sprintf("kernel name %q is not an identifier", v.kernel.Name))
	}
	v.validateVariables()
	v.validateParams()

	declared := make(map[VarHandle]bool)
	for _, p := range v.kernel.Params {
		if v.validHandle(p.Var) {
			declared[p.Var] = true
		}
	}
	for h := range v.kernel.Vars {
		if v.kernel.Vars[h].Origin == OriginBuiltin {
			declared[VarHandle(h)] = true //nolint:gosec // G115: h indexes Vars
		}
	}
	v.validateBlock(v.kernel.Body, declared)
}

func (v *Validator) validateVariables() {
	seen := make(map[string]bool, len(v.kernel.Vars))
	for h := range v.kernel.Vars {
		variable := &v.kernel.Vars[h]
		if !isIdentifier(variable.Name) {
			v.addError(-1, fmt.Sprintf("variable %d: name %q is not an identifier", h, variable.Name))
		}
		if seen[variable.Name] {
			v.addError(-1, fmt.Sprintf("variable %q declared twice", variable.Name))
		}
		seen[variable.Name] = true

		if variable.Type == nil {
			v.addError(-1, fmt.Sprintf("variable %q has no type", variable.Name))
			continue
		}
		v.validateType(variable)
	}
}

func (v *Validator) validateType(variable *Variable) {
	switch t := variable.Type.(type) {
	case Scalar:
		if !t.Elem.Valid() {
			v.addError(-1, fmt.Sprintf("variable %q: unknown element kind %d", variable.Name, t.Elem))
		}
	case Line:
		if !t.Elem.Valid() {
			v.addError(-1, fmt.Sprintf("variable %q: unknown element kind %d", variable.Name, t.Elem))
		}
		if t.Width == 0 {
			v.addError(-1, fmt.Sprintf("variable %q: line width must be at least 1", variable.Name))
		}
	case Array:
		if variable.Origin != OriginParam {
			v.addError(-1, fmt.Sprintf("variable %q: array types are only valid for kernel parameters", variable.Name))
		}
		switch of := t.Of.(type) {
		case Scalar:
			if !of.Elem.Valid() {
				v.addError(-1, fmt.Sprintf("variable %q: unknown element kind %d", variable.Name, of.Elem))
			}
		case Line:
			if of.Width == 0 {
				v.addError(-1, fmt.Sprintf("variable %q: line width must be at least 1", variable.Name))
			}
		default:
			v.addError(-1, fmt.Sprintf("variable %q: array of %v is not supported", variable.Name, t.Of))
		}
	}

	if variable.Origin == OriginBuiltin && variable.Builtin >= builtinCount {
		v.addError(-1, fmt.Sprintf("variable %q: unknown builtin %d", variable.Name, variable.Builtin))
	}
}

func (v *Validator) validateParams() {
	bound := make(map[VarHandle]bool, len(v.kernel.Params))
	for _, p := range v.kernel.Params {
		if !v.validHandle(p.Var) {
			v.addError(-1, fmt.Sprintf("parameter references invalid variable %d", p.Var))
			continue
		}
		variable := v.kernel.Var(p.Var)
		if variable.Origin != OriginParam {
			v.addError(-1, fmt.Sprintf("parameter %q is a %s variable", variable.Name, variable.Origin))
		}
		if bound[p.Var] {
			v.addError(-1, fmt.Sprintf("parameter %q listed twice", variable.Name))
		}
		bound[p.Var] = true
		if _, isArray := variable.Type.(Array); p.Mutable && !isArray {
			v.addError(-1, fmt.Sprintf("parameter %q: only buffers can be mutable", variable.Name))
		}
	}
	for h := range v.kernel.Vars {
		handle := VarHandle(h) //nolint:gosec // G115: h indexes Vars
		if v.kernel.Vars[h].Origin == OriginParam && !bound[handle] {
			v.addError(-1, fmt.Sprintf("parameter variable %q is not in the parameter list", v.kernel.Vars[h].Name))
		}
	}
}

// validateBlock checks a block. declared is copied so that declarations do
// not escape their block.
//
//nolint:gocognit,gocyclo,cyclop // Instruction validation requires checking every instruction kind
func (v *Validator) validateBlock(block Block, outer map[VarHandle]bool) {
	declared := make(map[VarHandle]bool, len(outer))
	for h := range outer {
		declared[h] = true
	}

	for _, inst := range block {
		idx := v.counter
		v.counter++

		switch in := inst.(type) {
		case Declare:
			if v.requireLocal(idx, in.Var, "declare") {
				if declared[in.Var] {
					v.addError(idx, fmt.Sprintf("variable %q declared twice", v.kernel.Var(in.Var).Name))
				}
				if _, isArray := v.kernel.Var(in.Var).Type.(Array); isArray {
					v.addError(idx, "local variables cannot be buffers")
				}
			}
			if in.Init != nil {
				v.validateOperand(idx, in.Init, declared)
			}
			declared[in.Var] = true

		case Index:
			v.validateUse(idx, in.Base, declared)
			if !v.validHandle(in.Dst) {
				v.addError(idx, fmt.Sprintf("index destination %d is invalid", in.Dst))
				continue
			}
			dst := v.kernel.Var(in.Dst)
			if dst.Origin != OriginIndex {
				v.addError(idx, fmt.Sprintf("index destination %q must be an index intermediate, got %s", dst.Name, dst.Origin))
			}
			if v.assigned[in.Dst] {
				v.addError(idx, fmt.Sprintf("index intermediate %q assigned twice", dst.Name))
			}
			v.validatePosition(idx, in.Pos, declared)
			v.assigned[in.Dst] = true
			declared[in.Dst] = true
			if v.validHandle(in.Base) {
				base := v.kernel.Var(in.Base)
				switch base.Origin {
				case OriginParam:
					if _, isArray := base.Type.(Array); isArray {
						v.roots[in.Dst] = in.Base
					}
				case OriginIndex:
					if root, ok := v.roots[in.Base]; ok {
						v.roots[in.Dst] = root
					}
				}
			}

		case IndexAssign:
			v.validateUse(idx, in.Base, declared)
			v.validatePosition(idx, in.Pos, declared)
			v.validateOperand(idx, in.Value, declared)
			v.validateWritable(idx, in.Base)

		case Assign:
			v.validateOperand(idx, in.Value, declared)
			if v.requireLocal(idx, in.Dst, "assign") {
				declared[in.Dst] = true
			}

		case Binary:
			v.validateOperand(idx, in.Lhs, declared)
			v.validateOperand(idx, in.Rhs, declared)
			if v.requireLocal(idx, in.Dst, "binary") {
				declared[in.Dst] = true
			}

		case Cast:
			v.validateOperand(idx, in.Value, declared)
			if v.requireLocal(idx, in.Dst, "cast") {
				declared[in.Dst] = true
			}

		case Len:
			v.validateUse(idx, in.Buf, declared)
			if v.validHandle(in.Buf) {
				buf := v.kernel.Var(in.Buf)
				if _, isArray := buf.Type.(Array); !isArray || buf.Origin != OriginParam {
					v.addError(idx, fmt.Sprintf("len of %q: not a buffer parameter", buf.Name))
				}
			}
			if v.requireLocal(idx, in.Dst, "len") {
				if !TypesEqual(v.kernel.Var(in.Dst).Type, ScalarOf(U32)) {
					v.addError(idx, fmt.Sprintf("len target %q must be u32", v.kernel.Var(in.Dst).Name))
				}
				declared[in.Dst] = true
			}

		case If:
			v.validateOperand(idx, in.Cond, declared)
			v.validateBlock(in.Then, declared)
			v.validateBlock(in.Else, declared)

		case For:
			v.validateOperand(idx, in.Start, declared)
			v.validateOperand(idx, in.End, declared)
			if v.requireLocal(idx, in.Var, "loop") {
				if declared[in.Var] {
					v.addError(idx, fmt.Sprintf("loop variable %q already declared", v.kernel.Var(in.Var).Name))
				}
				if _, ok := v.kernel.Var(in.Var).Type.(Scalar); !ok {
					v.addError(idx, fmt.Sprintf("loop variable %q must be a scalar", v.kernel.Var(in.Var).Name))
				}
			}
			inner := make(map[VarHandle]bool, len(declared)+1)
			for h := range declared {
				inner[h] = true
			}
			inner[in.Var] = true
			v.validateBlock(in.Body, inner)

		case Terminate:

		default:
			v.addError(idx, fmt.Sprintf("unknown instruction %T", inst))
		}
	}
}

func (v *Validator) validateWritable(idx int, base VarHandle) {
	if !v.validHandle(base) {
		return
	}
	root := base
	if r, ok := v.roots[base]; ok {
		root = r
	}
	variable := v.kernel.Var(root)
	if variable.Origin != OriginParam {
		return
	}
	if _, isArray := variable.Type.(Array); !isArray {
		v.addError(idx, fmt.Sprintf("by-value parameter %q is read-only", variable.Name))
		return
	}
	if p, ok := v.kernel.ParamOf(root); ok && !p.Mutable {
		v.addError(idx, fmt.Sprintf("write to read-only buffer %q", variable.Name))
	}
}

func (v *Validator) requireLocal(idx int, h VarHandle, what string) bool {
	if !v.validHandle(h) {
		v.addError(idx, fmt.Sprintf("%s references invalid variable %d", what, h))
		return false
	}
	if origin := v.kernel.Var(h).Origin; origin != OriginLocal {
		v.addError(idx, fmt.Sprintf("%s target %q must be a local variable, got %s", what, v.kernel.Var(h).Name, origin))
		return false
	}
	return true
}

func (v *Validator) validatePosition(idx int, pos Position, declared map[VarHandle]bool) {
	switch p := pos.(type) {
	case ConstIndex:
	case DynIndex:
		v.validateOperand(idx, p.Value, declared)
	default:
		v.addError(idx, fmt.Sprintf("unknown position %T", pos))
	}
}

func (v *Validator) validateOperand(idx int, op Operand, declared map[VarHandle]bool) {
	switch o := op.(type) {
	case OpVar:
		v.validateUse(idx, o.Var, declared)
	case OpLiteral:
		if !o.Elem.Valid() {
			v.addError(idx, fmt.Sprintf("literal has unknown element kind %d", o.Elem))
		}
	case nil:
		v.addError(idx, "missing operand")
	default:
		v.addError(idx, fmt.Sprintf("unknown operand %T", op))
	}
}

func (v *Validator) validateUse(idx int, h VarHandle, declared map[VarHandle]bool) {
	if !v.validHandle(h) {
		v.addError(idx, fmt.Sprintf("reference to invalid variable %d", h))
		return
	}
	if !declared[h] {
		v.addError(idx, fmt.Sprintf("variable %q used before it is declared", v.kernel.Var(h).Name))
	}
}

func (v *Validator) validHandle(h VarHandle) bool {
	return int(h) < len(v.kernel.Vars)
}

func (v *Validator) addError(idx int, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:     msg,
		Kernel:      v.kernel.Name,
		Instruction: idx,
	})
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
