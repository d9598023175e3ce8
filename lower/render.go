// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"fmt"
	"strings"

	"github.com/gogpu/kernelgen/ir"
)

// Writer renders a Program as dialect source.
type Writer struct {
	emitter Emitter

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int
}

// Render returns the source text of p. Identical programs render to
// byte-identical text.
func Render(p *Program, e Emitter) string {
	return RenderModule([]*Program{p}, e)
}

// RenderModule returns one translation unit holding every program in order.
// The header is written once and synthetic structs shared by several
// programs are defined once, before the first kernel.
func RenderModule(programs []*Program, e Emitter) string {
	w := &Writer{emitter: e}
	w.writeHeader()
	w.writeStructs(programs)
	for i, p := range programs {
		if i > 0 {
			w.writeLine("")
		}
		w.writeKernel(p)
	}
	return w.String()
}

// String returns the generated source code.
func (w *Writer) String() string {
	return w.out.String()
}

func (w *Writer) writeHeader() {
	for _, line := range w.emitter.Header() {
		w.writeLine("%s", line)
	}
	w.writeLine("")
}

func (w *Writer) writeStructs(programs []*Program) {
	seen := make(map[StructDef]bool)
	for _, p := range programs {
		for _, def := range p.Structs {
			if seen[def] {
				continue
			}
			seen[def] = true
			w.writeLine("struct %s {", def.Name)
			w.pushIndent()
			w.writeLine("%s %s[%d];", def.Type, def.Field, def.Count)
			w.popIndent()
			w.writeLine("};")
			w.writeLine("")
		}
	}
}

func (w *Writer) writeKernel(p *Program) {
	params := make([]string, 0, len(p.Params)+len(p.Builtins))
	for _, param := range p.Params {
		params = append(params, w.emitter.ParamDecl(param, param.Layout.Type))
	}
	params = append(params, w.emitter.BuiltinParams(p.Builtins)...)

	sig := w.emitter.KernelSignature(p.Name)
	if len(params) == 0 {
		w.writeLine("%s() {", sig)
	} else {
		w.writeLine("%s(", sig)
		w.pushIndent()
		for i, param := range params {
			if i < len(params)-1 {
				w.writeLine("%s,", param)
			} else {
				w.writeLine("%s", param)
			}
		}
		w.popIndent()
		w.writeLine(") {")
	}

	w.pushIndent()
	w.writeBlock(p.Body)
	w.popIndent()
	w.writeLine("}")
}

func (w *Writer) writeBlock(stmts []Stmt) {
	for _, s := range stmts {
		w.writeStmt(s)
	}
}

func (w *Writer) writeStmt(s Stmt) {
	switch st := s.(type) {
	case Declare:
		prefix := ""
		if st.Const {
			prefix = "const "
		}
		if st.Init == nil {
			w.writeLine("%s%s %s;", prefix, st.Layout.Type, st.Name)
		} else {
			w.writeLine("%s%s %s = %s;", prefix, st.Layout.Type, st.Name, w.expr(st.Init))
		}

	case Store:
		w.writeLine("%s = %s;", w.target(st.Target), w.expr(st.Value))

	case If:
		w.writeLine("if (%s) {", w.expr(st.Cond))
		w.pushIndent()
		w.writeBlock(st.Then)
		w.popIndent()
		if len(st.Else) > 0 {
			w.writeLine("} else {")
			w.pushIndent()
			w.writeBlock(st.Else)
			w.popIndent()
		}
		w.writeLine("}")

	case For:
		w.writeLine("for (%s %s = %s; %s < %s; ++%s) {",
			st.Layout.Type, st.Var, w.expr(st.Start), st.Var, w.expr(st.End), st.Var)
		w.pushIndent()
		w.writeBlock(st.Body)
		w.popIndent()
		w.writeLine("}")

	case Return:
		w.writeLine("return;")
	}
}

// target renders the left-hand side of a store.
func (w *Writer) target(e Expr) string {
	if lane, ok := e.(Lane); ok {
		return w.lane(lane, true)
	}
	return w.expr(e)
}

//nolint:gocyclo,cyclop // Expression dispatch requires handling all expression kinds
func (w *Writer) expr(e Expr) string {
	switch x := e.(type) {
	case Ref:
		return x.Name

	case Lit:
		return w.emitter.Literal(x.Value)

	case BuiltinRef:
		return w.emitter.Builtin(x.Builtin)

	case Bin:
		lhs, rhs := w.expr(x.Lhs), w.expr(x.Rhs)
		if call, ok := w.emitter.Function(x.Op, x.Elem, lhs, rhs); ok {
			return call
		}
		return fmt.Sprintf("(%s %s %s)", lhs, binaryOperator(x.Op, x.Elem), rhs)

	case Convert:
		return w.emitter.Convert(x.To, w.expr(x.Value))

	case Load:
		a := x.Access
		if a.Reinterpret {
			return fmt.Sprintf("%s[%s]", w.emitter.ElementPointer(a.Layout.Item.Elem, a.Mutable, a.Base), w.expr(a.Index))
		}
		return fmt.Sprintf("%s[%s]", a.Base, w.expr(a.Index))

	case Lane:
		return w.lane(x, false)

	case Word:
		if x.Base.Layout.Words <= 1 {
			return x.Base.Name
		}
		return fmt.Sprintf("%s.%s[%d]", x.Base.Name, wordField, x.K)

	case Unpack:
		return w.emitter.Unpack(x.Elem, w.expr(x.Word), x.High)

	case Pack:
		return w.emitter.Pack(x.Elem, w.expr(x.Lo), w.expr(x.Hi))

	default:
		return fmt.Sprintf("/* unknown expression %T */", e)
	}
}

func (w *Writer) lane(l Lane, write bool) string {
	lay := l.Base.Layout
	if lay.Form == FormNative {
		if l.Dyn != nil {
			return w.emitter.DynamicLane(l.Base.Name, w.expr(l.Dyn), lay.ElemType, write)
		}
		return w.emitter.Lane(l.Base.Name, l.K)
	}
	if l.Dyn != nil {
		return fmt.Sprintf("%s.%s[%s]", l.Base.Name, laneField, w.expr(l.Dyn))
	}
	return fmt.Sprintf("%s.%s[%d]", l.Base.Name, laneField, l.K)
}

func binaryOperator(op ir.BinaryOp, e ir.ElementKind) string {
	switch op {
	case ir.OpAdd:
		return "+"
	case ir.OpSub:
		return "-"
	case ir.OpMul:
		return "*"
	case ir.OpDiv:
		return "/"
	case ir.OpRem:
		return "%"
	case ir.OpLt:
		return "<"
	case ir.OpLe:
		return "<="
	case ir.OpGt:
		return ">"
	case ir.OpGe:
		return ">="
	case ir.OpEq:
		return "=="
	case ir.OpNe:
		return "!="
	case ir.OpAnd:
		if e == ir.Bool {
			return "&&"
		}
		return "&"
	case ir.OpOr:
		if e == ir.Bool {
			return "||"
		}
		return "|"
	default:
		return op.String()
	}
}

// write writes formatted text without indentation or newline.
func (w *Writer) write(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
}

// writeLine writes a line with optional format args and a newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	if format == "" && len(args) == 0 {
		w.out.WriteByte('\n')
		return
	}
	w.writeIndent()
	w.write(format, args...)
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}
