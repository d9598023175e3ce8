// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package irfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

// Error is a decoding error located in the source document.
type Error struct {
	Kernel string
	Line   int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Kernel != "" && e.Line > 0:
		return fmt.Sprintf("kernel %s: line %d: %v", e.Kernel, e.Line, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Kernel != "":
		return fmt.Sprintf("kernel %s: %v", e.Kernel, e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ErrUnknownName is returned when an operand names nothing in scope and is
// not a literal.
var ErrUnknownName = errors.New("unknown name")

type fileDoc struct {
	Kernels []kernelDoc `yaml:"kernels"`
}

type kernelDoc struct {
	Name   string     `yaml:"name"`
	Params []paramDoc `yaml:"params"`
	Body   []stmtDoc  `yaml:"body"`
	line   int
}

func (k *kernelDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain kernelDoc
	if err := decodeStrict(node, (*plain)(k)); err != nil {
		return err
	}
	k.line = node.Line
	return nil
}

type paramDoc struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Mutable bool   `yaml:"mutable"`
	line    int
}

func (p *paramDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain paramDoc
	if err := decodeStrict(node, (*plain)(p)); err != nil {
		return err
	}
	p.line = node.Line
	return nil
}

type stmtDoc struct {
	Let       *letDoc    `yaml:"let"`
	Index     *indexDoc  `yaml:"index"`
	Store     *storeDoc  `yaml:"store"`
	Set       *setDoc    `yaml:"set"`
	Binary    *binaryDoc `yaml:"binary"`
	Cast      *castDoc   `yaml:"cast"`
	Len       *lenDoc    `yaml:"len"`
	If        *ifDoc     `yaml:"if"`
	For       *forDoc    `yaml:"for"`
	Terminate bool       `yaml:"terminate"`
	line      int
}

// UnmarshalYAML accepts either a single-key mapping or the bare word
// "terminate".
func (s *stmtDoc) UnmarshalYAML(node *yaml.Node) error {
	s.line = node.Line
	if node.Kind == yaml.ScalarNode {
		if node.Value != "terminate" {
			return fmt.Errorf("line %d: unknown statement %q", node.Line, node.Value)
		}
		s.Terminate = true
		return nil
	}
	if node.Kind == yaml.MappingNode && len(node.Content) != 2 {
		return fmt.Errorf("line %d: a statement has exactly one key, got %d", node.Line, len(node.Content)/2)
	}
	type plain stmtDoc
	if err := decodeStrict(node, (*plain)(s)); err != nil {
		return err
	}
	s.line = node.Line
	return nil
}

type letDoc struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"`
	Value *operand `yaml:"value"`
}

func (l *letDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain letDoc
	return decodeStrict(node, (*plain)(l))
}

type indexDoc struct {
	Dst  string  `yaml:"dst"`
	Base string  `yaml:"base"`
	At   operand `yaml:"at"`
}

func (i *indexDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain indexDoc
	return decodeStrict(node, (*plain)(i))
}

type storeDoc struct {
	Base  string  `yaml:"base"`
	At    operand `yaml:"at"`
	Value operand `yaml:"value"`
}

func (s *storeDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain storeDoc
	return decodeStrict(node, (*plain)(s))
}

type setDoc struct {
	Dst   string  `yaml:"dst"`
	Value operand `yaml:"value"`
}

func (s *setDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain setDoc
	return decodeStrict(node, (*plain)(s))
}

type binaryDoc struct {
	Dst string  `yaml:"dst"`
	Op  string  `yaml:"op"`
	Lhs operand `yaml:"lhs"`
	Rhs operand `yaml:"rhs"`
}

func (b *binaryDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain binaryDoc
	return decodeStrict(node, (*plain)(b))
}

type castDoc struct {
	Dst   string  `yaml:"dst"`
	To    string  `yaml:"to"`
	Value operand `yaml:"value"`
}

func (c *castDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain castDoc
	return decodeStrict(node, (*plain)(c))
}

type lenDoc struct {
	Dst  string `yaml:"dst"`
	Base string `yaml:"base"`
}

func (l *lenDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain lenDoc
	return decodeStrict(node, (*plain)(l))
}

type ifDoc struct {
	Cond operand   `yaml:"cond"`
	Then []stmtDoc `yaml:"then"`
	Else []stmtDoc `yaml:"else"`
}

func (i *ifDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain ifDoc
	return decodeStrict(node, (*plain)(i))
}

type forDoc struct {
	Var  string    `yaml:"var"`
	From operand   `yaml:"from"`
	To   operand   `yaml:"to"`
	Body []stmtDoc `yaml:"body"`
}

func (f *forDoc) UnmarshalYAML(node *yaml.Node) error {
	type plain forDoc
	return decodeStrict(node, (*plain)(f))
}

// decodeStrict decodes a mapping node into v, rejecting keys that no
// field of v names. Node.Decode does not inherit KnownFields.
func decodeStrict(node *yaml.Node, v any) error {
	if node.Kind == yaml.MappingNode {
		known := fieldNames(reflect.TypeOf(v).Elem())
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !known[key.Value] {
				return fmt.Errorf("line %d: field %s not found", key.Line, key.Value)
			}
		}
	}
	return node.Decode(v)
}

func fieldNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if name != "-" {
			names[name] = true
		}
	}
	return names
}

// operand is a scalar YAML node: a variable, a builtin or a literal.
type operand struct {
	text string
	tag  string
	line int
}

func (o *operand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a scalar", node.Line)
	}
	o.text, o.tag, o.line = node.Value, node.ShortTag(), node.Line
	return nil
}

// ReadFile decodes the kernels described in the file at path.
func ReadFile(path string) ([]*ir.Kernel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the kernels described in data.
func Parse(data []byte) ([]*ir.Kernel, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML document with a top-level "kernels" list and
// returns the validated kernels in document order.
func Decode(r io.Reader) ([]*ir.Kernel, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Err: errors.New("empty document")}
		}
		return nil, &Error{Err: err}
	}
	if len(doc.Kernels) == 0 {
		return nil, &Error{Err: errors.New("no kernels")}
	}

	kernels := make([]*ir.Kernel, 0, len(doc.Kernels))
	for i := range doc.Kernels {
		k, err := decodeKernel(&doc.Kernels[i])
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, k)
	}
	return kernels, nil
}

// decoder builds one kernel.
type decoder struct {
	kernel *ir.Kernel
	names  map[string]ir.VarHandle
}

func decodeKernel(doc *kernelDoc) (*ir.Kernel, error) {
	if doc.Name == "" {
		return nil, &Error{Line: doc.line, Err: errors.New("kernel has no name")}
	}
	d := &decoder{
		kernel: &ir.Kernel{Name: doc.Name},
		names:  make(map[string]ir.VarHandle),
	}
	for _, p := range doc.Params {
		t, err := ir.ParseType(p.Type)
		if err != nil {
			return nil, d.errorf(p.line, "parameter %s: %w", p.Name, err)
		}
		if _, taken := d.names[p.Name]; taken {
			return nil, d.errorf(p.line, "parameter %s declared twice", p.Name)
		}
		h := d.add(p.Name, t, ir.OriginParam)
		d.kernel.Params = append(d.kernel.Params, ir.Param{Var: h, Mutable: p.Mutable})
	}

	body, err := d.block(doc.Body)
	if err != nil {
		return nil, err
	}
	d.kernel.Body = body

	verrs, err := ir.Validate(d.kernel)
	if err != nil {
		return nil, &Error{Kernel: doc.Name, Line: doc.line, Err: err}
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return nil, &Error{Kernel: doc.Name, Line: doc.line, Err: errors.Join(errs...)}
	}
	return d.kernel, nil
}

func (d *decoder) block(stmts []stmtDoc) (ir.Block, error) {
	var out ir.Block
	for i := range stmts {
		in, err := d.stmt(&stmts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

//nolint:gocyclo,cyclop // one case per statement kind
func (d *decoder) stmt(s *stmtDoc) (ir.Instruction, error) {
	switch {
	case s.Let != nil:
		return d.let(s.line, s.Let)

	case s.Index != nil:
		base, err := d.lookup(s.line, s.Index.Base)
		if err != nil {
			return nil, err
		}
		pos, err := d.position(s.Index.At)
		if err != nil {
			return nil, err
		}
		t, err := ir.IndexedType(d.kernel.Var(base).Type)
		if err != nil {
			return nil, d.errorf(s.line, "index %s: %w", s.Index.Base, err)
		}
		dst, err := d.fresh(s.line, s.Index.Dst, t, ir.OriginIndex)
		if err != nil {
			return nil, err
		}
		return ir.Index{Dst: dst, Base: base, Pos: pos}, nil

	case s.Store != nil:
		base, err := d.lookup(s.line, s.Store.Base)
		if err != nil {
			return nil, err
		}
		pos, err := d.position(s.Store.At)
		if err != nil {
			return nil, err
		}
		val, err := d.operand(s.Store.Value)
		if err != nil {
			return nil, err
		}
		return ir.IndexAssign{Base: base, Pos: pos, Value: val}, nil

	case s.Set != nil:
		dst, err := d.lookup(s.line, s.Set.Dst)
		if err != nil {
			return nil, err
		}
		val, err := d.operand(s.Set.Value)
		if err != nil {
			return nil, err
		}
		return ir.Assign{Dst: dst, Value: val}, nil

	case s.Binary != nil:
		return d.binary(s.line, s.Binary)

	case s.Cast != nil:
		return d.cast(s.line, s.Cast)

	case s.Len != nil:
		buf, err := d.lookup(s.line, s.Len.Base)
		if err != nil {
			return nil, err
		}
		dst, err := d.fresh(s.line, s.Len.Dst, ir.ScalarOf(ir.U32), ir.OriginLocal)
		if err != nil {
			return nil, err
		}
		return ir.Len{Dst: dst, Buf: buf}, nil

	case s.If != nil:
		cond, err := d.operand(s.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.block(s.If.Then)
		if err != nil {
			return nil, err
		}
		otherwise, err := d.block(s.If.Else)
		if err != nil {
			return nil, err
		}
		return ir.If{Cond: cond, Then: then, Else: otherwise}, nil

	case s.For != nil:
		return d.loop(s.line, s.For)

	case s.Terminate:
		return ir.Terminate{}, nil

	default:
		return nil, d.errorf(s.line, "empty statement")
	}
}

func (d *decoder) let(line int, doc *letDoc) (ir.Instruction, error) {
	var init ir.Operand
	if doc.Value != nil {
		op, err := d.operand(*doc.Value)
		if err != nil {
			return nil, err
		}
		init = op
	}

	var t ir.Type
	switch {
	case doc.Type != "":
		parsed, err := ir.ParseType(doc.Type)
		if err != nil {
			return nil, d.errorf(line, "let %s: %w", doc.Name, err)
		}
		t = parsed
	case init != nil:
		t = d.typeOf(init)
	default:
		return nil, d.errorf(line, "let %s needs a type or a value", doc.Name)
	}

	h, err := d.fresh(line, doc.Name, t, ir.OriginLocal)
	if err != nil {
		return nil, err
	}
	return ir.Declare{Var: h, Init: init}, nil
}

func (d *decoder) binary(line int, doc *binaryDoc) (ir.Instruction, error) {
	op, ok := ir.ParseBinaryOp(doc.Op)
	if !ok {
		return nil, d.errorf(line, "unknown operator %q", doc.Op)
	}
	lhs, err := d.operand(doc.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := d.operand(doc.Rhs)
	if err != nil {
		return nil, err
	}
	if dst, exists := d.names[doc.Dst]; exists {
		return ir.Binary{Dst: dst, Op: op, Lhs: lhs, Rhs: rhs}, nil
	}
	t, err := ir.BinaryType(op, d.typeOf(lhs), d.typeOf(rhs))
	if err != nil {
		return nil, d.errorf(line, "%s: %w", doc.Dst, err)
	}
	dst, err := d.fresh(line, doc.Dst, t, ir.OriginLocal)
	if err != nil {
		return nil, err
	}
	return ir.Binary{Dst: dst, Op: op, Lhs: lhs, Rhs: rhs}, nil
}

func (d *decoder) cast(line int, doc *castDoc) (ir.Instruction, error) {
	to, err := ir.ParseElementKind(doc.To)
	if err != nil {
		return nil, d.errorf(line, "cast %s: %w", doc.Dst, err)
	}
	val, err := d.operand(doc.Value)
	if err != nil {
		return nil, err
	}
	var t ir.Type = ir.ScalarOf(to)
	if l, isLine := d.typeOf(val).(ir.Line); isLine {
		t = ir.LineOf(to, l.Width)
	}
	dst, err := d.fresh(line, doc.Dst, t, ir.OriginLocal)
	if err != nil {
		return nil, err
	}
	return ir.Cast{Dst: dst, Value: val}, nil
}

// loop types the counter after the bounds: a variable or a suffixed literal
// fixes the kind and plain integers follow it. Two plain integers give u32.
func (d *decoder) loop(line int, doc *forDoc) (ir.Instruction, error) {
	kind := ir.U32
	for _, o := range []operand{doc.From, doc.To} {
		if o.tag == "!!int" {
			continue
		}
		op, err := d.operand(o)
		if err != nil {
			return nil, err
		}
		if t, ok := d.typeOf(op).(ir.Scalar); ok {
			kind = t.Elem
			break
		}
	}
	start, err := d.bound(doc.From, kind)
	if err != nil {
		return nil, err
	}
	end, err := d.bound(doc.To, kind)
	if err != nil {
		return nil, err
	}
	v, err := d.fresh(line, doc.Var, ir.ScalarOf(kind), ir.OriginLocal)
	if err != nil {
		return nil, err
	}
	body, err := d.block(doc.Body)
	if err != nil {
		return nil, err
	}
	return ir.For{Var: v, Start: start, End: end, Body: body}, nil
}

// bound reads a loop bound, giving a plain integer the counter's kind.
func (d *decoder) bound(o operand, kind ir.ElementKind) (ir.Operand, error) {
	if o.tag != "!!int" {
		return d.operand(o)
	}
	lit, err := ParseLiteral(o.text+kind.String(), "")
	if err != nil {
		return nil, d.errorf(o.line, "%q: %w", o.text, err)
	}
	return lit, nil
}

// operand resolves a variable or builtin name, or parses a literal.
func (d *decoder) operand(o operand) (ir.Operand, error) {
	if h, ok := d.names[o.text]; ok {
		return ir.Ref(h), nil
	}
	if b, ok := ir.ParseBuiltin(o.text); ok {
		return ir.Ref(d.builtin(b)), nil
	}
	lit, err := ParseLiteral(o.text, o.tag)
	if err != nil {
		return nil, d.errorf(o.line, "%q: %w", o.text, err)
	}
	return lit, nil
}

// position reads a plain integer as a constant index and anything else as
// a runtime operand.
func (d *decoder) position(o operand) (ir.Position, error) {
	if o.tag == "!!int" {
		n, err := strconv.ParseUint(o.text, 0, 32)
		if err != nil {
			return nil, d.errorf(o.line, "index %q: %w", o.text, err)
		}
		return ir.ConstIndex(n), nil
	}
	op, err := d.operand(o)
	if err != nil {
		return nil, err
	}
	return ir.At(op), nil
}

func (d *decoder) builtin(b ir.Builtin) ir.VarHandle {
	for i := range d.kernel.Vars {
		v := &d.kernel.Vars[i]
		if v.Origin == ir.OriginBuiltin && v.Builtin == b {
			return ir.VarHandle(i) //nolint:gosec // G115: i indexes Vars
		}
	}
	h := d.add(b.String(), ir.ScalarOf(ir.U32), ir.OriginBuiltin)
	d.kernel.Vars[h].Builtin = b
	return h
}

func (d *decoder) typeOf(op ir.Operand) ir.Type {
	switch o := op.(type) {
	case ir.OpVar:
		return d.kernel.Var(o.Var).Type
	case ir.OpLiteral:
		return ir.ScalarOf(o.Elem)
	default:
		return nil
	}
}

func (d *decoder) lookup(line int, name string) (ir.VarHandle, error) {
	if h, ok := d.names[name]; ok {
		return h, nil
	}
	if b, ok := ir.ParseBuiltin(name); ok {
		return d.builtin(b), nil
	}
	return 0, d.errorf(line, "%w %q", ErrUnknownName, name)
}

func (d *decoder) fresh(line int, name string, t ir.Type, origin ir.Origin) (ir.VarHandle, error) {
	if name == "" {
		return 0, d.errorf(line, "missing name")
	}
	if _, taken := d.names[name]; taken {
		return 0, d.errorf(line, "%q is already defined", name)
	}
	return d.add(name, t, origin), nil
}

func (d *decoder) add(name string, t ir.Type, origin ir.Origin) ir.VarHandle {
	h := ir.VarHandle(len(d.kernel.Vars)) //nolint:gosec // G115: variable count fits in uint32
	d.kernel.Vars = append(d.kernel.Vars, ir.Variable{Name: name, Type: t, Origin: origin})
	if origin != ir.OriginBuiltin {
		d.names[name] = h
	}
	return h
}

func (d *decoder) errorf(line int, format string, args ...any) *Error {
	return &Error{Kernel: d.kernel.Name, Line: line, Err: fmt.Errorf(format, args...)}
}

// ParseLiteral parses a literal such as "1.5f32", "-3i8", "7u64" or
// "true". tag is the YAML short tag of the node; an unsuffixed "!!int" is
// a u32 and an unsuffixed "!!float" an f32.
func ParseLiteral(text, tag string) (ir.OpLiteral, error) {
	if tag == "!!bool" || text == "true" || text == "false" {
		b, err := strconv.ParseBool(text)
		if err != nil {
			return ir.OpLiteral{}, err
		}
		return ir.LitBool(b), nil
	}

	num, elem, ok := splitSuffix(text)
	if !ok {
		switch tag {
		case "!!int":
			num, elem = text, ir.U32
		case "!!float":
			num, elem = text, ir.F32
		default:
			return ir.OpLiteral{}, ErrUnknownName
		}
	}

	switch {
	case elem.IsFloat():
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return ir.OpLiteral{}, err
		}
		switch elem {
		case ir.F64:
			return ir.LitF64(f), nil
		case ir.F32:
			return ir.LitF32(float32(f)), nil
		default:
			h, err := packing.HalfFromFloat32(elem, float32(f))
			if err != nil {
				return ir.OpLiteral{}, err
			}
			return ir.OpLiteral{Elem: elem, Bits: uint64(h)}, nil
		}

	case elem.IsSigned():
		bits := int(elem.Size() * 8)
		n, err := strconv.ParseInt(num, 0, bits)
		if err != nil {
			return ir.OpLiteral{}, err
		}
		return ir.OpLiteral{Elem: elem, Bits: uint64(n) & lowBits(bits)}, nil

	default:
		n, err := strconv.ParseUint(num, 0, int(elem.Size()*8))
		if err != nil {
			return ir.OpLiteral{}, err
		}
		return ir.OpLiteral{Elem: elem, Bits: n}, nil
	}
}

// splitSuffix splits "1.5bf16" into "1.5" and BF16. The longest matching
// kind name wins.
func splitSuffix(text string) (string, ir.ElementKind, bool) {
	var (
		best  ir.ElementKind
		found bool
		n     int
	)
	for _, e := range ir.ElementKinds() {
		if e == ir.Bool {
			continue
		}
		name := e.String()
		if strings.HasSuffix(text, name) && len(name) > n && len(text) > len(name) {
			best, found, n = e, true, len(name)
		}
	}
	if !found {
		return "", 0, false
	}
	return text[:len(text)-n], best, true
}

func lowBits(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<bits - 1
}
