package cxx

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/lang"
)

// builtinTypedefs are the standard integer aliases tree-sitter treats as
// primitive types, mapped to their LP64 definitions.
var builtinTypedefs = map[string]string{
	"size_t":    "unsigned long",
	"ssize_t":   "long",
	"ptrdiff_t": "long",
	"intptr_t":  "long",
	"uintptr_t": "unsigned long",
	"intmax_t":  "long",
	"uintmax_t": "unsigned long",
	"int8_t":    "signed char",
	"uint8_t":   "unsigned char",
	"int16_t":   "short",
	"uint16_t":  "unsigned short",
	"int32_t":   "int",
	"uint32_t":  "unsigned int",
	"int64_t":   "long",
	"uint64_t":  "unsigned long",
}

type symbolKind int

const (
	symRecord symbolKind = iota
	symEnum
	symTypedef
	symTemplate
	symEnumerator
)

type symbol struct {
	kind  symbolKind
	alias *decl.Decl // typedefs
	value int64      // enumerators
}

// symbols maps qualified names to what they declare.
type symbols map[string]*symbol

func (s symbols) add(qualified string, sym *symbol) {
	if qualified == "" {
		return
	}
	s[qualified] = sym
}

// lookup finds name from within prefix, trying each enclosing scope
// outwards. It returns the symbol and its qualified name.
func (s symbols) lookup(prefix, name string) (*symbol, string) {
	name = strings.TrimPrefix(name, "::")
	for {
		qn := join(prefix, name)
		if sym, ok := s[qn]; ok {
			return sym, qn
		}
		if prefix == "" {
			return nil, ""
		}
		prefix = parentScope(prefix)
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "::" + name
}

func parentScope(prefix string) string {
	if i := strings.LastIndex(prefix, "::"); i >= 0 {
		return prefix[:i]
	}
	return ""
}

// scope is the lexical context of a declaration.
type scope struct {
	prefix string     // qualified name of the enclosing namespace or record
	record *decl.Decl // enclosing record, nil at namespace scope
	access decl.Access
}

func (s *scope) qualify(name string) string {
	return join(s.prefix, name)
}

// compact removes whitespace from a name ("std :: vector" → "std::vector").
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// qualifiers reports the const and volatile qualifiers among the direct
// children of n.
func (f *file) qualifiers(n *sitter.Node) (isConst, isVolatile bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_qualifier" {
			continue
		}
		switch lang.NodeText(c, f.src) {
		case "const", "constexpr":
			isConst = true
		case "volatile":
			isVolatile = true
		}
	}
	return isConst, isVolatile
}

// storage reports whether n carries the given storage class specifier.
func (f *file) storage(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "storage_class_specifier" && lang.NodeText(c, f.src) == keyword {
			return true
		}
	}
	return false
}

// typeContext carries what type construction needs besides the node.
type typeContext struct {
	f     *file
	sc    *scope
	item  *sitter.Node  // declaration the type belongs to, for comments
	out   *[]*decl.Decl // receives records and enums defined inline; nil discards them
	hint  string        // typedef name for an anonymous record or enum
	depth int           // scope depth of the next function type's parameters
}

// specifier returns the base type of declaration node n: its "type" field
// with the qualifiers written among n's specifiers. It returns nil when n
// has no type, as for constructors.
func (u *unit) specifier(tc typeContext, n *sitter.Node) *decl.Type {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	t := u.typeOf(tc, typeNode)
	if isConst, isVolatile := tc.f.qualifiers(n); isConst || isVolatile {
		t = t.Qualified(isConst, isVolatile)
	}
	return t
}

func (u *unit) typeOf(tc typeContext, n *sitter.Node) *decl.Type {
	f := tc.f
	switch n.Type() {
	case "primitive_type":
		name := lang.NodeText(n, f.src)
		if _, ok := builtinTypedefs[name]; ok {
			return u.resolve(tc.sc, name)
		}
		return decl.Builtin(name)
	case "sized_type_specifier":
		return decl.Builtin(sizedName(f, n))
	case "type_identifier", "namespace_identifier":
		return u.resolve(tc.sc, lang.NodeText(n, f.src))
	case "qualified_identifier":
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "template_type" {
			return u.templateType(tc, n, name)
		}
		return u.resolve(tc.sc, compact(lang.NodeText(n, f.src)))
	case "template_type":
		return u.templateType(tc, n, n)
	case "struct_specifier", "class_specifier", "union_specifier":
		if n.ChildByFieldName("body") == nil {
			if name := n.ChildByFieldName("name"); name != nil {
				return u.resolve(tc.sc, compact(lang.NodeText(name, f.src)))
			}
		}
		r := u.record(tc, n)
		if tc.out != nil {
			*tc.out = append(*tc.out, r)
		}
		if r.IsAnonymous {
			return decl.Named("")
		}
		return decl.Named(r.QualifiedName)
	case "enum_specifier":
		if n.ChildByFieldName("body") == nil {
			if name := n.ChildByFieldName("name"); name != nil {
				return u.resolve(tc.sc, compact(lang.NodeText(name, f.src)))
			}
		}
		e := u.enum(tc, n)
		if tc.out != nil {
			*tc.out = append(*tc.out, e)
		}
		return &decl.Type{Kind: decl.EnumType, Name: e.QualifiedName}
	case "auto", "placeholder_type_specifier":
		return decl.Builtin("auto")
	case "decltype":
		return decl.Builtin(f.text(n))
	}
	return decl.Named(compact(lang.NodeText(n, f.src)))
}

// resolve looks name up through the enclosing scopes. Unknown names are
// kept as written.
func (u *unit) resolve(sc *scope, name string) *decl.Type {
	name = strings.TrimPrefix(name, "::")
	if target, ok := builtinTypedefs[strings.TrimPrefix(name, "std::")]; ok {
		return &decl.Type{Kind: decl.TypedefType, Name: name, Elem: decl.Builtin(target)}
	}
	sym, qn := u.symbols.lookup(sc.prefix, name)
	if sym == nil {
		if isBuiltinName(name) {
			return decl.Builtin(name)
		}
		return decl.Named(name)
	}
	switch sym.kind {
	case symTypedef:
		return &decl.Type{Kind: decl.TypedefType, Name: name, Elem: sym.alias.Type, Alias: sym.alias}
	case symEnum:
		return &decl.Type{Kind: decl.EnumType, Name: qn}
	default:
		return decl.Named(qn)
	}
}

func isBuiltinName(name string) bool {
	switch name {
	case "void", "bool", "char", "wchar_t", "char8_t", "char16_t", "char32_t",
		"short", "int", "long", "float", "double", "nullptr_t", "std::nullptr_t":
		return true
	}
	return false
}

// sizedName normalizes a sized type specifier ("unsigned", "long int",
// "unsigned long long") to the compiler's spelling.
func sizedName(f *file, n *sitter.Node) string {
	var unsigned, signed, short bool
	longs := 0
	base := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch word := lang.NodeText(c, f.src); word {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			longs++
		default:
			if c.IsNamed() {
				base = word
			}
		}
	}

	switch base {
	case "char":
		switch {
		case unsigned:
			return "unsigned char"
		case signed:
			return "signed char"
		}
		return "char"
	case "double":
		if longs > 0 {
			return "long double"
		}
		return "double"
	}

	name := "int"
	switch {
	case short:
		name = "short"
	case longs == 1:
		name = "long"
	case longs >= 2:
		name = "long long"
	}
	if unsigned {
		name = "unsigned " + name
	}
	return name
}

// templateType builds a specialization type. n is the whole (possibly
// qualified) name and tt its template_type part.
func (u *unit) templateType(tc typeContext, n, tt *sitter.Node) *decl.Type {
	f := tc.f
	name := ""
	if nn := tt.ChildByFieldName("name"); nn != nil {
		name = compact(lang.NodeText(nn, f.src))
	}
	if n != tt {
		if sc := n.ChildByFieldName("scope"); sc != nil {
			name = compact(lang.NodeText(sc, f.src)) + "::" + name
		}
	}
	name = strings.TrimPrefix(name, "::")
	if sym, qn := u.symbols.lookup(tc.sc.prefix, name); sym != nil && sym.kind == symTemplate {
		name = qn
	}

	t := decl.Template(name)
	args := tt.ChildByFieldName("arguments")
	if args == nil {
		return t
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		switch a.Type() {
		case "comment":
			continue
		case "type_descriptor":
			t.Args = append(t.Args, decl.TemplateArg{Type: u.typeDescriptor(tc, a)})
		case "identifier", "qualified_identifier":
			text := compact(lang.NodeText(a, f.src))
			if sym, _ := u.symbols.lookup(tc.sc.prefix, text); sym != nil && sym.kind != symEnumerator {
				t.Args = append(t.Args, decl.TemplateArg{Type: u.resolve(tc.sc, text)})
				continue
			}
			t.Args = append(t.Args, decl.TemplateArg{Expr: text})
		default:
			t.Args = append(t.Args, decl.TemplateArg{Expr: f.text(a)})
		}
	}
	return t
}

// typeDescriptor builds the type of an abstract declaration such as a
// template argument or an alias target.
func (u *unit) typeDescriptor(tc typeContext, n *sitter.Node) *decl.Type {
	tc.out = nil
	base := u.specifier(tc, n)
	if base == nil {
		base = decl.Builtin("int")
	}
	return u.declarator(tc, n.ChildByFieldName("declarator"), base).typ
}

// declarator is a declared name and its type.
type declarator struct {
	name  string
	node  *sitter.Node // the name, nil for abstract declarators
	typ   *decl.Type
	fn    *decl.Type   // innermost function type, applied directly to the name
	value *sitter.Node // initializer
}

// declarator applies the declarator chain n to base. Outer declarator
// nodes apply to the base type first: "int *a[3]" is an array of pointers.
func (u *unit) declarator(tc typeContext, n *sitter.Node, base *decl.Type) declarator {
	f := tc.f
	d := declarator{typ: base}
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier", "qualified_identifier",
			"destructor_name", "operator_name", "operator_cast", "template_function", "template_method":
			d.name = compact(lang.NodeText(n, f.src))
			if n.Type() == "operator_name" {
				d.name = f.text(n)
			}
			d.node = n
			return d
		case "init_declarator":
			d.value = n.ChildByFieldName("value")
			n = n.ChildByFieldName("declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			isConst, isVolatile := f.qualifiers(n)
			d.typ = &decl.Type{Kind: decl.PointerType, Elem: d.typ, Const: isConst, Volatile: isVolatile}
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			kind := decl.LValueRefType
			if n.ChildCount() > 0 && n.Child(0).Type() == "&&" {
				kind = decl.RValueRefType
			}
			d.typ = &decl.Type{Kind: kind, Elem: d.typ}
			n = lastNamedChild(n)
		case "array_declarator", "abstract_array_declarator":
			d.typ = decl.ArrayOf(d.typ, u.extent(tc, n.ChildByFieldName("size")))
			n = n.ChildByFieldName("declarator")
		case "function_declarator", "abstract_function_declarator":
			d.typ = u.functionType(tc, n, d.typ)
			d.fn = d.typ
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			n = firstDeclarator(n)
		default:
			return d
		}
	}
	return d
}

func lastNamedChild(n *sitter.Node) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if c := n.NamedChild(i); c.Type() != "comment" {
			return c
		}
	}
	return nil
}

func firstDeclarator(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		switch c := n.NamedChild(i); c.Type() {
		case "comment", "attribute_declaration", "attribute_specifier", "ms_call_modifier":
		default:
			return c
		}
	}
	return nil
}

// extent evaluates an array size. Sizes that are not constant are zero.
func (u *unit) extent(tc typeContext, n *sitter.Node) uint64 {
	if n == nil {
		return 0
	}
	v, err := u.constant(tc.f, tc.sc, n)
	if err != nil || v < 0 {
		slogctx.Debug(u.ctx, "Unknown array extent", "file", tc.f.path, "line", n.StartPoint().Row+1, "size", tc.f.text(n))
		return 0
	}
	return uint64(v)
}

// constant evaluates an integer constant expression, resolving
// enumerators through the enclosing scopes.
func (u *unit) constant(f *file, sc *scope, n *sitter.Node) (int64, error) {
	e := &evaluator{
		src: f.src,
		lookup: func(name string) (int64, bool) {
			if sym, _ := u.symbols.lookup(sc.prefix, name); sym != nil && sym.kind == symEnumerator {
				return sym.value, true
			}
			return 0, false
		},
	}
	return e.eval(n)
}

// functionType builds the type of a function declarator whose result type
// is result.
func (u *unit) functionType(tc typeContext, n *sitter.Node, result *decl.Type) *decl.Type {
	f := tc.f
	ft := &decl.Type{Kind: decl.FunctionType, Result: result}
	if params := n.ChildByFieldName("parameters"); params != nil {
		ft.Params, ft.Variadic = u.params(tc, params)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_qualifier":
			if lang.NodeText(c, f.src) == "const" {
				ft.Const = true
			}
		case "noexcept":
			ft.Nothrow = !strings.Contains(compact(lang.NodeText(c, f.src)), "(false)")
		case "throw_specifier":
			ft.Nothrow = compact(lang.NodeText(c, f.src)) == "throw()"
		case "trailing_return_type":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if td := c.NamedChild(j); td.Type() == "type_descriptor" {
					ft.Result = u.typeDescriptor(tc, td)
				}
			}
		}
	}
	return ft
}

// params builds the parameters of a parameter list at tc.depth. Each
// parameter's own type is built one level deeper.
func (u *unit) params(tc typeContext, list *sitter.Node) ([]*decl.Decl, bool) {
	var out []*decl.Decl
	variadic := false
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		switch c.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			out = append(out, u.param(tc, c, len(out)))
		case "...", "variadic_parameter":
			variadic = true
		}
	}
	// f(void) takes no parameters.
	if len(out) == 1 && out[0].Name == "" && out[0].Type != nil && out[0].Type.Kind == decl.BuiltinType &&
		out[0].Type.Name == "void" && !out[0].Type.Const {
		return nil, variadic
	}
	return out, variadic
}

func (u *unit) param(tc typeContext, n *sitter.Node, index int) *decl.Decl {
	f := tc.f
	inner := tc
	inner.out = nil
	inner.item = n
	inner.depth = tc.depth + 1

	base := u.specifier(inner, n)
	if base == nil {
		base = decl.Builtin("int")
	}
	d := u.declarator(inner, n.ChildByFieldName("declarator"), base)

	p := &decl.Decl{
		Kind:  decl.Param,
		Name:  d.name,
		Type:  decay(d.typ),
		Depth: tc.depth,
		Index: index,
		Loc:   f.loc(n),
	}
	if d.node != nil {
		p.Loc = f.loc(d.node)
	}
	if dv := n.ChildByFieldName("default_value"); dv != nil {
		p.Default = f.text(dv)
	}
	p.Annotations, _ = f.notes.claim(prevEnd(n), nextStart(n))
	p.Invalid = n.HasError()
	return p
}

// decay applies parameter type adjustment: arrays become pointers to their
// element and functions become function pointers.
func decay(t *decl.Type) *decl.Type {
	switch t.Kind {
	case decl.ArrayType:
		return decl.PointerTo(t.Elem)
	case decl.FunctionType:
		return decl.PointerTo(t)
	}
	return t
}
