package cxx

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/lang"
)

// items appends the declarations among the children of list to out.
func (u *unit) items(f *file, list *sitter.Node, sc *scope, out *[]*decl.Decl) error {
	for i := 0; i < int(list.ChildCount()); i++ {
		if err := u.item(f, list.Child(i), sc, out); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) item(f *file, n *sitter.Node, sc *scope, out *[]*decl.Decl) error {
	tc := typeContext{f: f, sc: sc, item: n, out: out}
	switch n.Type() {
	case "preproc_include":
		path := n.ChildByFieldName("path")
		if path == nil {
			return nil
		}
		target, ok := u.resolveInclude(filepath.FromSlash(f.path), path, f.src)
		if !ok {
			slogctx.Debug(u.ctx, "Include not found", "file", f.path, "include", lang.NodeText(path, f.src))
			return nil
		}
		return u.include(target, sc, out)
	case "preproc_def", "preproc_function_def", "preproc_call":
		u.directive(f, n)
	case "preproc_ifdef", "preproc_if", "preproc_elifdef", "preproc_elif", "preproc_else":
		return u.conditional(f, n, sc, out)
	case "namespace_definition":
		return u.namespace(f, n, sc, out)
	case "linkage_specification":
		body := n.ChildByFieldName("body")
		if body == nil {
			return nil
		}
		if body.Type() == "declaration_list" {
			return u.items(f, body, sc, out)
		}
		return u.item(f, body, sc, out)
	case "struct_specifier", "class_specifier", "union_specifier":
		*out = append(*out, u.record(tc, n))
	case "enum_specifier":
		*out = append(*out, u.enum(tc, n))
	case "declaration", "field_declaration":
		u.declaration(tc, n)
	case "function_definition":
		u.functionDefinition(tc, n)
	case "type_definition":
		u.typedef(tc, n)
	case "alias_declaration":
		u.alias(tc, n)
	case "template_declaration":
		u.template(tc, n)
	case "access_specifier":
		switch strings.TrimSuffix(strings.TrimSpace(lang.NodeText(n, f.src)), ":") {
		case "public":
			sc.access = decl.AccessPublic
		case "protected":
			sc.access = decl.AccessProtected
		case "private":
			sc.access = decl.AccessPrivate
		}
	case "ERROR":
		slogctx.Debug(u.ctx, "Skipping unparsable code", "file", f.path, "line", n.StartPoint().Row+1)
	}
	return nil
}

// prevEnd is where the header of n starts: the end of the preceding
// sibling, or the start of the parent.
func prevEnd(n *sitter.Node) uint32 {
	if p := n.PrevSibling(); p != nil {
		return p.EndByte()
	}
	if p := n.Parent(); p != nil {
		return p.StartByte()
	}
	return 0
}

// nextStart is where the text belonging to n ends: the start of the
// following sibling, so "x __attribute__((...))," stays with x.
func nextStart(n *sitter.Node) uint32 {
	if s := n.NextSibling(); s != nil {
		return s.StartByte()
	}
	return n.EndByte()
}

// headerEnd is where the header of n ends: the start of its body, or its
// end when it has none.
func headerEnd(n, body *sitter.Node) uint32 {
	if body != nil {
		return body.StartByte()
	}
	return n.EndByte()
}

// broken reports whether n is an error node or has errors outside body.
func broken(n, body *sitter.Node) bool {
	if n.Type() == "ERROR" || n.IsMissing() {
		return true
	}
	if !n.HasError() {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if body != nil && c.StartByte() == body.StartByte() && c.EndByte() == body.EndByte() {
			continue
		}
		if c.HasError() || c.IsMissing() {
			return true
		}
	}
	return false
}

func (u *unit) namespace(f *file, n *sitter.Node, sc *scope, out *[]*decl.Decl) error {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	names := []string{""}
	loc := f.loc(n)
	if nameNode != nil {
		names = names[:0]
		for _, part := range strings.Split(lang.NodeText(nameNode, f.src), "::") {
			// "a::inline b" names the inline namespace b.
			if fields := strings.Fields(part); len(fields) > 0 {
				names = append(names, fields[len(fields)-1])
			}
		}
		loc = f.loc(nameNode)
	}
	values, _ := f.notes.claim(prevEnd(n), headerEnd(n, body))
	comment := f.comment(n)
	invalid := broken(n, body)

	cur, dst := sc, out
	for i, name := range names {
		qn := name
		if name == "" {
			qn = "(anonymous namespace)"
		}
		d := &decl.Decl{
			Kind:          decl.Namespace,
			Name:          name,
			QualifiedName: cur.qualify(qn),
			Loc:           loc,
			Comment:       comment,
			Invalid:       invalid,
		}
		if i == len(names)-1 {
			d.Annotations = values
		}
		*dst = append(*dst, d)
		cur = &scope{prefix: d.QualifiedName}
		dst = &d.Children
	}
	if body == nil {
		return nil
	}
	return u.items(f, body, cur, dst)
}

// record builds a struct, class or union. Members are built in a nested
// scope; nested types become children of the record.
func (u *unit) record(tc typeContext, n *sitter.Node) *decl.Decl {
	f, sc := tc.f, tc.sc
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	d := &decl.Decl{
		Kind:         decl.Record,
		TagKind:      tagKind(n),
		IsDefinition: body != nil,
		Loc:          f.loc(n),
		Comment:      f.comment(tc.item),
		Invalid:      broken(n, body),
		Access:       sc.access,
	}
	switch {
	case nameNode != nil:
		d.Name = compact(lang.NodeText(nameNode, f.src))
		d.QualifiedName = u.qualifyDeclared(sc, d.Name)
		d.Name = lastComponent(d.Name)
		d.Loc = f.loc(nameNode)
	case tc.hint != "":
		d.Name = tc.hint
		d.QualifiedName = sc.qualify(tc.hint)
	default:
		d.IsAnonymous = true
	}
	d.Annotations, _ = f.notes.claim(prevEnd(n), headerEnd(n, body))
	if !d.IsAnonymous {
		u.symbols.add(d.QualifiedName, &symbol{kind: symRecord})
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "base_class_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			switch b := c.NamedChild(j); b.Type() {
			case "type_identifier", "qualified_identifier", "template_type":
				d.Bases = append(d.Bases, u.typeOf(typeContext{f: f, sc: sc}, b))
			}
		}
	}

	if body != nil {
		access := decl.AccessPublic
		if d.TagKind == decl.Class {
			access = decl.AccessPrivate
		}
		prefix := d.QualifiedName
		if d.IsAnonymous {
			prefix = sc.prefix
		}
		members := &scope{prefix: prefix, record: d, access: access}
		if err := u.items(f, body, members, &d.Children); err != nil {
			slogctx.Warn(u.ctx, "Incomplete record body", "name", d.QualifiedName, "error", err)
		}
	}
	return d
}

func tagKind(n *sitter.Node) decl.TagKind {
	switch n.Type() {
	case "class_specifier":
		return decl.Class
	case "union_specifier":
		return decl.Union
	}
	return decl.Struct
}

func lastComponent(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// qualifyDeclared returns the qualified name of a declaration named name in
// sc. Names written with a scope ("Outer::Inner") refer to that scope.
func (u *unit) qualifyDeclared(sc *scope, name string) string {
	name = strings.TrimPrefix(name, "::")
	if !strings.Contains(name, "::") {
		return sc.qualify(name)
	}
	if _, qn := u.symbols.lookup(sc.prefix, name); qn != "" {
		return qn
	}
	prefix := parentScope(name)
	if _, qn := u.symbols.lookup(sc.prefix, prefix); qn != "" {
		return qn + "::" + lastComponent(name)
	}
	return sc.qualify(name)
}

func (u *unit) enum(tc typeContext, n *sitter.Node) *decl.Decl {
	f, sc := tc.f, tc.sc
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	d := &decl.Decl{
		Kind:         decl.Enum,
		IsDefinition: body != nil,
		Loc:          f.loc(n),
		Comment:      f.comment(tc.item),
		Invalid:      broken(n, body),
		Access:       sc.access,
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if t := n.Child(i).Type(); t == "class" || t == "struct" {
			d.Scoped = true
		}
	}
	switch {
	case nameNode != nil:
		written := compact(lang.NodeText(nameNode, f.src))
		d.Name = lastComponent(written)
		d.QualifiedName = u.qualifyDeclared(sc, written)
		d.Loc = f.loc(nameNode)
	case tc.hint != "":
		d.Name = tc.hint
		d.QualifiedName = sc.qualify(tc.hint)
	default:
		d.IsAnonymous = true
		d.QualifiedName = sc.qualify("(anonymous)")
	}
	if base := n.ChildByFieldName("base"); base != nil {
		d.IntegerType = u.typeOf(typeContext{f: f, sc: sc}, base)
	}
	d.Annotations, _ = f.notes.claim(prevEnd(n), headerEnd(n, body))
	if !d.IsAnonymous {
		u.symbols.add(d.QualifiedName, &symbol{kind: symEnum})
	}
	if body == nil {
		return d
	}

	// Enumerator initializers see the enum's own enumerators.
	inner := &scope{prefix: d.QualifiedName}
	if d.IsAnonymous {
		inner = sc
	}
	next := int64(0)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		name := e.ChildByFieldName("name")
		if name == nil {
			continue
		}
		value := next
		if v := e.ChildByFieldName("value"); v != nil {
			if x, err := u.constant(f, inner, v); err == nil {
				value = x
			} else {
				slogctx.Debug(u.ctx, "Unknown enumerator value", "file", f.path, "line", v.StartPoint().Row+1, "error", err)
			}
		}
		next = value + 1

		c := &decl.Decl{
			Kind:    decl.EnumConstant,
			Name:    lang.NodeText(name, f.src),
			Value:   value,
			Loc:     f.loc(name),
			Comment: f.comment(e),
			Invalid: e.HasError(),
		}
		if d.Scoped {
			c.QualifiedName = join(d.QualifiedName, c.Name)
		} else {
			c.QualifiedName = sc.qualify(c.Name)
		}
		c.Annotations, _ = f.notes.claim(prevEnd(e), nextStart(e))
		d.Children = append(d.Children, c)

		sym := &symbol{kind: symEnumerator, value: value}
		u.symbols.add(join(d.QualifiedName, c.Name), sym)
		if !d.Scoped {
			u.symbols.add(c.QualifiedName, sym)
		}
	}
	return d
}

// declaration handles simple declarations and member declarations: free
// function and method declarations, constructors, fields, static members
// and variables. Several declarators share the specifiers and
// annotations.
func (u *unit) declaration(tc typeContext, n *sitter.Node) {
	f := tc.f
	base := u.specifier(tc, n)

	var made []*decl.Decl
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		d := u.declarator(tc, n.Child(i), base)
		if m := u.member(tc, n, d); m != nil {
			if d.value != nil {
				m.Default = f.text(d.value)
			}
			made = append(made, m)
		}
	}
	if dv := n.ChildByFieldName("default_value"); dv != nil && len(made) > 0 {
		made[len(made)-1].Default = f.text(dv)
	}

	values, noreturn := f.notes.claim(prevEnd(n), n.EndByte())
	for _, m := range made {
		m.Annotations = append([]string(nil), values...)
		m.NoReturn = noreturn
		*tc.out = append(*tc.out, m)
	}
}

func (u *unit) functionDefinition(tc typeContext, n *sitter.Node) {
	f := tc.f
	body := n.ChildByFieldName("body")
	base := u.specifier(tc, n)
	d := u.declarator(tc, n.ChildByFieldName("declarator"), base)
	m := u.member(tc, n, d)
	if m == nil {
		return
	}
	m.Invalid = m.Invalid || broken(n, body)
	m.Annotations, m.NoReturn = f.notes.claim(prevEnd(n), headerEnd(n, body))
	*tc.out = append(*tc.out, m)
}

// member turns one declarator of item into a declaration, or returns nil
// for destructors, conversion operators and unnamed declarators.
func (u *unit) member(tc typeContext, item *sitter.Node, d declarator) *decl.Decl {
	f, sc := tc.f, tc.sc
	if d.name == "" || d.typ == nil || d.node == nil {
		return nil
	}
	switch d.node.Type() {
	case "destructor_name", "operator_cast":
		return nil
	}
	if strings.Contains(d.name, "~") {
		return nil
	}

	m := &decl.Decl{
		Name:          lastComponent(d.name),
		QualifiedName: u.qualifyDeclared(sc, d.name),
		Type:          d.typ,
		Loc:           f.loc(d.node),
		Comment:       f.comment(item),
		IsStatic:      f.storage(item, "static"),
		Access:        sc.access,
		Invalid:       item.Type() == "ERROR" || d.node.HasError(),
	}
	if d.typ.Kind != decl.FunctionType {
		switch {
		case sc.record == nil:
			m.Kind = decl.Var
		case m.IsStatic:
			m.Kind = decl.Var
		default:
			m.Kind = decl.Field
		}
		return m
	}

	m.IsConst = d.fn != nil && d.fn.Const
	scoped := strings.Contains(d.name, "::")
	switch {
	case sc.record != nil && d.typ.Result == nil && m.Name == sc.record.Name:
		m.Kind = decl.Constructor
	case sc.record != nil:
		m.Kind = decl.Method
	case scoped && u.isRecord(sc, parentScope(d.name)):
		// Out-of-line member definition.
		m.Kind = decl.Method
	case d.typ.Result == nil:
		return nil
	default:
		m.Kind = decl.Function
		m.Access = decl.AccessNone
	}
	return m
}

func (u *unit) isRecord(sc *scope, name string) bool {
	sym, _ := u.symbols.lookup(sc.prefix, name)
	return sym != nil && (sym.kind == symRecord || sym.kind == symTemplate)
}

// typedef handles "typedef T name, *pname;". An anonymous record or enum
// defined in the typedef takes the first declarator's name.
func (u *unit) typedef(tc typeContext, n *sitter.Node) {
	f := tc.f
	var declarators []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == "declarator" {
			declarators = append(declarators, n.Child(i))
		}
	}
	if len(declarators) > 0 && declarators[0].Type() == "type_identifier" {
		tc.hint = lang.NodeText(declarators[0], f.src)
	}
	base := u.specifier(tc, n)
	if base == nil {
		return
	}

	var made []*decl.Decl
	for _, dn := range declarators {
		d := u.declarator(tc, dn, base)
		if d.name == "" || d.node == nil {
			continue
		}
		t := &decl.Decl{
			Kind:          decl.Typedef,
			Name:          d.name,
			QualifiedName: tc.sc.qualify(d.name),
			Type:          d.typ,
			Loc:           f.loc(d.node),
			Comment:       f.comment(n),
			Invalid:       dn.HasError(),
			Access:        tc.sc.access,
		}
		u.symbols.add(t.QualifiedName, &symbol{kind: symTypedef, alias: t})
		made = append(made, t)
	}
	values, _ := f.notes.claim(prevEnd(n), n.EndByte())
	for _, t := range made {
		t.Annotations = append([]string(nil), values...)
		*tc.out = append(*tc.out, t)
	}
}

// alias handles "using name = type;".
func (u *unit) alias(tc typeContext, n *sitter.Node) {
	f := tc.f
	name := n.ChildByFieldName("name")
	typeNode := n.ChildByFieldName("type")
	if name == nil || typeNode == nil {
		return
	}
	t := &decl.Decl{
		Kind:    decl.Typedef,
		Name:    lang.NodeText(name, f.src),
		Type:    u.typeDescriptor(tc, typeNode),
		Loc:     f.loc(name),
		Comment: f.comment(n),
		Invalid: n.HasError(),
		Access:  tc.sc.access,
	}
	t.QualifiedName = tc.sc.qualify(t.Name)
	t.Annotations, _ = f.notes.claim(prevEnd(n), n.EndByte())
	u.symbols.add(t.QualifiedName, &symbol{kind: symTypedef, alias: t})
	*tc.out = append(*tc.out, t)
}

// template records class and function templates by name. Their bodies are
// not walked: only concrete declarations carry metadata.
func (u *unit) template(tc typeContext, n *sitter.Node) {
	f, sc := tc.f, tc.sc
	params := n.ChildByFieldName("parameters")
	explicit := params != nil && params.NamedChildCount() == 0

	var inner *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "template_parameter_list" && c.Type() != "comment" {
			inner = c
			break
		}
	}
	if inner == nil {
		return
	}

	d := &decl.Decl{
		Loc:     f.loc(inner),
		Comment: f.comment(n),
		Invalid: broken(n, nil),
		Access:  sc.access,
	}
	switch inner.Type() {
	case "struct_specifier", "class_specifier", "union_specifier":
		name := inner.ChildByFieldName("name")
		if name == nil {
			return
		}
		d.Kind = decl.ClassTemplate
		d.TagKind = tagKind(inner)
		d.IsDefinition = inner.ChildByFieldName("body") != nil
		d.Loc = f.loc(name)
		written := compact(lang.NodeText(name, f.src))
		if name.Type() == "template_type" || explicit {
			d.Kind = decl.ClassTemplateSpecialization
		} else {
			u.symbols.add(u.qualifyDeclared(sc, written), &symbol{kind: symTemplate})
		}
		d.Name = lastComponent(written)
		d.QualifiedName = u.qualifyDeclared(sc, written)
	case "function_definition", "declaration":
		base := u.specifier(typeContext{f: f, sc: sc}, inner)
		dn := inner.ChildByFieldName("declarator")
		dcl := u.declarator(typeContext{f: f, sc: sc}, dn, base)
		if dcl.name == "" || dcl.node == nil {
			return
		}
		d.Kind = decl.FunctionTemplate
		d.Name = lastComponent(dcl.name)
		d.QualifiedName = u.qualifyDeclared(sc, dcl.name)
		d.Type = dcl.typ
		d.Loc = f.loc(dcl.node)
	case "alias_declaration":
		if name := inner.ChildByFieldName("name"); name != nil {
			u.symbols.add(sc.qualify(lang.NodeText(name, f.src)), &symbol{kind: symTemplate})
		}
		return
	default:
		return
	}
	d.Annotations, _ = f.notes.claim(prevEnd(n), n.EndByte())
	*tc.out = append(*tc.out, d)
}
