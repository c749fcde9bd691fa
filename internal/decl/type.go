package decl

// TypeKind is the structural kind of a type descriptor.
type TypeKind int

const (
	BuiltinType TypeKind = iota
	RecordType
	EnumType
	PointerType
	LValueRefType
	RValueRefType
	ArrayType
	FunctionType
	TypedefType
	TemplateType
)

// Type describes one type occurrence. Qualifiers apply to the type itself;
// a const pointer to int is a const PointerType whose Elem is int.
type Type struct {
	Kind     TypeKind
	Name     string // builtin spelling, qualified record/enum/template name, or alias name as written
	Const    bool
	Volatile bool

	// Elem is the pointee, referent, array element, or alias target.
	Elem *Type
	Size uint64 // array extent

	// Function types.
	Result   *Type
	Params   []*Decl
	Variadic bool
	Nothrow  bool

	// Template specializations.
	Args []TemplateArg

	// Alias is the typedef or using declaration of a TypedefType.
	Alias *Decl
}

// TemplateArg is a template argument: either a type or a non-type
// expression.
type TemplateArg struct {
	Type *Type
	Expr string
}

// IsType reports whether the argument is a type argument.
func (a TemplateArg) IsType() bool {
	return a.Type != nil
}

// Builtin returns a builtin type named name.
func Builtin(name string) *Type {
	return &Type{Kind: BuiltinType, Name: name}
}

// Named returns a record type named name.
func Named(name string) *Type {
	return &Type{Kind: RecordType, Name: name}
}

// PointerTo returns a pointer to elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: PointerType, Elem: elem}
}

// RefTo returns an lvalue reference to elem.
func RefTo(elem *Type) *Type {
	return &Type{Kind: LValueRefType, Elem: elem}
}

// ArrayOf returns a constant array of n elems.
func ArrayOf(elem *Type, n uint64) *Type {
	return &Type{Kind: ArrayType, Elem: elem, Size: n}
}

// Func returns a function type.
func Func(result *Type, params ...*Decl) *Type {
	return &Type{Kind: FunctionType, Result: result, Params: params}
}

// AliasOf returns a typedef type for the given alias declaration.
func AliasOf(d *Decl) *Type {
	return &Type{Kind: TypedefType, Name: d.QualifiedName, Elem: d.Type, Alias: d}
}

// Template returns a template specialization type.
func Template(name string, args ...TemplateArg) *Type {
	return &Type{Kind: TemplateType, Name: name, Args: args}
}

// Qualified returns a shallow copy of t with the given qualifiers added.
func (t *Type) Qualified(isConst, isVolatile bool) *Type {
	c := *t
	c.Const = c.Const || isConst
	c.Volatile = c.Volatile || isVolatile
	return &c
}

// Unqualified returns t without top-level qualifiers.
func (t *Type) Unqualified() *Type {
	if !t.Const && !t.Volatile {
		return t
	}
	c := *t
	c.Const, c.Volatile = false, false
	return &c
}

// Desugar strips typedef layers, carrying their qualifiers onto the
// underlying type.
func (t *Type) Desugar() *Type {
	for t != nil && t.Kind == TypedefType && t.Elem != nil {
		isConst, isVolatile := t.Const, t.Volatile
		t = t.Elem
		if isConst || isVolatile {
			t = t.Qualified(isConst, isVolatile)
		}
	}
	return t
}
