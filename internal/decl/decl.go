// Package decl defines the declaration tree handed to the metadata walker.
//
// A tree is produced by a front end (see internal/cxx) for one translation
// unit. It carries names, locations, raw annotation strings, comments and
// type descriptors already resolved, so consumers never look at source text.
package decl

// Kind is the syntactic kind of a declaration.
type Kind int

const (
	TranslationUnit Kind = iota
	Namespace
	Record
	Enum
	EnumConstant
	Function
	Method
	Constructor
	Field
	Var
	Param
	Typedef
	ClassTemplate
	ClassTemplateSpecialization
	FunctionTemplate
)

var kindNames = [...]string{
	TranslationUnit:             "TranslationUnit",
	Namespace:                   "Namespace",
	Record:                      "Record",
	Enum:                        "Enum",
	EnumConstant:                "EnumConstant",
	Function:                    "Function",
	Method:                      "Method",
	Constructor:                 "Constructor",
	Field:                       "Field",
	Var:                         "Var",
	Param:                       "Param",
	Typedef:                     "Typedef",
	ClassTemplate:               "ClassTemplate",
	ClassTemplateSpecialization: "ClassTemplateSpecialization",
	FunctionTemplate:            "FunctionTemplate",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// IsTemplate reports whether k is one of the template kinds.
func (k Kind) IsTemplate() bool {
	return k == ClassTemplate || k == ClassTemplateSpecialization || k == FunctionTemplate
}

// Access is a class member access level.
type Access string

const (
	AccessNone      Access = "none"
	AccessPublic    Access = "public"
	AccessProtected Access = "protected"
	AccessPrivate   Access = "private"
)

// TagKind distinguishes struct, class and union records.
type TagKind string

const (
	Struct TagKind = "struct"
	Class  TagKind = "class"
	Union  TagKind = "union"
)

// Loc is a source location. The zero value is invalid.
type Loc struct {
	File string // absolute, slash-separated
	Line int
}

// Valid reports whether the location resolves to a file and line.
func (l Loc) Valid() bool {
	return l.File != "" && l.Line > 0
}

// Decl is a named declaration and its children.
type Decl struct {
	Kind          Kind
	Name          string
	QualifiedName string
	Invalid       bool
	Loc           Loc
	Annotations   []string
	Comment       string

	// Type is the declared type of fields, variables, parameters, typedefs
	// and functions (a Function type for the latter).
	Type   *Type
	Access Access

	// Records.
	TagKind      TagKind
	IsDefinition bool
	IsAnonymous  bool
	Bases        []*Type

	// Members of namespaces, records and enums, or the translation unit's
	// top-level declarations.
	Children []*Decl

	// Functions and variables.
	IsStatic bool
	IsConst  bool
	NoReturn bool
	Default  string // default value or in-class initializer source text

	// Enums.
	IntegerType *Type // nil when the underlying type is not fixed
	Scoped      bool
	Value       int64

	// Parameters: function-type scope depth and position in that scope.
	Depth int
	Index int
}

// Params returns the parameter declarations of a function declaration.
func (d *Decl) Params() []*Decl {
	if d.Type == nil || d.Type.Kind != FunctionType {
		return nil
	}
	return d.Type.Params
}

// Walk calls fn for d and each descendant in pre-order. Parameters of
// function types reachable from a declaration's type are not visited.
func (d *Decl) Walk(fn func(*Decl) bool) {
	if !fn(d) {
		return
	}
	for _, c := range d.Children {
		c.Walk(fn)
	}
}
