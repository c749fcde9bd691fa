// Package meta defines the reflection metadata extracted from declarations.
package meta

import "github.com/phobologic/cppmeta/internal/identity"

// Field is a data member, static member, or parameter.
type Field struct {
	Name         string
	Type         string
	RawType      string
	ArraySize    uint64
	DefaultValue string
	Access       string
	IsStatic     bool
	IsFunctor    bool
	IsCallback   bool
	IsAnonymous  bool
	Signature    *Function // set only when IsCallback
	Attrs        []string
	Comment      string
	Line         int
}

// Function is a free function, method, constructor, or the call signature
// of a callback field.
type Function struct {
	ID         identity.Identity
	Name       string
	Access     string
	IsStatic   bool
	IsConst    bool
	IsNothrow  bool
	RetType    string
	RawRetType string
	Parameters []Field
	Attrs      []string
	Comment    string
	FileName   string
	Line       int
}

// Record is a reflected struct or class.
type Record struct {
	ID       identity.Identity
	Name     string
	Bases    []string
	Fields   []Field
	Statics  []Field
	Methods  []Function
	Ctors    []Function
	IsNested bool
	Attrs    []string
	Comment  string
	FileName string
	Line     int
}

// EnumValue is one enumerator.
type EnumValue struct {
	Name    string
	Value   uint64
	Attrs   []string
	Comment string
	Line    int
}

// Enum is a reflected enumeration.
type Enum struct {
	ID             identity.Identity
	Name           string
	UnderlyingType string
	IsScoped       bool
	Values         []EnumValue
	Attrs          []string
	Comment        string
	FileName       string
	Line           int
}
