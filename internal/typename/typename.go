// Package typename renders type descriptors as C++ type spellings.
//
// Spellings follow the compiler's own printer: qualifiers before the base
// type, declarator pieces wrapped around it ("int *const", "void (*)(int)",
// "int [4]").
package typename

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/cppmeta/internal/decl"
)

var elaboratedRe = regexp.MustCompile(`\b(struct|class) `)

// Display returns the canonical spelling of t: aliases resolved and
// elaborated keywords removed.
func Display(t *decl.Type) string {
	if t == nil {
		return ""
	}
	return stripElaborated(render(t, true, ""))
}

// Raw returns the spelling of the type t points or refers to, without
// top-level qualifiers. Aliases are looked through to find the indirection
// but keep their names in the result.
func Raw(t *decl.Type) string {
	if t == nil {
		return ""
	}
	if d := t.Desugar(); d.Kind == decl.PointerType || d.Kind == decl.LValueRefType || d.Kind == decl.RValueRefType {
		t = d.Elem
	}
	return stripElaborated(render(t.Unqualified(), false, ""))
}

// Spelling returns t as written, aliases kept.
func Spelling(t *decl.Type) string {
	if t == nil {
		return ""
	}
	return stripElaborated(render(t, false, ""))
}

// Element returns the element type and extent of a constant array type, or
// t and 0 when t is not an array.
func Element(t *decl.Type) (*decl.Type, uint64) {
	if t == nil {
		return nil, 0
	}
	if d := t.Desugar(); d.Kind == decl.ArrayType {
		elem := d.Elem
		if d.Const || d.Volatile {
			elem = elem.Qualified(d.Const, d.Volatile)
		}
		return elem, d.Size
	}
	return t, 0
}

// BitWidth returns the width in bits of the named integer type. Unknown
// names are assumed to be 32 bits wide.
func BitWidth(name string) int {
	name = strings.TrimPrefix(name, "const ")
	switch name {
	case "bool":
		return 1
	case "char", "signed char", "unsigned char", "char8_t", "int8_t", "uint8_t", "std::int8_t", "std::uint8_t":
		return 8
	case "short", "unsigned short", "char16_t", "int16_t", "uint16_t", "std::int16_t", "std::uint16_t":
		return 16
	case "long long", "unsigned long long", "long", "unsigned long",
		"int64_t", "uint64_t", "std::int64_t", "std::uint64_t", "size_t", "std::size_t", "intptr_t", "uintptr_t":
		return 64
	default:
		return 32
	}
}

func stripElaborated(s string) string {
	return elaboratedRe.ReplaceAllString(s, "")
}

// render spells t around the declarator text inner.
func render(t *decl.Type, canonical bool, inner string) string {
	if canonical && t.Kind == decl.TypedefType && t.Elem != nil {
		return render(t.Desugar(), canonical, inner)
	}

	switch t.Kind {
	case decl.PointerType, decl.LValueRefType, decl.RValueRefType:
		op := "*"
		switch t.Kind {
		case decl.LValueRefType:
			op = "&"
		case decl.RValueRefType:
			op = "&&"
		}
		if q := qualifiers(t); q != "" {
			op += q
			if inner != "" {
				op += " "
			}
		}
		next := op + inner
		if needsParens(t.Elem, canonical) {
			next = "(" + next + ")"
		}
		return render(t.Elem, canonical, next)

	case decl.ArrayType:
		elem := t.Elem
		if t.Const || t.Volatile {
			elem = elem.Qualified(t.Const, t.Volatile)
		}
		return render(elem, canonical, inner+"["+strconv.FormatUint(t.Size, 10)+"]")

	case decl.FunctionType:
		var b strings.Builder
		b.WriteString(inner)
		b.WriteByte('(')
		for i, p := range t.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(render(paramType(p), canonical, ""))
		}
		if t.Variadic {
			if len(t.Params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteByte(')')
		if t.Nothrow {
			b.WriteString(" noexcept")
		}
		result := t.Result
		if result == nil {
			result = decl.Builtin("void")
		}
		return render(result, canonical, b.String())
	}

	base := t.Name
	if t.Kind == decl.TemplateType {
		base += templateArgs(t.Args, canonical)
	}
	if q := qualifiers(t); q != "" {
		base = q + " " + base
	}
	if inner == "" {
		return base
	}
	return base + " " + inner
}

func needsParens(elem *decl.Type, canonical bool) bool {
	if elem == nil {
		return false
	}
	if canonical {
		elem = elem.Desugar()
	}
	return elem.Kind == decl.FunctionType || elem.Kind == decl.ArrayType
}

func paramType(p *decl.Decl) *decl.Type {
	if p.Type == nil {
		return decl.Builtin("int")
	}
	return p.Type
}

func templateArgs(args []decl.TemplateArg, canonical bool) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.IsType() {
			parts[i] = render(a.Type, canonical, "")
		} else {
			parts[i] = a.Expr
		}
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func qualifiers(t *decl.Type) string {
	switch {
	case t.Const && t.Volatile:
		return "const volatile"
	case t.Const:
		return "const"
	case t.Volatile:
		return "volatile"
	}
	return ""
}
