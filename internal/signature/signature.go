// Package signature recognizes callback-shaped members and describes their
// call signatures.
//
// A member is callback-shaped when its type, after looking through one alias,
// an optional single-argument wrapper template (std::function and friends)
// and another alias, decays to a function type: a pointer or reference to a
// function, or an array of function pointers.
package signature

import (
	"strconv"

	"github.com/phobologic/cppmeta/internal/annotation"
	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/meta"
	"github.com/phobologic/cppmeta/internal/typename"
)

// Field builds the Field for a member or parameter declaration d with the
// given effective tags. Names, element type and extent are filled in and the
// callback signature is resolved. Access is "none"; callers set
// member-specific properties afterwards.
func Field(d *decl.Decl, attrs []string) meta.Field {
	f := meta.Field{
		Name:    d.Name,
		Access:  string(decl.AccessNone),
		Attrs:   attrs,
		Comment: d.Comment,
		Line:    d.Loc.Line,
	}
	if f.Name == "" && d.Kind == decl.Param {
		f.Name = "unnamed" + strconv.Itoa(d.Index)
		f.IsAnonymous = true
	}

	elem, n := typename.Element(d.Type)
	f.ArraySize = n
	f.Type = typename.Display(elem)
	f.RawType = typename.Raw(elem)

	Resolve(d, &f)
	return f
}

// Resolve inspects the declared type of d. When it denotes a callable it
// sets f.IsCallback, f.IsFunctor and f.Signature; otherwise f is left
// untouched.
func Resolve(d *decl.Decl, f *meta.Field) {
	if d.Type == nil {
		return
	}
	root := d
	t := d.Type

	t, root = unalias(t, root)

	functor := false
	if t.Kind == decl.TemplateType {
		if len(t.Args) == 0 || !t.Args[0].IsType() {
			return
		}
		t = t.Args[0].Type
		functor = true
	}

	t, root = unalias(t, root)

	t = decay(t)
	if t.Kind == decl.ArrayType {
		t = decay(t.Elem)
	}
	if t.Kind == decl.TypedefType && t.Alias != nil {
		root = t.Alias
	}

	fn := t.Desugar()
	if fn.Kind != decl.FunctionType {
		return
	}

	fr := newFrame(root)
	fr.visitType(root.Type)

	f.IsFunctor = functor
	f.IsCallback = true
	f.Signature = &meta.Function{
		Name:       f.Name,
		Access:     string(decl.AccessNone),
		IsStatic:   true,
		IsConst:    false,
		IsNothrow:  fn.Nothrow,
		RetType:    typename.Display(fn.Result),
		RawRetType: typename.Raw(fn.Result),
		Parameters: fr.params,
		Attrs:      f.Attrs,
		Comment:    root.Comment,
		FileName:   root.Loc.File,
		Line:       root.Loc.Line,
	}
}

// unalias looks through one alias at the top of t. The alias declaration
// becomes the declaring context of the signature.
func unalias(t *decl.Type, root *decl.Decl) (*decl.Type, *decl.Decl) {
	if t.Kind != decl.TypedefType {
		return t, root
	}
	if t.Alias != nil && t.Alias.Type != nil {
		return t.Alias.Type, t.Alias
	}
	if t.Elem != nil {
		return t.Elem, root
	}
	return t, root
}

// decay turns a pointer or reference to a function into the function type.
// Other types are returned unchanged.
func decay(t *decl.Type) *decl.Type {
	d := t.Desugar()
	switch d.Kind {
	case decl.PointerType, decl.LValueRefType, decl.RValueRefType:
		if d.Elem != nil && d.Elem.Desugar().Kind == decl.FunctionType {
			return d.Elem
		}
	case decl.ArrayType:
		return d
	}
	return t
}

// frame collects the parameters of one signature. Only parameters in the
// function scope at depth are kept; the depth is taken from the first
// parameter visited unless the root is itself a parameter, in which case its
// own parameter scope is one level deeper.
type frame struct {
	depth  int
	set    bool
	params []meta.Field
}

func newFrame(root *decl.Decl) *frame {
	fr := &frame{}
	if root.Kind == decl.Param {
		fr.depth = root.Depth + 1
		fr.set = true
	}
	return fr
}

func (fr *frame) visitType(t *decl.Type) {
	if t == nil {
		return
	}
	switch t.Kind {
	case decl.FunctionType:
		for _, p := range t.Params {
			fr.visitParam(p)
			fr.visitType(p.Type)
		}
		fr.visitType(t.Result)
	case decl.PointerType, decl.LValueRefType, decl.RValueRefType, decl.ArrayType:
		fr.visitType(t.Elem)
	case decl.TemplateType:
		for _, a := range t.Args {
			fr.visitType(a.Type)
		}
	}
}

func (fr *frame) visitParam(p *decl.Decl) {
	if !fr.set {
		fr.depth = p.Depth
		fr.set = true
	}
	if p.Depth != fr.depth {
		return
	}
	fr.params = append(fr.params, Field(p, annotation.PlainTags(p.Annotations)))
}
