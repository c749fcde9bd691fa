// Package walk turns a declaration tree into reflection metadata.
//
// A Walker visits one translation unit. Namespaces are flattened, records,
// enums and free functions become entities in the database of the file that
// declares them, and everything else is skipped. Reflection is opt-in for
// records and enums: a reflect annotation on the declaration or an enclosing
// namespace is required.
package walk

import (
	"context"
	"math"
	"path"
	"strings"

	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/annotation"
	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/identity"
	"github.com/phobologic/cppmeta/internal/meta"
	"github.com/phobologic/cppmeta/internal/signature"
	"github.com/phobologic/cppmeta/internal/typename"
)

// FunctionPolicy selects which free functions are emitted.
type FunctionPolicy string

const (
	// AllFunctions emits every free function not excluded by a no-reflect
	// annotation.
	AllFunctions FunctionPolicy = "all"
	// AnnotatedFunctions emits free functions only under a reflect marker.
	AnnotatedFunctions FunctionPolicy = "annotated"
)

// Walker extracts entities from declaration trees. A Walker owns its
// identity cache and data map; use one per translation unit and merge the
// results with meta.DataMap.Merge.
type Walker struct {
	root      string
	cache     *identity.Cache
	data      *meta.DataMap
	functions FunctionPolicy
}

// Option configures a Walker.
type Option func(*Walker)

// WithFunctionPolicy sets the free function policy.
func WithFunctionPolicy(p FunctionPolicy) Option {
	return func(w *Walker) {
		if p != "" {
			w.functions = p
		}
	}
}

// WithCache shares an identity cache between walkers.
func WithCache(c *identity.Cache) Option {
	return func(w *Walker) { w.cache = c }
}

// WithDataMap makes the walker append to m.
func WithDataMap(m *meta.DataMap) Option {
	return func(w *Walker) { w.data = m }
}

// New returns a Walker that emits entities declared in files under root.
// root is an absolute, slash-separated directory.
func New(root string, opts ...Option) *Walker {
	w := &Walker{
		root:      strings.TrimSuffix(path.Clean(root), "/") + "/",
		cache:     identity.NewCache(),
		data:      meta.NewDataMap(),
		functions: AllFunctions,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Data returns the accumulated data map.
func (w *Walker) Data() *meta.DataMap {
	return w.data
}

// state is the reflection context handed to a declaration by its parent.
type state struct {
	scope   annotation.Scope
	reflect bool
}

// Walk visits the top-level declarations of tu. It fails only when the
// annotations are inconsistent, such as a pop with no pushed tag.
func (w *Walker) Walk(ctx context.Context, tu *decl.Decl) error {
	_, err := w.walkScope(ctx, tu.Children, state{})
	return err
}

// walkScope dispatches decls in order. A declaration's own pushes and pops
// carry over to its later siblings; changes made inside its subtree do not.
func (w *Walker) walkScope(ctx context.Context, decls []*decl.Decl, st state) (annotation.Scope, error) {
	for _, d := range decls {
		next, err := w.dispatch(ctx, d, st)
		if err != nil {
			return st.scope, err
		}
		st.scope = next
	}
	return st.scope, nil
}

func (w *Walker) dispatch(ctx context.Context, d *decl.Decl, st state) (annotation.Scope, error) {
	switch d.Kind {
	case decl.Namespace:
		return w.walkNamespace(ctx, d, st)
	case decl.Record:
		return w.walkRecord(ctx, d, st)
	case decl.Enum:
		return w.walkEnum(ctx, d, st)
	case decl.Function:
		return w.walkFunction(ctx, d, st)
	default:
		// Class templates and everything else at namespace scope.
		return st.scope, nil
	}
}

func (w *Walker) walkNamespace(ctx context.Context, d *decl.Decl, st state) (annotation.Scope, error) {
	if d.Invalid {
		return st.scope, nil
	}
	v, err := w.evaluate(d, st)
	if err != nil {
		return st.scope, err
	}
	if v.Drop {
		return st.scope, nil
	}
	if _, err := w.walkScope(ctx, d.Children, state{scope: v.Scope, reflect: v.Reflect}); err != nil {
		return st.scope, err
	}
	return v.Scope, nil
}

// admit applies the checks shared by every top-level entity: validity,
// location under root, and first sighting of its identity. It returns the
// root-relative file and the identity. A rejected declaration still has its
// pushes and pops applied by the caller, so later pops stay balanced.
func (w *Walker) admit(ctx context.Context, d *decl.Decl) (string, identity.Identity, bool) {
	if d.Invalid {
		slogctx.Debug(ctx, "Skipping invalid declaration", "name", d.Name)
		return "", identity.Identity{}, false
	}
	if d.Kind.IsTemplate() {
		return "", identity.Identity{}, false
	}
	rel, ok := w.relative(d.Loc)
	if !ok {
		return "", identity.Identity{}, false
	}
	id := identity.Identity{File: d.Loc.File, Line: d.Loc.Line}
	if !w.cache.Claim(id) {
		slogctx.Debug(ctx, "Skipping already seen declaration", "name", d.QualifiedName, "at", id.String())
		return "", identity.Identity{}, false
	}
	return rel, id, true
}

// relative returns loc's file relative to the walker root.
func (w *Walker) relative(loc decl.Loc) (string, bool) {
	if !loc.Valid() {
		return "", false
	}
	if !strings.HasPrefix(loc.File, w.root) {
		return "", false
	}
	return strings.TrimPrefix(loc.File, w.root), true
}

func (w *Walker) evaluate(d *decl.Decl, st state) (annotation.Verdict, error) {
	v, err := annotation.Evaluate(annotation.ParseAll(d.Annotations), st.scope, st.reflect)
	if err != nil {
		return v, errors.WithDetails(
			errors.Errorf("%s:%d: %s: %w", d.Loc.File, d.Loc.Line, displayName(d), err),
			"file", d.Loc.File, "line", d.Loc.Line,
		)
	}
	return v, nil
}

func (w *Walker) walkRecord(ctx context.Context, d *decl.Decl, st state) (annotation.Scope, error) {
	rel, id, ok := w.admit(ctx, d)
	v, err := w.evaluate(d, st)
	if err != nil {
		return st.scope, err
	}
	if v.Drop {
		return st.scope, nil
	}
	if !ok {
		return v.Scope, nil
	}
	if !v.Reflect {
		return v.Scope, nil
	}

	switch {
	case !d.IsDefinition:
		slogctx.Debug(ctx, "Ignoring annotations on forward declaration", "name", d.QualifiedName)
		return v.Scope, nil
	case d.IsAnonymous:
		slogctx.Debug(ctx, "Ignoring anonymous record", "at", id.String())
		return v.Scope, nil
	case d.TagKind == decl.Union:
		slogctx.Debug(ctx, "Ignoring union", "name", d.QualifiedName)
		return v.Scope, nil
	}

	r := meta.Record{
		ID:       id,
		Name:     d.QualifiedName,
		Attrs:    v.Attrs(),
		Comment:  d.Comment,
		FileName: d.Loc.File,
		Line:     d.Loc.Line,
	}
	for _, base := range d.Bases {
		r.Bases = append(r.Bases, typename.Display(base))
	}
	if err := w.walkMembers(ctx, d, v, &r); err != nil {
		return st.scope, err
	}

	if err := w.data.File(rel).AddRecord(r); err != nil {
		slogctx.Warn(ctx, "Dropping record with duplicate name", "name", r.Name, "file", rel, "line", r.Line)
	}
	return v.Scope, nil
}

// walkMembers fills r from the members of d. Member pushes and pops carry
// over to later members of the same record.
func (w *Walker) walkMembers(ctx context.Context, d *decl.Decl, rv annotation.Verdict, r *meta.Record) error {
	st := state{scope: rv.Scope, reflect: true}
	for _, m := range d.Children {
		if m.Invalid || m.Kind.IsTemplate() {
			continue
		}
		if _, ok := w.relative(m.Loc); !ok {
			continue
		}
		switch m.Kind {
		case decl.Field, decl.Var, decl.Method, decl.Constructor:
		case decl.Record, decl.Enum:
			slogctx.Debug(ctx, "Ignoring nested type", "name", m.QualifiedName, "in", r.Name)
			continue
		default:
			continue
		}

		v, err := w.evaluate(m, st)
		if err != nil {
			return err
		}
		if v.Drop {
			continue
		}
		st.scope = v.Scope

		switch m.Kind {
		case decl.Field:
			if anonymousRecord(m.Type) {
				slogctx.Debug(ctx, "Ignoring anonymous struct or union member", "in", r.Name, "line", m.Loc.Line)
				continue
			}
			f := signature.Field(m, v.Attrs())
			f.Access = access(m)
			f.DefaultValue = m.Default
			r.Fields = append(r.Fields, f)
		case decl.Var:
			f := signature.Field(m, v.Attrs())
			f.Access = access(m)
			f.IsStatic = true
			f.DefaultValue = m.Default
			r.Statics = append(r.Statics, f)
		case decl.Method:
			fn := w.function(m, v)
			fn.Access = access(m)
			fn.IsConst = m.IsConst
			r.Methods = append(r.Methods, fn)
		case decl.Constructor:
			fn := w.function(m, v)
			fn.Access = access(m)
			fn.RetType, fn.RawRetType = "", ""
			r.Ctors = append(r.Ctors, fn)
		}
	}
	return nil
}

func (w *Walker) walkEnum(ctx context.Context, d *decl.Decl, st state) (annotation.Scope, error) {
	rel, id, ok := w.admit(ctx, d)
	v, err := w.evaluate(d, st)
	if err != nil {
		return st.scope, err
	}
	if v.Drop {
		return st.scope, nil
	}
	if !ok {
		return v.Scope, nil
	}
	if !v.Reflect {
		return v.Scope, nil
	}

	e := meta.Enum{
		ID:             id,
		Name:           d.QualifiedName,
		UnderlyingType: underlyingType(d),
		IsScoped:       d.Scoped,
		Attrs:          v.Attrs(),
		Comment:        d.Comment,
		FileName:       d.Loc.File,
		Line:           d.Loc.Line,
	}

	mask := valueMask(d)
	cst := state{scope: v.Scope, reflect: true}
	for _, c := range d.Children {
		if c.Kind != decl.EnumConstant || c.Invalid {
			continue
		}
		cv, err := w.evaluate(c, cst)
		if err != nil {
			return st.scope, err
		}
		if cv.Drop {
			continue
		}
		cst.scope = cv.Scope
		e.Values = append(e.Values, meta.EnumValue{
			Name:    displayName(c),
			Value:   uint64(c.Value) & mask,
			Attrs:   cv.Attrs(),
			Comment: c.Comment,
			Line:    c.Loc.Line,
		})
	}

	if err := w.data.File(rel).AddEnum(e); err != nil {
		slogctx.Warn(ctx, "Dropping enum with duplicate name", "name", e.Name, "file", rel, "line", e.Line)
	}
	return v.Scope, nil
}

func (w *Walker) walkFunction(ctx context.Context, d *decl.Decl, st state) (annotation.Scope, error) {
	rel, id, ok := w.admit(ctx, d)
	v, err := w.evaluate(d, st)
	if err != nil {
		return st.scope, err
	}
	if v.Drop {
		return st.scope, nil
	}
	if !ok {
		return v.Scope, nil
	}
	if w.functions == AnnotatedFunctions && !v.Reflect {
		return v.Scope, nil
	}

	fn := w.function(d, v)
	fn.ID = id
	fn.Access = string(decl.AccessNone)
	fn.IsConst = false
	w.data.File(rel).AddFunction(fn)
	return v.Scope, nil
}

// function builds the shape shared by free functions, methods and
// constructors. Parameters see the function's pushed tags.
func (w *Walker) function(d *decl.Decl, v annotation.Verdict) meta.Function {
	fn := meta.Function{
		Name:     displayName(d),
		IsStatic: d.IsStatic,
		Attrs:    v.Attrs(),
		Comment:  d.Comment,
		FileName: d.Loc.File,
		Line:     d.Loc.Line,
	}
	if d.Type != nil && d.Type.Kind == decl.FunctionType {
		fn.IsNothrow = d.Type.Nothrow
		if !d.NoReturn {
			fn.RetType = typename.Display(d.Type.Result)
			fn.RawRetType = typename.Raw(d.Type.Result)
		}
	}
	inherited := v.Scope.Tags()
	for _, p := range d.Params() {
		attrs := append(append([]string(nil), inherited...), annotation.PlainTags(p.Annotations)...)
		f := signature.Field(p, attrs)
		f.DefaultValue = p.Default
		fn.Parameters = append(fn.Parameters, f)
	}
	return fn
}

func access(d *decl.Decl) string {
	if d.Access == "" {
		return string(decl.AccessNone)
	}
	return string(d.Access)
}

func displayName(d *decl.Decl) string {
	if d.QualifiedName != "" {
		return d.QualifiedName
	}
	return d.Name
}

func anonymousRecord(t *decl.Type) bool {
	if t == nil {
		return false
	}
	elem, _ := typename.Element(t)
	elem = elem.Desugar()
	return elem.Kind == decl.RecordType && elem.Name == ""
}

// underlyingType names the integer type of an enum, or "unfixed" when the
// enum does not fix one.
func underlyingType(d *decl.Decl) string {
	switch {
	case d.IntegerType != nil:
		return typename.Spelling(d.IntegerType)
	case d.Scoped:
		return "int"
	default:
		return "unfixed"
	}
}

// valueMask keeps the bits of the enum's integer type, so negative values
// render as their unsigned bit pattern.
func valueMask(d *decl.Decl) uint64 {
	bits := 32
	if d.IntegerType != nil {
		bits = typename.BitWidth(typename.Display(d.IntegerType))
	} else {
		for _, c := range d.Children {
			if c.Kind == decl.EnumConstant && (c.Value > math.MaxUint32 || c.Value < math.MinInt32) {
				bits = 64
				break
			}
		}
	}
	if bits >= 64 {
		return math.MaxUint64
	}
	return 1<<bits - 1
}
