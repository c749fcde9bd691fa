// Package cxx builds declaration trees from C++ sources with tree-sitter.
//
// A Frontend parses one translation unit at a time. Attributes and
// annotation macros are located and blanked before parsing, and later
// attached to the innermost declaration whose header contains them.
// Quoted includes are spliced in place, conditional blocks are evaluated
// against the unit's defines, and type names are resolved through the
// enclosing namespaces and records.
package cxx

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/cppmeta/internal/decl"
	"github.com/phobologic/cppmeta/internal/lang"
)

// MetaDefine is always defined while parsing, so headers can guard
// annotation macros with #ifdef __meta__.
const MetaDefine = "__meta__"

const maxIncludeDepth = 200

// ErrIncludeDepth is returned when includes nest deeper than the limit.
var ErrIncludeDepth = errors.Base("include nesting too deep")

// Options configures a Frontend.
type Options struct {
	// IncludeDirs are searched for quoted includes not found next to the
	// including file, and for angle-bracket includes.
	IncludeDirs []string
	// Defines are predefined macros; values may be empty.
	Defines map[string]string
	// Macros maps object-like macro names to the annotation strings they
	// expand to. Macros defined in the parsed sources are discovered too.
	Macros map[string][]string
}

// Frontend parses C++ translation units. It is safe for concurrent use;
// every Parse call gets its own parser.
type Frontend struct {
	opts Options
	lang *lang.Language
}

// NewFrontend returns a Frontend with the given options.
func NewFrontend(opts Options) *Frontend {
	return &Frontend{opts: opts, lang: lang.CPP()}
}

// Parse builds the declaration tree of the translation unit rooted at
// path.
func (fe *Frontend) Parse(ctx context.Context, path string) (*decl.Decl, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", path, err)
	}
	query, err := fe.lang.GetQuery()
	if err != nil {
		return nil, err
	}

	u := &unit{
		ctx:     ctx,
		fe:      fe,
		parser:  fe.lang.NewParser(),
		query:   query,
		defines: map[string]string{MetaDefine: "1"},
		macros:  map[string]macro{},
		once:    map[string]bool{},
		symbols: symbols{},
	}
	defer u.parser.Close()
	for k, v := range fe.opts.Defines {
		u.defines[k] = v
	}
	for name, values := range fe.opts.Macros {
		u.macros[name] = macro{values: values}
	}

	if err := u.discover(abs, map[string]bool{}); err != nil {
		return nil, err
	}

	tu := &decl.Decl{
		Kind: decl.TranslationUnit,
		Name: slashPath(abs),
		Loc:  decl.Loc{File: slashPath(abs), Line: 1},
	}
	if err := u.include(abs, &scope{}, &tu.Children); err != nil {
		return nil, err
	}
	return tu, nil
}

// unit is the state of one Parse call.
type unit struct {
	ctx     context.Context
	fe      *Frontend
	parser  *sitter.Parser
	query   *sitter.Query
	defines map[string]string
	macros  map[string]macro
	once    map[string]bool // files marked #pragma once
	active  []string        // include stack
	symbols symbols
}

// file is one parsed source file of the unit.
type file struct {
	path  string // absolute, slash-separated
	src   []byte // with attributes blanked
	notes notes
}

func (f *file) loc(n *sitter.Node) decl.Loc {
	return decl.Loc{File: f.path, Line: int(n.StartPoint().Row) + 1}
}

func (f *file) text(n *sitter.Node) string {
	return lang.CollapseWhitespace(lang.NodeText(n, f.src))
}

func slashPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// include parses path and appends its declarations to out in scope sc.
func (u *unit) include(path string, sc *scope, out *[]*decl.Decl) error {
	if err := u.ctx.Err(); err != nil {
		return err
	}
	if u.once[path] {
		return nil
	}
	for _, p := range u.active {
		if p == path {
			slogctx.Debug(u.ctx, "Cutting include cycle", "file", path)
			return nil
		}
	}
	if len(u.active) >= maxIncludeDepth {
		return errors.WithDetails(ErrIncludeDepth, "file", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}
	src, found := prescan(raw, u.macros)
	tree, err := u.parser.ParseCtx(u.ctx, nil, src)
	if err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	f := &file{path: slashPath(path), src: src, notes: found}
	root := tree.RootNode()
	if root.HasError() {
		u.diagnose(f, root)
	}

	u.active = append(u.active, path)
	defer func() { u.active = u.active[:len(u.active)-1] }()
	return u.items(f, root, sc, out)
}

// diagnose logs the first few syntax errors of a file.
func (u *unit) diagnose(f *file, root *sitter.Node) {
	reported := 0
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if reported >= 5 || !n.HasError() && !n.IsMissing() {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			slogctx.Debug(u.ctx, "Syntax error", "file", f.path, "line", n.StartPoint().Row+1, "missing", n.IsMissing())
			reported++
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
}

// discover collects annotation macros defined in path and the files it
// includes, before any file is scanned for annotations.
func (u *unit) discover(path string, seen map[string]bool) error {
	if seen[path] {
		return nil
	}
	seen[path] = true

	src, err := os.ReadFile(path)
	if err != nil {
		if len(seen) == 1 {
			return errors.Errorf("reading %s: %w", path, err)
		}
		return nil
	}
	tree, err := u.parser.ParseCtx(u.ctx, nil, src)
	if err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(u.query, tree.RootNode())

	var includes []*sitter.Node
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name, value *sitter.Node
		for _, c := range match.Captures {
			switch u.query.CaptureNameForId(c.Index) {
			case "include.path":
				includes = append(includes, c.Node)
			case "define.name":
				name = c.Node
			case "define.value":
				value = c.Node
			}
		}
		if name == nil || value == nil {
			continue
		}
		id := lang.NodeText(name, src)
		if _, configured := u.fe.opts.Macros[id]; configured {
			continue
		}
		if m, ok := macroFromBody(lang.NodeText(value, src)); ok {
			u.macros[id] = m
		}
	}

	for _, inc := range includes {
		target, ok := u.resolveInclude(path, inc, src)
		if !ok {
			continue
		}
		if err := u.discover(target, seen); err != nil {
			return err
		}
	}
	return nil
}

// resolveInclude finds the file named by an include path node. Quoted
// names are looked up next to the including file first.
func (u *unit) resolveInclude(from string, n *sitter.Node, src []byte) (string, bool) {
	text := strings.TrimSpace(lang.NodeText(n, src))
	var dirs []string
	switch n.Type() {
	case "string_literal":
		text = strings.Trim(text, `"`)
		dirs = append(dirs, filepath.Dir(from))
	case "system_lib_string":
		text = strings.TrimSuffix(strings.TrimPrefix(text, "<"), ">")
	default:
		return "", false
	}
	dirs = append(dirs, u.fe.opts.IncludeDirs...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(text))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				continue
			}
			return filepath.Clean(abs), true
		}
	}
	return "", false
}

// conditional walks the branch of an #if/#ifdef chain selected by the
// unit's defines.
func (u *unit) conditional(f *file, n *sitter.Node, sc *scope, out *[]*decl.Decl) error {
	taken := false
	switch n.Type() {
	case "preproc_ifdef", "preproc_elifdef":
		name := n.ChildByFieldName("name")
		directive := ""
		if n.ChildCount() > 0 {
			directive = n.Child(0).Type()
		}
		if name != nil {
			_, defined := u.defines[lang.NodeText(name, f.src)]
			taken = defined == !strings.Contains(directive, "ndef")
		}
	case "preproc_if", "preproc_elif":
		taken = u.condition(f, n.ChildByFieldName("condition"))
	case "preproc_else":
		taken = true
	}

	if !taken {
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			return u.conditional(f, alt, sc, out)
		}
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.FieldNameForChild(i) {
		case "name", "condition", "alternative":
			continue
		}
		if err := u.item(f, n.Child(i), sc, out); err != nil {
			return err
		}
	}
	return nil
}

// condition evaluates an #if expression. Undefined identifiers are zero;
// expressions that cannot be evaluated count as true.
func (u *unit) condition(f *file, n *sitter.Node) bool {
	e := &evaluator{
		src: f.src,
		lookup: func(name string) (int64, bool) {
			value, ok := u.defines[name]
			if !ok {
				return 0, true
			}
			v, err := parseInteger(strings.TrimSpace(value))
			return v, err == nil
		},
		defined: func(name string) bool {
			_, ok := u.defines[name]
			return ok
		},
	}
	v, err := e.eval(n)
	if err != nil {
		slogctx.Debug(u.ctx, "Assuming unevaluated condition holds", "file", f.path, "line", n.StartPoint().Row+1, "error", err)
		return true
	}
	return v != 0
}

// directive applies #define, #undef and #pragma once.
func (u *unit) directive(f *file, n *sitter.Node) {
	switch n.Type() {
	case "preproc_def":
		name := n.ChildByFieldName("name")
		if name == nil {
			return
		}
		value := ""
		if v := n.ChildByFieldName("value"); v != nil {
			value = strings.TrimSpace(lang.NodeText(v, f.src))
		}
		u.defines[lang.NodeText(name, f.src)] = value
	case "preproc_function_def":
		if name := n.ChildByFieldName("name"); name != nil {
			u.defines[lang.NodeText(name, f.src)] = ""
		}
	case "preproc_call":
		d := n.ChildByFieldName("directive")
		arg := n.ChildByFieldName("argument")
		if d == nil || arg == nil {
			return
		}
		switch lang.NodeText(d, f.src) {
		case "#undef":
			delete(u.defines, strings.TrimSpace(lang.NodeText(arg, f.src)))
		case "#pragma":
			if strings.TrimSpace(lang.NodeText(arg, f.src)) == "once" {
				u.once[filepath.FromSlash(f.path)] = true
			}
		}
	}
}
