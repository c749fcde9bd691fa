package annotation

// Scope is an immutable stack of pushed tags. Push and Pop return new
// scopes and share structure with the receiver, so a scope handed to one
// subtree never observes changes made in another. The zero value is empty.
type Scope struct {
	top *frame
}

type frame struct {
	tag    string
	parent *frame
	depth  int
}

// Push returns s with tag on top.
func (s Scope) Push(tag string) Scope {
	depth := 1
	if s.top != nil {
		depth = s.top.depth + 1
	}
	return Scope{top: &frame{tag: tag, parent: s.top, depth: depth}}
}

// Pop returns s without its most recent tag.
func (s Scope) Pop() (Scope, error) {
	if s.top == nil {
		return s, ErrScopeUnderflow
	}
	return Scope{top: s.top.parent}, nil
}

// Len returns the number of active tags.
func (s Scope) Len() int {
	if s.top == nil {
		return 0
	}
	return s.top.depth
}

// Tags returns the active tags in push order.
func (s Scope) Tags() []string {
	n := s.Len()
	if n == 0 {
		return nil
	}
	tags := make([]string, n)
	for f := s.top; f != nil; f = f.parent {
		n--
		tags[n] = f.tag
	}
	return tags
}

// Verdict is the outcome of applying one declaration's annotations.
type Verdict struct {
	// Drop is set by a no-reflect marker; the declaration and its subtree
	// contribute nothing, including scope changes.
	Drop bool
	// Reflect is set when the declaration or an ancestor carries a reflect
	// marker.
	Reflect bool
	// Scope is the tag scope after the declaration's pushes and pops. It is
	// visible to the declaration's subtree and to its later siblings.
	Scope Scope
	// Own holds the declaration's plain tags in order.
	Own []string
}

// Attrs returns the effective tag list: active pushed tags in push order
// followed by the declaration's own plain tags.
func (v Verdict) Attrs() []string {
	tags := v.Scope.Tags()
	if len(v.Own) == 0 {
		return tags
	}
	return append(tags, v.Own...)
}

// Evaluate applies tokens to scope. inherited reports whether an ancestor
// already enabled reflection. A no-reflect marker wins over everything
// else on the same declaration.
func Evaluate(tokens []Token, scope Scope, inherited bool) (Verdict, error) {
	v := Verdict{Reflect: inherited, Scope: scope}
	for _, tok := range tokens {
		if tok.Kind == ReflectNone {
			return Verdict{Drop: true, Scope: scope}, nil
		}
	}
	for _, tok := range tokens {
		switch tok.Kind {
		case ReflectAll:
			v.Reflect = true
		case Push:
			v.Scope = v.Scope.Push(tok.Tag)
		case Pop:
			next, err := v.Scope.Pop()
			if err != nil {
				return Verdict{}, err
			}
			v.Scope = next
		case Plain:
			v.Own = append(v.Own, tok.Tag)
		}
	}
	return v, nil
}
