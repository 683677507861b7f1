// Package locks implements the access predicates gating command
// invocation. A lock string is a small boolean expression over caller
// facts, e.g. "perm(builder)", "perm(admin) or tag(wizard)",
// "not id(xyz) and all()". Parsing happens once when a command set is
// built; evaluation happens on every dispatch.
package locks

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/storage"
)

// Caller supplies the facts predicates test. The session layer implements
// it from the account/permission provider plus the acting entity.
type Caller interface {
	Id() storage.Identifier
	HasPerm(perm string) bool
	HasTag(tag string) bool
}

// Predicate is a compiled lock string.
type Predicate interface {
	Eval(c Caller) bool
}

// All passes everyone. The zero lock string compiles to it.
func All() Predicate { return allPred{} }

type allPred struct{}

func (allPred) Eval(Caller) bool { return true }

type nonePred struct{}

func (nonePred) Eval(Caller) bool { return false }

type permPred struct{ perm string }

func (p permPred) Eval(c Caller) bool { return c.HasPerm(p.perm) }

type tagPred struct{ tag string }

func (p tagPred) Eval(c Caller) bool { return c.HasTag(p.tag) }

type idPred struct{ id storage.Identifier }

func (p idPred) Eval(c Caller) bool { return c.Id() == p.id }

type notPred struct{ inner Predicate }

func (p notPred) Eval(c Caller) bool { return !p.inner.Eval(c) }

type andPred struct{ left, right Predicate }

func (p andPred) Eval(c Caller) bool { return p.left.Eval(c) && p.right.Eval(c) }

type orPred struct{ left, right Predicate }

func (p orPred) Eval(c Caller) bool { return p.left.Eval(c) || p.right.Eval(c) }

// Parse compiles a lock string. An empty string compiles to All.
func Parse(s string) (Predicate, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return All(), nil
	}

	p := &parser{toks: toks}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("lock %q: unexpected %q", s, p.peek())
	}
	return pred, nil
}

type token struct {
	kind string // "word", "lparen", "rparen"
	val  string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, token{kind: "word", val: word.String()})
			word.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r == '(':
			flush()
			toks = append(toks, token{kind: "lparen"})
		case r == ')':
			flush()
			toks = append(toks, token{kind: "rparen"})
		case r == ' ' || r == '\t':
			flush()
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			word.WriteRune(r)
		default:
			return nil, fmt.Errorf("lock %q: invalid character %q", s, r)
		}
	}
	flush()

	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return "<end>"
	}
	t := p.toks[p.pos]
	if t.kind == "word" {
		return t.val
	}
	return t.kind
}

func (p *parser) next() (token, bool) {
	if p.done() {
		return token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) accept(word string) bool {
	if !p.done() && p.toks[p.pos].kind == "word" && strings.EqualFold(p.toks[p.pos].val, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind string) error {
	t, ok := p.next()
	if !ok || t.kind != kind {
		return fmt.Errorf("expected %s, got %q", kind, p.peek())
	}
	return nil
}

// parseOr handles the lowest-precedence operator: a or b or c.
func (p *parser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orPred{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andPred{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Predicate, error) {
	if p.accept("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notPred{inner: inner}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Predicate, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("unexpected end of lock string")
	}

	if t.kind == "lparen" {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect("rparen"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	if t.kind != "word" {
		return nil, fmt.Errorf("unexpected %q", t.kind)
	}

	fn := strings.ToLower(t.val)
	arg, err := p.parseCallArg()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	switch fn {
	case "all":
		return allPred{}, nil
	case "none":
		return nonePred{}, nil
	case "perm":
		if arg == "" {
			return nil, fmt.Errorf("perm() requires an argument")
		}
		return permPred{perm: arg}, nil
	case "tag":
		if arg == "" {
			return nil, fmt.Errorf("tag() requires an argument")
		}
		return tagPred{tag: arg}, nil
	case "id":
		if arg == "" {
			return nil, fmt.Errorf("id() requires an argument")
		}
		return idPred{id: storage.Identifier(arg)}, nil
	default:
		return nil, fmt.Errorf("unknown lock function %q", fn)
	}
}

// parseCallArg consumes "( [word] )" and returns the optional argument.
func (p *parser) parseCallArg() (string, error) {
	if err := p.expect("lparen"); err != nil {
		return "", err
	}

	var arg string
	if !p.done() && p.toks[p.pos].kind == "word" {
		arg = p.toks[p.pos].val
		p.pos++
	}

	if err := p.expect("rparen"); err != nil {
		return "", err
	}
	return arg, nil
}
