package license

import (
	"fmt"
	"strings"
)

// MissingPolicy decides how a package without a declared license is judged.
type MissingPolicy string

const (
	MissingDeny  MissingPolicy = "deny"
	MissingAllow MissingPolicy = "allow"
)

// ParseMissingPolicy reads a MissingPolicy; empty means deny.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", MissingDeny:
		return MissingDeny, nil
	case MissingAllow:
		return MissingAllow, nil
	default:
		return "", fmt.Errorf("unknown missing-license policy %q (want deny or allow)", s)
	}
}

// Policy is a license allow-list.
type Policy struct {
	allowed map[string]bool
	missing MissingPolicy
}

// DefaultAllowed is the allow-list used when none is configured.
var DefaultAllowed = []string{"MIT", "ISC", "Apache-2.0", "BSD-2-Clause", "BSD-3-Clause", "0BSD"}

// NewPolicy builds a Policy from license identifiers.
func NewPolicy(allowed []string, missing MissingPolicy) *Policy {
	p := &Policy{allowed: make(map[string]bool, len(allowed)), missing: missing}
	for _, id := range allowed {
		if id = strings.TrimSpace(id); id != "" {
			p.allowed[strings.ToLower(id)] = true
		}
	}
	return p
}

// Allowed returns the allow-list in no particular order.
func (p *Policy) Allowed() []string {
	out := make([]string, 0, len(p.allowed))
	for id := range p.allowed {
		out = append(out, id)
	}
	return out
}

// Allows reports whether a declared license passes the policy.
func (p *Policy) Allows(license string) bool {
	license = strings.TrimSpace(license)
	if license == "" {
		return p.missing == MissingAllow
	}
	if p.allowed[strings.ToLower(license)] {
		return true
	}
	tokens := tokenize(license)
	e := &evaluator{policy: p, tokens: tokens}
	ok := e.or()
	if e.err != nil || e.pos != len(tokens) {
		// Not an expression, e.g. "SEE LICENSE IN LICENSE.md".
		return false
	}
	return ok
}

func (p *Policy) allowsID(id string) bool {
	id = strings.ToLower(id)
	return p.allowed[id] || p.allowed[strings.TrimSuffix(id, "+")]
}

func tokenize(s string) []string {
	s = strings.NewReplacer("(", " ( ", ")", " ) ").Replace(s)
	return strings.Fields(s)
}

// evaluator is a recursive-descent reader of SPDX license expressions:
//
//	or   = and { "OR" and }
//	and  = atom { "AND" atom }
//	atom = "(" or ")" | id [ "WITH" id ]
type evaluator struct {
	policy *Policy
	tokens []string
	pos    int
	err    error
}

func (e *evaluator) peek() string {
	if e.pos < len(e.tokens) {
		return e.tokens[e.pos]
	}
	return ""
}

func (e *evaluator) next() string {
	t := e.peek()
	e.pos++
	return t
}

func (e *evaluator) or() bool {
	ok := e.and()
	for strings.EqualFold(e.peek(), "OR") {
		e.next()
		right := e.and()
		ok = ok || right
	}
	return ok
}

func (e *evaluator) and() bool {
	ok := e.atom()
	for strings.EqualFold(e.peek(), "AND") {
		e.next()
		right := e.atom()
		ok = ok && right
	}
	return ok
}

func (e *evaluator) atom() bool {
	tok := e.next()
	switch {
	case tok == "(":
		ok := e.or()
		if e.next() != ")" {
			e.err = fmt.Errorf("unbalanced parenthesis")
		}
		return ok
	case tok == "" || tok == ")" || isKeyword(tok):
		e.err = fmt.Errorf("unexpected %q", tok)
		return false
	}
	if strings.EqualFold(e.peek(), "WITH") {
		e.next()
		exception := e.next()
		if exception == "" || exception == "(" || exception == ")" || isKeyword(exception) {
			e.err = fmt.Errorf("missing exception after WITH")
			return false
		}
		return e.policy.allowsID(tok) || e.policy.allowsID(tok+" WITH "+exception)
	}
	return e.policy.allowsID(tok)
}

func isKeyword(s string) bool {
	return strings.EqualFold(s, "OR") || strings.EqualFold(s, "AND") || strings.EqualFold(s, "WITH")
}
