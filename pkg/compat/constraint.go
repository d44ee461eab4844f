package compat

import (
	"fmt"
	"strings"
)

// Constraint is a parsed engine constraint: a disjunction of groups, each
// a conjunction of terms.
type Constraint struct {
	raw      string
	groups   [][]term
	warnings []string
}

type bound struct {
	v         Version
	inclusive bool
}

// term is one range predicate. A nil bound is unbounded on that side.
type term struct {
	text   string
	lo, hi *bound
}

func (t term) check(v Version) bool {
	if t.lo != nil {
		c := v.Compare(t.lo.v)
		if c < 0 || (c == 0 && !t.lo.inclusive) {
			return false
		}
	}
	if t.hi != nil {
		c := v.Compare(t.hi.v)
		if c > 0 || (c == 0 && !t.hi.inclusive) {
			return false
		}
	}
	return true
}

// Parse reads a constraint string. It never fails: terms it cannot read
// are dropped, which makes them satisfied, and recorded as warnings.
func Parse(s string) *Constraint {
	c := &Constraint{raw: strings.TrimSpace(s)}
	for _, alt := range strings.Split(c.raw, "||") {
		c.groups = append(c.groups, c.parseGroup(alt))
	}
	return c
}

func (c *Constraint) parseGroup(s string) []term {
	tokens := joinOperators(strings.Fields(s))
	var terms []term
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if i+2 < len(tokens) && tokens[i+1] == "-" {
			t, err := hyphenRange(tok, tokens[i+2])
			i += 2
			if err != nil {
				c.warn(tok+" - "+tokens[i], err)
				continue
			}
			terms = append(terms, t)
			continue
		}
		t, err := parseTerm(tok)
		if err != nil {
			c.warn(tok, err)
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func (c *Constraint) warn(text string, err error) {
	c.warnings = append(c.warnings, fmt.Sprintf("ignoring unreadable constraint term %q: %v", text, err))
}

// Check reports whether v satisfies any alternative.
func (c *Constraint) Check(v Version) bool {
	for _, group := range c.groups {
		ok := true
		for _, t := range group {
			if !t.check(v) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Warnings lists terms that were ignored while parsing.
func (c *Constraint) Warnings() []string { return c.warnings }

// String returns the constraint as written.
func (c *Constraint) String() string { return c.raw }

// IsCompatible reports whether the runtime version current satisfies
// constraint. An unreadable current version or constraint term never makes
// the result false; it is returned as a warning instead.
func IsCompatible(current, constraint string) (bool, []string) {
	c := Parse(constraint)
	v, err := ParseVersion(current)
	if err != nil {
		return true, append(c.Warnings(), fmt.Sprintf("cannot read runtime version %q: %v", current, err))
	}
	return c.Check(v), c.Warnings()
}

var operators = []string{">=", "<=", "~>", ">", "<", "=", "~", "^"}

// joinOperators merges a lone operator token with the version after it, so
// ">= 14" reads like ">=14".
func joinOperators(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if isOperator(tokens[i]) && i+1 < len(tokens) {
			out = append(out, tokens[i]+tokens[i+1])
			i++
			continue
		}
		out = append(out, tokens[i])
	}
	return out
}

func isOperator(s string) bool {
	for _, op := range operators {
		if s == op {
			return true
		}
	}
	return false
}

func splitOperator(s string) (op, rest string) {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			if op == "~>" {
				return "~", s[2:]
			}
			return op, s[len(op):]
		}
	}
	return "", s
}

func parseTerm(s string) (term, error) {
	op, rest := splitOperator(s)
	if rest == "" {
		return term{}, fmt.Errorf("missing version")
	}
	v, n, err := parsePartial(rest)
	if err != nil {
		return term{}, err
	}
	t := term{text: s}
	if n < 0 {
		return wildcardTerm(t, op, v, -n-1), nil
	}

	switch op {
	case "", "=":
		t.lo = &bound{v, true}
		t.hi = &bound{v, true}
	case ">=":
		t.lo = &bound{v, true}
	case ">":
		t.lo = &bound{v, false}
	case "<=":
		t.hi = &bound{v, true}
	case "<":
		t.hi = &bound{v, false}
	case "~":
		t.lo = &bound{v, true}
		if n >= 2 {
			t.hi = &bound{v.nextMinor(), false}
		} else {
			t.hi = &bound{v.nextMajor(), false}
		}
	case "^":
		t.lo = &bound{v, true}
		switch {
		case v[0] > 0:
			t.hi = &bound{v.nextMajor(), false}
		case v[1] > 0:
			t.hi = &bound{v.nextMinor(), false}
		default:
			t.hi = &bound{v.nextPatch(), false}
		}
	}
	return t, nil
}

// wildcardTerm builds the term for a version whose component at index
// given is a wildcard; given is the number of numeric components before
// it.
func wildcardTerm(t term, op string, v Version, given int) term {
	if given == 0 {
		// "*", ">=x" and the like.
		return t
	}
	lower := v
	upper := v.nextMajor()
	if given == 2 {
		upper = v.nextMinor()
	}

	switch op {
	case "", "=", "~":
		t.lo = &bound{lower, true}
		t.hi = &bound{upper, false}
	case "^":
		t.lo = &bound{lower, true}
		if v[0] == 0 && given == 2 {
			t.hi = &bound{v.nextMinor(), false}
		} else {
			t.hi = &bound{v.nextMajor(), false}
		}
	case ">=":
		t.lo = &bound{lower, true}
	case ">":
		t.lo = &bound{upper, true}
	case "<=":
		t.hi = &bound{upper, false}
	case "<":
		t.hi = &bound{lower, false}
	}
	return t
}

// hyphenRange reads "a - b" as ">=a <=b". A partial upper bound covers the
// range it leaves open, so "1 - 2" accepts 2.9.9.
func hyphenRange(from, to string) (term, error) {
	lo, n, err := parsePartial(from)
	if err != nil {
		return term{}, err
	}
	if n < 0 {
		lo = Version{}
	}
	hi, m, err := parsePartial(to)
	if err != nil {
		return term{}, err
	}

	t := term{text: from + " - " + to, lo: &bound{lo, true}}
	switch {
	case m == 3:
		t.hi = &bound{hi, true}
	case m == 2 || m == -3:
		t.hi = &bound{hi.nextMinor(), false}
	case m == 1 || m == -2:
		t.hi = &bound{hi.nextMajor(), false}
	}
	return t, nil
}
