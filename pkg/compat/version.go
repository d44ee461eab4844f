package compat

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor.patch triple. Pre-release and build metadata are
// not part of the comparison.
type Version [3]int

// String formats v as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Compare returns -1, 0 or 1 comparing v and o component-wise.
func (v Version) Compare(o Version) int {
	for i := range v {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	return 0
}

// ParseVersion reads a possibly incomplete version such as "v18.17.1",
// "14" or "14.2". Missing components are zero-filled and any pre-release
// or build suffix is dropped.
func ParseVersion(s string) (Version, error) {
	v, n, err := parsePartial(s)
	if err != nil {
		return Version{}, err
	}
	if n < 0 {
		return Version{}, fmt.Errorf("wildcard is not a version: %q", s)
	}
	return v, nil
}

// parsePartial parses s and reports how many numeric components were
// given. n is the index of the first wildcard component when one is
// present, negated and offset by one, so "1.x" yields n = -2.
func parsePartial(s string) (v Version, n int, err error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return Version{}, 0, fmt.Errorf("empty version %q", raw)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, 0, fmt.Errorf("too many components in %q", raw)
	}
	for i, p := range parts {
		if p == "x" || p == "X" || p == "*" {
			// Trailing components after a wildcard are ignored.
			return v, -(i + 1), nil
		}
		num, err := strconv.Atoi(p)
		if err != nil || num < 0 {
			return Version{}, 0, fmt.Errorf("invalid component %q in %q", p, raw)
		}
		v[i] = num
	}
	return v, len(parts), nil
}

func (v Version) nextMajor() Version { return Version{v[0] + 1, 0, 0} }
func (v Version) nextMinor() Version { return Version{v[0], v[1] + 1, 0} }
func (v Version) nextPatch() Version { return Version{v[0], v[1], v[2] + 1} }
