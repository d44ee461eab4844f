package pipeline

import (
	"github.com/matzehuels/stackgate/pkg/manifest"
)

// Apply pins every installable outcome in m to its resolved version and
// returns how many entries it set. Nothing is written; call m.Save once
// the whole batch has been applied.
func Apply(m *manifest.Manifest, outcomes []*Outcome, scope string) (int, error) {
	seen := make(map[string]bool, len(outcomes))
	n := 0
	for _, o := range outcomes {
		if !o.Kind.Installable() || seen[o.Request.Name] {
			continue
		}
		seen[o.Request.Name] = true
		if err := m.Set(o.Request.Name, o.Version, scope); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
