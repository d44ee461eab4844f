package resolve

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stackgate/pkg/integrations/npm"
)

// Select picks the version of doc that spec names, following the order npm
// uses: dist-tag, exact version, then range. For a range, the latest tag
// wins when it satisfies the range; otherwise the highest readable match
// does. Pre-releases only match ranges that mention one.
func Select(doc *npm.Packument, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = LatestTag
	}
	if !IsRegistrySpec(spec) {
		return "", fmt.Errorf("%q does not name a registry version", spec)
	}

	if v, ok := doc.DistTags[spec]; ok {
		return v, nil
	}

	if exact, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimPrefix(spec, "="), "v")); err == nil {
		version := exact.Original()
		if _, ok := doc.Versions[version]; ok {
			return version, nil
		}
		if _, ok := doc.Invalid[version]; ok {
			return version, nil
		}
		return "", fmt.Errorf("version %s is not published", version)
	}

	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		if spec == LatestTag {
			return "", fmt.Errorf("no %q dist-tag", LatestTag)
		}
		return "", fmt.Errorf("unknown dist-tag or invalid range %q: %w", spec, err)
	}

	if latest, ok := doc.DistTags[LatestTag]; ok {
		if v, err := semver.StrictNewVersion(latest); err == nil && constraint.Check(v) {
			if _, readable := doc.Versions[latest]; readable {
				return latest, nil
			}
		}
	}

	var best *semver.Version
	for version := range doc.Versions {
		v, err := semver.StrictNewVersion(version)
		if err != nil || !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return "", fmt.Errorf("no published version satisfies %q", spec)
	}
	return best.Original(), nil
}
