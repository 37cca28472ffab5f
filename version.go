package jsonldex

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion parses a semantic version string into a small JSON-LD shaped
// document describing its components.
func ParseVersion(version string) (map[string]any, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(version))
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", version, err)
	}
	doc := map[string]any{
		"@context": map[string]any{
			"@vocab": "https://semver.org/vocab#",
		},
		"@type":        "Version",
		"major":        int64(v.Major()),
		"minor":        int64(v.Minor()),
		"patch":        int64(v.Patch()),
		"full_version": v.String(),
	}
	if pre := v.Prerelease(); pre != "" {
		doc["prerelease"] = pre
	} else {
		doc["prerelease"] = nil
	}
	if build := v.Metadata(); build != "" {
		doc["build"] = build
	} else {
		doc["build"] = nil
	}
	return doc, nil
}

// CompareVersions returns -1, 0, or 1 by semver precedence. Build metadata
// is ignored, as precedence rules require.
func CompareVersions(a, b string) (int, error) {
	va, err := semver.StrictNewVersion(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	vb, err := semver.StrictNewVersion(strings.TrimSpace(b))
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// SatisfiesRequirement reports whether version matches an npm-style
// requirement string (^, ~, comparison operators, and ranges).
func SatisfiesRequirement(version, requirement string) (bool, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(version))
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(strings.TrimSpace(requirement))
	if err != nil {
		return false, fmt.Errorf("parsing requirement %q: %w", requirement, err)
	}
	return c.Check(v), nil
}
