package jsonldex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	doc, err := ParseVersion("1.2.3-beta.1+build.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["major"])
	assert.Equal(t, int64(2), doc["minor"])
	assert.Equal(t, int64(3), doc["patch"])
	assert.Equal(t, "beta.1", doc["prerelease"])
	assert.Equal(t, "build.5", doc["build"])
	assert.Equal(t, "1.2.3-beta.1+build.5", doc["full_version"])
	assert.Equal(t, "Version", doc["@type"])

	t.Run("plain release has null prerelease and build", func(t *testing.T) {
		doc, err := ParseVersion("2.0.0")
		require.NoError(t, err)
		assert.Nil(t, doc["prerelease"])
		assert.Nil(t, doc["build"])
	})

	t.Run("malformed versions error", func(t *testing.T) {
		for _, bad := range []string{"", "1.2", "v1.2.3.4", "not-a-version"} {
			_, err := ParseVersion(bad)
			assert.Error(t, err, "expected %q to fail", bad)
		}
	})
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0-alpha.1", "1.0.0-alpha.2", -1},
		{"1.0.0+build.1", "1.0.0+build.2", 0}, // build metadata ignored
	}
	for _, c := range cases {
		got, err := CompareVersions(c.a, c.b)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "compare(%s, %s)", c.a, c.b)
	}
}

func TestSatisfiesRequirement(t *testing.T) {
	cases := []struct {
		version, requirement string
		want                 bool
	}{
		{"1.2.3", "^1.0.0", true},
		{"2.0.0", "^1.0.0", false},
		{"1.2.9", "~1.2.3", true},
		{"1.3.0", "~1.2.3", false},
		{"1.5.0", ">=1.2.0, <2.0.0", true},
		{"2.1.0", ">=1.2.0, <2.0.0", false},
		{"1.2.3", "1.2.3", true},
	}
	for _, c := range cases {
		got, err := SatisfiesRequirement(c.version, c.requirement)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "satisfies(%s, %s)", c.version, c.requirement)
	}

	t.Run("malformed requirement errors", func(t *testing.T) {
		_, err := SatisfiesRequirement("1.0.0", "^^nope")
		assert.Error(t, err)
	})
}
