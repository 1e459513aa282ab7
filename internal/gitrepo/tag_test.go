package gitrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := map[string]struct {
		tag        string
		semver     string
		prerelease string
	}{
		"plain release":       {"v0.3.1", "0.3.1", ""},
		"major release":       {"v2.0.0", "2.0.0", ""},
		"release candidate":   {"v1.0.0-rc.1", "1.0.0-rc.1", "rc.1"},
		"alpha with number":   {"v0.4.0-alpha.2", "0.4.0-alpha.2", "alpha.2"},
		"with build metadata": {"v1.2.3+20240610", "1.2.3+20240610", ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := ParseTag(tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.tag, v.Tag)
			assert.Equal(t, tc.semver, v.Semver)
			assert.Equal(t, tc.prerelease, v.Prerelease)
		})
	}
}

func TestParseTag_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing v marker":  "0.3.1",
		"two components":    "v1.2",
		"four components":   "v1.2.3.4",
		"not a version":     "release-1",
		"empty":             "",
		"trailing garbage":  "v1.2.3 final",
		"uppercase marker":  "V1.2.3",
		"double v marker":   "vv1.2.3",
		"branch-like":       "main",
		"whitespace inside": "v1 .2.3",
	}

	for name, tag := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTag(tag)
			require.Error(t, err)

			var invalid *InvalidTagError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tag, invalid.Tag)
		})
	}
}

func TestIsReleaseTag(t *testing.T) {
	assert.True(t, IsReleaseTag("v1.0.0"))
	assert.True(t, IsReleaseTag("v1.0.0-rc.1"))
	assert.False(t, IsReleaseTag("1.0.0"))
	assert.False(t, IsReleaseTag("nightly"))
}

func TestVersion_IsPrerelease(t *testing.T) {
	final, err := ParseTag("v1.0.0")
	require.NoError(t, err)
	assert.False(t, final.IsPrerelease())

	rc, err := ParseTag("v1.0.0-rc.2")
	require.NoError(t, err)
	assert.True(t, rc.IsPrerelease())
}

func TestVersion_String(t *testing.T) {
	v, err := ParseTag("v0.9.2")
	require.NoError(t, err)
	assert.Equal(t, "v0.9.2", v.String())
}
