package buildstep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kalatori")
	require.NoError(t, os.WriteFile(path, []byte("binary contents"), 0o755))

	artifact, err := ResolveArtifact(path)
	require.NoError(t, err)

	assert.Equal(t, path, artifact.Path)
	assert.Equal(t, int64(15), artifact.Size)
	// sha256 of "binary contents"
	assert.Equal(t, "58dd882b7907e7d10da755323a848544f42119b2e599801d794a32d2c23e4051", artifact.SHA256)
}

func TestResolveArtifact_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tests := map[string]struct {
		path    string
		wantErr string
	}{
		"missing file": {path: filepath.Join(dir, "absent"), wantErr: "does not exist"},
		"directory":    {path: dir, wantErr: "is a directory"},
		"empty file":   {path: empty, wantErr: "is empty"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveArtifact(tc.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
