package buildstep

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Artifact describes a file produced by the build step.
type Artifact struct {
	Path   string
	SHA256 string
	Size   int64
}

// ResolveArtifact verifies that the build produced the expected file and
// computes its checksum. An empty file is treated as a failed build.
func ResolveArtifact(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Artifact{}, fmt.Errorf("build artifact %s does not exist", path)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("checking build artifact %s: %w", path, err)
	}
	if info.IsDir() {
		return Artifact{}, fmt.Errorf("build artifact %s is a directory", path)
	}
	if info.Size() == 0 {
		return Artifact{}, fmt.Errorf("build artifact %s is empty", path)
	}

	sum, err := checksumFile(path)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Path:   path,
		SHA256: sum,
		Size:   info.Size(),
	}, nil
}

// checksumFile computes the sha256 digest of a file.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening artifact %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing artifact %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
