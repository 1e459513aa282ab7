package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alzymologist/tagrel/internal/config"
)

const testChangelog = `# Changelog

## [Unreleased]

### Added
- Pending work.

## [0.3.1] - 2024-03-15

### Fixed
- Shutdown hang on SIGTERM.
`

// initReleaseRepo creates a tagged repository with a committed changelog
// and returns its path and changelog path.
func initReleaseRepo(t *testing.T, tag string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	changelogPath := filepath.Join(dir, "CHANGELOG.md")
	require.NoError(t, os.WriteFile(changelogPath, []byte(testChangelog), 0o644))
	_, err = worktree.Add("CHANGELOG.md")
	require.NoError(t, err)

	hash, err := worktree.Commit("Prepare release", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@test.com",
		},
	})
	require.NoError(t, err)

	if tag != "" {
		_, err = repo.CreateTag(tag, hash, nil)
		require.NoError(t, err)
	}

	return dir, changelogPath
}

// checkByName finds a check result by its name.
func checkByName(t *testing.T, report *Report, name string) CheckResult {
	t.Helper()
	for _, check := range report.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("no check named %q in report", name)
	return CheckResult{}
}

func TestRun_AllChecksPass(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "v0.3.1")

	report := Run(Context{
		RepoPath: dir,
		Cfg: &config.Configuration{
			Build: config.BuildConfig{
				Command:  "echo build {{VERSION}}",
				Artifact: "target/release/kalatori",
			},
			Release:     config.ReleaseConfig{Enabled: true},
			GithubToken: "tok",
			Changelog:   changelogPath,
		},
	})

	assert.True(t, report.Passed)
	require.NotNil(t, report.Version)
	assert.Equal(t, "0.3.1", report.Version.Semver)
	assert.Len(t, report.Checks, 8)
	for _, check := range report.Checks {
		assert.True(t, check.Passed, "check %s: %s", check.Name, check.Message)
	}
}

func TestRun_NotARepositoryStopsEarly(t *testing.T) {
	report := Run(Context{
		RepoPath: t.TempDir(),
		Cfg:      &config.Configuration{},
	})

	assert.False(t, report.Passed)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "Git repository", report.Checks[0].Name)
	assert.Contains(t, report.Checks[0].Message, "not inside a git repository")
}

func TestRun_NoReleaseTagAtHead(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "")

	report := Run(Context{
		RepoPath: dir,
		Cfg:      &config.Configuration{Changelog: changelogPath},
	})

	assert.False(t, report.Passed)
	assert.Nil(t, report.Version)
	tagCheck := checkByName(t, report, "Release tag")
	assert.False(t, tagCheck.Passed)
}

func TestRun_ExplicitTag(t *testing.T) {
	tests := map[string]struct {
		tag     string
		passed  bool
		message string
	}{
		"existing tag":  {tag: "v0.3.1", passed: true, message: "tag v0.3.1 (version 0.3.1)"},
		"unknown tag":   {tag: "v9.9.9", passed: false, message: "tag v9.9.9 does not exist"},
		"malformed tag": {tag: "release-1", passed: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir, changelogPath := initReleaseRepo(t, "v0.3.1")

			report := Run(Context{
				RepoPath: dir,
				Tag:      tc.tag,
				Cfg: &config.Configuration{
					Build:     config.BuildConfig{Command: "echo build"},
					Changelog: changelogPath,
				},
			})

			tagCheck := checkByName(t, report, "Release tag")
			assert.Equal(t, tc.passed, tagCheck.Passed)
			if tc.message != "" {
				assert.Contains(t, tagCheck.Message, tc.message)
			}
		})
	}
}

func TestRun_DirtyWorktree(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "v0.3.1")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0o644))

	cfg := &config.Configuration{
		Build:     config.BuildConfig{Command: "echo build"},
		Changelog: changelogPath,
	}

	report := Run(Context{RepoPath: dir, Cfg: cfg})
	worktree := checkByName(t, report, "Worktree")
	assert.False(t, worktree.Passed)
	assert.Contains(t, worktree.Message, "allow_dirty")

	cfg.AllowDirty = true
	report = Run(Context{RepoPath: dir, Cfg: cfg})
	worktree = checkByName(t, report, "Worktree")
	assert.True(t, worktree.Passed)
	assert.Contains(t, worktree.Message, "allowed by allow_dirty")
}

func TestRun_ChangelogProblems(t *testing.T) {
	tests := map[string]struct {
		changelog string
		message   string
	}{
		"missing section": {
			changelog: "# Changelog\n\n## [0.1.0] - 2023-01-01\n\n### Added\n- Start.\n",
			message:   "0.3.1",
		},
		"empty section": {
			changelog: "# Changelog\n\n## [0.3.1] - 2024-03-15\n",
			message:   "section for 0.3.1 is empty",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir, changelogPath := initReleaseRepo(t, "v0.3.1")
			require.NoError(t, os.WriteFile(changelogPath, []byte(tc.changelog), 0o644))

			report := Run(Context{
				RepoPath: dir,
				Cfg: &config.Configuration{
					Build:      config.BuildConfig{Command: "echo build"},
					Changelog:  changelogPath,
					AllowDirty: true,
				},
			})

			clCheck := checkByName(t, report, "Changelog")
			assert.False(t, clCheck.Passed)
			assert.Contains(t, clCheck.Message, tc.message)
		})
	}
}

func TestRun_MissingBuildTool(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "v0.3.1")

	report := Run(Context{
		RepoPath: dir,
		Cfg: &config.Configuration{
			Build:     config.BuildConfig{Command: "definitely-not-a-real-tool build"},
			Changelog: changelogPath,
		},
	})

	buildCheck := checkByName(t, report, "Build tool")
	assert.False(t, buildCheck.Passed)
	assert.Contains(t, buildCheck.Message, "definitely-not-a-real-tool not found in PATH")
}

func TestRun_ArtifactPath(t *testing.T) {
	t.Run("relative path resolves against the repository", func(t *testing.T) {
		dir, changelogPath := initReleaseRepo(t, "v0.3.1")

		report := Run(Context{
			RepoPath: dir,
			Cfg: &config.Configuration{
				Build: config.BuildConfig{
					Command:  "echo build",
					Artifact: "target/release/kalatori",
				},
				Changelog: changelogPath,
			},
		})

		artifact := checkByName(t, report, "Artifact path")
		assert.True(t, artifact.Passed)
		assert.Contains(t, artifact.Message, dir)
		assert.Contains(t, artifact.Message, "is writable")
	})

	t.Run("empty artifact fails", func(t *testing.T) {
		dir, changelogPath := initReleaseRepo(t, "v0.3.1")

		report := Run(Context{
			RepoPath: dir,
			Cfg: &config.Configuration{
				Build:     config.BuildConfig{Command: "echo build"},
				Changelog: changelogPath,
			},
		})

		artifact := checkByName(t, report, "Artifact path")
		assert.False(t, artifact.Passed)
		assert.Contains(t, artifact.Message, "build.artifact is empty")
		assert.False(t, report.Passed)
	})

	t.Run("path blocked by a regular file fails", func(t *testing.T) {
		dir, changelogPath := initReleaseRepo(t, "v0.3.1")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "target"), []byte("in the way"), 0o644))

		report := Run(Context{
			RepoPath: dir,
			Cfg: &config.Configuration{
				Build: config.BuildConfig{
					Command:  "echo build",
					Artifact: "target/release/kalatori",
				},
				Changelog:  changelogPath,
				AllowDirty: true,
			},
		})

		artifact := checkByName(t, report, "Artifact path")
		assert.False(t, artifact.Passed)
		assert.Contains(t, artifact.Message, "is not writable")
	})
}

func TestRun_MissingToken(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "v0.3.1")

	report := Run(Context{
		RepoPath: dir,
		Cfg: &config.Configuration{
			Build:     config.BuildConfig{Command: "echo build"},
			Release:   config.ReleaseConfig{Enabled: true},
			Changelog: changelogPath,
		},
	})

	creds := checkByName(t, report, "Credentials")
	assert.False(t, creds.Passed)
	assert.Contains(t, creds.Message, "github_token not set")
}

func TestRun_DisabledStepsPass(t *testing.T) {
	dir, changelogPath := initReleaseRepo(t, "v0.3.1")

	report := Run(Context{
		RepoPath: dir,
		Cfg: &config.Configuration{
			Build:     config.BuildConfig{Command: "echo build"},
			Changelog: changelogPath,
		},
	})

	assert.True(t, checkByName(t, report, "Container tool").Passed)
	assert.True(t, checkByName(t, report, "Credentials").Passed)
}

func TestFormatReport(t *testing.T) {
	report := &Report{Checks: []CheckResult{
		{Name: "Git repository", Passed: true, Message: "repository detected"},
		{Name: "Credentials", Passed: false, Message: "github_token not set"},
	}}

	out := FormatReport(report)
	assert.Contains(t, out, "✓ Git repository: repository detected")
	assert.Contains(t, out, "✗ Credentials: github_token not set")
}
