// Package preflight validates the release environment before any pipeline
// step runs. It checks the git repository, the tag under release, the
// changelog section, required tools, artifact paths, and credentials,
// returning a structured
// report used by the 'tagrel verify' command.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alzymologist/tagrel/internal/changelog"
	"github.com/alzymologist/tagrel/internal/config"
	"github.com/alzymologist/tagrel/internal/gitrepo"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
}

// Report contains all preflight check results.
type Report struct {
	Checks  []CheckResult
	Version *gitrepo.Version
	Passed  bool
}

// Context carries the inputs the checks need.
type Context struct {
	RepoPath string
	// Tag overrides tag detection. When empty the release tag is
	// detected from HEAD.
	Tag string
	Cfg *config.Configuration
}

// Run executes all preflight checks and returns a report. Checks that
// depend on a resolved version are skipped when tag resolution fails,
// so the report stays focused on the first actionable problem.
func Run(pctx Context) *Report {
	report := &Report{Passed: true}

	if !checkGitRepository(report, pctx.RepoPath) {
		return report
	}

	checkWorktreeClean(report, pctx)

	version := resolveTag(report, pctx)
	if version == nil {
		return report
	}
	report.Version = version

	checkChangelogSection(report, pctx, version)
	checkBuildTool(report, pctx.Cfg)
	checkArtifactPath(report, pctx)
	checkImageTool(report, pctx.Cfg)
	checkReleaseToken(report, pctx.Cfg)

	return report
}

func (r *Report) add(check CheckResult) {
	r.Checks = append(r.Checks, check)
	if !check.Passed {
		r.Passed = false
	}
}

func checkGitRepository(report *Report, path string) bool {
	if !gitrepo.IsGitRepository(path) {
		report.add(CheckResult{
			Name:    "Git repository",
			Passed:  false,
			Message: "not inside a git repository",
		})
		return false
	}
	report.add(CheckResult{
		Name:    "Git repository",
		Passed:  true,
		Message: "repository detected",
	})
	return true
}

func checkWorktreeClean(report *Report, pctx Context) {
	dirty, err := gitrepo.IsDirty(pctx.RepoPath)
	if err != nil {
		report.add(CheckResult{
			Name:    "Worktree",
			Passed:  false,
			Message: fmt.Sprintf("failed to read worktree status: %v", err),
		})
		return
	}
	if dirty && !pctx.Cfg.AllowDirty {
		report.add(CheckResult{
			Name:    "Worktree",
			Passed:  false,
			Message: "worktree has uncommitted changes (set allow_dirty to override)",
		})
		return
	}
	msg := "worktree clean"
	if dirty {
		msg = "worktree dirty (allowed by allow_dirty)"
	}
	report.add(CheckResult{Name: "Worktree", Passed: true, Message: msg})
}

// resolveTag resolves the version under release, either from an explicit
// tag argument or by detecting the release tag at HEAD.
func resolveTag(report *Report, pctx Context) *gitrepo.Version {
	if pctx.Tag != "" {
		version, err := gitrepo.ParseTag(pctx.Tag)
		if err != nil {
			report.add(CheckResult{
				Name:    "Release tag",
				Passed:  false,
				Message: err.Error(),
			})
			return nil
		}
		exists, err := gitrepo.TagExists(pctx.RepoPath, version.Tag)
		if err != nil {
			report.add(CheckResult{
				Name:    "Release tag",
				Passed:  false,
				Message: fmt.Sprintf("failed to look up tag %s: %v", version.Tag, err),
			})
			return nil
		}
		if !exists {
			report.add(CheckResult{
				Name:    "Release tag",
				Passed:  false,
				Message: fmt.Sprintf("tag %s does not exist in the repository", version.Tag),
			})
			return nil
		}
		report.add(CheckResult{
			Name:    "Release tag",
			Passed:  true,
			Message: fmt.Sprintf("tag %s (version %s)", version.Tag, version.Semver),
		})
		return &version
	}

	version, err := gitrepo.DetectReleaseTag(pctx.RepoPath)
	if err != nil {
		report.add(CheckResult{
			Name:    "Release tag",
			Passed:  false,
			Message: err.Error(),
		})
		return nil
	}
	report.add(CheckResult{
		Name:    "Release tag",
		Passed:  true,
		Message: fmt.Sprintf("tag %s at HEAD (version %s)", version.Tag, version.Semver),
	})
	return &version
}

func checkChangelogSection(report *Report, pctx Context, version *gitrepo.Version) {
	cl, err := changelog.Load(pctx.Cfg.Changelog)
	if err != nil {
		report.add(CheckResult{
			Name:    "Changelog",
			Passed:  false,
			Message: fmt.Sprintf("failed to load %s: %v", pctx.Cfg.Changelog, err),
		})
		return
	}

	entry, err := cl.GetVersion(version.Semver)
	if err != nil {
		report.add(CheckResult{
			Name:    "Changelog",
			Passed:  false,
			Message: err.Error(),
		})
		return
	}
	if entry.IsUnreleased() {
		report.add(CheckResult{
			Name:    "Changelog",
			Passed:  false,
			Message: "release notes must come from a versioned section, not [Unreleased]",
		})
		return
	}
	if strings.TrimSpace(entry.Body) == "" && entry.Changes.Count() == 0 {
		report.add(CheckResult{
			Name:    "Changelog",
			Passed:  false,
			Message: fmt.Sprintf("section for %s is empty", version.Semver),
		})
		return
	}
	report.add(CheckResult{
		Name:    "Changelog",
		Passed:  true,
		Message: fmt.Sprintf("section for %s found in %s", version.Semver, pctx.Cfg.Changelog),
	})
}

func checkBuildTool(report *Report, cfg *config.Configuration) {
	tool := commandName(cfg.Build.Command)
	if tool == "" {
		report.add(CheckResult{
			Name:    "Build tool",
			Passed:  false,
			Message: "build.command is empty",
		})
		return
	}
	if _, err := exec.LookPath(tool); err != nil {
		report.add(CheckResult{
			Name:    "Build tool",
			Passed:  false,
			Message: fmt.Sprintf("%s not found in PATH", tool),
		})
		return
	}
	report.add(CheckResult{
		Name:    "Build tool",
		Passed:  true,
		Message: fmt.Sprintf("%s found", tool),
	})
}

// checkArtifactPath verifies the build artifact can be written where the
// build is expected to put it. The artifact's directory usually does not
// exist before the first build, so the write check targets the nearest
// existing ancestor.
func checkArtifactPath(report *Report, pctx Context) {
	artifact := pctx.Cfg.Build.Artifact
	if artifact == "" {
		report.add(CheckResult{
			Name:    "Artifact path",
			Passed:  false,
			Message: "build.artifact is empty",
		})
		return
	}
	if !filepath.IsAbs(artifact) {
		artifact = filepath.Join(pctx.RepoPath, artifact)
	}

	dir := nearestExistingDir(filepath.Dir(artifact))
	marker := filepath.Join(dir, ".tagrel-write-check")
	if err := os.WriteFile(marker, nil, 0o600); err != nil {
		report.add(CheckResult{
			Name:    "Artifact path",
			Passed:  false,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
		})
		return
	}
	os.Remove(marker)
	report.add(CheckResult{
		Name:    "Artifact path",
		Passed:  true,
		Message: fmt.Sprintf("%s is writable", dir),
	})
}

// nearestExistingDir walks up from dir to the closest path that exists.
func nearestExistingDir(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func checkImageTool(report *Report, cfg *config.Configuration) {
	if !cfg.Image.Enabled {
		report.add(CheckResult{
			Name:    "Container tool",
			Passed:  true,
			Message: "image publishing disabled",
		})
		return
	}
	if _, err := exec.LookPath("docker"); err != nil {
		report.add(CheckResult{
			Name:    "Container tool",
			Passed:  false,
			Message: "docker not found in PATH",
		})
		return
	}
	report.add(CheckResult{
		Name:    "Container tool",
		Passed:  true,
		Message: "docker found",
	})
}

func checkReleaseToken(report *Report, cfg *config.Configuration) {
	if !cfg.Release.Enabled {
		report.add(CheckResult{
			Name:    "Credentials",
			Passed:  true,
			Message: "release publishing disabled",
		})
		return
	}
	if cfg.GithubToken == "" {
		report.add(CheckResult{
			Name:    "Credentials",
			Passed:  false,
			Message: "github_token not set (config or GITHUB_TOKEN environment variable)",
		})
		return
	}
	report.add(CheckResult{
		Name:    "Credentials",
		Passed:  true,
		Message: "github token present",
	})
}

// commandName extracts the executable name from a shell command line.
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// FormatReport formats the preflight report for console output.
func FormatReport(report *Report) string {
	var b strings.Builder
	for _, check := range report.Checks {
		if check.Passed {
			fmt.Fprintf(&b, "✓ %s: %s\n", check.Name, check.Message)
		} else {
			fmt.Fprintf(&b, "✗ %s: %s\n", check.Name, check.Message)
		}
	}
	return b.String()
}
