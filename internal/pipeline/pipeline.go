// Package pipeline orchestrates the release steps: verify, build, notes,
// image, release. Steps run in a fixed order and the pipeline stops at the
// first failure. Each step streams its output to a per-run log file and to
// the console.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alzymologist/tagrel/internal/buildstep"
	"github.com/alzymologist/tagrel/internal/callback"
	"github.com/alzymologist/tagrel/internal/changelog"
	"github.com/alzymologist/tagrel/internal/config"
	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/ghrelease"
	"github.com/alzymologist/tagrel/internal/gitrepo"
	"github.com/alzymologist/tagrel/internal/image"
	"github.com/alzymologist/tagrel/internal/logtail"
	"github.com/alzymologist/tagrel/internal/preflight"
	"github.com/alzymologist/tagrel/internal/progress"
	"github.com/alzymologist/tagrel/internal/runstate"
)

// Step names in pipeline order.
const (
	StepVerify  = "verify"
	StepBuild   = "build"
	StepNotes   = "notes"
	StepImage   = "image"
	StepRelease = "release"
)

// StepOrder is the fixed execution order of the pipeline.
var StepOrder = []string{StepVerify, StepBuild, StepNotes, StepImage, StepRelease}

// BuildRunner runs the build command for a version.
type BuildRunner interface {
	Run(ctx context.Context, v gitrepo.Version, output io.Writer) error
}

// ImagePublisher builds and pushes the container image for a version,
// returning the pushed references.
type ImagePublisher interface {
	Publish(ctx context.Context, v gitrepo.Version, output io.Writer) ([]string, error)
}

// ReleasePublisher creates the hosted release and uploads its assets.
type ReleasePublisher interface {
	CreateRelease(ctx context.Context, req ghrelease.CreateRequest) (*ghrelease.Release, error)
	UploadAssets(ctx context.Context, release *ghrelease.Release, paths []string) ([]*ghrelease.Asset, error)
}

// CallbackSender delivers the post-release summary webhook.
type CallbackSender interface {
	Send(ctx context.Context, payload callback.Payload) error
}

// Options configures a pipeline run.
type Options struct {
	Cfg      *config.Configuration
	RepoPath string
	// Tag overrides tag detection from HEAD.
	Tag string
	// Skip lists step names to skip (verify cannot be skipped).
	Skip []string
	// DryRun verifies and extracts notes but skips build, image, and
	// release.
	DryRun bool
	// Out receives console output. Defaults to os.Stdout.
	Out io.Writer
	// Display renders step progress; nil disables progress display.
	Display *progress.Display

	// Test seams. When nil the production implementations are used.
	Builder  BuildRunner
	Images   ImagePublisher
	Releases ReleasePublisher
	Callback CallbackSender
}

// Result summarizes a completed pipeline run.
type Result struct {
	RunID      string
	Version    gitrepo.Version
	Artifact   *buildstep.Artifact
	Notes      string
	ImageRefs  []string
	ReleaseURL string
}

// Pipeline executes the release steps for one tagged commit.
type Pipeline struct {
	cfg      *config.Configuration
	repoPath string
	tag      string
	skip     map[string]bool
	dryRun   bool
	out      io.Writer
	display  *progress.Display

	builder  BuildRunner
	images   ImagePublisher
	releases ReleasePublisher
	callback CallbackSender

	state   *runstate.RunState
	version gitrepo.Version
}

// New creates a Pipeline from options, filling in production step
// implementations where no seam was injected.
func New(opts Options) *Pipeline {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	skip := make(map[string]bool, len(opts.Skip))
	for _, name := range opts.Skip {
		skip[strings.ToLower(strings.TrimSpace(name))] = true
	}

	return &Pipeline{
		cfg:      opts.Cfg,
		repoPath: opts.RepoPath,
		tag:      opts.Tag,
		skip:     skip,
		dryRun:   opts.DryRun,
		out:      out,
		display:  opts.Display,
		builder:  opts.Builder,
		images:   opts.Images,
		releases: opts.Releases,
		callback: opts.Callback,
	}
}

// Run executes all pipeline steps in order, stopping at the first
// failure. The returned Result is valid only when err is nil.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	version, err := p.verify(ctx)
	if err != nil {
		return nil, err
	}
	p.version = version

	state, err := runstate.NewRunState(p.cfg.StateDir, version.Tag, version.Semver)
	if err != nil {
		return nil, errors.NewStepError(fmt.Sprintf("preparing run state: %v", err))
	}
	if commit, cerr := gitrepo.HeadCommit(p.repoPath); cerr == nil {
		state.Commit = commit
	}
	p.state = state
	defer p.finishRun()

	result := &Result{RunID: state.ID, Version: version}

	if err := p.runBuild(ctx, result); err != nil {
		return nil, err
	}
	if err := p.runNotes(ctx, result); err != nil {
		return nil, err
	}
	if err := p.runImage(ctx, result); err != nil {
		return nil, err
	}
	if err := p.runRelease(ctx, result); err != nil {
		return nil, err
	}

	p.sendCallback(ctx, result)
	return result, nil
}

// verify runs the preflight checks and resolves the version under
// release. Verify always runs; the pipeline has nothing to do without a
// resolved release tag.
func (p *Pipeline) verify(ctx context.Context) (gitrepo.Version, error) {
	info := progress.StepInfo{Name: StepVerify, Index: 1, Total: len(StepOrder)}
	p.startDisplay(info)

	report := preflight.Run(preflight.Context{
		RepoPath: p.repoPath,
		Tag:      p.tag,
		Cfg:      p.cfg,
	})
	if !report.Passed {
		err := errors.NewPreflightError(strings.TrimRight(preflight.FormatReport(report), "\n"))
		p.failDisplay(info, err)
		return gitrepo.Version{}, err
	}

	p.completeDisplay(info, 0)
	return *report.Version, nil
}

func (p *Pipeline) runBuild(ctx context.Context, result *Result) error {
	if p.dryRun {
		runner := buildstep.NewRunner(p.cfg.Build.Command, p.repoPath, 0)
		p.skipStep(StepBuild, 2, fmt.Sprintf("dry run (would run: %s)", runner.ExpandCommand(p.version)))
		return nil
	}

	return p.runStep(ctx, StepBuild, 2, func(ctx context.Context, log io.Writer) error {
		builder := p.builder
		if builder == nil {
			timeout := time.Duration(p.cfg.Build.Timeout) * time.Second
			builder = buildstep.NewRunner(p.cfg.Build.Command, p.repoPath, timeout)
		}
		if err := builder.Run(ctx, p.version, log); err != nil {
			return err
		}

		artifact, err := buildstep.ResolveArtifact(p.cfg.Build.Artifact)
		if err != nil {
			return err
		}
		result.Artifact = &artifact
		p.state.Artifacts = append(p.state.Artifacts, runstate.ArtifactRecord{
			Path:   artifact.Path,
			SHA256: artifact.SHA256,
			Size:   artifact.Size,
		})
		fmt.Fprintf(log, "artifact %s (sha256 %s)\n", artifact.Path, artifact.SHA256)
		return nil
	})
}

// runNotes extracts the release notes section for the version and keeps
// a copy next to the run state.
func (p *Pipeline) runNotes(ctx context.Context, result *Result) error {
	return p.runStep(ctx, StepNotes, 3, func(ctx context.Context, log io.Writer) error {
		cl, err := changelog.Load(p.cfg.Changelog)
		if err != nil {
			return err
		}
		entry, err := cl.GetVersion(p.version.Semver)
		if err != nil {
			return err
		}
		result.Notes = changelog.RenderNotesString(entry)

		notesPath := p.state.LogPath("notes")
		notesPath = strings.TrimSuffix(notesPath, ".log") + ".md"
		if err := os.WriteFile(notesPath, []byte(result.Notes), 0o644); err != nil {
			return fmt.Errorf("writing notes copy: %w", err)
		}
		fmt.Fprintf(log, "extracted %d lines of notes for %s\n",
			strings.Count(result.Notes, "\n"), p.version.Semver)
		return nil
	})
}

func (p *Pipeline) runImage(ctx context.Context, result *Result) error {
	if !p.cfg.Image.Enabled {
		p.skipStep(StepImage, 4, "disabled in configuration")
		return nil
	}
	if p.skip[StepImage] {
		p.skipStep(StepImage, 4, "skipped by flag")
		return nil
	}
	if p.dryRun {
		p.skipStep(StepImage, 4, "dry run")
		return nil
	}

	return p.runStep(ctx, StepImage, 4, func(ctx context.Context, log io.Writer) error {
		publisher := p.images
		if publisher == nil {
			publisher = image.NewPublisher(image.Options{
				Registry:   p.cfg.Image.Registry,
				Name:       p.cfg.Image.Name,
				Dockerfile: p.cfg.Image.Dockerfile,
				Context:    p.cfg.Image.Context,
				Username:   p.cfg.RegistryUser,
				Token:      p.cfg.RegistryToken,
			})
		}
		refs, err := publisher.Publish(ctx, p.version, log)
		if err != nil {
			return err
		}
		result.ImageRefs = refs
		p.state.ImageTags = refs
		return nil
	})
}

func (p *Pipeline) runRelease(ctx context.Context, result *Result) error {
	if !p.cfg.Release.Enabled {
		p.skipStep(StepRelease, 5, "disabled in configuration")
		return nil
	}
	if p.skip[StepRelease] {
		p.skipStep(StepRelease, 5, "skipped by flag")
		return nil
	}
	if p.dryRun {
		p.skipStep(StepRelease, 5, "dry run")
		return nil
	}

	return p.runStep(ctx, StepRelease, 5, func(ctx context.Context, log io.Writer) error {
		publisher, err := p.releasePublisher()
		if err != nil {
			return err
		}

		release, err := publisher.CreateRelease(ctx, ghrelease.CreateRequest{
			TagName:    p.version.Tag,
			Name:       p.version.Tag,
			Body:       result.Notes,
			Draft:      p.cfg.Release.Draft,
			Prerelease: p.version.IsPrerelease(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(log, "created release %s\n", release.HTMLURL)

		assets := p.assetPaths(result)
		if len(assets) > 0 {
			uploaded, err := publisher.UploadAssets(ctx, release, assets)
			if err != nil {
				return err
			}
			for _, a := range uploaded {
				fmt.Fprintf(log, "uploaded asset %s\n", a.Name)
			}
		}

		result.ReleaseURL = release.HTMLURL
		p.state.ReleaseURL = release.HTMLURL
		return nil
	})
}

// releasePublisher builds the production release client, resolving the
// hosting repository from config or the origin remote.
func (p *Pipeline) releasePublisher() (ReleasePublisher, error) {
	if p.releases != nil {
		return p.releases, nil
	}

	owner, repo := p.cfg.Release.Owner, p.cfg.Release.Repo
	if owner == "" || repo == "" {
		remote, err := gitrepo.DetectRemote(p.repoPath)
		if err != nil {
			return nil, fmt.Errorf("resolving release repository: %w", err)
		}
		if owner == "" {
			owner = remote.Owner
		}
		if repo == "" {
			repo = remote.Repo
		}
	}
	return ghrelease.NewClient(owner, repo, p.cfg.GithubToken), nil
}

// assetPaths lists the files to upload: the build artifact plus any
// extra assets from configuration.
func (p *Pipeline) assetPaths(result *Result) []string {
	var paths []string
	if result.Artifact != nil {
		paths = append(paths, result.Artifact.Path)
	}
	paths = append(paths, p.cfg.Release.Assets...)
	return paths
}

// sendCallback delivers the summary webhook. Failures are reported but
// never fail the run.
func (p *Pipeline) sendCallback(ctx context.Context, result *Result) {
	if p.dryRun {
		return
	}
	sender := p.callback
	if sender == nil {
		if p.cfg.CallbackURL == "" {
			return
		}
		sender = callback.NewSender(p.cfg.CallbackURL)
	}

	payload := callback.Payload{
		Project:    p.cfg.Image.Name,
		Tag:        result.Version.Tag,
		Version:    result.Version.Semver,
		ReleaseURL: result.ReleaseURL,
		ImageTags:  result.ImageRefs,
		FinishedAt: time.Now().UTC(),
	}
	if result.Artifact != nil {
		payload.Assets = []callback.AssetSummary{{
			Name:   result.Artifact.Path,
			SHA256: result.Artifact.SHA256,
		}}
	}

	if err := sender.Send(ctx, payload); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: release callback failed: %v\n", err)
	}
}

// runStep runs one step with its log file, state records, and progress
// display, turning failures into step errors.
func (p *Pipeline) runStep(ctx context.Context, name string, index int, fn func(ctx context.Context, log io.Writer) error) error {
	if p.skip[name] {
		p.skipStep(name, index, "skipped by flag")
		return nil
	}

	info := progress.StepInfo{Name: name, Index: index, Total: len(StepOrder)}
	p.startDisplay(info)

	idx := p.state.StartStep(name)
	started := time.Now()

	stepLog, err := logtail.OpenStepLog(p.state.LogPath(name), p.out)
	if err != nil {
		p.state.FinishStep(idx, err)
		p.failDisplay(info, err)
		return errors.NewStepError(fmt.Sprintf("%s step: %v", name, err))
	}

	runErr := fn(ctx, stepLog.Writer)
	if cerr := stepLog.Close(); cerr != nil && runErr == nil {
		runErr = cerr
	}

	p.state.FinishStep(idx, runErr)
	p.saveState()

	if runErr != nil {
		p.failDisplay(info, runErr)
		// Timeouts keep their type so the CLI can map them to the
		// timeout exit code.
		var timeoutErr *buildstep.TimeoutError
		if stderrors.As(runErr, &timeoutErr) {
			return runErr
		}
		return errors.NewStepError(fmt.Sprintf("%s step failed: %v", name, runErr),
			fmt.Sprintf("Inspect the step log: tagrel logs %s", name))
	}
	p.completeDisplay(info, time.Since(started))
	return nil
}

func (p *Pipeline) skipStep(name string, index int, reason string) {
	p.state.SkipStep(name)
	p.saveState()
	if p.display != nil {
		p.display.SkipStep(progress.StepInfo{Name: name, Index: index, Total: len(StepOrder)}, reason)
	} else {
		fmt.Fprintf(p.out, "- %s: %s\n", name, reason)
	}
}

func (p *Pipeline) saveState() {
	if err := p.state.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save run state: %v\n", err)
	}
}

func (p *Pipeline) finishRun() {
	p.state.FinishedAt = time.Now()
	p.saveState()
}

func (p *Pipeline) startDisplay(info progress.StepInfo) {
	if p.display != nil {
		p.display.StartStep(info)
	} else {
		fmt.Fprintf(p.out, "=== %s\n", info.Name)
	}
}

func (p *Pipeline) completeDisplay(info progress.StepInfo, elapsed time.Duration) {
	if p.display != nil {
		p.display.CompleteStep(info, elapsed)
	}
}

func (p *Pipeline) failDisplay(info progress.StepInfo, err error) {
	if p.display != nil {
		p.display.FailStep(info, err)
	}
}
