// Package image builds and pushes the release container image through the
// docker CLI. The image is published under two tags: the release version
// and the floating "latest" tag (skipped for pre-releases).
package image

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alzymologist/tagrel/internal/gitrepo"
)

// Options configures the image step.
type Options struct {
	// Registry is the registry host plus namespace (e.g., "ghcr.io/alzymologist").
	Registry string
	// Name is the image name within the registry.
	Name string
	// Dockerfile is the Dockerfile path.
	Dockerfile string
	// Context is the docker build context directory.
	Context string
	// Username and Token authenticate against the registry.
	// The token is passed to docker login via stdin, never argv.
	Username string
	Token    string
	// DryRun prints the docker commands without executing them.
	DryRun bool
}

// Publisher runs the image step.
type Publisher struct {
	opts Options

	// runCommand executes one docker invocation; replaced in tests.
	runCommand func(ctx context.Context, stdin io.Reader, output io.Writer, args ...string) error
}

// NewPublisher creates a Publisher with the given options.
func NewPublisher(opts Options) *Publisher {
	p := &Publisher{opts: opts}
	p.runCommand = p.runDocker
	return p
}

// Reference returns the full image reference for a tag.
func (p *Publisher) Reference(tag string) string {
	base := p.opts.Name
	if p.opts.Registry != "" {
		base = strings.TrimSuffix(p.opts.Registry, "/") + "/" + p.opts.Name
	}
	return base + ":" + tag
}

// Tags returns the image tags published for a version: the bare version
// plus "latest". Pre-releases never move the "latest" tag.
func (p *Publisher) Tags(v gitrepo.Version) []string {
	tags := []string{v.Semver}
	if !v.IsPrerelease() {
		tags = append(tags, "latest")
	}
	return tags
}

// Publish logs in to the registry, builds the image under all release
// tags, and pushes every tag. Pushes run concurrently; the first failure
// cancels the remaining ones.
func (p *Publisher) Publish(ctx context.Context, v gitrepo.Version, output io.Writer) ([]string, error) {
	tags := p.Tags(v)

	if err := p.login(ctx, output); err != nil {
		return nil, err
	}

	if err := p.build(ctx, tags, output); err != nil {
		return nil, err
	}

	if err := p.push(ctx, tags, output); err != nil {
		return nil, err
	}

	refs := make([]string, len(tags))
	for i, tag := range tags {
		refs[i] = p.Reference(tag)
	}
	return refs, nil
}

// login authenticates against the registry when credentials are configured.
func (p *Publisher) login(ctx context.Context, output io.Writer) error {
	if p.opts.Token == "" {
		fmt.Fprintln(output, "no registry token configured, skipping docker login")
		return nil
	}

	host := registryHost(p.opts.Registry)
	args := []string{"login", host, "--username", p.opts.Username, "--password-stdin"}

	if p.opts.DryRun {
		fmt.Fprintf(output, "dry-run: docker %s\n", strings.Join(args, " "))
		return nil
	}

	if err := p.runCommand(ctx, strings.NewReader(p.opts.Token), output, args...); err != nil {
		return fmt.Errorf("docker login to %s: %w", host, err)
	}
	return nil
}

// build runs docker build once with every release tag applied.
func (p *Publisher) build(ctx context.Context, tags []string, output io.Writer) error {
	args := []string{"build", "--file", p.opts.Dockerfile}
	for _, tag := range tags {
		args = append(args, "--tag", p.Reference(tag))
	}
	args = append(args, p.opts.Context)

	if p.opts.DryRun {
		fmt.Fprintf(output, "dry-run: docker %s\n", strings.Join(args, " "))
		return nil
	}

	if err := p.runCommand(ctx, nil, output, args...); err != nil {
		return fmt.Errorf("docker build: %w", err)
	}
	return nil
}

// push pushes all tags concurrently.
func (p *Publisher) push(ctx context.Context, tags []string, output io.Writer) error {
	if p.opts.DryRun {
		for _, tag := range tags {
			fmt.Fprintf(output, "dry-run: docker push %s\n", p.Reference(tag))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tag := range tags {
		ref := p.Reference(tag)
		g.Go(func() error {
			if err := p.runCommand(gctx, nil, output, "push", ref); err != nil {
				return fmt.Errorf("docker push %s: %w", ref, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// runDocker executes a docker CLI invocation.
func (p *Publisher) runDocker(ctx context.Context, stdin io.Reader, output io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdin = stdin
	cmd.Stdout = output
	cmd.Stderr = output
	return cmd.Run()
}

// registryHost extracts the registry host from a registry/namespace value.
func registryHost(registry string) string {
	host, _, found := strings.Cut(registry, "/")
	if !found {
		return registry
	}
	return host
}
