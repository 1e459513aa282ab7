package image

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alzymologist/tagrel/internal/gitrepo"
	"github.com/alzymologist/tagrel/internal/testutil"
)

func testVersion(t *testing.T, tag string) gitrepo.Version {
	t.Helper()
	v, err := gitrepo.ParseTag(tag)
	require.NoError(t, err)
	return v
}

func newTestPublisher(opts Options, runner *testutil.FakeRunner) *Publisher {
	p := NewPublisher(opts)
	p.runCommand = runner.Run
	return p
}

func TestReference(t *testing.T) {
	tests := map[string]struct {
		opts     Options
		tag      string
		expected string
	}{
		"with registry":           {Options{Registry: "ghcr.io/acme", Name: "app"}, "0.3.1", "ghcr.io/acme/app:0.3.1"},
		"registry trailing slash": {Options{Registry: "ghcr.io/acme/", Name: "app"}, "latest", "ghcr.io/acme/app:latest"},
		"no registry":             {Options{Name: "app"}, "0.3.1", "app:0.3.1"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := NewPublisher(tc.opts)
			assert.Equal(t, tc.expected, p.Reference(tc.tag))
		})
	}
}

func TestTags_PrereleaseSkipsLatest(t *testing.T) {
	p := NewPublisher(Options{Registry: "ghcr.io/acme", Name: "app"})

	assert.Equal(t, []string{"0.3.1", "latest"}, p.Tags(testVersion(t, "v0.3.1")))
	assert.Equal(t, []string{"1.0.0-rc.1"}, p.Tags(testVersion(t, "v1.0.0-rc.1")))
}

func TestPublish_CommandSequence(t *testing.T) {
	runner := testutil.NewFakeRunner()
	p := newTestPublisher(Options{
		Registry:   "ghcr.io/acme",
		Name:       "app",
		Dockerfile: "Dockerfile",
		Context:    ".",
		Username:   "bot",
		Token:      "secret",
	}, runner)

	var out bytes.Buffer
	refs, err := p.Publish(context.Background(), testVersion(t, "v0.3.1"), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"ghcr.io/acme/app:0.3.1", "ghcr.io/acme/app:latest"}, refs)

	calls := runner.Calls()
	require.Len(t, calls, 4, "login, build, two pushes")

	assert.Equal(t, []string{"login", "ghcr.io", "--username", "bot", "--password-stdin"}, calls[0].Args)
	assert.Equal(t, "secret", calls[0].Stdin, "token goes through stdin, never argv")

	assert.Equal(t, []string{
		"build", "--file", "Dockerfile",
		"--tag", "ghcr.io/acme/app:0.3.1",
		"--tag", "ghcr.io/acme/app:latest",
		".",
	}, calls[1].Args)

	pushed := []string{calls[2].Args[1], calls[3].Args[1]}
	assert.ElementsMatch(t, []string{"ghcr.io/acme/app:0.3.1", "ghcr.io/acme/app:latest"}, pushed)
}

func TestPublish_Prerelease(t *testing.T) {
	runner := testutil.NewFakeRunner()
	p := newTestPublisher(Options{
		Registry:   "ghcr.io/acme",
		Name:       "app",
		Dockerfile: "Dockerfile",
		Context:    ".",
		Token:      "secret",
	}, runner)

	refs, err := p.Publish(context.Background(), testVersion(t, "v1.0.0-rc.1"), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ghcr.io/acme/app:1.0.0-rc.1"}, refs)
	for _, line := range runner.CallLines() {
		assert.NotContains(t, line, ":latest")
	}
}

func TestPublish_NoTokenSkipsLogin(t *testing.T) {
	runner := testutil.NewFakeRunner()
	p := newTestPublisher(Options{
		Registry:   "ghcr.io/acme",
		Name:       "app",
		Dockerfile: "Dockerfile",
		Context:    ".",
	}, runner)

	var out bytes.Buffer
	_, err := p.Publish(context.Background(), testVersion(t, "v0.3.1"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "skipping docker login")
	require.NotEmpty(t, runner.Calls())
	assert.Equal(t, "build", runner.Calls()[0].Args[0])
}

func TestPublish_PushFailure(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("push", "", errors.New("denied: permission"))

	p := newTestPublisher(Options{
		Registry:   "ghcr.io/acme",
		Name:       "app",
		Dockerfile: "Dockerfile",
		Context:    ".",
		Token:      "secret",
	}, runner)

	_, err := p.Publish(context.Background(), testVersion(t, "v0.3.1"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker push")
}

func TestPublish_DryRun(t *testing.T) {
	runner := testutil.NewFakeRunner()
	p := newTestPublisher(Options{
		Registry:   "ghcr.io/acme",
		Name:       "app",
		Dockerfile: "Dockerfile",
		Context:    ".",
		Token:      "secret",
		DryRun:     true,
	}, runner)

	var out bytes.Buffer
	refs, err := p.Publish(context.Background(), testVersion(t, "v0.3.1"), &out)
	require.NoError(t, err)

	assert.Empty(t, runner.Calls(), "dry run never invokes docker")
	assert.Len(t, refs, 2)
	assert.Contains(t, out.String(), "dry-run: docker build")
	assert.Contains(t, out.String(), "dry-run: docker push ghcr.io/acme/app:0.3.1")
}

func TestRegistryHost(t *testing.T) {
	assert.Equal(t, "ghcr.io", registryHost("ghcr.io/acme"))
	assert.Equal(t, "docker.io", registryHost("docker.io"))
	assert.Equal(t, "registry.example.org", registryHost("registry.example.org/team/sub"))
}
