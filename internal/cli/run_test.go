package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeInteractiveStdin(t *testing.T) {
	t.Helper()
	old := stdinIsTerminal
	stdinIsTerminal = func() bool { return true }
	t.Cleanup(func() { stdinIsTerminal = old })
}

func TestConfirmRun(t *testing.T) {
	fakeInteractiveStdin(t)

	tests := map[string]struct {
		input     string
		confirmed bool
	}{
		"y confirms":            {input: "y\n", confirmed: true},
		"yes confirms":          {input: "yes\n", confirmed: true},
		"uppercase Y confirms":  {input: "Y\n", confirmed: true},
		"n declines":            {input: "n\n", confirmed: false},
		"empty answer declines": {input: "\n", confirmed: false},
		"closed stdin declines": {input: "", confirmed: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tc.input))
			var out bytes.Buffer
			cmd.SetOut(&out)

			confirmed, err := confirmRun(cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.confirmed, confirmed)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestConfirmRun_NonInteractiveProceeds(t *testing.T) {
	old := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = old })

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	confirmed, err := confirmRun(cmd)
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.Empty(t, out.String(), "non-interactive runs should not prompt")
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{"skip", "dry-run", "yes", "allow-dirty"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "false", runCmd.Flags().Lookup("allow-dirty").DefValue)
}
