package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_exitStatus(t *testing.T) {
	// Keep the shell away from any terminal the tests were started from.
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	prev := os.Stdin
	os.Stdin = stdin
	t.Cleanup(func() {
		os.Stdin = prev
		stdin.Close()
	})

	cases := map[string]struct {
		line string
		want error
	}{
		"success": {line: "activities"},
		"failure": {line: "fg", want: exitStatus(1)},
		"syntax":  {line: "echo |", want: exitStatus(2)},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			t.Setenv(commands.EnvShellHome, "")
			t.Setenv(commands.EnvColor, "")
			t.Setenv(core.EnvHistFile, "")

			rootCmd.SetArgs([]string{"--config", filepath.Join(home, "missing"), "-c", tc.line})
			err := rootCmd.Execute()

			var status exitStatus
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.As(err, &status))
			assert.Equal(t, tc.want, status)
		})
	}
}
