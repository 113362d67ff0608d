package commands

import (
	"testing"

	"github.com/josephlewis42/jobsh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
)

func TestReveal(t *testing.T) {
	cases := goldenTestSuite{
		"default": {
			Args:  []string{"reveal"},
			Setup: setupTree,
		},
		"hidden": {
			Args:  []string{"reveal", "-a"},
			Setup: setupTree,
		},
		"lines": {
			Args:  []string{"reveal", "-l", "docs"},
			Setup: setupTree,
		},
		"combined flags": {
			Args:  []string{"reveal", "-al", "~"},
			Dir:   "/",
			Setup: setupTree,
		},
		"previous": {
			Args:  []string{"reveal", "-"},
			Env:   []string{"OLDPWD=/home/jobsh/docs"},
			Setup: setupTree,
		},
		"previous unset": {
			Args: []string{"reveal", "-"},
		},
		"missing": {
			Args: []string{"reveal", "nope"},
		},
		"file": {
			Args:  []string{"reveal", "README.md"},
			Setup: setupTree,
		},
		"two paths": {
			Args: []string{"reveal", "a", "b"},
		},
		"empty": {
			Args: []string{"reveal"},
		},
	}

	cases.Run(t, Reveal)
}

func TestReveal_exitStatus(t *testing.T) {
	cmd := vostest.Command(Reveal, "reveal", "nope")
	_, err := cmd.CombinedOutput()
	assert.NoError(t, err)
	assert.Equal(t, 1, cmd.ExitStatus)

	cmd = vostest.Command(Reveal, "reveal")
	_, err = cmd.CombinedOutput()
	assert.NoError(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)
}
