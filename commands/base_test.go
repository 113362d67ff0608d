package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/jobsh/core/vos"
	"github.com/josephlewis42/jobsh/core/vos/vostest"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func ExampleTildePath() {
	fmt.Println(TildePath("/home/user", "/home/user"))
	fmt.Println(TildePath("/home/user/src", "/home/user"))
	fmt.Println(TildePath("/home/username", "/home/user"))
	fmt.Println(TildePath("/etc", "/"))

	// Output: ~
	// ~/src
	// /home/username
	// /etc
}

func TestAllCommands(t *testing.T) {
	for _, cmdEntry := range ListBuiltinCommands() {
		t.Run(strings.Join(cmdEntry.Names, ","), func(t *testing.T) {
			if cmdEntry.Proc == nil {
				t.Fatal("nil command", cmdEntry.Names)
			}
		})
	}

	var names []string
	for _, cmdEntry := range ListBuiltinCommands() {
		names = append(names, cmdEntry.Names...)
	}
	assert.Equal(t, []string{"hop", "ping", "reveal"}, names)
}

// setupTree creates a small directory tree in the home directory.
func setupTree(virtOS vos.VOS) error {
	for _, dir := range []string{"src", ".config", "docs/notes"} {
		if err := virtOS.MkdirAll(filepath.Join(vostest.HomeDir, dir), 0755); err != nil {
			return err
		}
	}
	for _, file := range []string{"README.md", ".bashrc", "Makefile", "docs/guide.txt", "a.out"} {
		if err := afero.WriteFile(virtOS, filepath.Join(vostest.HomeDir, file), nil, 0644); err != nil {
			return err
		}
	}
	return nil
}

type goldenTestSuite map[string]goldenTest

type goldenTest struct {
	Args  []string
	Dir   string
	Env   []string
	Setup func(vos.VOS) error
}

func (gts goldenTestSuite) Run(t *testing.T, cmd vos.ProcessFunc) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	for tn, tc := range gts {
		goldenName := strings.ReplaceAll(t.Name()+"_"+tn, " ", "_")
		t.Run(tn, func(t *testing.T) {
			cmd := vostest.Command(cmd, tc.Args[0], tc.Args[1:]...)
			cmd.Dir = tc.Dir
			cmd.Env = tc.Env
			cmd.Setup = tc.Setup
			out, err := cmd.CombinedOutput()
			if err != nil {
				t.Fatal(err)
			}

			g.Assert(t, goldenName, out)
		})
	}
}
