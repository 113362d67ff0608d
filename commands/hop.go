package commands

import (
	"fmt"

	"github.com/josephlewis42/jobsh/core/vos"
)

// Hop changes the working directory once for each argument in turn. ~ is
// the shell home, - is the previous directory. With no arguments it goes
// home.
func Hop(virtOS vos.VOS) int {
	w := virtOS.Stdout()

	targets := virtOS.Args()[1:]
	if len(targets) == 0 {
		targets = []string{"~"}
	}

	for _, arg := range targets {
		before, err := virtOS.Getwd()
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "hop: %v\n", err)
			return 1
		}

		dir := arg
		switch arg {
		case "~":
			dir = ShellHome(virtOS)
		case "-":
			prev, ok := virtOS.LookupEnv(EnvOldPwd)
			if !ok || prev == "" {
				fmt.Fprintln(w, "hop: OLDPWD not set")
				continue
			}
			dir = prev
		}

		if err := virtOS.Chdir(dir); err != nil {
			fmt.Fprintf(w, "hop: No such directory: %s\n", arg)
			return 1
		}
		virtOS.Setenv(EnvOldPwd, before)
	}

	return 0
}

var _ vos.ProcessFunc = Hop

func init() {
	addCmd("hop", Hop)
}
