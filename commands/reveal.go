package commands

import (
	"fmt"
	"sort"

	"github.com/josephlewis42/jobsh/core/vos"
	"github.com/spf13/afero"
)

// Reveal lists the entries of a directory in byte order.
func Reveal(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "reveal [-a] [-l] [DIRECTORY]",
		Short: "List the contents of a directory, ~ is the shell home and - the previous directory.",
	}

	showHidden := cmd.Flags().Bool('a', "show entries starting with .")
	lineByLine := cmd.Flags().Bool('l', "list one entry per line")
	var colorPrinter ColorPrinter
	colorPrinter.Init(cmd.Flags(), virtOS)

	return cmd.Run(virtOS, func() int {
		w := virtOS.Stdout()

		args := cmd.Flags().Args()
		if len(args) > 1 {
			fmt.Fprintln(w, "reveal: Invalid Syntax!")
			return 1
		}

		target := "."
		if len(args) == 1 {
			target = args[0]
		}

		switch target {
		case "~":
			target = ShellHome(virtOS)
		case "-":
			target = virtOS.Getenv(EnvOldPwd)
			if target == "" {
				fmt.Fprintln(w, "No such directory!")
				return 1
			}
		}

		dir, err := vos.Abs(virtOS, target)
		if err != nil {
			fmt.Fprintln(w, "No such directory!")
			return 1
		}

		entries, err := afero.ReadDir(virtOS, dir)
		if err != nil {
			fmt.Fprintln(w, "No such directory!")
			return 1
		}

		type listing struct {
			name  string
			isDir bool
		}
		var names []listing
		if *showHidden {
			names = append(names, listing{".", true}, listing{"..", true})
		}
		for _, e := range entries {
			if !*showHidden && e.Name()[0] == '.' {
				continue
			}
			names = append(names, listing{e.Name(), e.IsDir()})
		}
		sort.Slice(names, func(i, j int) bool {
			return names[i].name < names[j].name
		})

		for _, entry := range names {
			name := entry.name
			if entry.isDir {
				name = colorPrinter.Sprintf(ColorBoldBlue, "%s", name)
			}

			if *lineByLine {
				fmt.Fprintln(w, name)
			} else {
				fmt.Fprintf(w, "%s  ", name)
			}
		}
		if !*lineByLine {
			fmt.Fprintln(w)
		}

		return 0
	})
}

var _ vos.ProcessFunc = Reveal

func init() {
	addCmd("reveal", Reveal)
}
