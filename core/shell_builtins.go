package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core/history"
	"github.com/josephlewis42/jobsh/core/vos"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ChildBuiltins are the builtins a pipeline member runs itself rather than
// executing a program of the same name.
var ChildBuiltins = map[string]bool{
	"hop":    true,
	"reveal": true,
	"log":    true,
	"ping":   true,
}

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// commandBuiltin runs a command from the commands package as the shell
// process, so directory changes stick.
func commandBuiltin(cmd commands.CommandFunc) ShellBuiltin {
	return ShellBuiltinFunc(func(s *Shell, args []string) int {
		return cmd(s.proc.Derive(args, vos.NewVIOAdapter(s.stdin, s.out, s.errOut)))
	})
}

// Log shows, purges or re-runs the history.
func Log(s *Shell, args []string) int {
	w := s.out

	if len(args) == 1 {
		entries, err := s.History.Entries()
		if err != nil {
			fmt.Fprintf(s.errOut, "log: %v\n", err)
			return 1
		}
		for _, line := range entries {
			fmt.Fprintln(w, line)
		}
		return 0
	}

	switch args[1] {
	case "purge":
		if err := s.History.Purge(); err != nil {
			fmt.Fprintf(s.errOut, "log: %v\n", err)
			return 1
		}
		return 0

	case "execute":
		if len(args) < 3 {
			fmt.Fprintln(s.errOut, "log: execute requires an index.")
			return 1
		}
		index, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(s.errOut, "log: invalid index '%s'.\n", args[2])
			return 1
		}

		entries, err := s.History.Entries()
		switch {
		case err != nil:
			fmt.Fprintf(s.errOut, "log: %v\n", err)
			return 1
		case len(entries) == 0:
			fmt.Fprintln(s.errOut, "log: history is empty.")
			return 1
		}

		line, err := s.History.Get(index)
		if errors.Is(err, history.ErrOutOfRange) {
			fmt.Fprintf(s.errOut, "log: index %d is out of bounds (history has %d items).\n", index, len(entries))
			return 1
		} else if err != nil {
			fmt.Fprintf(s.errOut, "log: %v\n", err)
			return 1
		}

		fmt.Fprintf(w, "Executing: %s\n", line)
		return s.RunLine(line, false)

	default:
		fmt.Fprintf(s.errOut, "log: invalid argument '%s'. Usage: log [purge | execute <index>]\n", args[1])
		return 1
	}
}

// Exit quits the shell once the current line is done.
func Exit(s *Shell, args []string) int {
	s.exiting = true
	return 0
}

func init() {
	for name, cmd := range commands.AllCommands {
		AllBuiltins[name] = commandBuiltin(cmd)
	}

	AllBuiltins["log"] = ShellBuiltinFunc(Log)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["activities"] = ShellBuiltinFunc(Activities)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
}
