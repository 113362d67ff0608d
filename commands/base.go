// Package commands holds the built-in programs of the shell that don't need
// access to the interpreter's state. They run inside the shell when invoked
// alone and inside a pipeline child otherwise.
package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/jobsh/core/vos"
	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"
)

const (
	// EnvShellHome holds the directory the shell started in, it's what ~
	// refers to.
	EnvShellHome = "JOBSH_HOME"
	// EnvOldPwd holds the previous working directory.
	EnvOldPwd = "OLDPWD"
	// EnvColor overrides automatic color detection, one of always, auto or
	// never.
	EnvColor = "JOBSH_COLOR"
)

type CommandFunc = vos.ProcessFunc

// AllCommands holds a list of all registered commands
var AllCommands = make(map[string]CommandFunc)

func addCmd(name string, cmd CommandFunc) {
	AllCommands[name] = cmd
}

// CommandEntry is a command and every name it's registered under.
type CommandEntry struct {
	Names []string
	Proc  CommandFunc
}

// ListBuiltinCommands returns the registered commands sorted by name.
func ListBuiltinCommands() []CommandEntry {
	var names []string
	for name := range AllCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []CommandEntry
	for _, name := range names {
		out = append(out, CommandEntry{Names: []string{name}, Proc: AllCommands[name]})
	}
	return out
}

// ShellHome returns the directory ~ refers to.
func ShellHome(virtOS vos.VOS) string {
	if home := virtOS.Getenv(EnvShellHome); home != "" {
		return home
	}
	if home := virtOS.Getenv("HOME"); home != "" {
		return home
	}
	wd, _ := virtOS.Getwd()
	return wd
}

// TildePath replaces a leading home in dir with ~.
func TildePath(dir, home string) string {
	switch {
	case home == "" || home == "/":
		return dir
	case dir == home:
		return "~"
	case strings.HasPrefix(dir, home+"/"):
		return "~" + strings.TrimPrefix(dir, home)
	default:
		return dir
	}
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(virtOS vos.VOS, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(virtOS.Args(), nil)
	if err != nil && !s.NeverBail {
		fmt.Fprintf(virtOS.Stderr(), "error: %s\n\n", err)

		s.PrintHelp(virtOS.Stdout())
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(virtOS.Stdout())
		return 0
	}

	return callback()
}

var (
	ColorBoldBlue = color.New(color.FgBlue, color.Bold)
	ColorBoldRed  = color.New(color.FgRed, color.Bold)
)

type ColorPrinter struct {
	value  *string
	virtOS vos.VOS
}

// Init sets up the flag and virtual OS to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, virtOS vos.VOS) {
	c.virtOS = virtOS

	initial := virtOS.Getenv(EnvColor)
	switch initial {
	case "always", "never":
	default:
		initial = "auto"
	}

	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{"always", "auto", "never"},
		initial,
		"colorize the output (always|auto|never)")
}

func (c *ColorPrinter) ShouldColor() bool {
	switch *c.value {
	case "never":
		return false
	case "always":
		return true
	default:
		f, ok := c.virtOS.Stdout().(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
}

func (c *ColorPrinter) Sprintf(col *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		forced := *col
		forced.EnableColor()
		return forced.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
