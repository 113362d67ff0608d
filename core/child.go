package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core/vos"
	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"
)

// ChildCommand is the hidden subcommand the executor runs for every command
// of a pipeline.
const ChildCommand = "internal-exec"

// Exit statuses of a child that couldn't run its command.
const (
	statusCantExec = 126
	statusNotFound = 127
)

// childOptions describes a single command handed to RunChild.
type childOptions struct {
	input    string
	output   string
	append   bool
	maxInput int
	args     []string
}

func parseChildArgs(args []string) (*childOptions, error) {
	opts := getopt.New()
	input := opts.StringLong("input", 'i', "", "read standard input from FILE", "FILE")
	output := opts.StringLong("output", 'o', "", "write standard output to FILE", "FILE")
	appendOpt := opts.BoolLong("append", 'a', "append to the output file instead of truncating it")
	maxInput := opts.IntLong("max-input", 'n', DefaultMaxInputBytes, "read at most N bytes of the input file, 0 for all of it", "N")

	if err := opts.Getopt(append([]string{ChildCommand}, args...), nil); err != nil {
		return nil, err
	}
	if opts.NArgs() == 0 {
		return nil, errors.New("missing command")
	}

	return &childOptions{
		input:    *input,
		output:   *output,
		append:   *appendOpt,
		maxInput: *maxInput,
		args:     opts.Args(),
	}, nil
}

// RunChild sets up the redirections of one pipeline command in the current
// process then replaces it with the program, or runs a child built-in. It
// only returns if the command couldn't be started or was a built-in.
func RunChild(args []string) int {
	opts, err := parseChildArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobsh: %s: %v\n", ChildCommand, err)
		return 2
	}

	if opts.input != "" {
		if err := redirectInput(opts.input, opts.maxInput); err != nil {
			fmt.Fprintf(os.Stderr, "jobsh: %v\n", err)
			return 1
		}
	}
	if opts.output != "" {
		if err := redirectOutput(opts.output, opts.append); err != nil {
			fmt.Fprintf(os.Stderr, "jobsh: %v\n", err)
			return 1
		}
	}

	name := opts.args[0]
	if ChildBuiltins[name] {
		return runChildBuiltin(opts.args)
	}

	hostOS := vos.NewHostOS(opts.args, vos.NewHostIO())
	path, err := vos.LookPath(hostOS, name)
	if err != nil {
		if errors.Is(err, vos.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "jobsh: command not found: %s\n", name)
			return statusNotFound
		}
		fmt.Fprintf(os.Stderr, "jobsh: %s: %v\n", name, err)
		return statusCantExec
	}

	// The shell ignores SIGTTOU and ignored signals survive exec. A caught
	// one is reset to its default.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGTTOU)

	err = syscall.Exec(path, opts.args, os.Environ())
	fmt.Fprintf(os.Stderr, "jobsh: exec: %s: %v\n", name, err)
	return statusCantExec
}

// runChildBuiltin runs a built-in with the child's standard streams, which
// are already redirected.
func runChildBuiltin(args []string) int {
	if cmd, ok := commands.AllCommands[args[0]]; ok {
		return cmd(vos.NewHostOS(args, vos.NewHostIO()))
	}

	sh, err := NewShell(Options{Self: selfPath()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobsh: %v\n", err)
		return 1
	}
	return sh.runBuiltin(args)
}

// redirectInput replaces standard input with name. When limit is positive
// only the first limit bytes are kept in an anonymous memory file, so a
// reader sees them followed by end of file.
func redirectInput(name string, limit int) error {
	in, err := os.Open(name)
	if err != nil {
		return openError(name, err)
	}
	defer in.Close()

	if limit <= 0 {
		return dupOnto(in, unix.Stdin)
	}

	fd, err := unix.MemfdCreate("jobsh-input", 0)
	if err != nil {
		return &ResourceError{Op: "memfd", Err: err}
	}
	buf := os.NewFile(uintptr(fd), name)
	defer buf.Close()

	if _, err := io.Copy(buf, io.LimitReader(in, int64(limit))); err != nil {
		return &ResourceError{Op: "read", Err: err}
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return &ResourceError{Op: "read", Err: err}
	}
	return dupOnto(buf, unix.Stdin)
}

func redirectOutput(name string, appendTo bool) error {
	out, err := openOutput(name, appendTo)
	if err != nil {
		return err
	}
	defer out.Close()
	return dupOnto(out, unix.Stdout)
}

// openOutput opens a redirection target the way both the shell and its
// children do.
func openOutput(name string, appendTo bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(name, flags, 0644)
	if err != nil {
		return nil, openError(name, err)
	}
	return f, nil
}

func openError(name string, err error) *ResourceError {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return &ResourceError{Op: "open", Path: name, Err: err}
}

func dupOnto(f *os.File, fd int) error {
	if err := unix.Dup3(int(f.Fd()), fd, 0); err != nil {
		return &ResourceError{Op: "dup", Err: err}
	}
	return nil
}

// selfPath returns the executable children are started from.
func selfPath() string {
	self, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return self
}
