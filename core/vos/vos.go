// Package vos abstracts the operating system facilities built-in commands
// use so they can run against the host or against an in-memory fake.
package vos

import (
	"io"
	"syscall"

	"github.com/spf13/afero"
)

// VFS is the filesystem layer of the OS.
type VFS = afero.Fs

// VIO holds the standard streams of a process.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

// KillFunc delivers a signal, it has the same semantics as kill(2) so a
// negative pid addresses a process group.
type KillFunc func(pid int, sig syscall.Signal) error

// VProc holds process level state.
type VProc interface {
	// Args holds command line arguments, including the command as Args[0].
	Args() []string

	// Getpid returns the process id of the caller.
	Getpid() int

	// Getwd returns the current working directory.
	Getwd() (string, error)

	// Chdir changes the current working directory.
	Chdir(dir string) error

	// Kill sends a signal to a process or process group.
	Kill(pid int, sig syscall.Signal) error
}

// VOS provides a virtual OS interface.
type VOS interface {
	VEnv
	VIO
	VProc
	VFS

	Hostname() (string, error)
}

// ProcessFunc is the entrypoint of a built-in command.
type ProcessFunc func(VOS) int

// Run executes the process function.
func (f ProcessFunc) Run(virtOS VOS) int {
	return f(virtOS)
}
