// Package vostest runs built-in commands against a deterministic in-memory OS.
package vostest

import (
	"bytes"
	"io"
	"syscall"

	"github.com/josephlewis42/jobsh/core/vos"
	"github.com/spf13/afero"
)

// HomeDir is the working directory and shell home of the test OS.
const HomeDir = "/home/jobsh"

// Signal is a signal recorded by a fake kill.
type Signal struct {
	Pid    int
	Signal syscall.Signal
}

// NewDeterministicOS creates a VOS with an empty in-memory filesystem
// containing only HomeDir.
func NewDeterministicOS() *vos.ProcOS {
	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll(HomeDir, 0755)

	env := vos.NewMapEnvFromEnvList([]string{
		"HOME=" + HomeDir,
		"PATH=/usr/bin:/bin",
		"JOBSH_HOME=" + HomeDir,
	})

	return vos.NewMemOS(fs, env, HomeDir, func(int, syscall.Signal) error {
		return syscall.ESRCH
	})
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// Process function
	Process vos.ProcessFunc
	// Process arguments, the first argument should be the process name.
	Argv []string
	// If Dir is non-empty, the process starts in the directory.
	Dir string
	// Env holds extra environment variables in the form returned by Environ.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int

	// Signals holds every signal the process sent.
	Signals []Signal
	// KillErr, if set, is returned by every kill.
	KillErr error

	// OS is the process the command ran as, available after Run.
	OS *vos.ProcOS

	Setup func(vos.VOS) error
}

// Command creates a Cmd running process with the given arguments.
func Command(process vos.ProcessFunc, name string, arg ...string) *Cmd {
	return &Cmd{
		Process: process,
		Argv:    append([]string{name}, arg...),
	}
}

// CombinedOutput runs the command and returns stdout and stderr together.
func (c *Cmd) CombinedOutput() ([]byte, error) {
	// stdout, stderr
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	err := c.Run()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the command and waits for it to complete.
func (c *Cmd) Run() error {
	base := NewDeterministicOS()
	if err := vos.CopyEnv(base, c.Env); err != nil {
		return err
	}
	base.KillFunc = func(pid int, sig syscall.Signal) error {
		c.Signals = append(c.Signals, Signal{Pid: pid, Signal: sig})
		return c.KillErr
	}

	proc := base.Derive(c.Argv, vos.NewVIOAdapter(c.Stdin, c.Stdout, c.Stderr))
	if c.Setup != nil {
		if err := c.Setup(proc); err != nil {
			return err
		}
	}
	if c.Dir != "" {
		if err := proc.Chdir(c.Dir); err != nil {
			return err
		}
	}

	c.OS = proc
	c.ExitStatus = c.Process.Run(proc)
	return nil
}
