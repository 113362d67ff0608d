package vos

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

// ProcOS is a VOS for built-in commands. Processes derived from the same
// ProcOS share a working directory.
type ProcOS struct {
	VEnv
	VIO
	VFS

	// Args holds command line arguments, including the command as Args[0].
	ProcArgs []string
	// PID is the process id reported by Getpid.
	PID int
	// KillFunc delivers signals.
	KillFunc KillFunc
	// HostnameFunc returns the machine's name.
	HostnameFunc func() (string, error)

	wd *workdir
}

var _ VOS = (*ProcOS)(nil)

// workdir is either the host's working directory or an in-memory one.
type workdir struct {
	host bool
	dir  string
}

// NewHostOS creates a VOS backed by the running process.
func NewHostOS(args []string, files VIO) *ProcOS {
	return &ProcOS{
		VEnv:         HostEnv{},
		VIO:          files,
		VFS:          afero.NewOsFs(),
		ProcArgs:     args,
		PID:          os.Getpid(),
		KillFunc:     syscall.Kill,
		HostnameFunc: os.Hostname,
		wd:           &workdir{host: true},
	}
}

// NewMemOS creates a VOS over the given filesystem whose working directory
// is dir and whose signals are delivered through kill.
func NewMemOS(fs VFS, env VEnv, dir string, kill KillFunc) *ProcOS {
	return &ProcOS{
		VEnv:     env,
		VIO:      NewNullIO(),
		VFS:      fs,
		PID:      1,
		KillFunc: kill,
		HostnameFunc: func() (string, error) {
			return "localhost", nil
		},
		wd: &workdir{dir: filepath.Clean(dir)},
	}
}

// Derive creates a process sharing the environment, filesystem and working
// directory of p but with its own arguments and streams.
func (p *ProcOS) Derive(args []string, files VIO) *ProcOS {
	child := *p
	child.ProcArgs = args
	child.VIO = files
	return &child
}

// Args implements VProc.Args.
func (p *ProcOS) Args() []string {
	return p.ProcArgs
}

// Getpid implements VProc.Getpid.
func (p *ProcOS) Getpid() int {
	return p.PID
}

// Getwd implements VProc.Getwd.
func (p *ProcOS) Getwd() (string, error) {
	if p.wd.host {
		return os.Getwd()
	}
	return p.wd.dir, nil
}

// Chdir implements VProc.Chdir.
func (p *ProcOS) Chdir(dir string) error {
	dir, err := Abs(p, dir)
	if err != nil {
		return err
	}

	stat, err := p.Stat(dir)
	switch {
	case err != nil:
		return err
	case !stat.IsDir():
		return fmt.Errorf("%s: not a directory", dir)
	}

	if p.wd.host {
		return os.Chdir(dir)
	}
	p.wd.dir = dir
	return nil
}

// Kill implements VProc.Kill.
func (p *ProcOS) Kill(pid int, sig syscall.Signal) error {
	if p.KillFunc == nil {
		return syscall.EPERM
	}
	return p.KillFunc(pid, sig)
}

// Hostname implements VOS.Hostname.
func (p *ProcOS) Hostname() (string, error) {
	return p.HostnameFunc()
}

// Abs resolves name against the working directory of the process.
func Abs(proc VProc, name string) (string, error) {
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}

	wd, err := proc.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, name), nil
}
