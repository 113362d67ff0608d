package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/shell"
	"github.com/josephlewis42/jobsh/core/vos"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DefaultMaxInputBytes bounds how much of an input file is fed to a command.
const DefaultMaxInputBytes = 4096

// ResourceError reports an operating system resource that couldn't be
// obtained while launching a pipeline.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Executor launches pipelines as process groups and waits for the ones in
// the foreground.
type Executor struct {
	// Self is the executable re-run to set up each command, see RunChild.
	Self string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Jobs   *jobs.Table
	Events *logger.SessionLogger

	// MaxInputBytes is passed to children that read an input file, zero
	// streams the whole file.
	MaxInputBytes int

	Kill vos.KillFunc

	// tty is the terminal foreground groups are given, -1 for none.
	tty int
}

// NewExecutor creates an executor using the standard streams of the
// running process.
func NewExecutor(self string, table *jobs.Table, events *logger.SessionLogger) *Executor {
	return &Executor{
		Self:          self,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Jobs:          table,
		Events:        events,
		MaxInputBytes: DefaultMaxInputBytes,
		Kill:          unix.Kill,
		tty:           -1,
	}
}

// UseTerminal makes Stdin's terminal follow the foreground group. It
// reports false and does nothing if Stdin isn't a terminal.
func (e *Executor) UseTerminal() bool {
	fd := int(e.Stdin.Fd())
	if !term.IsTerminal(fd) {
		e.tty = -1
		return false
	}

	// Already a group leader when started by another shell.
	_ = unix.Setpgid(0, 0)
	e.tty = fd
	e.giveTerminal(unix.Getpgrp())
	return true
}

type group struct {
	pgid int
	pids []int
}

// Execute starts every command of the pipeline in one new process group.
// Foreground pipelines are waited for until they exit or stop, background
// ones are registered as jobs.
func (e *Executor) Execute(ctx context.Context, p shell.Pipeline) error {
	text := p.CommandText()
	foreground := p.Mode == shell.Foreground

	g, err := e.start(ctx, p)
	if err != nil {
		op := "launch"
		var re *ResourceError
		if errors.As(err, &re) {
			op = re.Op
		}
		e.record(&logger.ResourceError{Op: op, Error: err.Error(), Command: text})

		if foreground && len(g.pids) > 0 {
			e.leaveForeground()
		}
		return err
	}

	programs := make([]string, len(p.Commands))
	for i, cmd := range p.Commands {
		programs[i] = cmd.Name()
	}
	e.record(&logger.RunPipeline{
		Command:    text,
		Programs:   programs,
		Background: !foreground,
		Pgid:       g.pgid,
	})

	if !foreground {
		// Capacity errors are reported by register, the group keeps running.
		_, _ = e.register(g.pgid, text)
		return nil
	}

	e.waitForeground(g, text)
	return nil
}

// start forks one child per command. Each pipe and fork is a unit: on
// failure its descriptors are closed and no later command starts.
func (e *Executor) start(ctx context.Context, p shell.Pipeline) (group, error) {
	var g group

	var prevRead *os.File
	closePrev := func() {
		if prevRead != nil {
			prevRead.Close()
			prevRead = nil
		}
	}
	defer closePrev()

	for i, cmd := range p.Commands {
		if err := ctx.Err(); err != nil {
			return g, err
		}

		stdin := e.Stdin
		if prevRead != nil {
			stdin = prevRead
		}

		stdout := e.Stdout
		var nextRead, write *os.File
		if i < len(p.Commands)-1 {
			var err error
			nextRead, write, err = os.Pipe()
			if err != nil {
				return g, &ResourceError{Op: "pipe", Err: err}
			}
			stdout = write
		}

		leader := p.Mode == shell.Foreground && i == 0
		pid, err := e.spawn(cmd, stdin, stdout, g.pgid, leader)

		// The children hold their own copies of the pipe ends.
		if write != nil {
			write.Close()
		}
		closePrev()

		if err != nil {
			if nextRead != nil {
				nextRead.Close()
			}
			return g, &ResourceError{Op: "fork", Err: err}
		}

		if g.pgid == 0 {
			g.pgid = pid
		}
		g.pids = append(g.pids, pid)
		prevRead = nextRead
	}

	return g, nil
}

func (e *Executor) spawn(cmd shell.Command, stdin, stdout *os.File, pgid int, foreground bool) (int, error) {
	sys := &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    pgid,
	}
	if foreground && e.tty >= 0 {
		sys.Foreground = true
		sys.Ctty = e.tty
	}

	return syscall.ForkExec(e.Self, childArgv(e.Self, cmd, e.MaxInputBytes), &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{stdin.Fd(), stdout.Fd(), e.Stderr.Fd()},
		Sys:   sys,
	})
}

// childArgv builds the command line RunChild parses.
func childArgv(self string, cmd shell.Command, maxInput int) []string {
	argv := []string{self, ChildCommand}
	if cmd.Input != "" {
		argv = append(argv, "--input="+cmd.Input)
	}
	if cmd.Output != "" {
		argv = append(argv, "--output="+cmd.Output)
		if cmd.Append {
			argv = append(argv, "--append")
		}
	}
	argv = append(argv, "--max-input="+strconv.Itoa(maxInput), "--")
	return append(argv, cmd.Args...)
}

func (e *Executor) waitForeground(g group, text string) {
	jobs.SetForeground(g.pgid)
	defer e.leaveForeground()

	for _, pid := range g.pids {
		status, err := wait(pid, unix.WUNTRACED)
		if err != nil {
			continue
		}
		if status.Stopped() {
			e.stopped(g.pgid, text)
			return
		}
	}
}

// Resume continues a job in the foreground and waits until every process
// in its group is gone or one of them stops. A job that already finished is
// removed without output.
func (e *Executor) Resume(job jobs.Job) error {
	e.giveTerminal(job.Pgid)
	jobs.SetForeground(job.Pgid)
	defer e.leaveForeground()

	if err := e.Kill(-job.Pgid, unix.SIGCONT); err != nil {
		if errors.Is(err, unix.ESRCH) {
			e.Jobs.Remove(job.Pgid)
			return nil
		}
		return &ResourceError{Op: "continue", Err: err}
	}
	e.Jobs.SetStatus(job.Pgid, jobs.Running)
	e.recordJob(logger.JobResumed, job)

	for {
		status, err := wait(-job.Pgid, unix.WUNTRACED)
		if err != nil {
			// ECHILD, nothing is left in the group.
			e.Jobs.Remove(job.Pgid)
			e.recordJob(logger.JobExited, job)
			return nil
		}
		if status.Stopped() {
			e.stopped(job.Pgid, job.Command)
			return nil
		}
	}
}

// Continue resumes a stopped job in the background.
func (e *Executor) Continue(job jobs.Job) error {
	if job.Status == jobs.Running {
		return jobs.ErrAlreadyRunning
	}

	if err := e.Kill(-job.Pgid, unix.SIGCONT); err != nil {
		if errors.Is(err, unix.ESRCH) {
			e.Jobs.Remove(job.Pgid)
			return fmt.Errorf("%w: %d", jobs.ErrNoSuchJob, job.ID)
		}
		return &ResourceError{Op: "continue", Err: err}
	}
	e.Jobs.SetStatus(job.Pgid, jobs.Running)
	e.recordJob(logger.JobContinued, job)
	return nil
}

func (e *Executor) stopped(pgid int, text string) {
	job, ok := e.Jobs.FindByPgid(pgid)
	if !ok {
		var err error
		if job, err = e.register(pgid, text); err != nil {
			return
		}
	}

	e.Jobs.SetStatus(pgid, jobs.Stopped)
	fmt.Fprintf(e.Stdout, "\n[%d] Stopped %s\n", job.ID, job.Command)
	e.recordJob(logger.JobStopped, job)
}

func (e *Executor) register(pgid int, text string) (jobs.Job, error) {
	job, err := e.Jobs.Register(pgid, text)
	if err != nil {
		fmt.Fprintf(e.Stderr, "jobsh: %v\n", err)
		e.recordJob(logger.JobRejected, jobs.Job{Pgid: pgid, Command: text})
		return job, err
	}

	fmt.Fprintf(e.Stdout, "[%d] %d\n", job.ID, job.Pgid)
	e.recordJob(logger.JobRegistered, job)
	return job, nil
}

func (e *Executor) giveTerminal(pgid int) {
	if e.tty < 0 {
		return
	}
	if err := unix.IoctlSetPointerInt(e.tty, unix.TIOCSPGRP, pgid); err != nil {
		log.Printf("couldn't give the terminal to %d: %v", pgid, err)
	}
}

func (e *Executor) leaveForeground() {
	jobs.ClearForeground()
	e.giveTerminal(unix.Getpgrp())
}

func (e *Executor) record(event logger.LogType) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Record(event); err != nil {
		log.Printf("couldn't record event: %v", err)
	}
}

func (e *Executor) recordJob(action string, job jobs.Job) {
	e.record(&logger.Job{Action: action, ID: job.ID, Pgid: job.Pgid, Command: job.Command})
}

// wait is wait4(2) retried on EINTR.
func wait(pid, options int) (unix.WaitStatus, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, options, nil)
		if err != unix.EINTR {
			return status, err
		}
	}
}
