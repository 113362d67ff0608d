package jobs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Poller reports children that changed state without blocking.
type Poller interface {
	// Poll returns the next child with a pending state change, ok is false
	// once there are none left.
	Poll() (pid int, status unix.WaitStatus, ok bool)
}

// PollerFunc adapts a function to a Poller.
type PollerFunc func() (int, unix.WaitStatus, bool)

// Poll implements Poller.Poll.
func (f PollerFunc) Poll() (int, unix.WaitStatus, bool) {
	return f()
}

// HostPoller polls children of the running process with wait4(2).
var HostPoller Poller = PollerFunc(pollHost)

func pollHost() (int, unix.WaitStatus, bool) {
	var status unix.WaitStatus
	for {
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return 0, status, false
		}
		return pid, status, true
	}
}

// Completion describes a job whose group leader exited.
type Completion struct {
	Job Job
	// Normal is set when the leader exited rather than being killed.
	Normal bool
	// Code is the exit code of a normal exit.
	Code int
}

func (c Completion) String() string {
	how := "abnormally"
	if c.Normal {
		how = "normally"
	}
	return fmt.Sprintf("%s with pid %d exited %s", c.Job.Command, c.Job.Pgid, how)
}

// Reap collects every pending child state change. Exited group leaders are
// removed from the table and returned in the order they were collected,
// stops and continues of tracked leaders update the job's status. Children
// that aren't tracked leaders are discarded.
func (t *Table) Reap(poller Poller) []Completion {
	var out []Completion
	for {
		pid, status, ok := poller.Poll()
		if !ok {
			return out
		}

		switch {
		case status.Stopped():
			t.SetStatus(pid, Stopped)
		case status.Continued():
			t.SetStatus(pid, Running)
		default:
			job, found := t.Remove(pid)
			if !found {
				continue
			}
			out = append(out, Completion{
				Job:    job,
				Normal: status.Exited(),
				Code:   status.ExitStatus(),
			})
		}
	}
}
