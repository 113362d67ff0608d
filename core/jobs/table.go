// Package jobs tracks background and stopped process groups.
package jobs

import (
	"errors"
	"sort"
	"syscall"

	"github.com/josephlewis42/jobsh/core/vos"
)

// DefaultCapacity is the number of jobs a table holds by default.
const DefaultCapacity = 20

var (
	// ErrCapacity is returned when every slot of the table is in use.
	ErrCapacity = errors.New("too many background jobs")
	// ErrNoSuchJob is returned when a job id or pgid isn't tracked.
	ErrNoSuchJob = errors.New("no such job")
	// ErrAlreadyRunning is returned when continuing a running job.
	ErrAlreadyRunning = errors.New("job already running")
)

// Status is the last known state of a job's process group.
type Status int

const (
	Running Status = iota
	Stopped
)

func (s Status) String() string {
	if s == Stopped {
		return "Stopped"
	}
	return "Running"
}

// Job is a process group the shell is tracking.
type Job struct {
	// ID is the user facing job number, ids are never reused.
	ID int
	// Pgid is the process group id, equal to the pid of the group leader.
	Pgid int
	// Command is the text the job was started with.
	Command string
	Status  Status
}

// Table is a fixed capacity set of jobs. It isn't safe for concurrent use,
// the shell only touches it from its main loop.
type Table struct {
	slots  []*Job
	nextID int
}

// NewTable creates a table that holds up to capacity jobs.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{
		slots:  make([]*Job, capacity),
		nextID: 1,
	}
}

// Capacity returns the maximum number of jobs.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	count := 0
	for _, j := range t.slots {
		if j != nil {
			count++
		}
	}
	return count
}

// Register tracks a new running job in the first free slot.
func (t *Table) Register(pgid int, command string) (Job, error) {
	for i, j := range t.slots {
		if j != nil {
			continue
		}

		job := &Job{ID: t.nextID, Pgid: pgid, Command: command, Status: Running}
		t.nextID++
		t.slots[i] = job
		return *job, nil
	}

	return Job{}, ErrCapacity
}

func (t *Table) find(match func(*Job) bool) *Job {
	for _, j := range t.slots {
		if j != nil && match(j) {
			return j
		}
	}
	return nil
}

// FindByPgid looks up a job by its process group.
func (t *Table) FindByPgid(pgid int) (Job, bool) {
	if j := t.find(func(j *Job) bool { return j.Pgid == pgid }); j != nil {
		return *j, true
	}
	return Job{}, false
}

// FindByID looks up a job by its job number.
func (t *Table) FindByID(id int) (Job, bool) {
	if j := t.find(func(j *Job) bool { return j.ID == id }); j != nil {
		return *j, true
	}
	return Job{}, false
}

// MostRecent returns the tracked job with the highest id.
func (t *Table) MostRecent() (Job, bool) {
	var latest *Job
	for _, j := range t.slots {
		if j != nil && (latest == nil || j.ID > latest.ID) {
			latest = j
		}
	}
	if latest == nil {
		return Job{}, false
	}
	return *latest, true
}

// SetStatus updates the status of the job with the given pgid, it reports
// whether the job was found.
func (t *Table) SetStatus(pgid int, status Status) bool {
	j := t.find(func(j *Job) bool { return j.Pgid == pgid })
	if j == nil {
		return false
	}
	j.Status = status
	return true
}

// Remove stops tracking the job with the given pgid and returns it.
func (t *Table) Remove(pgid int) (Job, bool) {
	for i, j := range t.slots {
		if j != nil && j.Pgid == pgid {
			t.slots[i] = nil
			return *j, true
		}
	}
	return Job{}, false
}

// Active returns a copy of the tracked jobs ordered by command text.
func (t *Table) Active() []Job {
	var out []Job
	for _, j := range t.slots {
		if j != nil {
			out = append(out, *j)
		}
	}

	sort.SliceStable(out, func(i, k int) bool {
		if out[i].Command == out[k].Command {
			return out[i].ID < out[k].ID
		}
		return out[i].Command < out[k].Command
	})
	return out
}

// TerminateAll sends SIGKILL to every tracked process group and returns the
// jobs that were signalled. Stopped groups die without being continued.
func (t *Table) TerminateAll(kill vos.KillFunc) []Job {
	var out []Job
	for _, j := range t.slots {
		if j == nil {
			continue
		}
		if err := kill(-j.Pgid, syscall.SIGKILL); err == nil {
			out = append(out, *j)
		}
	}
	return out
}
