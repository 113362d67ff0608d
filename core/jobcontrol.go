package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/josephlewis42/jobsh/core/jobs"
)

// resolveJob picks the job named by args[1], or the most recent one.
func (s *Shell) resolveJob(args []string) (jobs.Job, bool) {
	if len(args) < 2 {
		return s.Jobs.MostRecent()
	}

	id, err := strconv.Atoi(args[1])
	if err != nil {
		return jobs.Job{}, false
	}
	return s.Jobs.FindByID(id)
}

// Fg brings a job to the foreground and waits for it.
func Fg(s *Shell, args []string) int {
	job, ok := s.resolveJob(args)
	if !ok {
		fmt.Fprintln(s.errOut, "fg: No such job")
		return 1
	}

	fmt.Fprintln(s.out, job.Command)
	if err := s.executor.Resume(job); err != nil {
		fmt.Fprintf(s.errOut, "fg: %v\n", err)
		return 1
	}
	return 0
}

// Bg resumes a stopped job without waiting for it.
func Bg(s *Shell, args []string) int {
	job, ok := s.resolveJob(args)
	if !ok {
		fmt.Fprintln(s.errOut, "bg: No such job")
		return 1
	}

	err := s.executor.Continue(job)
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		fmt.Fprintln(s.errOut, "bg: Job already running")
		return 1
	case errors.Is(err, jobs.ErrNoSuchJob):
		fmt.Fprintln(s.errOut, "bg: No such job")
		return 1
	case err != nil:
		fmt.Fprintf(s.errOut, "bg: %v\n", err)
		return 1
	}

	fmt.Fprintf(s.out, "[%d] %s &\n", job.ID, job.Command)
	return 0
}

// Activities lists the jobs still being tracked.
func Activities(s *Shell, args []string) int {
	s.reap()

	for _, job := range s.Jobs.Active() {
		fmt.Fprintf(s.out, "[%d] : %s - %s\n", job.Pgid, job.Command, job.Status)
	}
	return 0
}
