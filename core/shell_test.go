package core

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/history"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// noChildren is a poller for a shell with nothing to reap.
var noChildren = jobs.PollerFunc(func() (int, unix.WaitStatus, bool) {
	return 0, 0, false
})

func newTestShell(t *testing.T, entries ...string) (*Shell, testFiles, *eventLog) {
	t.Helper()

	t.Setenv(EnvHistFile, "")
	t.Setenv(commands.EnvShellHome, "")
	t.Setenv(commands.EnvColor, "")

	hist := history.New(afero.NewMemMapFs(), "/history", history.DefaultDepth)
	for _, line := range entries {
		require.NoError(t, hist.Add(line))
	}

	files := newTestFiles(t)
	events := &eventLog{}

	cfg := config.Default()
	cfg.Color = config.ColorNever

	s, err := NewShell(Options{
		Config:  cfg,
		Events:  events.session(),
		Stdin:   files.stdin,
		Stdout:  files.stdout,
		Stderr:  files.stderr,
		History: hist,
	})
	require.NoError(t, err)
	s.poller = noChildren

	t.Cleanup(func() {
		s.Jobs.TerminateAll(s.executor.Kill)
		s.Jobs.Reap(jobs.HostPoller)
	})
	return s, files, events
}

// fakeJobs keeps signals meant for made up process groups from being sent.
func fakeJobs(s *Shell) {
	s.executor.Kill = func(int, syscall.Signal) error { return nil }
}

func TestShell_RunLine(t *testing.T) {
	cases := map[string]struct {
		line       string
		wantOut    string
		wantErr    string
		wantStatus int
	}{
		"blank": {
			line: "   ",
		},
		"syntax error": {
			line:       "echo hi |",
			wantOut:    "Invalid Syntax.\n",
			wantStatus: 2,
		},
		"leading background": {
			line:       "& echo hi",
			wantOut:    "Invalid Syntax.\n",
			wantStatus: 2,
		},
		"sequence": {
			line:    "echo one ; echo two",
			wantOut: "one\ntwo\n",
		},
		"builtin failure": {
			line:       "fg",
			wantErr:    "fg: No such job\n",
			wantStatus: 1,
		},
		"pipeline of builtins runs in children": {
			line:    "ping 1 | cat",
			wantErr: "ping: Invalid syntax. Usage: ping <pid> <signal_number>\n",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s, files, _ := newTestShell(t)

			status := s.RunLine(tc.line, true)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantOut, readAll(t, files.stdout))
			assert.Equal(t, tc.wantErr, readAll(t, files.stderr))
		})
	}
}

func TestShell_RunLine_syntaxErrorStartsNothing(t *testing.T) {
	s, _, events := newTestShell(t)
	out := filepath.Join(t.TempDir(), "out.txt")

	s.RunLine("echo hi > "+out+" ; echo bye |", true)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	require.Len(t, events.entries, 1)
	assert.NotNil(t, events.entries[0].SyntaxError)
}

func TestShell_RunLine_history(t *testing.T) {
	s, _, _ := newTestShell(t)

	s.RunLine("echo one", true)
	s.RunLine("echo one", true)
	s.RunLine("log", true)
	s.RunLine("", true)
	s.RunLine("echo two", false)
	s.RunLine("exit", true)

	entries, err := s.History.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"echo one"}, entries)
	assert.True(t, s.exiting)
}

func TestShell_exit(t *testing.T) {
	s, files, _ := newTestShell(t)

	s.RunLine("echo before ; exit ; echo after", true)
	assert.True(t, s.exiting)
	assert.Equal(t, "before\n", readAll(t, files.stdout))
}

func TestLog(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")

	cases := map[string]struct {
		history []string
		line    string
		wantOut string
		wantErr string
		want    []string
	}{
		"view": {
			history: []string{"echo a", "echo b"},
			line:    "log",
			wantOut: "echo a\necho b\n",
			want:    []string{"echo a", "echo b"},
		},
		"purge": {
			history: []string{"echo a", "echo b"},
			line:    "log purge",
			want:    nil,
		},
		"execute newest": {
			history: []string{"echo older", "echo newest"},
			line:    "log execute 1",
			wantOut: "Executing: echo newest\nnewest\n",
			want:    []string{"echo older", "echo newest"},
		},
		"execute older": {
			history: []string{"echo older", "echo newest"},
			line:    "log execute 2",
			wantOut: "Executing: echo older\nolder\n",
			want:    []string{"echo older", "echo newest"},
		},
		"execute missing index": {
			history: []string{"echo a"},
			line:    "log execute",
			wantErr: "log: execute requires an index.\n",
			want:    []string{"echo a"},
		},
		"execute invalid index": {
			history: []string{"echo a"},
			line:    "log execute one",
			wantErr: "log: invalid index 'one'.\n",
			want:    []string{"echo a"},
		},
		"execute empty": {
			line:    "log execute 1",
			wantErr: "log: history is empty.\n",
		},
		"execute out of bounds": {
			history: []string{"echo a", "echo b"},
			line:    "log execute 3",
			wantErr: "log: index 3 is out of bounds (history has 2 items).\n",
			want:    []string{"echo a", "echo b"},
		},
		"invalid argument": {
			line:    "log clear",
			wantErr: "log: invalid argument 'clear'. Usage: log [purge | execute <index>]\n",
		},
		"redirected": {
			history: []string{"echo a"},
			line:    "log > " + out,
			want:    []string{"echo a"},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s, files, _ := newTestShell(t, tc.history...)

			s.RunLine(tc.line, true)
			assert.Equal(t, tc.wantOut, readAll(t, files.stdout))
			assert.Equal(t, tc.wantErr, readAll(t, files.stderr))

			entries, err := s.History.Entries()
			require.NoError(t, err)
			assert.Equal(t, tc.want, entries)
		})
	}

	assert.Equal(t, "echo a\n", readPath(t, out))
}

func TestShell_builtinInputFile(t *testing.T) {
	dir := t.TempDir()
	args := filepath.Join(dir, "args.txt")
	require.NoError(t, os.WriteFile(args, []byte(fmt.Sprintf("%d  0\n", os.Getpid())), 0644))

	s, files, events := newTestShell(t)

	status := s.RunLine("ping < "+args, true)
	assert.Equal(t, 0, status)
	assert.Equal(t, fmt.Sprintf("Sent signal 0 to process with pid %d\n", os.Getpid()), readAll(t, files.stdout))

	require.Len(t, events.entries, 1)
	assert.Equal(t, []string{"ping", fmt.Sprint(os.Getpid()), "0"}, events.entries[0].RunBuiltin.Args)
}

func TestShell_builtinInputFile_tooManyArgs(t *testing.T) {
	args := filepath.Join(t.TempDir(), "args.txt")
	require.NoError(t, os.WriteFile(args, []byte("a b c d"), 0644))

	s, files, _ := newTestShell(t)
	s.Config.MaxArgs = 3

	assert.Equal(t, 1, s.RunLine("ping < "+args, true))
	assert.Equal(t, "jobsh: Too many arguments from input file '"+args+"'.\n", readAll(t, files.stderr))
}

func TestActivities(t *testing.T) {
	s, files, _ := newTestShell(t)
	fakeJobs(s)
	s.Jobs.Register(300, "vim notes")
	s.Jobs.Register(100, "sleep 10")
	s.Jobs.Register(200, "cat")
	s.Jobs.SetStatus(100, jobs.Stopped)

	s.RunLine("activities", true)
	assert.Equal(t, "[200] : cat - Running\n[100] : sleep 10 - Stopped\n[300] : vim notes - Running\n", readAll(t, files.stdout))
}

func TestShell_reap(t *testing.T) {
	s, files, events := newTestShell(t)
	fakeJobs(s)
	s.Jobs.Register(4242, "sleep 1")
	s.Jobs.Register(4343, "false")

	pending := []struct {
		pid    int
		status unix.WaitStatus
	}{
		{pid: 9999, status: 0},
		{pid: 4242, status: 0},
		{pid: 4343, status: unix.WaitStatus(syscall.SIGKILL)},
	}
	s.poller = jobs.PollerFunc(func() (int, unix.WaitStatus, bool) {
		if len(pending) == 0 {
			return 0, 0, false
		}
		next := pending[0]
		pending = pending[1:]
		return next.pid, next.status, true
	})

	s.RunLine("activities", true)
	assert.Equal(t, "sleep 1 with pid 4242 exited normally\nfalse with pid 4343 exited abnormally\n", readAll(t, files.stdout))
	assert.Equal(t, 0, s.Jobs.Len())
	assert.Equal(t, []string{logger.JobExited, logger.JobExited}, events.jobActions())
}

func TestFgBg(t *testing.T) {
	cases := map[string]struct {
		line    string
		killErr error
		status  jobs.Status
		wantOut string
		wantErr string
		wantSig []int
		wantLen int
	}{
		"bg most recent": {
			line:    "bg",
			status:  jobs.Stopped,
			wantOut: "[2] sleep 20 &\n",
			wantSig: []int{-200},
			wantLen: 2,
		},
		"bg by id": {
			line:    "bg 1",
			status:  jobs.Stopped,
			wantOut: "[1] sleep 10 &\n",
			wantSig: []int{-100},
			wantLen: 2,
		},
		"bg running": {
			line:    "bg",
			status:  jobs.Running,
			wantErr: "bg: Job already running\n",
			wantLen: 2,
		},
		"bg unknown": {
			line:    "bg 7",
			wantErr: "bg: No such job\n",
			wantLen: 2,
		},
		"bg finished": {
			line:    "bg 2",
			status:  jobs.Stopped,
			killErr: unix.ESRCH,
			wantErr: "bg: No such job\n",
			wantSig: []int{-200},
			wantLen: 1,
		},
		"fg unknown": {
			line:    "fg abc",
			wantErr: "fg: No such job\n",
			wantLen: 2,
		},
		"fg finished": {
			line:    "fg 1",
			killErr: unix.ESRCH,
			wantOut: "sleep 10\n",
			wantSig: []int{-100},
			wantLen: 1,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s, files, _ := newTestShell(t)

			var sent []int
			s.executor.Kill = func(pid int, sig syscall.Signal) error {
				if sig == syscall.SIGCONT {
					sent = append(sent, pid)
				}
				return tc.killErr
			}

			s.Jobs.Register(100, "sleep 10")
			s.Jobs.Register(200, "sleep 20")
			s.Jobs.SetStatus(100, tc.status)
			s.Jobs.SetStatus(200, tc.status)

			s.RunLine(tc.line, true)
			assert.Equal(t, tc.wantOut, readAll(t, files.stdout))
			assert.Equal(t, tc.wantErr, readAll(t, files.stderr))
			assert.Equal(t, tc.wantSig, sent)
			assert.Equal(t, tc.wantLen, s.Jobs.Len())

			fakeJobs(s)
		})
	}
}

func TestShell_fgStopped(t *testing.T) {
	s, files, _ := newTestShell(t)

	require.Equal(t, 0, s.RunLine("sleep 5 &", true))
	job, ok := s.Jobs.MostRecent()
	require.True(t, ok)

	require.NoError(t, unix.Kill(-job.Pgid, unix.SIGSTOP))
	reapUntil(t, s.Jobs, func() bool {
		j, _ := s.Jobs.FindByPgid(job.Pgid)
		return j.Status == jobs.Stopped
	})

	// fg continues the group and waits until it stops again.
	go func() {
		for jobs.Foreground() != job.Pgid {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
		unix.Kill(-job.Pgid, unix.SIGSTOP)
	}()
	s.RunLine("fg", true)

	stopped, _ := s.Jobs.FindByPgid(job.Pgid)
	assert.Equal(t, jobs.Stopped, stopped.Status)
	assert.Equal(t,
		fmt.Sprintf("[1] %d\nsleep 5\n\n[1] Stopped sleep 5\n", job.Pgid),
		readAll(t, files.stdout))
}

func TestShell_Prompt(t *testing.T) {
	s, _, _ := newTestShell(t)
	t.Setenv("USER", "tester")

	host, err := os.Hostname()
	require.NoError(t, err)

	assert.Equal(t, "<tester@"+host+":~> ", s.Prompt())

	s.Config.Prompt = `\w$ `
	t.Setenv(commands.EnvShellHome, "/nonexistent")
	wd, _ := os.Getwd()
	assert.Equal(t, wd+"$ ", s.Prompt())
}

func TestShell_Run(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	require.NoError(t, os.WriteFile(input, []byte("echo hi\necho bye |\nlog\n"), 0644))

	s, files, events := newTestShell(t)
	in, err := os.Open(input)
	require.NoError(t, err)
	defer in.Close()
	s.stdin = in

	assert.Equal(t, 0, s.Run())
	assert.Equal(t, "hi\nInvalid Syntax.\necho hi\necho bye |\nlogout\n", readAll(t, files.stdout))

	require.NotEmpty(t, events.entries)
	assert.Equal(t, logger.SessionStart, events.entries[0].Session.Action)
	assert.Equal(t, logger.SessionEnd, events.entries[len(events.entries)-1].Session.Action)
}

func TestShell_Run_exitKillsJobs(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(input, []byte("sleep 30 &\nexit\necho never\n"), 0644))

	s, files, events := newTestShell(t)
	in, err := os.Open(input)
	require.NoError(t, err)
	defer in.Close()
	s.stdin = in

	assert.Equal(t, 0, s.Run())
	assert.NotContains(t, readAll(t, files.stdout), "never")
	assert.Equal(t, []string{logger.JobRegistered, logger.JobKilled}, events.jobActions())

	reapUntil(t, s.Jobs, func() bool { return s.Jobs.Len() == 0 })
}

func TestShell_RunOnce(t *testing.T) {
	s, files, events := newTestShell(t)

	assert.Equal(t, 1, s.RunOnce("echo hi ; fg"))
	assert.Equal(t, "hi\n", readAll(t, files.stdout))

	require.NotEmpty(t, events.entries)
	start := events.entries[0].Session
	require.NotNil(t, start)
	assert.Equal(t, logger.SessionStart, start.Action)
	assert.False(t, start.Interactive)
	assert.NotEmpty(t, start.Dir)
}

func TestShell_RunOnce_interruptReachesForeground(t *testing.T) {
	s, _, events := newTestShell(t)

	go func() {
		for i := 0; i < 500 && jobs.Foreground() == 0; i++ {
			time.Sleep(10 * time.Millisecond)
		}
		if jobs.Foreground() != 0 {
			syscall.Kill(os.Getpid(), syscall.SIGINT)
		}
	}()

	// The shell outlives the interrupt, the foreground group doesn't.
	begin := time.Now()
	assert.Equal(t, 0, s.RunOnce("sleep 30"))
	assert.Less(t, time.Since(begin), 20*time.Second)
	assert.Equal(t, 0, s.Jobs.Len())
	assert.Empty(t, events.jobActions())
	assert.Equal(t, 0, jobs.Foreground())
}
