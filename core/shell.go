package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/history"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/shell"
	"github.com/josephlewis42/jobsh/core/vos"
	"github.com/spf13/afero"
)

const (
	// EnvHistFile holds the resolved history path so pipeline children use
	// the same history as the shell that started them.
	EnvHistFile = "JOBSH_HISTFILE"
)

var promptColor = color.New(color.FgCyan)

// Options configure a Shell, zero values select the defaults.
type Options struct {
	Config *config.Configuration
	Events *logger.SessionLogger

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Self is the executable pipeline members are started from.
	Self string
	// Interactive enables the line editor and terminal hand-off.
	Interactive bool
	// History overrides the history log named by the configuration.
	History *history.Log
}

type Shell struct {
	Config  *config.Configuration
	Jobs    *jobs.Table
	History *history.Log
	Events  *logger.SessionLogger

	executor *Executor
	parser   *shell.Parser
	poller   jobs.Poller
	proc     *vos.ProcOS

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	// out and errOut are where builtins write, out follows redirections.
	out    io.Writer
	errOut io.Writer

	interactive bool
	exiting     bool
}

// NewShell creates an interpreter working in the current directory.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	events := opts.Events
	if events == nil {
		events = logger.Discard().Sessionless()
	}
	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	self := opts.Self
	if self == "" {
		self = selfPath()
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if os.Getenv(commands.EnvShellHome) == "" {
		os.Setenv(commands.EnvShellHome, wd)
	}
	if os.Getenv(commands.EnvColor) == "" {
		os.Setenv(commands.EnvColor, cfg.Color)
	}
	switch cfg.Color {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}

	hist := opts.History
	if hist == nil {
		path := os.Getenv(EnvHistFile)
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = os.Getenv(commands.EnvShellHome)
			}
			path = cfg.HistoryPath(home)
		}
		hist = history.New(afero.NewOsFs(), path, cfg.HistoryDepth)
	}
	os.Setenv(EnvHistFile, hist.Path())

	table := jobs.NewTable(cfg.MaxJobs)
	executor := NewExecutor(self, table, events)
	executor.Stdin, executor.Stdout, executor.Stderr = stdin, stdout, stderr
	executor.MaxInputBytes = cfg.MaxInputBytes

	return &Shell{
		Config:  cfg,
		Jobs:    table,
		History: hist,
		Events:  events,

		executor: executor,
		parser: &shell.Parser{
			MaxCommands:  cfg.MaxCommands,
			MaxPipelines: cfg.MaxPipelines,
			MaxArgs:      cfg.MaxArgs,
		},
		poller: jobs.HostPoller,
		proc:   vos.NewHostOS(nil, vos.NewVIOAdapter(stdin, stdout, stderr)),

		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		out:    stdout,
		errOut: stderr,

		interactive: opts.Interactive,
	}, nil
}

// Run reads and executes lines until the input ends or exit is run. Every
// job still tracked is killed on the way out.
func (s *Shell) Run() int {
	tty, detach := s.attach()
	defer detach()

	interactive := s.interactive && tty
	s.start(interactive)
	defer s.shutdown()

	var reader lineReader = &plainReader{r: bufio.NewReader(s.stdin)}
	if interactive {
		editor, err := newEditorReader(s.stdin, s.stdout, s.stderr)
		if err != nil {
			log.Printf("couldn't start the line editor: %v", err)
		} else {
			reader = editor
		}
	}
	defer reader.Close()

	for !s.exiting {
		s.reap()

		prompt := ""
		if interactive {
			prompt = s.Prompt()
		}

		line, err := reader.ReadLine(prompt)
		switch {
		case err == io.EOF:
			fmt.Fprintln(s.stdout, "logout")
			return 0

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			log.Printf("couldn't read input: %v", err)
			return 1
		}

		s.RunLine(line, true)
	}

	return 0
}

// RunOnce executes a single line without reading any input, then kills the
// jobs it left behind.
func (s *Shell) RunOnce(line string) int {
	_, detach := s.attach()
	defer detach()

	s.start(false)
	defer s.shutdown()

	return s.RunLine(line, false)
}

// attach relays the interactive signals to the foreground group and, when
// stdin is a terminal, hands the terminal to each foreground group. The
// returned function stops the relay.
func (s *Shell) attach() (tty bool, detach func()) {
	stop := jobs.ForwardSignals(s.executor.Kill)
	return s.executor.UseTerminal(), stop
}

func (s *Shell) start(interactive bool) {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("couldn't get the working directory: %v", err)
	}
	s.record(&logger.Session{Action: logger.SessionStart, Interactive: interactive, Dir: wd})
}

// RunLine parses and executes one line, recording it in the history first
// if record is set. It returns the status of the last pipeline.
func (s *Shell) RunLine(line string, record bool) int {
	if strings.TrimSpace(line) == "exit" {
		s.exiting = true
		return 0
	}

	if record {
		if err := s.History.Add(line); err != nil {
			log.Printf("couldn't update history: %v", err)
		}
	}

	seq, err := s.parser.Parse(line)
	if err != nil {
		fmt.Fprintln(s.stdout, "Invalid Syntax.")
		s.record(&logger.SyntaxError{Line: line, Error: err.Error()})
		return 2
	}

	status := 0
	for _, p := range seq {
		status = s.Execute(context.Background(), p)
		if s.exiting {
			break
		}
	}
	return status
}

// Execute runs a lone builtin inside the shell and anything else through
// the executor.
func (s *Shell) Execute(ctx context.Context, p shell.Pipeline) int {
	if len(p.Commands) == 1 {
		if _, ok := AllBuiltins[p.Commands[0].Name()]; ok {
			return s.runBuiltinCommand(p.Commands[0])
		}
	}

	if err := s.executor.Execute(ctx, p); err != nil {
		fmt.Fprintf(s.stderr, "jobsh: %v\n", err)
		return 1
	}
	return 0
}

// runBuiltinCommand applies a command's redirections to a builtin run by the
// shell: input file tokens become extra arguments and output goes to the
// file.
func (s *Shell) runBuiltinCommand(cmd shell.Command) int {
	args := cmd.Args
	if cmd.Input != "" {
		extra, err := s.readArgsFile(cmd.Input)
		if err != nil {
			fmt.Fprintf(s.errOut, "jobsh: %v\n", err)
			return 1
		}
		args = append(append([]string(nil), args...), extra...)
		if len(args) > s.Config.MaxArgs {
			fmt.Fprintf(s.errOut, "jobsh: Too many arguments from input file '%s'.\n", cmd.Input)
			return 1
		}
	}

	if cmd.Output != "" {
		f, err := openOutput(cmd.Output, cmd.Append)
		if err != nil {
			fmt.Fprintf(s.errOut, "jobsh: %v\n", err)
			return 1
		}
		defer f.Close()

		prev := s.out
		s.out = f
		defer func() { s.out = prev }()
	}

	status := s.runBuiltin(args)
	s.record(&logger.RunBuiltin{Args: args, Status: status})
	return status
}

func (s *Shell) runBuiltin(args []string) int {
	builtin, ok := AllBuiltins[args[0]]
	if !ok {
		fmt.Fprintf(s.errOut, "jobsh: command not found: %s\n", args[0])
		return 127
	}
	return builtin.Main(s, args)
}

// readArgsFile splits the start of a file into words.
func (s *Shell) readArgsFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, openError(name, err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit := s.Config.MaxInputBytes; limit > 0 {
		r = io.LimitReader(f, int64(limit))
	}
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, &ResourceError{Op: "read", Path: name, Err: err}
	}

	words, err := shlex.Split(string(contents), true)
	if err != nil {
		return strings.Fields(string(contents)), nil
	}
	return words, nil
}

// reap reports the background jobs that finished since the last call.
func (s *Shell) reap() {
	for _, done := range s.Jobs.Reap(s.poller) {
		fmt.Fprintln(s.stdout, done.String())
		s.record(&logger.Job{
			Action:  logger.JobExited,
			ID:      done.Job.ID,
			Pgid:    done.Job.Pgid,
			Command: done.Job.Command,
		})
	}
}

func (s *Shell) shutdown() {
	for _, job := range s.Jobs.TerminateAll(s.executor.Kill) {
		s.record(&logger.Job{Action: logger.JobKilled, ID: job.ID, Pgid: job.Pgid, Command: job.Command})
	}
	s.record(&logger.Session{Action: logger.SessionEnd})
}

// Prompt expands the configured prompt: \u is the user, \h the host and \w
// the working directory with the shell home shown as ~.
func (s *Shell) Prompt() string {
	prompt := s.Config.Prompt

	username := os.Getenv("USER")
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}
	host, _ := s.proc.Hostname()
	wd, _ := s.proc.Getwd()
	dir := commands.TildePath(wd, commands.ShellHome(s.proc))

	expand := func(part string) string {
		part = strings.ReplaceAll(part, `\u`, username)
		part = strings.ReplaceAll(part, `\h`, host)
		return promptColor.Sprint(part)
	}

	before, after, found := strings.Cut(prompt, `\w`)
	if !found {
		return expand(prompt)
	}
	return expand(before) + dir + expand(after)
}

func (s *Shell) record(event logger.LogType) {
	s.executor.record(event)
}
