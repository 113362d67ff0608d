package logger

// LogEntry is a single recorded event. Exactly one of the event fields is
// set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	Session       *Session       `json:"session,omitempty"`
	RunPipeline   *RunPipeline   `json:"run_pipeline,omitempty"`
	RunBuiltin    *RunBuiltin    `json:"run_builtin,omitempty"`
	SyntaxError   *SyntaxError   `json:"syntax_error,omitempty"`
	Job           *Job           `json:"job,omitempty"`
	ResourceError *ResourceError `json:"resource_error,omitempty"`
}

// LogType is implemented by every event.
type LogType interface {
	setOn(le *LogEntry)
}

// GetLogType returns the event held by the entry, nil if none is set.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.Session != nil:
		return le.Session
	case le.RunPipeline != nil:
		return le.RunPipeline
	case le.RunBuiltin != nil:
		return le.RunBuiltin
	case le.SyntaxError != nil:
		return le.SyntaxError
	case le.Job != nil:
		return le.Job
	case le.ResourceError != nil:
		return le.ResourceError
	default:
		return nil
	}
}

// Session marks the start and end of an interpreter.
type Session struct {
	Action      string `json:"action"`
	Interactive bool   `json:"interactive,omitempty"`
	Dir         string `json:"dir,omitempty"`
}

func (e *Session) setOn(le *LogEntry) { le.Session = e }

// Session actions.
const (
	SessionStart = "start"
	SessionEnd   = "end"
)

// RunPipeline is recorded when a pipeline is launched as a process group.
type RunPipeline struct {
	Command    string   `json:"command"`
	Programs   []string `json:"programs"`
	Background bool     `json:"background,omitempty"`
	Pgid       int      `json:"pgid,omitempty"`
}

func (e *RunPipeline) setOn(le *LogEntry) { le.RunPipeline = e }

// RunBuiltin is recorded when a built-in runs inside the shell process.
type RunBuiltin struct {
	Args   []string `json:"args"`
	Status int      `json:"status"`
}

func (e *RunBuiltin) setOn(le *LogEntry) { le.RunBuiltin = e }

// SyntaxError is recorded for lines that couldn't be parsed.
type SyntaxError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func (e *SyntaxError) setOn(le *LogEntry) { le.SyntaxError = e }

// Job is recorded for every job table transition.
type Job struct {
	Action  string `json:"action"`
	ID      int    `json:"id,omitempty"`
	Pgid    int    `json:"pgid"`
	Command string `json:"command"`
}

func (e *Job) setOn(le *LogEntry) { le.Job = e }

// Job actions.
const (
	JobRegistered = "registered"
	JobRejected   = "rejected"
	JobStopped    = "stopped"
	JobResumed    = "resumed"
	JobContinued  = "continued"
	JobExited     = "exited"
	JobKilled     = "killed"
)

// ResourceError is recorded when an operating system resource couldn't be
// obtained while launching a pipeline.
type ResourceError struct {
	Op      string `json:"op"`
	Error   string `json:"error"`
	Command string `json:"command,omitempty"`
}

func (e *ResourceError) setOn(le *LogEntry) { le.ResourceError = e }
