package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       int        `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Pipeline      PipelineReport      `json:"pipeline_report"`
	Builtin       BuiltinReport       `json:"builtin_report"`
	SyntaxError   SyntaxErrorReport   `json:"syntax_error_report"`
	Job           JobReport           `json:"job_report"`
	ResourceError ResourceErrorReport `json:"resource_error_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch event := le.GetLogType().(type) {
	case *Session:
		if event.Action == SessionStart {
			r.Sessions++
		}
	case *RunPipeline:
		r.Pipeline.update(event)
	case *RunBuiltin:
		r.Builtin.update(event)
	case *SyntaxError:
		r.SyntaxError.update(event)
	case *Job:
		r.Job.update(event)
	case *ResourceError:
		r.ResourceError.update(event)
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%T", event))
	}
}

type PipelineReport struct {
	Count      int `json:"count"`
	Background int `json:"background"`
	// Programs counts every program started by a pipeline.
	Programs StrCounter `json:"programs"`
	// Lengths counts pipelines by their number of commands.
	Lengths StrCounter `json:"lengths"`
}

func (r *PipelineReport) update(p *RunPipeline) {
	r.Count++
	if p.Background {
		r.Background++
	}
	for _, prog := range p.Programs {
		r.Programs.Increment(prog)
	}
	r.Lengths.Increment(fmt.Sprintf("%d", len(p.Programs)))
}

type BuiltinReport struct {
	Names    StrCounter `json:"names"`
	Failures StrCounter `json:"failures"`
}

func (r *BuiltinReport) update(b *RunBuiltin) {
	if len(b.Args) == 0 {
		return
	}
	r.Names.Increment(b.Args[0])
	if b.Status != 0 {
		r.Failures.Increment(b.Args[0])
	}
}

type SyntaxErrorReport struct {
	Count int      `json:"count"`
	Lines []string `json:"lines"`
}

func (r *SyntaxErrorReport) update(s *SyntaxError) {
	r.Count++
	r.Lines = append(r.Lines, s.Line)
}

type JobReport struct {
	Actions  StrCounter   `json:"actions"`
	Commands *PathCounter `json:"commands"`
}

func (r *JobReport) update(j *Job) {
	r.Actions.Increment(j.Action)
	if r.Commands == nil {
		r.Commands = NewPathCounter("command", "action")
	}
	r.Commands.Increment(j.Command, j.Action)
}

type ResourceErrorReport struct {
	Ops StrCounter `json:"ops"`
}

func (r *ResourceErrorReport) update(e *ResourceError) {
	r.Ops.Increment(e.Op)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
