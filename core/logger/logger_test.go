package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"sigs.k8s.io/yaml"
)

func TestJsonLinesLog(t *testing.T) {
	var buf bytes.Buffer
	session := NewJsonLinesLogRecorder(&buf).NewSession()

	events := []LogType{
		&Session{Action: SessionStart, Interactive: true},
		&RunPipeline{Command: "cat f | wc", Programs: []string{"cat", "wc"}},
		&RunPipeline{Command: "sleep 5", Programs: []string{"sleep"}, Background: true, Pgid: 10},
		&Job{Action: JobRegistered, ID: 1, Pgid: 10, Command: "sleep 5"},
		&Job{Action: JobExited, ID: 1, Pgid: 10, Command: "sleep 5"},
		&RunBuiltin{Args: []string{"hop", "nowhere"}, Status: 1},
		&SyntaxError{Line: "ls | | wc", Error: "syntax error"},
		&ResourceError{Op: "fork", Error: "resource temporarily unavailable"},
		&Session{Action: SessionEnd},
	}
	for _, e := range events {
		assert.NoError(t, session.Record(e))
	}

	assert.Equal(t, len(events), strings.Count(buf.String(), "\n"))

	var report Report
	var sessionIDs []string
	err := ReadJSONLinesLog(&buf, func(le *LogEntry) {
		sessionIDs = append(sessionIDs, le.SessionID)
		report.Update(le)
	})
	assert.NoError(t, err)

	for _, id := range sessionIDs {
		assert.Equal(t, session.SessionID(), id)
	}
	assert.Equal(t, len(events), report.LogEntries)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, 2, report.Pipeline.Count)
	assert.Equal(t, 1, report.Pipeline.Background)
	assert.Equal(t, 1, report.Pipeline.Programs.Get("wc"))
	assert.Equal(t, 1, report.Builtin.Failures.Get("hop"))
	assert.Equal(t, []string{"ls | | wc"}, report.SyntaxError.Lines)
	assert.Equal(t, 1, report.Job.Actions.Get(JobExited))
	assert.Equal(t, 1, report.ResourceError.Ops.Get("fork"))

	_, err = yaml.Marshal(report)
	assert.NoError(t, err)
}

func TestReport_Update_unknown(t *testing.T) {
	var report Report
	report.Update(&LogEntry{})

	assert.Equal(t, 1, report.LogEntries)
	assert.Equal(t, 1, report.InvalidEntries.Get("<nil>"))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard().Sessionless().Record(&Session{Action: SessionStart}))
}
