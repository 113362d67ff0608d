package shell

import "strings"

// Mode says how a pipeline's process group relates to the terminal.
type Mode int

const (
	// Foreground pipelines are waited for before the next one starts.
	Foreground Mode = iota
	// Background pipelines are registered as jobs and never waited for.
	Background
)

func (m Mode) String() string {
	if m == Background {
		return "background"
	}
	return "foreground"
}

// Command is a single program invocation within a pipeline.
type Command struct {
	// Args holds the program name followed by its arguments.
	Args []string
	// Input, if set, is the file standard input is read from.
	Input string
	// Output, if set, is the file standard output is written to.
	Output string
	// Append opens Output for appending rather than truncating it.
	Append bool
}

// Name is the program the command runs.
func (c Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(c.Args, " "))
	if c.Input != "" {
		sb.WriteString(" < ")
		sb.WriteString(c.Input)
	}
	if c.Output != "" {
		if c.Append {
			sb.WriteString(" >> ")
		} else {
			sb.WriteString(" > ")
		}
		sb.WriteString(c.Output)
	}
	return sb.String()
}

// Pipeline is a chain of commands whose standard output feeds the next
// command's standard input.
type Pipeline struct {
	Commands []Command
	Mode     Mode

	// Text is the source the pipeline was parsed from, without the
	// trailing operator.
	Text string
}

// CommandText is the text jobs created from the pipeline are listed under.
func (p Pipeline) CommandText() string {
	if p.Text != "" {
		return p.Text
	}
	return p.String()
}

// String re-serializes the pipeline without its mode.
func (p Pipeline) String() string {
	parts := make([]string, len(p.Commands))
	for i, cmd := range p.Commands {
		parts[i] = cmd.String()
	}
	return strings.Join(parts, " | ")
}

// Sequence holds the pipelines of one input line in execution order.
type Sequence []Pipeline

// String re-serializes the sequence so that parsing the result yields an
// equivalent sequence.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		switch {
		case p.Mode == Background:
			parts[i] = p.String() + " &"
		case i < len(s)-1:
			parts[i] = p.String() + " ;"
		default:
			parts[i] = p.String()
		}
	}
	return strings.Join(parts, " ")
}
