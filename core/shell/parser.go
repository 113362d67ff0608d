// Package shell parses command lines into pipelines.
//
// The accepted grammar is a small subset of the POSIX shell command
// language, without quoting or expansion:
//
//	sequence     = pipeline ( (";" | "&") pipeline )* ( ";" | "&" )? ;
//	pipeline     = atomic ( "|" atomic )* ;
//	atomic       = name ( name | input_redir | output_redir )* ;
//	input_redir  = "<" name ;
//	output_redir = ( ">" | ">>" ) name ;
//	name         = any run of characters other than whitespace and |&><; ;
//
// A pipeline runs in the background only when the operator that follows it
// is "&".
package shell

import (
	"errors"
	"fmt"
	"strings"
)

// Default bounds for the parser.
const (
	DefaultMaxCommands  = 16
	DefaultMaxPipelines = 16
	DefaultMaxArgs      = 64
)

const delimiters = "|&><;"

// ErrSyntax is returned, possibly wrapped, for any line that doesn't match
// the grammar.
var ErrSyntax = errors.New("syntax error")

// Parser turns command lines into sequences of pipelines.
type Parser struct {
	// MaxCommands bounds the number of commands in one pipeline.
	MaxCommands int
	// MaxPipelines bounds the number of pipelines in one line.
	MaxPipelines int
	// MaxArgs bounds the number of arguments, including the program name,
	// of one command.
	MaxArgs int
}

// NewParser creates a parser with the default bounds.
func NewParser() *Parser {
	return &Parser{
		MaxCommands:  DefaultMaxCommands,
		MaxPipelines: DefaultMaxPipelines,
		MaxArgs:      DefaultMaxArgs,
	}
}

// Parse parses text with the default bounds.
func Parse(text string) (Sequence, error) {
	return NewParser().Parse(text)
}

// Parse parses a full line. Either the whole line is accepted or an error
// wrapping ErrSyntax is returned. Blank lines produce an empty sequence.
func (p *Parser) Parse(text string) (Sequence, error) {
	c := cursor{src: text}
	seq := Sequence{}

	for !c.done() {
		if len(seq) >= p.MaxPipelines {
			return nil, fmt.Errorf("%w: more than %d pipelines", ErrSyntax, p.MaxPipelines)
		}

		next, pipeline, err := p.pipeline(c)
		if err != nil {
			return nil, err
		}

		next, mode, more := next.separator()
		pipeline.Mode = mode
		seq = append(seq, pipeline)
		c = next

		if !more {
			break
		}
	}

	if !c.done() {
		return nil, c.skipSpace().errorf("unexpected %q", c.skipSpace().rest())
	}
	return seq, nil
}

func (p *Parser) pipeline(c cursor) (cursor, Pipeline, error) {
	start := c.skipSpace()
	next, cmd, err := p.atomic(start)
	if err != nil {
		return c, Pipeline{}, err
	}

	out := Pipeline{Commands: []Command{cmd}}
	for {
		afterPipe, ok := next.token("|")
		if !ok {
			break
		}
		if len(out.Commands) >= p.MaxCommands {
			return c, Pipeline{}, fmt.Errorf("%w: more than %d commands in a pipeline", ErrSyntax, p.MaxCommands)
		}

		afterCmd, cmd, err := p.atomic(afterPipe)
		if err != nil {
			return c, Pipeline{}, err
		}
		out.Commands = append(out.Commands, cmd)
		next = afterCmd
	}

	out.Text = strings.TrimSpace(c.src[start.pos:next.pos])
	return next, out, nil
}

func (p *Parser) atomic(c cursor) (cursor, Command, error) {
	next, name, ok := c.name()
	if !ok {
		return c, Command{}, c.skipSpace().errorf("expected a command")
	}

	cmd := Command{Args: []string{name}}
	for {
		if n, file, ok := next.input(); ok {
			cmd.Input = file
			next = n
			continue
		}

		if n, file, appendMode, ok := next.output(); ok {
			cmd.Output = file
			cmd.Append = appendMode
			next = n
			continue
		}

		if n, arg, ok := next.name(); ok {
			if p.MaxArgs > 0 && len(cmd.Args) >= p.MaxArgs {
				return c, Command{}, fmt.Errorf("%w: more than %d arguments", ErrSyntax, p.MaxArgs)
			}
			cmd.Args = append(cmd.Args, arg)
			next = n
			continue
		}

		return next, cmd, nil
	}
}

// cursor is an immutable position in the source. Every method returns a
// new cursor, so a failed match backtracks by discarding the result.
type cursor struct {
	src string
	pos int
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	return strings.IndexByte(delimiters, b) >= 0
}

func (c cursor) rest() string {
	return c.src[c.pos:]
}

func (c cursor) skipSpace() cursor {
	for c.pos < len(c.src) && isSpace(c.src[c.pos]) {
		c.pos++
	}
	return c
}

func (c cursor) done() bool {
	return c.skipSpace().pos >= len(c.src)
}

func (c cursor) errorf(format string, a ...interface{}) error {
	return fmt.Errorf("%w at column %d: %s", ErrSyntax, c.pos+1, fmt.Sprintf(format, a...))
}

// token matches a literal operator after optional whitespace.
func (c cursor) token(tok string) (cursor, bool) {
	n := c.skipSpace()
	if !strings.HasPrefix(n.rest(), tok) {
		return c, false
	}
	n.pos += len(tok)
	return n, true
}

// name matches a non-empty word after optional whitespace.
func (c cursor) name() (cursor, string, bool) {
	n := c.skipSpace()
	start := n.pos
	for n.pos < len(n.src) && !isSpace(n.src[n.pos]) && !isDelimiter(n.src[n.pos]) {
		n.pos++
	}
	if n.pos == start {
		return c, "", false
	}
	return n, n.src[start:n.pos], true
}

func (c cursor) input() (cursor, string, bool) {
	n, ok := c.token("<")
	if !ok {
		return c, "", false
	}
	n, file, ok := n.name()
	if !ok {
		return c, "", false
	}
	return n, file, true
}

// output matches ">>" before ">" so the append operator is never split.
func (c cursor) output() (cursor, string, bool, bool) {
	appendMode := true
	n, ok := c.token(">>")
	if !ok {
		appendMode = false
		n, ok = c.token(">")
	}
	if !ok {
		return c, "", false, false
	}

	n, file, ok := n.name()
	if !ok {
		return c, "", false, false
	}
	return n, file, appendMode, true
}

func (c cursor) separator() (cursor, Mode, bool) {
	if n, ok := c.token("&"); ok {
		return n, Background, true
	}
	if n, ok := c.token(";"); ok {
		return n, Foreground, true
	}
	return c, Foreground, false
}
