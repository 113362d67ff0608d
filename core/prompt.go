package core

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"golang.org/x/term"
)

// lineReader reads one line of input per prompt.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// plainReader reads lines without editing or echoing a prompt, for input
// that isn't a terminal.
type plainReader struct {
	r *bufio.Reader
}

func (p *plainReader) ReadLine(string) (string, error) {
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (p *plainReader) Close() error {
	return nil
}

// promptGate only lets reads through while the shell is prompting. The line
// editor reads its input in the background, the gate keeps it from taking
// keystrokes meant for a foreground job.
type promptGate struct {
	r io.Reader

	mu   sync.Mutex
	cond *sync.Cond
	open bool
}

func newPromptGate(r io.Reader) *promptGate {
	g := &promptGate{r: r}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Open allows reads until the next line ends.
func (g *promptGate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	g.cond.Broadcast()
}

func (g *promptGate) Read(p []byte) (int, error) {
	g.mu.Lock()
	for !g.open {
		g.cond.Wait()
	}
	g.mu.Unlock()

	n, err := g.r.Read(p)

	// Enter, Ctrl-C and Ctrl-D all finish the current Readline call.
	if bytes.ContainsAny(p[:n], "\r\n\x03\x04") || err != nil {
		g.mu.Lock()
		g.open = false
		g.mu.Unlock()
	}
	return n, err
}

// editorReader is an interactive line editor.
type editorReader struct {
	gate *promptGate
	rl   *readline.Instance
}

func newEditorReader(stdin, stdout, stderr *os.File) (*editorReader, error) {
	gate := newPromptGate(stdin)

	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(gate),
		Stdout: stdout,
		Stderr: stderr,
		FuncGetWidth: func() int {
			width, _, err := term.GetSize(int(stdout.Fd()))
			if err != nil {
				return 80
			}
			return width
		},
		FuncIsTerminal: func() bool {
			return true
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &editorReader{gate: gate, rl: rl}, nil
}

func (e *editorReader) ReadLine(prompt string) (string, error) {
	e.rl.SetPrompt(prompt)
	e.gate.Open()
	return e.rl.Readline()
}

func (e *editorReader) Close() error {
	return e.rl.Close()
}
