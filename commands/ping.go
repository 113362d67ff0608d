package commands

import (
	"errors"
	"fmt"
	"strconv"
	"syscall"

	"github.com/josephlewis42/jobsh/core/vos"
)

// Ping sends signal number modulo 32 to a process.
func Ping(virtOS vos.VOS) int {
	args := virtOS.Args()
	if len(args) < 3 {
		fmt.Fprintln(virtOS.Stderr(), "ping: Invalid syntax. Usage: ping <pid> <signal_number>")
		return 1
	}

	pid := atoi(args[1])
	if pid <= 0 {
		fmt.Fprintf(virtOS.Stderr(), "ping: Invalid PID '%s'\n", args[1])
		return 1
	}
	signal := atoi(args[2])

	err := virtOS.Kill(pid, syscall.Signal(signal%32))
	switch {
	case err == nil:
		fmt.Fprintf(virtOS.Stdout(), "Sent signal %d to process with pid %d\n", signal, pid)
		return 0
	case errors.Is(err, syscall.ESRCH):
		fmt.Fprintln(virtOS.Stdout(), "No such process found")
	default:
		fmt.Fprintf(virtOS.Stderr(), "ping: kill: %v\n", err)
	}
	return 1
}

// atoi parses the leading decimal digits of s, like C's atoi, returning 0
// when there are none.
func atoi(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

var _ vos.ProcessFunc = Ping

func init() {
	addCmd("ping", Ping)
}
