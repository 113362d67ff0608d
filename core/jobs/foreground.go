package jobs

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/josephlewis42/jobsh/core/vos"
)

// foreground holds the pgid of the group currently in the foreground, or
// zero when the shell itself is.
var foreground atomic.Int64

// SetForeground records pgid as the foreground group.
func SetForeground(pgid int) {
	foreground.Store(int64(pgid))
}

// ClearForeground records that no group is in the foreground.
func ClearForeground() {
	foreground.Store(0)
}

// Foreground returns the pgid of the foreground group, zero if none.
func Foreground() int {
	return int(foreground.Load())
}

// Forwarded lists the terminal signals relayed to the foreground group.
var Forwarded = []os.Signal{syscall.SIGINT, syscall.SIGTSTP}

// ForwardSignals starts relaying Forwarded signals received by the shell to
// the foreground group. With no foreground group they are dropped so the
// shell survives them. SIGTTOU is ignored so the shell can take the
// terminal back from a group that finished or stopped.
//
// The returned function stops forwarding and waits for the relay to exit.
func ForwardSignals(kill vos.KillFunc) (stop func()) {
	signal.Ignore(syscall.SIGTTOU)

	sigs := make(chan os.Signal, len(Forwarded)*2)
	signal.Notify(sigs, Forwarded...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sig := range sigs {
			if s, ok := sig.(syscall.Signal); ok {
				forward(kill, s)
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(sigs)
		<-done
	}
}

// forward sends sig to the foreground group, it reports whether there was
// one. It must stay safe to run at any moment: it only reads the atomic
// and signals, never printing or touching the table.
func forward(kill vos.KillFunc, sig syscall.Signal) bool {
	pgid := Foreground()
	if pgid <= 0 {
		return false
	}
	_ = kill(-pgid, sig)
	return true
}
