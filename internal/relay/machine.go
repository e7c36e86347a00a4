package relay

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/cliprelay/cli/internal/state"
)

// Sentinel errors surfaced to commands.
var (
	// ErrBusy means another request currently holds the busy phase.
	ErrBusy = errors.New("a request is already in flight: wait for it to finish or check 'cliprelay status'")
	// ErrNoAnswer means there is no stored answer to copy or print.
	ErrNoAnswer = errors.New("no answer available yet: send something with 'cliprelay ask' first")
	// ErrNoSession means a session operation was invoked without one active.
	ErrNoSession = errors.New("no active session: start one with 'cliprelay session start'")
)

// staleFactor scales the request timeout into the age after which a busy
// record left by a dead or wedged process may be reclaimed.
const staleFactor = 2

// beginBusy transitions the badge idle/ready/error→busy. Exactly one
// operation may hold busy; a stale record is reclaimed instead of refused.
func beginBusy(doc *state.Document, pid int, now time.Time, staleAfter time.Duration) error {
	if doc.Badge.Phase == state.PhaseBusy && !busyIsStale(doc.Badge, pid, now, staleAfter) {
		return ErrBusy
	}
	doc.Badge = state.Badge{Phase: state.PhaseBusy, ChangedAt: now, OwnerPID: pid}
	return nil
}

// busyIsStale reports whether a persisted busy record no longer corresponds
// to a live operation: owned by this process, older than the reclaim window,
// or owned by a process that is gone.
func busyIsStale(b state.Badge, pid int, now time.Time, staleAfter time.Duration) bool {
	if b.OwnerPID == pid {
		return true
	}
	if staleAfter > 0 && now.Sub(b.ChangedAt) > staleAfter {
		return true
	}
	if b.OwnerPID > 0 && !pidAlive(b.OwnerPID) {
		return true
	}
	return false
}

// pidAlive best-effort checks process liveness. On platforms where signal 0
// is unsupported the age check in busyIsStale is the effective guard.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	sigErr := proc.Signal(syscall.Signal(0))
	if sigErr == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return errors.Is(sigErr, syscall.EPERM)
}

// markReady records a successful completion.
func markReady(doc *state.Document, now time.Time) {
	doc.Badge = state.Badge{Phase: state.PhaseReady, ChangedAt: now}
}

// markError records a failed completion. Session state is left untouched.
func markError(doc *state.Document, detail string, now time.Time) {
	doc.Badge = state.Badge{Phase: state.PhaseError, Detail: detail, ChangedAt: now}
}

// markIdle returns the badge to idle, e.g. after the answer was copied or an
// error acknowledged.
func markIdle(doc *state.Document, now time.Time) {
	doc.Badge = state.Badge{Phase: state.PhaseIdle, ChangedAt: now}
}
