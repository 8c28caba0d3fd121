package comlink

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// aLongTimeAgo is a deadline in the past; setting it interrupts blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// errActionCancelled is returned by actions that observed their own
// cancellation through a channel or context rather than a deadline.
var errActionCancelled = errors.New("action cancelled")

// cancelReason records why a pending operation was cut short.
type cancelReason int

const (
	reasonNone cancelReason = iota
	reasonTimeout
	reasonAbort
)

func (r cancelReason) String() string {
	switch r {
	case reasonTimeout:
		return "timeout"
	case reasonAbort:
		return "abort"
	default:
		return "none"
	}
}

// deadliner is a resource whose blocked I/O can be interrupted by a deadline.
// *os.File, net.Conn and *net.TCPListener all qualify.
type deadliner interface {
	SetDeadline(t time.Time) error
	Close() error
}

// pendingOp correlates one in-flight action with one deadline timer. It lives
// for a single executor run.
type pendingOp struct {
	cancelFn func() error
	forceFn  func() error

	once   sync.Once
	reason cancelReason
	forced bool
}

// cancel interrupts the action. Only the first caller, timer or Abort, has
// any effect. When the resource refuses cancellation it is force-closed.
func (op *pendingOp) cancel(reason cancelReason) {
	op.once.Do(func() {
		op.reason = reason
		if err := op.cancelFn(); err != nil && op.forceFn != nil {
			op.forced = true
			_ = op.forceFn()
		}
	})
}

// settle closes the op to further cancellation. If a cancel is running it
// waits for it to finish, so reason and forced are stable afterwards.
func (op *pendingOp) settle() {
	op.once.Do(func() {})
}

// outcome is the single result of one executor run.
type outcome struct {
	n      int
	reason cancelReason
	forced bool
	err    error
}

func (o outcome) cancelled() bool { return o.reason != reasonNone }

// executor runs one deadline-bounded action at a time and lets Abort reach
// the active one from another goroutine.
type executor struct {
	mu     sync.Mutex
	active *pendingOp
	log    *zap.Logger
}

func newExecutor(log *zap.Logger) *executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &executor{log: log}
}

// run starts act on the calling goroutine and races it against a timer armed
// for timeout. cancel must make act return promptly; force is the fallback
// when cancel fails.
func (e *executor) run(name string, timeout time.Duration, cancel, force func() error, act func() (int, error)) outcome {
	op := &pendingOp{cancelFn: cancel, forceFn: force}

	e.mu.Lock()
	e.active = op
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.active == op {
			e.active = nil
		}
		e.mu.Unlock()
	}()

	timer := time.AfterFunc(timeout, func() { op.cancel(reasonTimeout) })
	n, err := act()
	timer.Stop()
	op.settle()

	out := outcome{n: n, reason: op.reason, forced: op.forced, err: err}
	switch {
	case out.forced:
		out.err = ErrCancelled
		e.log.Warn("cancellation failed, resource force-closed",
			zap.String("op", name), zap.Stringer("reason", op.reason), zap.Int("bytes", n))
	case out.cancelled():
		if err == nil || isCancellation(err) {
			out.err = nil
		}
		e.log.Debug("operation cut short",
			zap.String("op", name), zap.Stringer("reason", op.reason), zap.Int("bytes", n))
	}
	return out
}

// runStream is run for an action over a deadline-capable stream. Deadlines
// are cleared before and after so non-blocking calls never see a stale one.
func (e *executor) runStream(name string, s deadliner, timeout time.Duration, act func() (int, error)) outcome {
	if err := s.SetDeadline(time.Time{}); err != nil {
		return outcome{err: err}
	}
	out := e.run(name, timeout,
		func() error { return s.SetDeadline(aLongTimeAgo) },
		s.Close,
		act)
	if !out.forced {
		_ = s.SetDeadline(time.Time{})
	}
	return out
}

// abort cancels the active operation. It is a no-op when nothing runs.
func (e *executor) abort() {
	e.mu.Lock()
	op := e.active
	e.mu.Unlock()
	if op != nil {
		op.cancel(reasonAbort)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, errActionCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// transferAll repeats step until buf is exhausted or step fails. It is the
// action behind blocking Read and Write.
func transferAll(buf []byte, step func([]byte) (int, error)) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := step(buf[total:])
		if n > 0 {
			total += n
		} else if err == nil {
			err = io.ErrNoProgress
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
