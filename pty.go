package headlessterm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// PTYEventProvider receives lifecycle notifications from a PTYSession: end-of-stream,
// child-process exit, and non-fatal resize warnings. OnEOF and OnChildExited fire
// from the session's read/wait goroutines and OnResizeFailed from the goroutine that
// called Resize; implementations must not block and must be safe to call from a
// goroutine other than the one that created the session.
type PTYEventProvider interface {
	// OnEOF is called once when the PTY master reaches end-of-stream (a zero-length
	// read, HUP, or EIO — all three collapse to "eof").
	OnEOF()
	// OnChildExited is called once the child process has been reaped.
	OnChildExited(state *os.ProcessState, err error)
	// OnResizeFailed is called when Resize could not apply a new size; the session
	// retains its previous dimensions.
	OnResizeFailed(err error)
}

// NoopPTYEvents discards all PTY lifecycle notifications.
type NoopPTYEvents struct{}

func (NoopPTYEvents) OnEOF()                                {}
func (NoopPTYEvents) OnChildExited(*os.ProcessState, error) {}
func (NoopPTYEvents) OnResizeFailed(error)                  {}

var _ PTYEventProvider = NoopPTYEvents{}

// ptyReadChunkSize is the size of the buffer each read in the read goroutine fills.
const ptyReadChunkSize = 4096

// PTYSession owns a PTY master file descriptor and its child process: non-blocking
// reads, direct writes to the master (no outgoing queue and no bandwidth limit),
// child-reaping, and EOF propagation on top of
// github.com/creack/pty. The master stays in whatever mode creack/pty hands back
// from Start until Attach explicitly switches it non-blocking, so a caller that
// wants to read synchronously before attaching a Terminal still can.
type PTYSession struct {
	mu sync.Mutex

	master *os.File
	cmd    *exec.Cmd
	events PTYEventProvider

	rows, cols int

	attached bool
	done     chan struct{}
}

// NewPTYSession creates a session with no child started yet. events may be nil, in
// which case lifecycle notifications are discarded.
func NewPTYSession(events PTYEventProvider) *PTYSession {
	if events == nil {
		events = NoopPTYEvents{}
	}
	return &PTYSession{events: events}
}

// Start launches name with args under a new PTY of the given size. The master
// is left exactly as creack/pty returns it (blocking) until Attach is called.
func (s *PTYSession) Start(name string, args []string, rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	master, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return fmt.Errorf("headlessterm: start pty: %w", err)
	}

	s.cmd = cmd
	s.master = master
	s.rows, s.cols = rows, cols
	s.done = make(chan struct{})
	return nil
}

// Attach switches the PTY master non-blocking and starts the background read
// goroutine that feeds t.Write, plus the child-wait goroutine that reports exit.
// The read goroutine is scoped narrowly: it only ever calls Terminal.Write,
// which is already mutex-guarded, and never touches Screen state directly.
func (s *PTYSession) Attach(t *Terminal) error {
	s.mu.Lock()
	if s.master == nil {
		s.mu.Unlock()
		return errors.New("headlessterm: PTYSession.Attach called before Start")
	}
	if s.attached {
		s.mu.Unlock()
		return errors.New("headlessterm: PTYSession already attached")
	}
	s.attached = true
	master := s.master
	cmd := s.cmd
	s.mu.Unlock()

	if err := syscall.SetNonblock(int(master.Fd()), true); err != nil {
		return fmt.Errorf("headlessterm: set nonblocking: %w", err)
	}

	t.SetResponseProvider(s)

	go s.readLoop(t, master)
	go s.waitLoop(cmd)

	return nil
}

// readLoop is the read-path goroutine: it reads until EOF/HUP/EIO, retrying
// transient EINTR/EAGAIN, and feeds every chunk read into t.Write in arrival
// order. Fatal errors other than EIO are reported the same way as EOF.
func (s *PTYSession) readLoop(t *Terminal, master *os.File) {
	buf := make([]byte, ptyReadChunkSize)

	for {
		n, err := master.Read(buf)
		if n > 0 {
			t.Write(buf[:n])
		}

		if err == nil {
			continue
		}

		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ERESTART) {
			continue
		}

		// io.EOF, syscall.EIO, and HUP-style closed-fd errors all collapse to the
		// same "eof" condition.
		s.events.OnEOF()
		close(s.done)
		return
	}
}

// waitLoop reaps the child process and reports its exit status once.
func (s *PTYSession) waitLoop(cmd *exec.Cmd) {
	err := cmd.Wait()
	s.events.OnChildExited(cmd.ProcessState, err)
}

// Write implements ResponseProvider: it drains to the PTY master with a single
// underlying write call. DSR/DA replies and keymap output both funnel through
// this same path once attached via SetResponseProvider in Attach.
func (s *PTYSession) Write(p []byte) (int, error) {
	s.mu.Lock()
	master := s.master
	s.mu.Unlock()

	if master == nil {
		return 0, errors.New("headlessterm: PTYSession has no active master")
	}
	return master.Write(p)
}

// Resize updates the PTY's window size, mirroring dcosson-h2's VT.Resize. On
// failure the session's previously recorded dimensions are left untouched and
// OnResizeFailed is reported, rather than the error being silently dropped.
func (s *PTYSession) Resize(rows, cols int) error {
	s.mu.Lock()
	master := s.master
	s.mu.Unlock()

	if master == nil {
		return errors.New("headlessterm: PTYSession has no active master")
	}

	err := pty.Setsize(master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		s.events.OnResizeFailed(err)
		return err
	}

	s.mu.Lock()
	s.rows, s.cols = rows, cols
	s.mu.Unlock()
	return nil
}

// Size returns the session's last successfully applied dimensions.
func (s *PTYSession) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Done returns a channel closed once the read loop has observed EOF.
func (s *PTYSession) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Detach closes the PTY master, unblocking the read goroutine. Safe to call more
// than once.
func (s *PTYSession) Detach() error {
	s.mu.Lock()
	master := s.master
	s.master = nil
	s.mu.Unlock()

	if master == nil {
		return nil
	}
	return master.Close()
}

var _ io.Writer = (*PTYSession)(nil)
