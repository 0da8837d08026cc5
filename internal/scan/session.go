package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/patrol/internal/domain/checkpoint"
)

// State is the acquisition state of a scan session.
type State string

const (
	StateAcquiring State = "acquiring"
	StateReady     State = "ready"
	StateError     State = "error"
	StateManual    State = "manual"
	StateDone      State = "done"
	StateClosed    State = "closed"
)

// Options tunes acquisition.
type Options struct {
	AcquireTimeout time.Duration
	FrameInterval  time.Duration
	// MaxFailures switches the session to manual after that many failed
	// acquisitions. Zero disables the automatic switch.
	MaxFailures int
}

func (o Options) withDefaults() Options {
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 8 * time.Second
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 250 * time.Millisecond
	}
	return o
}

// Session is a one-shot scan: it yields a single code from the camera or
// from manual entry, then finishes. The device is held only while ready.
type Session struct {
	camera  Camera
	decoder Decoder
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	reason   FailureReason
	failures int
	stream   Stream
	closed   chan struct{}
}

// NewSession creates a session in the acquiring state. Call Start to open the device.
func NewSession(camera Camera, decoder Decoder, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if decoder == nil {
		decoder = NewQRDecoder()
	}
	return &Session{
		camera:  camera,
		decoder: decoder,
		opts:    opts.withDefaults(),
		logger:  logger,
		state:   StateAcquiring,
		closed:  make(chan struct{}),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns the last acquisition failure reason, if any.
func (s *Session) Reason() FailureReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Start opens the camera within AcquireTimeout. On failure the session
// moves to error, or to manual once MaxFailures is reached, and the
// returned error is a *DeviceError.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAcquiring {
		s.mu.Unlock()
		return s.stateErr()
	}
	s.mu.Unlock()

	if s.camera == nil {
		return s.fail(&DeviceError{Reason: ReasonNoDevice})
	}

	acquireCtx, cancel := context.WithTimeout(ctx, s.opts.AcquireTimeout)
	defer cancel()

	type opened struct {
		stream Stream
		err    error
	}
	result := make(chan opened, 1)
	go func() {
		st, err := s.camera.Open(acquireCtx)
		result <- opened{st, err}
	}()

	var res opened
	select {
	case res = <-result:
	case <-acquireCtx.Done():
		// A stream that shows up after the deadline is released, not leaked.
		go func() {
			if late := <-result; late.stream != nil {
				_ = late.stream.Close()
			}
		}()
		res.err = acquireCtx.Err()
	}

	if res.err != nil {
		return s.fail(classify(res.err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAcquiring {
		_ = res.stream.Close()
		return s.stateErrLocked()
	}
	s.stream = res.stream
	s.state = StateReady
	s.reason = ""
	s.failures = 0
	s.logger.Debug("scan device ready")
	return nil
}

// Run samples frames every FrameInterval until one decodes to a
// code-shaped value. The device is released as soon as a code is found.
func (s *Session) Run(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateReady {
		defer s.mu.Unlock()
		return "", s.stateErrLocked()
	}
	stream := s.stream
	s.mu.Unlock()

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.closed:
			return "", ErrSessionClosed
		case <-ticker.C:
		}

		frame, err := stream.Frame(ctx)
		if err != nil {
			if s.State() != StateReady {
				return "", s.stateErr()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			s.releaseStream()
			return "", s.fail(classify(err))
		}

		code, err := s.decoder.Decode(frame)
		if err != nil || !checkpoint.IsCodeShaped(code) {
			continue
		}

		s.mu.Lock()
		if s.state != StateReady {
			defer s.mu.Unlock()
			return "", s.stateErrLocked()
		}
		s.state = StateDone
		s.closeStreamLocked()
		s.mu.Unlock()

		s.logger.Debug("scan decoded code")
		return code, nil
	}
}

// SwitchToManual abandons the camera for manual entry.
func (s *Session) SwitchToManual() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateReady, StateError:
	case StateManual:
		return nil
	default:
		return s.stateErrLocked()
	}
	s.closeStreamLocked()
	s.state = StateManual
	return nil
}

// Retry leaves manual entry and acquires the camera again.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateManual {
		defer s.mu.Unlock()
		return s.stateErrLocked()
	}
	s.state = StateAcquiring
	s.mu.Unlock()
	return s.Start(ctx)
}

// SubmitManual sanitizes a typed code and finishes the session with it.
// Malformed input leaves the session in manual so the operator can retype.
func (s *Session) SubmitManual(raw string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateManual {
		return "", s.stateErrLocked()
	}
	code := checkpoint.SanitizeManualEntry(raw)
	if err := checkpoint.ValidateCode(code); err != nil {
		return "", err
	}
	s.state = StateDone
	return code, nil
}

// Close releases the device from any state. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.closeStreamLocked()
	s.state = StateClosed
	close(s.closed)
	return nil
}

func (s *Session) fail(err *DeviceError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	s.failures++
	s.reason = err.Reason
	s.state = StateError
	if s.opts.MaxFailures > 0 && s.failures >= s.opts.MaxFailures {
		s.state = StateManual
		s.logger.Info("scan switched to manual entry", "failures", s.failures, "reason", err.Reason)
	} else {
		s.logger.Warn("scan device unavailable", "reason", err.Reason, "error", err.Err)
	}
	return err
}

func (s *Session) releaseStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStreamLocked()
}

func (s *Session) closeStreamLocked() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("failed to release scan device", "error", err)
	}
	s.stream = nil
}

func (s *Session) stateErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateErrLocked()
}

func (s *Session) stateErrLocked() error {
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	return ErrIllegalState
}

func classify(err error) *DeviceError {
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DeviceError{Reason: ReasonTimeout, Err: err}
	}
	return &DeviceError{Reason: ReasonUnsupported, Err: err}
}
