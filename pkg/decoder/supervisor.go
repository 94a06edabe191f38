package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lokutor-ai/transcribe-coordinator/pkg/audio"
	"github.com/lokutor-ai/transcribe-coordinator/pkg/coordinator"
)

// bytesPerSec is the fixed PCM byte rate: 16000 Hz, mono, s16le.
const bytesPerSec = 16000 * 2

const (
	transcriptionFrameBytes = bytesPerSec / 2       // 0.5s
	diarizationFrameBytes   = bytesPerSec * 2       // 2.0s
	readFloor               = 4096
	readCeiling             = 160000
	dropWarnInterval        = 10 * time.Second
)

// Supervisor wraps a child container→PCM decoder process (§4.1). It
// satisfies coordinator.AudioDecoder.
type Supervisor struct {
	cfg    Config
	logger coordinator.Logger

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdinBuf    *bufio.Writer
	stdout      io.ReadCloser
	retriedOnce bool
	closed      bool

	stderrRing *lineRing

	lastActivity atomic.Int64 // unix nano

	txAccum  []byte
	diaAccum []byte

	lastDropWarn time.Time
	lastReadAt   time.Time

	restarting atomic.Bool

	debugMu     sync.Mutex
	debugFile   *os.File
	debugWriter *audio.WAVWriter
}

// New builds a Supervisor and starts its child process.
func New(ctx context.Context, cfg Config, logger coordinator.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = coordinator.NoOpLogger{}
	}
	s := &Supervisor{
		cfg:        cfg,
		logger:     logger,
		stderrRing: newLineRing(128),
	}
	s.lastActivity.Store(time.Now().UnixNano())
	if err := s.spawn(ctx); err != nil {
		startsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decoder: initial spawn failed: %w", err)
	}
	startsTotal.WithLabelValues("ok").Inc()
	return s, nil
}

func (s *Supervisor) spawn(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.BinPath, s.cfg.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.stderrRing.Add(scanner.Text())
		}
	}()

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.stdinBuf = bufio.NewWriter(stdin)
	s.stdout = stdout
	s.closed = false
	s.mu.Unlock()

	s.markActivity()
	return nil
}

func (s *Supervisor) markActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity reports the last time a read succeeded (or the process was
// (re)started), for the Watchdog's idle check (§4.10).
func (s *Supervisor) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Push writes container bytes to the child's stdin. Write and flush each
// run under their own timeout; a timeout or broken pipe triggers one
// restart attempt and is never returned as an error (§4.1, §7); a failed
// restart is logged, and Push still returns nil.
func (s *Supervisor) Push(ctx context.Context, data []byte) error {
	s.mu.Lock()
	stdin := s.stdinBuf
	retried := s.retriedOnce
	closed := s.closed
	s.mu.Unlock()

	if closed || stdin == nil {
		return nil
	}

	writeTimeout, flushTimeout := s.cfg.WriteTimeout, s.cfg.FlushTimeout
	if retried {
		writeTimeout, flushTimeout = s.cfg.WriteTimeoutRetry, s.cfg.FlushTimeoutRetry
	}

	if err := runWithTimeout(writeTimeout, func() error {
		_, err := stdin.Write(data)
		return err
	}); err != nil {
		writeTimeouts.Inc()
		s.logger.Warn("decoder write failed, restarting", "error", err)
		if restartErr := s.Restart(ctx); restartErr != nil {
			s.logger.Error("decoder restart failed after write failure", "error", restartErr)
		}
		return nil
	}

	if err := runWithTimeout(flushTimeout, stdin.Flush); err != nil {
		writeTimeouts.Inc()
		s.logger.Warn("decoder flush failed, restarting", "error", err)
		if restartErr := s.Restart(ctx); restartErr != nil {
			s.logger.Error("decoder restart failed after flush failure", "error", restartErr)
		}
		return nil
	}

	return nil
}

func runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	}
}

// CloseInput closes the child's stdin, the mechanism by which a stop
// signal drains the remaining audio through to EOF on stdout (§6).
func (s *Supervisor) CloseInput(ctx context.Context) error {
	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return nil
	}
	return stdin.Close()
}

// PullFrames reads PCM from the child's stdout, converts it to float32,
// and delivers frames to both queues per the sizing and drop policy of
// §4.1. It runs until ctx is cancelled or the child reaches EOF, at which
// point it flushes any partial frames and sends EndOfStream to both
// queues.
func (s *Supervisor) PullFrames(ctx context.Context, transcriptionQueue, diarizationQueue chan<- coordinator.QueueItem) {
	idleCtx, idleCancel := context.WithCancel(ctx)
	defer idleCancel()
	go s.idleWatchdog(idleCtx)

	s.lastReadAt = time.Now()

	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		stdout := s.stdout
		s.mu.Unlock()
		if stdout == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		buf := make([]byte, s.adaptiveReadSize())
		n, err := stdout.Read(buf)
		s.lastReadAt = time.Now()

		if n > 0 {
			s.markActivity()
			s.recordDebug(buf[:n])
			s.ingest(buf[:n], transcriptionQueue, diarizationQueue)
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				s.flushTail(transcriptionQueue, diarizationQueue)
				sendEndOfStream(ctx, transcriptionQueue, diarizationQueue)
				s.dumpDebugWAV()
				return
			}
			s.logger.Warn("decoder read failed, restarting", "error", err)
			if restartErr := s.Restart(ctx); restartErr != nil {
				s.logger.Error("decoder restart failed after read error", "error", restartErr)
				s.flushTail(transcriptionQueue, diarizationQueue)
				sendEndOfStream(ctx, transcriptionQueue, diarizationQueue)
				return
			}
		}
	}
}

func sendEndOfStream(ctx context.Context, queues ...chan<- coordinator.QueueItem) {
	for _, q := range queues {
		select {
		case q <- coordinator.EndOfStream:
		case <-ctx.Done():
		}
	}
}

func (s *Supervisor) adaptiveReadSize() int {
	elapsed := time.Since(s.lastReadAt).Seconds()
	size := int(elapsed * bytesPerSec)
	if size < readFloor {
		size = readFloor
	}
	if size > readCeiling {
		size = readCeiling
	}
	return size
}

func (s *Supervisor) ingest(data []byte, transcriptionQueue, diarizationQueue chan<- coordinator.QueueItem) {
	s.txAccum = append(s.txAccum, data...)
	s.diaAccum = append(s.diaAccum, data...)

	for len(s.txAccum) >= transcriptionFrameBytes {
		frame := s.txAccum[:transcriptionFrameBytes]
		transcriptionQueue <- coordinator.FrameItem(s16leToF32(frame))
		s.txAccum = append([]byte(nil), s.txAccum[transcriptionFrameBytes:]...)
	}

	for len(s.diaAccum) >= diarizationFrameBytes {
		frame := s.diaAccum[:diarizationFrameBytes]
		remainder := append([]byte(nil), s.diaAccum[diarizationFrameBytes:]...)
		if coordinator.DiarizationQueueHasRoom(diarizationQueue) {
			diarizationQueue <- coordinator.FrameItem(s16leToF32(frame))
		} else {
			droppedDiarizationFrames.Inc()
			if time.Since(s.lastDropWarn) >= dropWarnInterval {
				s.logger.Warn("diarization queue full, dropping buffered audio")
				s.lastDropWarn = time.Now()
			}
		}
		s.diaAccum = remainder
	}
}

// flushTail delivers whatever remains in each accumulator as one final,
// possibly short, frame ("or whatever remains at EOS", §4.1). The
// diarization remainder is delivered only if the diarization queue has
// room; otherwise it is left in diaAccum and not sent.
func (s *Supervisor) flushTail(transcriptionQueue, diarizationQueue chan<- coordinator.QueueItem) {
	if len(s.txAccum) > 0 {
		transcriptionQueue <- coordinator.FrameItem(s16leToF32(s.txAccum))
		s.txAccum = nil
	}
	if len(s.diaAccum) > 0 && coordinator.DiarizationQueueHasRoom(diarizationQueue) {
		diarizationQueue <- coordinator.FrameItem(s16leToF32(s.diaAccum))
		s.diaAccum = nil
	}
}

func (s *Supervisor) idleWatchdog(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(s.LastActivity()) > s.cfg.InternalIdleThreshold {
				s.logger.Warn("decoder idle past internal threshold, restarting")
				restartsTotal.WithLabelValues("internal_idle").Inc()
				if err := s.Restart(ctx); err != nil {
					s.logger.Error("decoder internal-idle restart failed", "error", err)
				}
			}
		}
	}
}

// Restart tears down the current child process and spawns a new one,
// retrying up to 3 times with a 1s/2s linear back-off (§4.1).
func (s *Supervisor) Restart(ctx context.Context) error {
	if !s.restarting.CompareAndSwap(false, true) {
		// A restart is already in flight (e.g. triggered by both the
		// internal idle watchdog and a read error at once); let it finish.
		return nil
	}
	defer s.restarting.Store(false)

	s.teardown()
	s.mu.Lock()
	s.retriedOnce = true
	s.mu.Unlock()

	err := Retry(ctx, restartBackoff, func(ctx context.Context, attempt int) error {
		return s.spawn(ctx)
	})
	if err != nil {
		restartsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %v", coordinator.ErrDecoderUnavailable, err)
	}
	restartsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Close performs the idempotent full shutdown (§4.1 cleanup()).
func (s *Supervisor) Close(ctx context.Context) error {
	s.teardown()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// teardown closes the child's input and then output stream, then
// terminates with a grace period and kills if it does not exit in time.
// The stderr pipe is not closed here; cmd.Wait closes it once the process
// has exited.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	cmd := s.cmd
	stdin := s.stdin
	stdout := s.stdout
	s.cmd = nil
	s.stdin = nil
	s.stdinBuf = nil
	s.stdout = nil
	s.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if stdout != nil {
		_ = stdout.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(s.cfg.TerminateGrace):
	}

	_ = cmd.Process.Kill()
	select {
	case <-done:
	case <-time.After(s.cfg.KillGrace):
	}
}

// LastStderr returns up to n most recent stderr lines, for diagnostics.
func (s *Supervisor) LastStderr(n int) []string {
	return s.stderrRing.LastN(n)
}

// recordDebug mirrors a chunk of decoded PCM into the debug WAV writer, a
// no-op unless cfg.DebugWAVPath is set. Unlike buffering the whole
// recording and encoding it at end of stream, each chunk is streamed to
// disk as it's read from the child process, so a long-running session
// being debugged doesn't hold its entire PCM history in memory.
func (s *Supervisor) recordDebug(data []byte) {
	if s.cfg.DebugWAVPath == "" {
		return
	}
	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	if s.debugWriter == nil {
		f, err := os.Create(s.cfg.DebugWAVPath)
		if err != nil {
			s.logger.Warn("decoder: failed to open debug WAV dump", "error", err, "path", s.cfg.DebugWAVPath)
			s.cfg.DebugWAVPath = ""
			return
		}
		s.debugFile = f
		s.debugWriter = audio.NewWAVWriter(f, 16000)
	}
	if _, err := s.debugWriter.Write(data); err != nil {
		s.logger.Warn("decoder: failed to write debug WAV chunk", "error", err, "path", s.cfg.DebugWAVPath)
	}
}

// dumpDebugWAV patches the WAV header's chunk sizes and closes the debug
// file, once, at end of stream.
func (s *Supervisor) dumpDebugWAV() {
	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	if s.debugWriter == nil {
		return
	}
	if err := s.debugWriter.Close(); err != nil {
		s.logger.Warn("decoder: failed to finalize debug WAV dump", "error", err, "path", s.cfg.DebugWAVPath)
	}
	if err := s.debugFile.Close(); err != nil {
		s.logger.Warn("decoder: failed to close debug WAV file", "error", err, "path", s.cfg.DebugWAVPath)
	}
	s.debugWriter = nil
	s.debugFile = nil
}
