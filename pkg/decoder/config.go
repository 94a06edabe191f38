package decoder

import "time"

// Config configures the child decoder process. BinPath/Args are
// implementation-defined per §6: the module never assumes a specific
// decoder binary is installed.
type Config struct {
	BinPath string
	Args    []string

	WriteTimeout      time.Duration
	FlushTimeout      time.Duration
	WriteTimeoutRetry time.Duration
	FlushTimeoutRetry time.Duration

	TerminateGrace time.Duration
	KillGrace      time.Duration

	InternalIdleThreshold time.Duration

	// DebugWAVPath, if non-empty, tells the Supervisor to also stream every
	// decoded PCM byte into a WAV file at this path as it is read, patching
	// the header sizes when the child's output reaches EOF. Diagnostic use
	// only; empty by default so normal runs carry no extra cost.
	DebugWAVPath string
}

// DefaultConfig returns the §4.1 default timeouts. BinPath defaults to
// "ffmpeg" reading from stdin and writing raw s16le PCM to stdout, the
// most common container-to-PCM decoder available in the ecosystem; any
// binary satisfying the same stdin/stdout contract works equally well.
func DefaultConfig() Config {
	return Config{
		BinPath: "ffmpeg",
		Args: []string{
			"-loglevel", "error",
			"-i", "pipe:0",
			"-f", "s16le",
			"-ac", "1",
			"-ar", "16000",
			"pipe:1",
		},
		WriteTimeout:          8 * time.Second,
		FlushTimeout:          4 * time.Second,
		WriteTimeoutRetry:     10 * time.Second,
		FlushTimeoutRetry:     6 * time.Second,
		TerminateGrace:        3 * time.Second,
		KillGrace:             2 * time.Second,
		InternalIdleThreshold: 60 * time.Second,
	}
}
