package coordinator

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the coordinator's full, validated configuration surface. It is
// built once (NewConfig or NewConfigFromEnv) and treated as immutable for
// the lifetime of a session; callers who need to change feature flags start
// a fresh session instead of mutating a live Config.
type Config struct {
	SampleRateHz int // fixed at 16000; kept as a field for clarity at call sites

	MinChunkSizeSec   float64
	BufferTrimmingSec float64
	VACChunkSizeSec   float64

	Transcription        bool
	Diarization          bool
	VAD                  bool
	VAC                  bool
	ConfidenceValidation bool
	LLMInference         bool

	LLMProvider         string
	FastModelID         string
	BaseModelID         string
	SummaryIntervalSec  float64
	NewTextTriggerChars int

	ParserTriggerIntervalSec float64
	ParserMaxOutputTokens    int

	LogLevel string
}

// DefaultConfig mirrors the source's _DEFAULT_CONFIG dictionary.
func DefaultConfig() Config {
	return Config{
		SampleRateHz: 16000,

		MinChunkSizeSec:   0.5,
		BufferTrimmingSec: 15.0,
		VACChunkSizeSec:   0.04,

		Transcription: true,
		Diarization:   false,
		VAD:           true,
		VAC:           false,

		LLMProvider:         "openai",
		FastModelID:         "",
		BaseModelID:         "",
		SummaryIntervalSec:  1.0,
		NewTextTriggerChars: 300,

		ParserTriggerIntervalSec: 1.0,
		ParserMaxOutputTokens:    33000,

		LogLevel: "info",
	}
}

// NewConfig validates an already-populated Config, returning ErrInvalidConfig
// wrapped with the specific violated constraint. This is the synchronous,
// fatal-before-pipeline-start validation required by §7.
func NewConfig(cfg Config) (Config, error) {
	if cfg.SampleRateHz != 16000 {
		return Config{}, fmt.Errorf("%w: sample_rate_hz must be 16000, got %d", ErrInvalidConfig, cfg.SampleRateHz)
	}
	if cfg.MinChunkSizeSec <= 0 {
		return Config{}, fmt.Errorf("%w: min_chunk_size_sec must be > 0", ErrInvalidConfig)
	}
	if cfg.BufferTrimmingSec <= 0 {
		return Config{}, fmt.Errorf("%w: buffer_trimming_sec must be > 0", ErrInvalidConfig)
	}
	if cfg.VACChunkSizeSec <= 0 {
		return Config{}, fmt.Errorf("%w: vac_chunk_size_sec must be > 0", ErrInvalidConfig)
	}
	if !cfg.Transcription && !cfg.Diarization {
		return Config{}, fmt.Errorf("%w: at least one of transcription or diarization must be enabled", ErrInvalidConfig)
	}
	if cfg.LLMInference {
		if cfg.SummaryIntervalSec <= 0 {
			return Config{}, fmt.Errorf("%w: llm_summary_interval_seconds must be > 0", ErrInvalidConfig)
		}
		if cfg.NewTextTriggerChars <= 0 {
			return Config{}, fmt.Errorf("%w: llm_new_text_trigger_chars must be > 0", ErrInvalidConfig)
		}
	}
	if cfg.ParserTriggerIntervalSec <= 0 {
		return Config{}, fmt.Errorf("%w: parser_trigger_interval_seconds must be > 0", ErrInvalidConfig)
	}
	if cfg.ParserMaxOutputTokens <= 0 || cfg.ParserMaxOutputTokens > 100000 {
		return Config{}, fmt.Errorf("%w: parser_max_output_tokens must be in (0, 100000]", ErrInvalidConfig)
	}
	return cfg, nil
}

// NewConfigFromEnv builds a Config by layering environment variables over
// DefaultConfig, then validates it. It does not call godotenv.Load itself;
// callers (typically cmd/coordinator) load a .env file once at process
// start, before any Config is built.
func NewConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.MinChunkSizeSec = getEnvFloat("COORD_MIN_CHUNK_SIZE_SEC", cfg.MinChunkSizeSec)
	cfg.BufferTrimmingSec = getEnvFloat("COORD_BUFFER_TRIMMING_SEC", cfg.BufferTrimmingSec)
	cfg.VACChunkSizeSec = getEnvFloat("COORD_VAC_CHUNK_SIZE_SEC", cfg.VACChunkSizeSec)

	cfg.Transcription = getEnvBool("COORD_FEATURE_TRANSCRIPTION", cfg.Transcription)
	cfg.Diarization = getEnvBool("COORD_FEATURE_DIARIZATION", cfg.Diarization)
	cfg.VAD = getEnvBool("COORD_FEATURE_VAD", cfg.VAD)
	cfg.VAC = getEnvBool("COORD_FEATURE_VAC", cfg.VAC)
	cfg.ConfidenceValidation = getEnvBool("COORD_FEATURE_CONFIDENCE_VALIDATION", cfg.ConfidenceValidation)
	cfg.LLMInference = getEnvBool("COORD_FEATURE_LLM_INFERENCE", cfg.LLMInference)

	cfg.LLMProvider = getEnv("COORD_LLM_PROVIDER", cfg.LLMProvider)
	cfg.FastModelID = getEnv("COORD_LLM_FAST_MODEL", cfg.FastModelID)
	cfg.BaseModelID = getEnv("COORD_LLM_BASE_MODEL", cfg.BaseModelID)
	cfg.SummaryIntervalSec = getEnvFloat("COORD_LLM_SUMMARY_INTERVAL_SEC", cfg.SummaryIntervalSec)
	cfg.NewTextTriggerChars = getEnvInt("COORD_LLM_NEW_TEXT_TRIGGER_CHARS", cfg.NewTextTriggerChars)

	cfg.ParserTriggerIntervalSec = getEnvFloat("COORD_PARSER_TRIGGER_INTERVAL_SEC", cfg.ParserTriggerIntervalSec)
	cfg.ParserMaxOutputTokens = getEnvInt("COORD_PARSER_MAX_OUTPUT_TOKENS", cfg.ParserMaxOutputTokens)

	cfg.LogLevel = getEnv("COORD_LOG_LEVEL", cfg.LogLevel)

	return NewConfig(cfg)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
