// Command coordinator is a runnable wiring reference for pkg/coordinator:
// it loads configuration from the environment, assembles a Coordinator
// with a real Decoder Supervisor and (when API keys are present) real
// LLM-backed Summarizer/Parser clients, feeds it a container file given
// on the command line, and prints each Snapshot as it arrives.
//
// The streaming ASR engine and diarizer are genuinely external to this
// module (§1 Non-goals); this binary wires in the stubASR/stubDiarizer
// placeholders below so the rest of the pipeline (decoder, queues,
// emitter, summarizer, parser, watchdog) can be exercised end to end.
// An embedding application replaces Dependencies.ASR/Diarizer with a real
// streaming engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lokutor-ai/transcribe-coordinator/pkg/coordinator"
	"github.com/lokutor-ai/transcribe-coordinator/pkg/decoder"
	"github.com/lokutor-ai/transcribe-coordinator/pkg/llm"
	"github.com/lokutor-ai/transcribe-coordinator/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using process environment")
	}

	zapLogger, err := logging.NewZapLogger(os.Getenv("COORD_LOG_LEVEL"))
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := coordinator.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decCfg := decoder.DefaultConfig()
	decCfg.DebugWAVPath = os.Getenv("COORD_DEBUG_WAV_PATH")

	dec, err := decoder.New(ctx, decCfg, zapLogger)
	if err != nil {
		log.Fatalf("start decoder: %v", err)
	}

	deps := coordinator.Dependencies{
		Decoder: dec,
		ASR:     stubASR{},
		Logger:  zapLogger,
	}
	if cfg.Diarization {
		deps.Diarizer = stubDiarizer{}
	}

	if cfg.LLMInference {
		if client, err := buildLLMClient(cfg); err != nil {
			zapLogger.Warn("llm inference disabled: could not build client", "error", err)
			cfg.LLMInference = false
		} else {
			deps.LLM = llm.NewSummarizerClient(client)
			deps.Parser = llm.NewParserClient(client, cfg.ParserMaxOutputTokens)
		}
	}

	coord, err := coordinator.New(cfg, deps)
	if err != nil {
		log.Fatalf("build coordinator: %v", err)
	}
	defer coord.Close(context.Background())

	go printSnapshots(coord)

	if len(os.Args) > 1 {
		go pushFile(ctx, coord, os.Args[1], zapLogger)
	} else {
		fmt.Println("usage: coordinator <container-audio-file>")
		fmt.Println("reading nothing; press Ctrl+C to exit")
	}

	<-ctx.Done()
	_ = coord.ProcessAudio(context.Background(), nil)
	time.Sleep(500 * time.Millisecond)
}

func buildLLMClient(cfg coordinator.Config) (*llm.Client, error) {
	model := cfg.BaseModelID
	if model == "" {
		model = cfg.FastModelID
	}
	return llm.New(cfg.LLMProvider, model)
}

func pushFile(ctx context.Context, coord *coordinator.Coordinator, path string, logger coordinator.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("open audio file failed", "error", err)
		return
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := f.Read(buf)
		if n > 0 {
			if pushErr := coord.ProcessAudio(ctx, buf[:n]); pushErr != nil {
				logger.Warn("process_audio failed", "error", pushErr)
				return
			}
		}
		if err != nil {
			_ = coord.ProcessAudio(ctx, nil)
			return
		}
	}
}

func printSnapshots(coord *coordinator.Coordinator) {
	for snap := range coord.ResultStream() {
		encoded, _ := json.Marshal(snap)
		fmt.Println(string(encoded))
	}
}

// stubASR is a placeholder ASREngine: it never produces tokens. It lets
// this binary demonstrate the decoder/queue/emitter/summarizer/parser
// wiring without a real streaming speech-to-text backend.
type stubASR struct{}

func (stubASR) PushAudio(context.Context, []float32) error { return nil }
func (stubASR) PullTokens(context.Context) ([]coordinator.ASRToken, error) {
	return nil, nil
}
func (stubASR) Hypothesis() coordinator.HypothesisBuffer { return coordinator.HypothesisBuffer{} }
func (stubASR) Separator() string                        { return " " }
func (stubASR) SentenceTokenizer() (coordinator.SentenceTokenizer, bool) {
	return nil, false
}
func (stubASR) Finish(context.Context) (string, error) { return "", nil }

// stubDiarizer is a placeholder Diarizer: it advances the watermark to
// the newest token end time without ever assigning real speaker ids.
type stubDiarizer struct{}

func (stubDiarizer) PushAudio(context.Context, []float32) error { return nil }
func (stubDiarizer) AssignSpeakers(_ context.Context, watermark float64, tokens []coordinator.ASRToken) (float64, error) {
	if len(tokens) == 0 {
		return watermark, nil
	}
	return tokens[len(tokens)-1].EndSec, nil
}

