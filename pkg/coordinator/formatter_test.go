package coordinator

import "testing"

func TestFormatTimeMemoizationR1(t *testing.T) {
	a := formatTime(3725)
	b := formatTime(3725)
	if a != b {
		t.Fatalf("formatTime not stable across calls: %q vs %q", a, b)
	}
	if a != "1:02:05" {
		t.Fatalf("unexpected formatting: %q", a)
	}
}

func TestFormatTimeNegativeClampsToZero(t *testing.T) {
	if got := formatTime(-5); got != "0:00:00" {
		t.Fatalf("expected clamp to zero, got %q", got)
	}
}

func TestFormatSpeakerModeStableP6(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "hello ", Speaker: 0},
		{StartSec: 1, EndSec: 2, Text: "world ", Speaker: 0},
		{StartSec: 2, EndSec: 3, Text: "hi ", Speaker: 1},
	}
	first, firstTail := FormatSpeakerMode(tokens, 3, "")
	second, secondTail := FormatSpeakerMode(tokens, 3, "")

	if len(first) != len(second) {
		t.Fatalf("line count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("line %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if firstTail != secondTail {
		t.Fatalf("diarization tail differs: %q vs %q", firstTail, secondTail)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 speaker groups, got %d", len(first))
	}
}

func TestFormatSpeakerModeUnattributedInheritsPrior(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "hello ", Speaker: 1},
		{StartSec: 1, EndSec: 2, Text: "world ", Speaker: -1},
	}
	// watermark ahead of both tokens: the unattributed token is below the
	// watermark so it inherits the prior speaker, not speaker 0.
	lines, tail := FormatSpeakerMode(tokens, 5, "")
	if len(lines) != 1 {
		t.Fatalf("expected tokens merged into one line by inheritance, got %d lines: %+v", len(lines), lines)
	}
	if lines[0].Speaker != 1 {
		t.Fatalf("expected inherited speaker 1, got %d", lines[0].Speaker)
	}
	if tail != "" {
		t.Fatalf("expected no diarization tail when token inherits speaker, got %q", tail)
	}
}

func TestFormatSpeakerModeUnattributedAboveWatermarkIsSpeakerZero(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "hello ", Speaker: -1},
	}
	lines, tail := FormatSpeakerMode(tokens, 0, "")
	if len(lines) != 1 || lines[0].Speaker != 0 {
		t.Fatalf("expected speaker 0 for unattributed token past watermark, got %+v", lines)
	}
	if tail != "hello " {
		t.Fatalf("expected diarization tail to carry the unattributed text, got %q", tail)
	}
}

func TestFormatSpeakerModeJoinsSameSpeakerTokensWithSep(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "hello", Speaker: 0},
		{StartSec: 1, EndSec: 2, Text: "world", Speaker: 0},
	}
	lines, _ := FormatSpeakerMode(tokens, 2, " ")
	if len(lines) != 1 {
		t.Fatalf("expected tokens merged into one speaker group, got %d lines: %+v", len(lines), lines)
	}
	if lines[0].Text != "hello world" {
		t.Fatalf("expected sep-joined text %q, got %q", "hello world", lines[0].Text)
	}
}

func TestFormatSpeakerModeJoinsUnattributedTailWithSep(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "hello", Speaker: -1},
		{StartSec: 1, EndSec: 2, Text: "world", Speaker: -1},
	}
	_, tail := FormatSpeakerMode(tokens, 0, " ")
	if tail != "hello world" {
		t.Fatalf("expected sep-joined diarization tail %q, got %q", "hello world", tail)
	}
}

type fakeTokenizer struct{ sentences []string }

func (f fakeTokenizer) Sentences(string) []string { return f.sentences }

func TestFormatSentenceModeUsesEngineTokenizer(t *testing.T) {
	tokens := []ASRToken{
		{StartSec: 0, EndSec: 1, Text: "Hello", Speaker: 0},
		{StartSec: 1, EndSec: 2, Text: " world.", Speaker: 0},
	}
	lines := FormatSentenceMode(tokens, "", fakeTokenizer{sentences: []string{"Hello world."}})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "Hello world." {
		t.Fatalf("unexpected sentence text: %q", lines[0].Text)
	}
}

func TestFormatSentenceModeEmptyTokensYieldsNil(t *testing.T) {
	if lines := FormatSentenceMode(nil, " ", nil); lines != nil {
		t.Fatalf("expected nil lines for empty input, got %+v", lines)
	}
}
