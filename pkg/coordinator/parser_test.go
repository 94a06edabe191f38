package coordinator

import (
	"context"
	"testing"
	"time"
)

func TestParserInvokerCallsOnParsedAndTracksStats(t *testing.T) {
	client := &fakeParserClient{}
	received := make(chan ParsedTranscript, 1)
	p := NewParserInvoker(client, Config{}, nil, func(pt ParsedTranscript) { received <- pt })

	p.InvokeAsync(context.Background(), "hello world", 2)

	select {
	case pt := <-received:
		if pt.ParsedText != "hello world" {
			t.Fatalf("unexpected parsed text: %q", pt.ParsedText)
		}
		if len(pt.Speakers) != 1 || pt.Speakers[0] != 2 {
			t.Fatalf("expected speaker hint [2], got %+v", pt.Speakers)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected onParsed callback within 1s")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.Stats().TotalParsed == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected TotalParsed to reach 1")
}

func TestParserInvokerEmptyTextIsNoop(t *testing.T) {
	client := &fakeParserClient{}
	p := NewParserInvoker(client, Config{}, nil, nil)
	p.InvokeAsync(context.Background(), "", 0)
	time.Sleep(50 * time.Millisecond)
	if client.callCount() != 0 {
		t.Fatalf("expected no client call for empty text, got %d", client.callCount())
	}
}

func TestParserInvokerFailureDoesNotCallOnParsed(t *testing.T) {
	client := &fakeParserClient{err: errFake}
	called := false
	p := NewParserInvoker(client, Config{}, nil, func(ParsedTranscript) { called = true })

	p.InvokeAsync(context.Background(), "text", 0)
	time.Sleep(100 * time.Millisecond)

	if called {
		t.Fatalf("expected onParsed not to be called on failure")
	}
	if got := p.Stats().TotalParsed; got != 0 {
		t.Fatalf("expected TotalParsed to stay 0 on failure, got %d", got)
	}
}
