package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"charchat/pkg/completion"
	"charchat/pkg/config"
	"charchat/pkg/models"
)

// fakeSource scripts one outcome per attempt. Each attempt may emit
// fragments before returning its error.
type fakeSource struct {
	attempts []scriptedAttempt
	calls    int
}

type scriptedAttempt struct {
	fragments []string
	err       error
}

func (f *fakeSource) StreamCompletion(ctx context.Context, msgs []models.ChatMessage, emit completion.EmitFunc) error {
	if f.calls >= len(f.attempts) {
		return errors.New("unexpected extra attempt")
	}
	a := f.attempts[f.calls]
	f.calls++
	for _, frag := range a.fragments {
		if err := emit(frag); err != nil {
			return err
		}
	}
	return a.err
}

func newTestRelay(src completion.Streamer) (*Relay, *[]time.Duration) {
	r := New(src, config.RetryConfig{})
	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestStreamSucceedsFirstAttempt(t *testing.T) {
	src := &fakeSource{attempts: []scriptedAttempt{{fragments: []string{"he", "llo"}}}}
	r, slept := newTestRelay(src)

	var got string
	err := r.Stream(context.Background(), nil, func(f string) error { got += f; return nil })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no backoff before first attempt, slept %v", *slept)
	}
}

func TestStreamRetriesWithExponentialBackoff(t *testing.T) {
	transient := &completion.Error{Kind: completion.KindRateLimited}
	src := &fakeSource{attempts: []scriptedAttempt{
		{err: transient},
		{err: transient},
		{fragments: []string{"ok"}},
	}}
	r, slept := newTestRelay(src)

	var got string
	err := r.Stream(context.Background(), nil, func(f string) error { got += f; return nil })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if src.calls != 3 {
		t.Fatalf("calls = %d, want 3", src.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("slept %v, want %v", *slept, want)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Fatalf("delay[%d] = %v, want %v", i, (*slept)[i], d)
		}
	}
	if got != "ok" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamExhaustsAttempts(t *testing.T) {
	transient := &completion.Error{Kind: completion.KindTransport, Msg: "upstream reset"}
	src := &fakeSource{attempts: []scriptedAttempt{
		{err: transient}, {err: transient}, {err: transient},
	}}
	r, slept := newTestRelay(src)

	err := r.Stream(context.Background(), nil, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if completion.KindOf(err) != completion.KindTransport {
		t.Fatalf("kind = %v", completion.KindOf(err))
	}
	if src.calls != 3 {
		t.Fatalf("calls = %d, want 3", src.calls)
	}
	// no delay after the final attempt
	if len(*slept) != 2 {
		t.Fatalf("slept %v, want two delays", *slept)
	}
}

func TestStreamNonRetryableFailsImmediately(t *testing.T) {
	for _, kind := range []completion.Kind{completion.KindInvalidCredentials, completion.KindContextTooLong} {
		src := &fakeSource{attempts: []scriptedAttempt{{err: &completion.Error{Kind: kind}}}}
		r, slept := newTestRelay(src)

		err := r.Stream(context.Background(), nil, func(string) error { return nil })
		if completion.KindOf(err) != kind {
			t.Fatalf("kind = %v, want %v", completion.KindOf(err), kind)
		}
		if src.calls != 1 {
			t.Fatalf("calls = %d, want 1 for %v", src.calls, kind)
		}
		if len(*slept) != 0 {
			t.Fatalf("unexpected backoff for %v: %v", kind, *slept)
		}
	}
}

func TestStreamFragmentsSurviveRetry(t *testing.T) {
	// A mid-stream failure after partial output retries from scratch;
	// the caller sees both attempts' fragments concatenated.
	src := &fakeSource{attempts: []scriptedAttempt{
		{fragments: []string{"partial "}, err: &completion.Error{Kind: completion.KindTransport}},
		{fragments: []string{"full reply"}},
	}}
	r, _ := newTestRelay(src)

	var got string
	if err := r.Stream(context.Background(), nil, func(f string) error { got += f; return nil }); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got != "partial full reply" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{attempts: []scriptedAttempt{
		{err: &completion.Error{Kind: completion.KindTransport}},
		{fragments: []string{"never"}},
	}}
	r := New(src, config.RetryConfig{})
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := r.Stream(ctx, nil, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if src.calls != 1 {
		t.Fatalf("calls = %d, want 1", src.calls)
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(&fakeSource{}, config.RetryConfig{})
	if r.maxAttempts != 3 {
		t.Fatalf("maxAttempts = %d", r.maxAttempts)
	}
	if r.baseDelay != time.Second {
		t.Fatalf("baseDelay = %v", r.baseDelay)
	}
}
