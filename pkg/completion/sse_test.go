package completion

import (
	"io"
	"strings"
	"testing"
)

func TestSSEReaderSingleEvent(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: hello\n\n"))
	ev, err := r.readEvent()
	if err != nil {
		t.Fatalf("readEvent: %v", err)
	}
	if string(ev) != "hello" {
		t.Fatalf("got %q", ev)
	}
	if _, err := r.readEvent(); err != io.EOF {
		t.Fatalf("err = %v, want EOF", err)
	}
}

func TestSSEReaderMultiLineData(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: first\ndata: second\n\n"))
	ev, err := r.readEvent()
	if err != nil {
		t.Fatalf("readEvent: %v", err)
	}
	if string(ev) != "first\nsecond" {
		t.Fatalf("got %q", ev)
	}
}

func TestSSEReaderIgnoresOtherFields(t *testing.T) {
	r := newSSEReader(strings.NewReader(": comment\nid: 7\nretry: 100\ndata: x\n\n"))
	ev, err := r.readEvent()
	if err != nil {
		t.Fatalf("readEvent: %v", err)
	}
	if string(ev) != "x" {
		t.Fatalf("got %q", ev)
	}
}

func TestSSEReaderFlushesTrailingDataAtEOF(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: tail"))
	ev, err := r.readEvent()
	if err != nil {
		t.Fatalf("readEvent: %v", err)
	}
	if string(ev) != "tail" {
		t.Fatalf("got %q", ev)
	}
}

func TestSSEReaderOversizeEvent(t *testing.T) {
	big := "data: " + strings.Repeat("x", maxEventSize+1) + "\n\n"
	r := newSSEReader(strings.NewReader(big))
	_, err := r.readEvent()
	if err != errEventTooLarge {
		t.Fatalf("err = %v, want errEventTooLarge", err)
	}
}
