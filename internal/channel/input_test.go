package channel

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestScanReader_PromptsAndEnds(t *testing.T) {
	var out bytes.Buffer
	var mu sync.Mutex
	r := newScanReader(strings.NewReader("one\ntwo"), &out, &mu)

	for _, want := range []string{"one", "two"} {
		got, err := r.ReadLine("> ")
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Errorf("line = %q, want %q", got, want)
		}
	}
	if _, err := r.ReadLine("> "); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
	if out.String() != "> > > " {
		t.Errorf("prompts = %q", out.String())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
