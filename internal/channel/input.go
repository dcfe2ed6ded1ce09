package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
)

// lineReader yields one line of user input per call. io.EOF ends the REPL.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// scanReader reads plain lines from any reader. Used for pipes and tests.
type scanReader struct {
	sc    *bufio.Scanner
	out   io.Writer
	outMu *sync.Mutex
}

func newScanReader(in io.Reader, out io.Writer, outMu *sync.Mutex) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &scanReader{sc: sc, out: out, outMu: outMu}
}

func (r *scanReader) ReadLine(prompt string) (string, error) {
	r.outMu.Lock()
	_, _ = fmt.Fprint(r.out, prompt)
	r.outMu.Unlock()
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) Close() error { return nil }

// editReader is a terminal line editor with persistent history.
type editReader struct {
	line        *liner.State
	historyFile string
}

func newEditReader(historyFile string) *editReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	r := &editReader{line: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *editReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close writes the history back (owner-only) and restores the terminal.
func (r *editReader) Close() error {
	defer r.line.Close()
	if r.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.line.WriteHistory(f)
	return err
}
