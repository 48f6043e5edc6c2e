package chunkstream

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// Source yields text deltas. Next returns io.EOF once the model turn ended
// normally; any other error aborts the stream.
type Source interface {
	Next() (string, error)
	Close() error
}

// UsageReporter is implemented by sources that learn real token counts from
// the vendor.
type UsageReporter interface {
	Usage() (Usage, bool)
}

type ReaderOptions struct {
	MessageID    string
	PromptTokens int
	CountTokens  func(string) int
}

// Reader encodes a Source as chunk-protocol bytes. Deltas are pulled from the
// source only when the caller reads, so no goroutine is involved.
type Reader struct {
	src        Source
	opts       ReaderOptions
	buf        bytes.Buffer
	completion strings.Builder
	started    bool
	finished   bool
	err        error
}

func NewReader(src Source, opts ReaderOptions) *Reader {
	if opts.MessageID == "" {
		opts.MessageID = NewMessageID()
	}
	return &Reader{src: src, opts: opts}
}

func (r *Reader) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}
	return r.buf.Read(p)
}

func (r *Reader) Close() error {
	return r.src.Close()
}

func (r *Reader) fill() {
	if !r.started {
		r.started = true
		r.buf.Write(StartLine(r.opts.MessageID))
		return
	}
	if r.finished {
		r.err = io.EOF
		return
	}

	delta, err := r.src.Next()
	if delta != "" {
		r.buf.Write(TextLine(delta))
		r.completion.WriteString(delta)
	}
	switch {
	case errors.Is(err, io.EOF):
		r.finished = true
		usage := r.usage()
		r.buf.Write(StepFinishLine(FinishStop, usage))
		r.buf.Write(DoneLine(FinishStop, usage))
	case err != nil:
		r.err = err
	}
}

func (r *Reader) usage() Usage {
	if reporter, ok := r.src.(UsageReporter); ok {
		if usage, ok := reporter.Usage(); ok {
			return usage
		}
	}
	usage := Usage{PromptTokens: r.opts.PromptTokens}
	if r.opts.CountTokens != nil {
		usage.CompletionTokens = r.opts.CountTokens(r.completion.String())
	} else {
		usage.CompletionTokens = len(strings.Fields(r.completion.String()))
	}
	return usage
}

// SliceSource replays fixed deltas.
type SliceSource struct {
	deltas []string
	pos    int
}

func NewSliceSource(deltas ...string) *SliceSource {
	return &SliceSource{deltas: deltas}
}

func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *SliceSource) Close() error {
	return nil
}

// Synthesize streams canned text in 15-word chunks, framed like a model reply.
func Synthesize(text string, opts ReaderOptions) *Reader {
	return NewReader(NewSliceSource(WordChunks(text, 15)...), opts)
}
