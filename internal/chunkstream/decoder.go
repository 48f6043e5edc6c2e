// Package chunkstream implements the newline-delimited, prefix-tagged text
// stream spoken between the chat endpoints and their clients.
//
// Recognised lines:
//
//	f:{"messageId":"msg-1"}        stream start
//	0:"hello \"world\""            text delta (any decimal tag)
//	e:{"finishReason":"stop",...}  end of step
//	d:{"finishReason":"stop",...}  done
//	[DONE]                         done sentinel
//
// Any line may carry an SSE "data: " prefix.
package chunkstream

import (
	"bytes"
	"encoding/json"
)

type State int

const (
	AwaitLine State = iota
	TaggedText
	Metadata
	Done
)

func (s State) String() string {
	switch s {
	case AwaitLine:
		return "await_line"
	case TaggedText:
		return "tagged_text"
	case Metadata:
		return "metadata"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// Decoder reconstructs the plain text carried by a chunk stream. Input may be
// split at arbitrary byte boundaries; a line is only interpreted once its
// terminating newline arrives or Close is called.
type Decoder struct {
	state        State
	pending      []byte
	text         bytes.Buffer
	finishReason string
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write feeds raw stream bytes to the decoder. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 && d.state != Done {
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			d.pending = append(d.pending, p...)
			d.state = classify(d.pending)
			break
		}
		d.pending = append(d.pending, p[:idx]...)
		d.processLine(d.pending)
		d.pending = d.pending[:0]
		p = p[idx+1:]
	}
	return n, nil
}

// Close interprets a trailing line that was not newline-terminated.
func (d *Decoder) Close() error {
	if d.state != Done && len(d.pending) > 0 {
		d.processLine(d.pending)
	}
	d.pending = nil
	return nil
}

func (d *Decoder) Text() string {
	return d.text.String()
}

func (d *Decoder) Done() bool {
	return d.state == Done
}

func (d *Decoder) State() State {
	return d.state
}

func (d *Decoder) FinishReason() string {
	return d.finishReason
}

func (d *Decoder) Reset() {
	d.state = AwaitLine
	d.pending = d.pending[:0]
	d.text.Reset()
	d.finishReason = ""
}

func (d *Decoder) processLine(raw []byte) {
	line := normalizeLine(raw)
	d.state = AwaitLine
	if len(line) == 0 {
		return
	}

	if bytes.Equal(line, doneSentinel) {
		d.state = Done
		return
	}

	if payload, ok := taggedPayload(line); ok {
		var delta string
		if err := json.Unmarshal(payload, &delta); err == nil {
			d.text.WriteString(delta)
		}
		return
	}

	if len(line) < 2 || line[1] != ':' {
		return
	}
	switch line[0] {
	case 'e':
		d.readFinishReason(line[2:])
	case 'd':
		d.readFinishReason(line[2:])
		d.state = Done
	}
}

func (d *Decoder) readFinishReason(payload []byte) {
	var meta struct {
		FinishReason string `json:"finishReason"`
	}
	if err := json.Unmarshal(payload, &meta); err == nil && meta.FinishReason != "" {
		d.finishReason = meta.FinishReason
	}
}

func normalizeLine(raw []byte) []byte {
	line := bytes.TrimRight(raw, "\r")
	line = bytes.TrimSpace(line)
	if bytes.HasPrefix(line, dataPrefix) {
		line = bytes.TrimSpace(line[len(dataPrefix):])
	}
	return line
}

// taggedPayload returns the quoted JSON string of a `<digits>:"..."` line.
func taggedPayload(line []byte) ([]byte, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+1 >= len(line) || line[i] != ':' || line[i+1] != '"' {
		return nil, false
	}
	return line[i+1:], true
}

// classify reports what kind of line a partial buffer is turning into.
func classify(partial []byte) State {
	line := bytes.TrimLeft(partial, " \t")
	if bytes.HasPrefix(line, dataPrefix) {
		line = bytes.TrimLeft(line[len(dataPrefix):], " \t")
	}
	if len(line) == 0 {
		return AwaitLine
	}
	if line[0] >= '0' && line[0] <= '9' {
		if _, ok := taggedPayload(line); ok {
			return TaggedText
		}
		if bytes.IndexByte(line, ':') < 0 {
			return AwaitLine
		}
	}
	return Metadata
}
