// Package relay forwards an upstream chunk stream to the client byte for byte
// while decoding it, and saves the assembled reply once the stream settles.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"oneai/backend/internal/chunkstream"
)

const (
	defaultBufferSize     = 4 * 1024
	defaultPersistTimeout = 10 * time.Second
)

// PersistFunc stores the decoded assistant text.
type PersistFunc func(ctx context.Context, text string) error

type Outcome struct {
	Text           string
	Done           bool
	ClientGone     bool
	BytesForwarded int64
}

type Relay struct {
	logger         *slog.Logger
	persistTimeout time.Duration
	bufferSize     int
}

func New(logger *slog.Logger, persistTimeout time.Duration) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}
	return &Relay{logger: logger, persistTimeout: persistTimeout, bufferSize: defaultBufferSize}
}

// Stream copies src to dst, flushing after every read when dst is an
// http.Flusher. persist runs exactly once: when the done line is seen, or
// when the source ends, fails, or the client goes away, whichever is first.
// The returned error is the upstream read error, if any.
func (r *Relay) Stream(ctx context.Context, src io.Reader, dst io.Writer, persist PersistFunc) (Outcome, error) {
	var (
		out       Outcome
		readErr   error
		persisted bool
		buf       = make([]byte, r.bufferSize)
		decoder   = chunkstream.NewDecoder()
	)
	flusher, _ := dst.(http.Flusher)

	save := func() {
		if persisted {
			return
		}
		persisted = true
		out.Text = decoder.Text()
		r.persist(ctx, persist, out.Text)
	}

	for {
		if ctx.Err() != nil {
			out.ClientGone = true
			break
		}

		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !out.ClientGone {
				if _, werr := dst.Write(chunk); werr != nil {
					out.ClientGone = true
				} else {
					out.BytesForwarded += int64(n)
					if flusher != nil {
						flusher.Flush()
					}
				}
			}
			_, _ = decoder.Write(chunk)
			if decoder.Done() {
				save()
			}
			if out.ClientGone {
				break
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				out.ClientGone = true
			} else {
				readErr = err
			}
			break
		}
	}

	_ = decoder.Close()
	out.Done = decoder.Done()
	save()
	return out, readErr
}

func (r *Relay) persist(ctx context.Context, persist PersistFunc, text string) {
	if persist == nil {
		return
	}
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.persistTimeout)
	defer cancel()
	if err := persist(persistCtx, text); err != nil {
		r.logger.Error("persist assistant reply failed", "err", err, "chars", len(text))
	}
}
