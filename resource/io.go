package resource

import (
	"context"
	"io"
)

// RateLimitedWriter charges every write against the controller's IO budget
// before passing it on. It stops with the context error once ctx is done,
// even when no IO limit is configured.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
	n   int64
}

// NewRateLimitedWriter wraps w. A nil controller only adds the context check.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

// Written returns the number of bytes passed to the underlying writer.
func (w *RateLimitedWriter) Written() int64 { return w.n }

// RateLimitedReader charges bytes against the IO budget after they are read,
// so a restore never reads ahead of its budget by more than one buffer.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
	n   int64
}

// NewRateLimitedReader wraps r. A nil controller only adds the context check.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	r.n += int64(n)
	if n > 0 {
		if lerr := r.rc.AcquireIO(r.ctx, n); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read from the underlying reader.
func (r *RateLimitedReader) BytesRead() int64 { return r.n }
