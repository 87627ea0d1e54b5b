// Package inference runs the request pipeline: decode, normalize, forward
// pass and result shaping, under a single deadline.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Brownie44l1/predict-api/internal/imaging"
	"github.com/Brownie44l1/predict-api/internal/model"
)

// Result is the response body of a successful prediction.
type Result struct {
	Prediction any `json:"prediction"`
}

// Timings records how long each pipeline stage took.
type Timings struct {
	Decode    time.Duration
	Load      time.Duration
	Normalize time.Duration
	Infer     time.Duration
	Shape     time.Duration
}

func (t Timings) Total() time.Duration {
	return t.Decode + t.Load + t.Normalize + t.Infer + t.Shape
}

// Pipeline is stateless per request and safe for concurrent use.
type Pipeline struct {
	decoder *imaging.Decoder
	handle  *model.Handle
	opts    model.Options
	timeout time.Duration
	logger  *slog.Logger

	inflight sync.WaitGroup
}

// New returns a Pipeline. A non-positive timeout disables the deadline.
func New(decoder *imaging.Decoder, handle *model.Handle, opts model.Options, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		decoder: decoder,
		handle:  handle,
		opts:    opts,
		timeout: timeout,
		logger:  logger,
	}
}

type outcome struct {
	result *Result
	err    error
}

// Predict runs the full pipeline for one payload. It returns ErrTimeout when
// the deadline passes and context.Canceled when ctx is canceled. A timed-out
// run is abandoned; its result is discarded.
func (p *Pipeline) Predict(ctx context.Context, payload string) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		result, err := p.run(ctx, payload)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, p.contextErr(o.err)
		}
		return o.result, nil
	case <-ctx.Done():
		return nil, p.contextErr(ctx.Err())
	}
}

// Wait blocks until every run started by Predict has returned, including
// runs abandoned after a timeout, or until ctx is done. The model must not
// be closed while runs are in flight.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) run(ctx context.Context, payload string) (*Result, error) {
	var timings Timings

	start := time.Now()
	img, err := p.decoder.Decode(payload)
	timings.Decode = time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	m, err := p.handle.Get(ctx)
	timings.Load = time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	tensor, err := model.Normalize(img, p.opts)
	timings.Normalize = time.Since(start)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	out, err := m.Predict(ctx, tensor)
	timings.Infer = time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	prediction, err := model.Nest(out)
	timings.Shape = time.Since(start)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("prediction complete",
		"format", img.Format,
		"width", img.Width,
		"height", img.Height,
		"channels", img.Channels,
		"output_shape", out.Shape,
		"decode", timings.Decode,
		"load", timings.Load,
		"normalize", timings.Normalize,
		"infer", timings.Infer,
		"shape", timings.Shape,
		"total", timings.Total(),
	)

	return &Result{Prediction: prediction}, nil
}

func (p *Pipeline) contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	}
	return err
}
