package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fwpanel/internal/backend"
	fwerrors "fwpanel/internal/errors"
	"fwpanel/internal/metrics"

	"github.com/google/uuid"
)

// ErrSuperseded is returned to a capture whose outcome was dropped because a
// newer capture started before it resolved.
var ErrSuperseded = errors.New("capture superseded by a newer request")

// errAwaited guards against issuing a second request from one Pending.
var errAwaited = errors.New("capture already awaited")

// Classifier is the capture/classification collaborator.
type Classifier interface {
	StartCapture(ctx context.Context, operator string) (*backend.CaptureResult, error)
}

// Mitigator is the drop-packets collaborator.
type Mitigator interface {
	DropPackets(ctx context.Context, ip string) error
}

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	CaptureTimeout    time.Duration
	MitigationTimeout time.Duration
	HistorySize       int
	Logger            *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = 60 * time.Second
	}
	if o.MitigationTimeout <= 0 {
		o.MitigationTimeout = 10 * time.Second
	}
	if o.HistorySize <= 0 {
		o.HistorySize = 20
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Controller owns the capture session and drives mitigation requests.
// It is safe for concurrent use; only the most recently started capture
// may change the session.
type Controller struct {
	classifier Classifier
	mitigator  Mitigator
	opts       Options
	logger     *slog.Logger
	outcomes   *outcomeLog

	mu         sync.Mutex
	session    Snapshot
	generation uint64
	cancel     context.CancelFunc
}

// New creates a controller in the Idle state.
func New(classifier Classifier, mitigator Mitigator, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		classifier: classifier,
		mitigator:  mitigator,
		opts:       opts,
		logger:     opts.Logger,
		outcomes:   newOutcomeLog(opts.HistorySize),
		session:    Snapshot{Status: Idle},
	}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Pending is a capture that has entered Capturing but not been sent yet.
type Pending struct {
	c          *Controller
	generation uint64
	captureID  string
	operator   string
	superseded context.Context
	release    context.CancelFunc
	awaited    atomic.Bool
}

// Generation identifies the capture cycle this handle belongs to.
func (p *Pending) Generation() uint64 {
	return p.generation
}

// Begin moves the session to Capturing, clearing the previous results, and
// supersedes any capture still in flight.
func (c *Controller) Begin(operator string) *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	superseded, release := context.WithCancel(context.Background())
	c.cancel = release

	c.session = Snapshot{
		Status:     Capturing,
		Generation: c.generation,
		CaptureID:  uuid.NewString(),
		Operator:   operator,
		StartedAt:  time.Now(),
	}
	c.logger.Info("capture started",
		"capture_id", c.session.CaptureID,
		"generation", c.generation,
		"operator", operator)

	return &Pending{
		c:          c,
		generation: c.generation,
		captureID:  c.session.CaptureID,
		operator:   operator,
		superseded: superseded,
		release:    release,
	}
}

// StartCapture runs one full capture cycle and returns the resulting session.
// A failed cycle returns the Failed snapshot together with the cause.
func (c *Controller) StartCapture(ctx context.Context, operator string) (Snapshot, error) {
	return c.Begin(operator).Await(ctx)
}

// Await issues the capture request and applies its outcome if this capture
// is still the most recent one. Otherwise the outcome is dropped and
// ErrSuperseded is returned with the current session.
func (p *Pending) Await(ctx context.Context) (Snapshot, error) {
	if !p.awaited.CompareAndSwap(false, true) {
		return p.c.Snapshot(), errAwaited
	}
	defer p.release()

	ctx, cancel := context.WithTimeout(ctx, p.c.opts.CaptureTimeout)
	defer cancel()
	stop := context.AfterFunc(p.superseded, cancel)
	defer stop()

	start := time.Now()
	res, err := bounded(ctx, func(ctx context.Context) (*backend.CaptureResult, error) {
		return p.c.classifier.StartCapture(ctx, p.operator)
	})
	if err == nil {
		err = validate(res)
	}
	return p.c.resolve(p, res, err, time.Since(start))
}

func (c *Controller) resolve(p *Pending, res *backend.CaptureResult, err error, elapsed time.Duration) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.generation != c.generation {
		c.logger.Debug("dropping stale capture outcome",
			"capture_id", p.captureID,
			"generation", p.generation,
			"current_generation", c.generation)
		metrics.ObserveCapture(elapsed, metrics.OutcomeStale, 0)
		return c.session.clone(), ErrSuperseded
	}
	c.cancel = nil

	s := &c.session
	s.FinishedAt = time.Now()

	if err != nil {
		s.Status = Failed
		s.ErrorMessage = CaptureFailedMessage
		s.Err = err
		s.Predictions = nil
		s.Packets = nil
		c.logger.Warn("capture failed",
			"capture_id", p.captureID,
			"generation", p.generation,
			"kind", fwerrors.GetKind(err).String(),
			"duration", elapsed,
			"error", err)
		metrics.ObserveCapture(elapsed, metrics.OutcomeError, 0)
		return s.clone(), err
	}

	s.Status = Succeeded
	s.Predictions = res.Predictions
	s.Packets = res.Packets
	if containsThreat(s.Predictions) {
		s.Banner = ThreatBanner
	}

	counts := s.Counts()
	c.logger.Info("capture completed",
		"capture_id", p.captureID,
		"generation", p.generation,
		"packets", len(s.Packets),
		"threats", counts.Threat,
		"duration", elapsed)
	metrics.ObserveCapture(elapsed, metrics.OutcomeSuccess, counts.Threat)
	return s.clone(), nil
}

// validate enforces the positional contract between predictions and packets.
func validate(res *backend.CaptureResult) error {
	if res == nil {
		return fwerrors.New(fwerrors.KindDataIntegrity, "capture returned no result")
	}
	if len(res.Predictions) != len(res.Packets) {
		err := fwerrors.Errorf(fwerrors.KindDataIntegrity,
			"received %d predictions for %d packets", len(res.Predictions), len(res.Packets))
		err = fwerrors.Attr(err, "predictions", len(res.Predictions))
		return fwerrors.Attr(err, "packets", len(res.Packets))
	}
	for i, p := range res.Predictions {
		if p != PredictionNormal && p != PredictionThreat {
			err := fwerrors.Errorf(fwerrors.KindDataIntegrity, "prediction %d is %d, expected 0 or 1", i, p)
			return fwerrors.Attr(err, "index", i)
		}
	}
	return nil
}

// bounded runs fn but returns as soon as ctx is done, even if fn ignores it.
func bounded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type reply struct {
		v   T
		err error
	}
	done := make(chan reply, 1)
	go func() {
		v, err := fn(ctx)
		done <- reply{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && fwerrors.GetKind(r.err) != fwerrors.KindTimeout {
			r.err = fwerrors.Wrap(r.err, fwerrors.KindTimeout, "request timed out")
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fwerrors.Wrap(ctx.Err(), fwerrors.KindTimeout, "request timed out")
		}
		return zero, fwerrors.Wrap(ctx.Err(), fwerrors.KindTransport, "request cancelled")
	}
}
