package dosing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/rs/xid"
)

// Confirmer presents a bolus confirmation to the user
type Confirmer interface {
	Confirm(ctx context.Context, req models.ConfirmationRequest)
}

// Request is one running recalculation. It has its own context and is not
// cancelled when the caller that triggered it goes away.
type Request struct {
	ID        xid.ID
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed when the recalculation has finished
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Err returns the engine error. Only valid after Done is closed.
func (r *Request) Err() error {
	return r.err
}

// Cancel aborts the recalculation
func (r *Request) Cancel() {
	r.cancel()
}

// Dispatcher runs recalculations on the engine and forwards confirmation
// requests. It implements the intake dosing port.
type Dispatcher struct {
	engine    Engine
	confirmer Confirmer
	logger    *slog.Logger

	mu     sync.Mutex
	active map[xid.ID]*Request
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher
func NewDispatcher(engine Engine, confirmer Confirmer) *Dispatcher {
	return &Dispatcher{
		engine:    engine,
		confirmer: confirmer,
		logger:    slog.Default(),
		active:    make(map[xid.ID]*Request),
	}
}

// WithLogger sets the logger
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	d.logger = logger
	return d
}

// Trigger starts a recalculation and returns immediately
func (d *Dispatcher) Trigger() *Request {
	ctx, cancel := context.WithCancel(context.Background())
	req := &Request{
		ID:        xid.New(),
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	d.mu.Lock()
	d.active[req.ID] = req
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		req.err = d.engine.DetermineBasal(req.ctx)

		d.mu.Lock()
		delete(d.active, req.ID)
		d.mu.Unlock()

		if req.err != nil {
			d.logger.Warn("dosing recalculation failed", "request", req.ID.String(), "error", req.err)
		} else {
			d.logger.Debug("dosing recalculation done", "request", req.ID.String(),
				"duration", time.Since(req.StartedAt))
		}
		close(req.done)
	}()

	return req
}

// RecalculateSynchronously triggers a recalculation and waits for it. If ctx
// ends first the recalculation keeps running and ctx.Err() is returned.
func (d *Dispatcher) RecalculateSynchronously(ctx context.Context) error {
	req := d.Trigger()
	select {
	case <-req.Done():
		return req.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestConfirmation hands the request to the confirmer
func (d *Dispatcher) RequestConfirmation(ctx context.Context, req models.ConfirmationRequest) {
	if d.confirmer == nil {
		d.logger.Warn("no confirmer configured, dropping confirmation request",
			"carbs", req.Carbs.String(), "equivalents", len(req.Equivalents))
		return
	}
	d.confirmer.Confirm(ctx, req)
}

// Active returns the ids of recalculations still running
func (d *Dispatcher) Active() []xid.ID {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]xid.ID, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown cancels running recalculations and waits for them until ctx ends
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	for _, req := range d.active {
		req.Cancel()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
