package cli

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/dmitrijs2005/docqa/internal/logging"
)

// Dispatcher runs operations in the background and recovers any panic they
// raise, reporting it to the status channel as an internal error.
type Dispatcher struct {
	wg     sync.WaitGroup
	status *status.Channel
	logger logging.Logger
}

func NewDispatcher(ch *status.Channel, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{status: ch, logger: logger}
}

// Go runs fn in a new goroutine.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.recover(ctx, name)
		fn(ctx)
	}()
}

// Wait blocks until every operation started with Go has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) recover(ctx context.Context, name string) {
	if r := recover(); r != nil {
		d.report(ctx, name, r)
	}
}

// report logs a recovered panic and shows it as an internal error.
func (d *Dispatcher) report(ctx context.Context, name string, r any) {
	d.logger.Error(ctx, "operation panicked", "op", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	d.status.ReportKind(status.KindInternal, fmt.Sprintf("Internal error: %v", r), status.Warn)
}
