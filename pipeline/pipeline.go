package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	kiln "github.com/spetersoncode/kiln"
)

// Pipeline is a compiled, runnable pipeline. Build one with the Builder.
// A Pipeline executes one run at a time; concurrent Run calls are not
// supported.
type Pipeline struct {
	name    string
	workers int
	rt      *runtime
	chain   *chain

	source      sourceKind
	rangeStart  int
	rangeStop   int
	rangeStep   int
	datasetName string
}

// Report summarizes one finished run.
type Report struct {
	RunID     string
	Total     int
	Processed int
	Failed    int
	Duration  time.Duration
}

// item is one dispatched source record.
type item struct {
	index int
	row   kiln.Row
	order []string
}

// Run drives every source item through the step chain with the configured
// worker pool and blocks until all in-flight records finish. Each item is
// consumed by exactly one worker; output order across workers is not
// guaranteed unless the pool size is 1.
//
// Cancelling ctx stops dispatching new items and lets in-flight records
// drain. Per-record failures are counted and logged; infrastructure errors
// abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.New().String()
	p.rt.runID = runID

	if p.rt.store != nil {
		if err := p.rt.store.CreateRun(ctx, runID, p.name); err != nil {
			return nil, infra(err)
		}
	}

	p.rt.logger.Info("run started",
		"pipeline", p.name,
		"run_id", runID,
		"workers", p.workers)
	p.rt.emit(Event{Type: RunStart, RunID: runID})

	var processed, failed atomic.Int64

	items := make(chan item)
	g, gctx := errgroup.WithContext(ctx)

	// Single dispatcher feeding the channel is the mutually exclusive
	// cursor: no two workers ever receive the same item.
	g.Go(func() error {
		defer close(items)
		return p.dispatch(gctx, items)
	})

	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			for it := range items {
				if err := p.processItem(gctx, it, &processed, &failed); err != nil {
					return err
				}
			}
			return nil
		})
	}

	runErr := g.Wait()

	report := &Report{
		RunID:     runID,
		Total:     int(processed.Load() + failed.Load()),
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}

	status := "completed"
	switch {
	case runErr != nil:
		status = "failed"
	case ctx.Err() != nil:
		status = "cancelled"
	}
	if p.rt.store != nil {
		// Finalize with a fresh context so cancellation does not lose the
		// audit record.
		finCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.rt.store.FinishRun(finCtx, runID, report.Total, status); err != nil && runErr == nil {
			runErr = infra(err)
		}
	}

	p.rt.logger.Info("run finished",
		"pipeline", p.name,
		"run_id", runID,
		"status", status,
		"processed", report.Processed,
		"failed", report.Failed,
		"duration", report.Duration)
	p.rt.emit(Event{
		Type:      RunEnd,
		RunID:     runID,
		Processed: report.Processed,
		Failed:    report.Failed,
	})

	if runErr != nil {
		return report, runErr
	}
	return report, ctx.Err()
}

// dispatch feeds source items to the workers until the source is exhausted
// or the context is cancelled.
func (p *Pipeline) dispatch(ctx context.Context, items chan<- item) error {
	send := func(it item) bool {
		select {
		case items <- it:
			return true
		case <-ctx.Done():
			return false
		}
	}

	switch p.source {
	case sourceRange:
		for i := p.rangeStart; i < p.rangeStop; i += p.rangeStep {
			if !send(item{index: i}) {
				return nil
			}
		}
	case sourceDataset:
		ds := p.rt.datasets[p.datasetName]
		order := columnOrder(ds)
		for i := 0; i < ds.Len(); i++ {
			if !send(item{index: i, row: ds.Row(i), order: order}) {
				return nil
			}
		}
	}
	return nil
}

// columnOrder returns a stable column ordering for dataset rows when the
// dataset exposes one.
func columnOrder(ds kiln.Dataset) []string {
	type ordered interface {
		Columns() []string
	}
	if o, ok := ds.(ordered); ok {
		return o.Columns()
	}
	return nil
}

func (p *Pipeline) processItem(ctx context.Context, it item, processed, failed *atomic.Int64) error {
	var c *kiln.Context
	if it.row != nil {
		c = kiln.NewContextFromRow(it.index, it.row, it.order)
	} else {
		c = kiln.NewContext(it.index)
	}

	if err := p.chain.run(ctx, c); err != nil {
		// Infrastructure failure: record the aborted item, surface the error.
		p.recordItem(c)
		return err
	}
	c.Complete()
	p.recordItem(c)

	if c.Failed() {
		failed.Add(1)
		p.rt.emit(Event{Type: ItemFailed, RunID: p.rt.runID, Index: c.Index()})
	} else {
		processed.Add(1)
		p.rt.emit(Event{Type: ItemCompleted, RunID: p.rt.runID, Index: c.Index()})
	}
	return nil
}

// recordItem persists the item outcome for auditing. Best effort: a failed
// audit write logs but does not fail the record.
func (p *Pipeline) recordItem(c *kiln.Context) {
	if p.rt.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.rt.store.AddItem(ctx, p.rt.runID, c.Index(), c.Status().String()); err != nil {
		p.rt.logger.Error("item audit write failed",
			"pipeline", p.name,
			"run_id", p.rt.runID,
			"index", c.Index(),
			"error", err)
	}
}

// Close releases the pipeline's resources: output sinks and the state
// store.
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.rt.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if p.rt.store != nil {
		if err := p.rt.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }
