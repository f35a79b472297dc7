package shards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// DispatcherConfig bounds handler runs.
type DispatcherConfig struct {
	// HandlerTimeout caps each handler. Zero means only the caller's deadline applies.
	HandlerTimeout time.Duration
}

// Dispatcher runs the handlers for a message concurrently.
type Dispatcher struct {
	registry *Registry
	cfg      DispatcherConfig
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{registry: registry, cfg: cfg}
}

type job struct {
	cat     types.Category
	handler Handler
}

// Dispatch starts one handler per registered category and waits for all of them.
// Results come back in the order of categories; unregistered categories are
// skipped. When nothing could be started the result is a single failure.
func (d *Dispatcher) Dispatch(ctx context.Context, categories []types.Category, contexts types.ContextBundle, message string, history []types.Message) []types.TaskResult {
	timer := logging.StartTimer(logging.CategoryShards, "Dispatch")
	defer timer.Stop()

	jobs := make([]job, 0, len(categories))
	seen := make(map[types.Category]bool, len(categories))
	for _, cat := range categories {
		if seen[cat] {
			continue
		}
		seen[cat] = true
		h, ok := d.registry.Lookup(cat)
		if !ok {
			logging.ShardsWarn("No handler registered for %s, skipping", cat)
			continue
		}
		jobs = append(jobs, job{cat: cat, handler: h})
	}

	if len(jobs) == 0 {
		logging.ShardsError("No handler could be started for categories %v", categories)
		return []types.TaskResult{types.Failed(types.CategoryGeneral, types.ErrNoHandlers.Error(), 0)}
	}

	results := make([]types.TaskResult, len(jobs))
	// Handlers never return an error to the group, so one failure never cancels the rest.
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = d.run(ctx, j, contexts[j.cat], message, history)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	logging.Shards("Dispatched %d handlers: %d ok, %d failed", len(results), len(results)-failed, failed)
	return results
}

type outcome struct {
	reply types.HandlerReply
	err   error
}

func (d *Dispatcher) run(ctx context.Context, j job, hint, message string, history []types.Message) types.TaskResult {
	start := time.Now()

	hctx := ctx
	if d.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.cfg.HandlerTimeout)
		defer cancel()
	}
	hctx = usage.WithOperation(hctx, usage.OpHandler)

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		reply, err := j.handler.Process(hctx, message, history, hint)
		done <- outcome{reply: reply, err: err}
	}()

	var res types.TaskResult
	select {
	case o := <-done:
		res = toResult(j.cat, o, time.Since(start))
	case <-hctx.Done():
		res = types.Failed(j.cat, fmt.Sprintf("handler did not finish: %v", hctx.Err()), time.Since(start))
	}

	if !res.OK() {
		usage.RequestFromContext(ctx).RecordHandlerFailure(string(j.cat))
		logging.ShardsWarn("Handler %s failed after %v: %s", j.cat, res.Duration, res.Err)
	} else {
		logging.ShardsDebug("Handler %s finished in %v", j.cat, res.Duration)
	}
	return res
}

func toResult(cat types.Category, o outcome, elapsed time.Duration) types.TaskResult {
	if o.err != nil {
		return types.Failed(cat, o.err.Error(), elapsed)
	}
	if strings.TrimSpace(o.reply.Response) == "" {
		return types.Failed(cat, "handler returned an empty response", elapsed)
	}
	if o.reply.Category != "" && o.reply.Category != cat {
		logging.ShardsDebug("Handler for %s tagged its reply as %s", cat, o.reply.Category)
	}
	return types.Succeeded(cat, o.reply.Response, elapsed)
}
