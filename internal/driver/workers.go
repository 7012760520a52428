package driver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"vbscope/internal/source"
	"vbscope/internal/state"
)

// each runs fn for indices [0, n) on the worker pool. It stops handing out
// work once ctx is done and then returns a cancellation error.
func (p *Pipeline) each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.jobs)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return cancelled(gctx)
			}
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	return nil
}

// transition reports a stage change. The pipeline only asks for moves the
// machine allows, so a rejected one is a bug in the caller and is dropped.
func (p *Pipeline) transition(id source.ModuleID, stage state.Stage, err error) {
	_ = p.state.Transition(id, stage, err)
}
