package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunHeadless drives the engine at the configured frame rate without a
// window until ctx is cancelled or MaxTicks frames have run.
func (a *App) RunHeadless(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.serve(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return a.loop(ctx)
	})
	return g.Wait()
}

func (a *App) loop(ctx context.Context) error {
	fps := a.cfg.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	ticker := a.clock.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.Mount()
	a.logger.Info("starting headless loop", "fps", fps, "max_ticks", a.opts.MaxTicks)

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}

		a.Tick(DT)
		ticks++
		if a.opts.MaxTicks > 0 && ticks >= a.opts.MaxTicks {
			a.logger.Info("max ticks reached", "tick", ticks, "grid_cells", a.overlay.Grid().Len())
			return nil
		}
	}
}
