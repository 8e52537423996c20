// Package observability starts the tracing, profiling and pprof sidecars shared
// by the league binaries.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

// Runtime owns everything Start brought up for one binary.
type Runtime struct {
	component       string
	logger          *logging.Logger
	shutdownTracing func(context.Context) error
	stopProfiler    func() error
	pprof           *http.Server
}

// Start brings up uptrace, pyroscope and pprof according to cfg. component
// ("api", "worker") tags traces and profiles from this process.
// A failure stops whatever was already started.
func Start(cfg config.Config, component string, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{
		component:       component,
		logger:          logger.Named("observability"),
		shutdownTracing: func(context.Context) error { return nil },
		stopProfiler:    func() error { return nil },
	}

	var err error
	if rt.shutdownTracing, err = initUptrace(cfg, component, rt.logger); err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	if rt.stopProfiler, err = initPyroscope(cfg, component, rt.logger); err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	if rt.pprof, err = startPprof(cfg, rt.logger); err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, fmt.Errorf("start pprof: %w", err)
	}

	return rt, nil
}

// Shutdown stops pprof first and flushes spans last so shutdown work is still traced.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	var errs []error
	if r.pprof != nil {
		if err := r.pprof.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop pprof: %w", err))
		}
		r.pprof = nil
	}
	if r.stopProfiler != nil {
		if err := r.stopProfiler(); err != nil {
			errs = append(errs, fmt.Errorf("stop pyroscope: %w", err))
		}
		r.stopProfiler = nil
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown uptrace: %w", err))
		}
		r.shutdownTracing = nil
	}

	if len(errs) == 0 {
		r.logger.Info("observability stopped", "component", r.component)
	}
	return errors.Join(errs...)
}
