package observability

import (
	"context"
	"net"
	"testing"

	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

func TestStart_AllDisabled(t *testing.T) {
	cfg := config.Config{
		ServiceName:    "kart-league",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	rt, err := Start(cfg, "api", logging.NewNop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.pprof != nil {
		t.Fatalf("expected no pprof server")
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestStart_UptraceWithoutDSN(t *testing.T) {
	rt, err := Start(config.Config{UptraceEnabled: true, UptraceDSN: "  "}, "worker", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStart_PprofBindsBeforeReturning(t *testing.T) {
	rt, err := Start(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, "api", logging.NewNop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rt.pprof == nil {
		t.Fatalf("expected pprof server")
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStart_PprofAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, err = Start(config.Config{PprofEnabled: true, PprofAddr: ln.Addr().String()}, "api", logging.NewNop())
	if err == nil {
		t.Fatalf("expected bind error")
	}
}

func TestRuntime_NilShutdown(t *testing.T) {
	var rt *Runtime
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil shutdown: %v", err)
	}
}
