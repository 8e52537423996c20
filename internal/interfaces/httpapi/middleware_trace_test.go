package httpapi

import "testing"

func TestShouldTraceRequest_HealthPaths(t *testing.T) {
	paths := []string{"/healthz", "/health", "/livez", "/readyz", " /healthz "}
	for _, path := range paths {
		if shouldTraceRequest(path) {
			t.Fatalf("expected no tracing for path %q", path)
		}
	}
}

func TestShouldTraceRequest_LeaguePaths(t *testing.T) {
	paths := []string{"/v1/market", "/v1/me/bids", "/", "/v1/internal/jobs/settle"}
	for _, path := range paths {
		if !shouldTraceRequest(path) {
			t.Fatalf("expected tracing for path %q", path)
		}
	}
}

func TestRouteTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/v1/market", want: "/v1/market"},
		{in: "/v1/players", want: "/v1/players"},
		{in: "/v1/players/mario-1820-red", want: "/v1/players/{playerID}"},
		{in: "/v1/me/bids/luigi", want: "/v1/me/bids/{playerID}"},
		{in: "/v1/me/players/peach/buyout", want: "/v1/me/players/{playerID}/buyout"},
		{in: "/v1/internal/accounts/alice/currency", want: "/v1/internal/accounts/{userID}/currency"},
		{in: "/v1/internal/accounts/alice/players", want: "/v1/internal/accounts/{userID}/players"},
	}

	for _, tt := range tests {
		if got := routeTemplate(tt.in); got != tt.want {
			t.Fatalf("routeTemplate(%q)=%q want=%q", tt.in, got, tt.want)
		}
	}
}
