package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/config"
)

func newTestResolver(serverURL string, timeout time.Duration) *NominatimResolver {
	cfg := config.Load()
	cfg.GeocoderBaseURL = serverURL
	if timeout > 0 {
		cfg.GeocoderTimeout = timeout
	}
	return NewNominatimResolver(cfg)
}

func TestResolverResolved(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`[{"lat":"-34.6","lon":"-58.45"}]`))
	}))
	defer server.Close()

	r := newTestResolver(server.URL, 0)
	res := r.Resolve(context.Background(), "Av. Rivadavia 5000, CABA, Buenos Aires")

	if res.Status != StatusResolved {
		t.Fatalf("Expected StatusResolved, got %s", res.Status)
	}
	if res.Coord.Lat != -34.6 || res.Coord.Lng != -58.45 {
		t.Errorf("Unexpected coordinate: %v", res.Coord)
	}
	if gotQuery != "Av. Rivadavia 5000, CABA, Buenos Aires" {
		t.Errorf("Unexpected provider query: %q", gotQuery)
	}
	if gotUA == "" {
		t.Error("User-Agent header must be set")
	}
}

func TestResolverNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	res := newTestResolver(server.URL, 0).Resolve(context.Background(), "Inexistente 999")
	if res.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got %s", res.Status)
	}
}

func TestResolverRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	res := newTestResolver(server.URL, 0).Resolve(context.Background(), "Mitre 450")
	if res.Status != StatusRateLimited {
		t.Errorf("Expected StatusRateLimited, got %s", res.Status)
	}
}

func TestResolverMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	res := newTestResolver(server.URL, 0).Resolve(context.Background(), "Mitre 450")
	if res.Status != StatusTransient {
		t.Errorf("Expected StatusTransient for malformed body, got %s", res.Status)
	}
	if res.Err == nil {
		t.Error("Transient outcome should carry the underlying error")
	}
}

func TestResolverServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	res := newTestResolver(server.URL, 0).Resolve(context.Background(), "Mitre 450")
	if res.Status != StatusTransient {
		t.Errorf("Expected StatusTransient for a 500, got %s", res.Status)
	}
}

func TestResolverFailsFastWhenCancelled(t *testing.T) {
	contacted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contacted = true
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestResolver(server.URL, 0).Resolve(ctx, "Mitre 450")
	if res.Status != StatusTransient {
		t.Errorf("Expected StatusTransient for a cancelled context, got %s", res.Status)
	}
	if contacted {
		t.Error("Provider must not be contacted when the context is already cancelled")
	}
	if res.Contacted {
		t.Error("A fail-fast result must not report a provider round-trip")
	}
}

func TestResolverReportsProviderContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()
	r := newTestResolver(server.URL, 0)

	if res := r.Resolve(context.Background(), "Mitre 450"); !res.Contacted {
		t.Error("A lookup that reached the provider must report the round-trip")
	}

	// a deadline expiring before the call never leaves the process
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res := r.Resolve(ctx, "Mitre 450")
	if res.Status != StatusTransient || res.Contacted {
		t.Errorf("An expired deadline must fail fast without a round-trip, got %+v", res)
	}
}

func TestResolverTimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	res := newTestResolver(server.URL, 50*time.Millisecond).Resolve(context.Background(), "Mitre 450")
	if res.Status != StatusTransient {
		t.Errorf("A timeout must be transient, never StatusNotFound; got %s", res.Status)
	}
	if !res.Contacted {
		t.Error("A request that timed out in flight still counts as a round-trip")
	}
}
