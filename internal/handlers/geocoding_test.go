package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/geocoding"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
	"github.com/gofiber/fiber/v2"
)

type stubEmpresas struct {
	mu      sync.Mutex
	pending []models.Empresa
	coords  map[uint]geocoding.Coordinate
}

func newStubEmpresas() *stubEmpresas {
	return &stubEmpresas{coords: make(map[uint]geocoding.Coordinate)}
}

func (s *stubEmpresas) PendingGeocoding(ctx context.Context) ([]models.Empresa, error) {
	return s.pending, nil
}

func (s *stubEmpresas) Coordinates(ctx context.Context, id uint) (*geocoding.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.coords[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *stubEmpresas) SetCoordinates(ctx context.Context, id uint, coord geocoding.Coordinate, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords[id] = coord
	return nil
}

type stubResolver struct {
	result geocoding.ResolveResult
}

func (r *stubResolver) Resolve(ctx context.Context, address string) geocoding.ResolveResult {
	return r.result
}

func newTestApp(store *stubEmpresas, resolver geocoding.Resolver) *fiber.App {
	cache := geocoding.NewCacheStore(nil, geocoding.CacheConfig{Capacity: 100, MemoryTTL: time.Hour})
	budget := geocoding.NewRateBudget(nil, 2500)
	coordinator := geocoding.NewBatchCoordinator(store, cache, budget, resolver, 4, time.Millisecond)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupGeocodingRoutes(app.Group("/v1/geocoding"), NewGeocodingHandler(store, coordinator, cache, budget))
	return app
}

func postJSON(app *fiber.App, method, target, body string) (int, map[string]interface{}, error) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, nil
}

func TestResolveBatchValidation(t *testing.T) {
	app := newTestApp(newStubEmpresas(), &stubResolver{})

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"empty array", `{"requests":[]}`},
		{"missing id", `{"requests":[{"address":"Mitre 450"}]}`},
		{"missing address", `{"requests":[{"id":1}]}`},
	}
	for _, tc := range cases {
		status, _, err := postJSON(app, "POST", "/v1/geocoding/batch", tc.body)
		if err != nil {
			t.Fatalf("%s: request failed: %v", tc.name, err)
		}
		if status != fiber.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, status)
		}
	}

	// oversized payload
	var sb strings.Builder
	sb.WriteString(`{"requests":[`)
	for i := 0; i < 51; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"id":1,"address":"x"}`)
	}
	sb.WriteString(`]}`)
	status, _, err := postJSON(app, "POST", "/v1/geocoding/batch", sb.String())
	if err != nil {
		t.Fatalf("oversized: request failed: %v", err)
	}
	if status != fiber.StatusBadRequest {
		t.Errorf("oversized: expected 400, got %d", status)
	}
}

func TestResolveBatchSuccess(t *testing.T) {
	store := newStubEmpresas()
	app := newTestApp(store, &stubResolver{result: geocoding.ResolveResult{
		Status: geocoding.StatusResolved,
		Coord:  geocoding.Coordinate{Lat: -34.6, Lng: -58.45},
	}})

	status, body, err := postJSON(app, "POST", "/v1/geocoding/batch",
		`{"requests":[{"id":1,"address":"Av. Rivadavia 5000","provincia":"Buenos Aires","localidad":"CABA"}]}`)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	if body["success"] != true {
		t.Errorf("Expected success=true, got %v", body["success"])
	}

	results, ok := body["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("Expected 1 result, got %v", body["results"])
	}
	item := results[0].(map[string]interface{})
	if item["success"] != true || item["lat"].(float64) != -34.6 {
		t.Errorf("Unexpected result item: %v", item)
	}
}

func TestApplyUpdatesPerItemValidation(t *testing.T) {
	store := newStubEmpresas()
	app := newTestApp(store, &stubResolver{})

	status, body, err := postJSON(app, "PATCH", "/v1/geocoding/batch",
		`{"updates":[{"id":1,"lat":95,"lng":-58.45},{"id":2,"lat":-34.6,"lng":-58.45}]}`)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("Per-item errors must not fail the call, got %d", status)
	}

	results := body["results"].([]interface{})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	bad := results[0].(map[string]interface{})
	if bad["success"] == true || bad["error"] == nil {
		t.Errorf("Out-of-range item should error: %v", bad)
	}
	good := results[1].(map[string]interface{})
	if good["success"] != true {
		t.Errorf("Valid item should still be applied: %v", good)
	}

	if _, ok := store.coords[2]; !ok {
		t.Error("Valid update should have reached the record store")
	}
	if _, ok := store.coords[1]; ok {
		t.Error("Invalid update must not reach the record store")
	}
}

func TestApplyUpdatesValidation(t *testing.T) {
	app := newTestApp(newStubEmpresas(), &stubResolver{})

	status, _, err := postJSON(app, "PATCH", "/v1/geocoding/batch", `{"updates":[]}`)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != fiber.StatusBadRequest {
		t.Errorf("Empty updates should 400, got %d", status)
	}
}

func TestStatsEndpoint(t *testing.T) {
	app := newTestApp(newStubEmpresas(), &stubResolver{})

	status, body, err := postJSON(app, "GET", "/v1/geocoding/stats", "")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["dailyLimit"].(float64) != 2500 {
		t.Errorf("Expected dailyLimit 2500, got %v", body["dailyLimit"])
	}
	if body["canMakeRequests"] != true {
		t.Errorf("Fresh budget should allow requests: %v", body)
	}
	if body["dbCacheSize"].(float64) != 0 || body["memoryCacheSize"].(float64) != 0 {
		t.Errorf("Expected zeroed cache sizes without a database: %v", body)
	}
}

func TestPendingEndpoint(t *testing.T) {
	store := newStubEmpresas()
	dir := "Av. Rivadavia 5000"
	store.pending = []models.Empresa{{ID: 1, Nombre: "Desagotes Sur", Direccion: &dir}}
	app := newTestApp(store, &stubResolver{})

	status, body, err := postJSON(app, "GET", "/v1/geocoding/pending", "")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("Expected 1 pending company, got %v", body["total"])
	}
}
