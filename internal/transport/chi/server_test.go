package chi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/signalrank/signalrank/internal/domain/record"
	"github.com/signalrank/signalrank/internal/domain/signal"
	"github.com/signalrank/signalrank/internal/repository/records"
	"github.com/signalrank/signalrank/internal/usecase/recommend"
)

const laptopDigest = "146bdebb324a64d327b1dde22a07d0bd"

// fakeSignal is a canned signal.Client for handler tests.
type fakeSignal struct {
	recommendResp *signal.Response
	trackResp     *signal.Response
	lastTrack     string
}

func (f *fakeSignal) Recommend(
	_ context.Context, _ []string, _ []signal.Profile, _ *signal.Geo,
) (*signal.Response, error) {
	if f.recommendResp != nil {
		return f.recommendResp, nil
	}
	return &signal.Response{Success: true}, nil
}

func (f *fakeSignal) Track(
	_ context.Context, label string, _ []signal.Tag,
	_ []signal.Profile, _ *signal.Location, _ *signal.Geo,
) (*signal.Response, error) {
	f.lastTrack = label
	if f.trackResp != nil {
		return f.trackResp, nil
	}
	return &signal.Response{Success: true}, nil
}

func (f *fakeSignal) WithCredential(string) signal.Client { return f }

func newTestRouter(t *testing.T, client signal.Client, apiKeys []string) http.Handler {
	t.Helper()

	store := records.NewMemory(recommend.DefaultNullLiteral, "")
	store.Add(
		record.NewMap("p1", map[string]any{"name": "Laptop"}),
		record.NewMap("p2", map[string]any{"name": "Phone"}),
	)

	engine, err := recommend.New(recommend.Config{
		Owner:      "catalog.Product",
		Fields:     []string{"name"},
		HashFields: true,
	}, client, store)
	if err != nil {
		t.Fatalf("engine setup failed: %v", err)
	}
	return NewServer(engine, nil).Router(apiKeys)
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeSignal{}, nil)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %s", resp["status"])
	}
}

func TestBearerAuth(t *testing.T) {
	router := newTestRouter(t, &fakeSignal{}, []string{"valid-key"})

	// Health stays open.
	if rec := doJSON(t, router, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	payload := map[string]any{"labels": []string{"buy"}}

	rec := doJSON(t, router, http.MethodPost, "/v1/recommend", payload)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"labels":["buy"]}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader(`{"labels":["buy"]}`))
	req.Header.Set("Authorization", "Bearer valid-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", w.Code)
	}
}

func TestHandleRecommend(t *testing.T) {
	client := &fakeSignal{recommendResp: &signal.Response{
		Success: true,
		Body: map[string]map[string]float64{
			"catalog.Product.buy": {"name:" + laptopDigest: 0.9},
		},
	}}
	router := newTestRouter(t, client, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/recommend", map[string]any{
		"labels": []string{"buy"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results map[string][]struct {
			Key  string   `json:"key"`
			Rank *float64 `json:"rank"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	candidates := resp.Results["buy"]
	if len(candidates) != 1 || candidates[0].Key != "p1" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
	if candidates[0].Rank == nil || *candidates[0].Rank != 0.9 {
		t.Errorf("rank = %v, want 0.9", candidates[0].Rank)
	}
}

func TestHandleRecommendValidation(t *testing.T) {
	router := newTestRouter(t, &fakeSignal{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/recommend", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/recommend", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", w.Code)
	}
}

func TestHandleTrack(t *testing.T) {
	client := &fakeSignal{}
	router := newTestRouter(t, client, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/track", map[string]any{
		"label":  "buy",
		"record": map[string]any{"key": "p1", "fields": map[string]any{"name": "Laptop"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if client.lastTrack != "catalog.Product.buy" {
		t.Errorf("tracked label = %s", client.lastTrack)
	}
}

func TestHandleTrackValidation(t *testing.T) {
	router := newTestRouter(t, &fakeSignal{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/track", map[string]any{"label": "buy"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing record.key status = %d, want 400", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	client := &fakeSignal{recommendResp: &signal.Response{
		Success: true,
		Body: map[string]map[string]float64{
			"catalog.Product.search-conversion": {"name:" + laptopDigest: 0.5},
		},
	}}
	router := newTestRouter(t, client, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/search", map[string]any{
		"query": "laptop",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results map[string][]struct {
			Key string `json:"key"`
		} `json:"results"`
		Flat []struct {
			Key string `json:"key"`
		} `json:"flat"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	hits := resp.Results["search-conversion"]
	if len(hits) != 1 || hits[0].Key != "p1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if len(resp.Flat) != 1 || resp.Flat[0].Key != "p1" {
		t.Errorf("flat view missing: %+v", resp.Flat)
	}
}

func TestHandleSearchValidation(t *testing.T) {
	router := newTestRouter(t, &fakeSignal{}, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/search", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleLink(t *testing.T) {
	client := &fakeSignal{}
	router := newTestRouter(t, client, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/link", map[string]any{
		"label":  "buy",
		"record": map[string]any{"key": "p1"},
		"other":  map[string]any{"key": "p2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if client.lastTrack != "catalog.Product.buy" {
		t.Errorf("tracked label = %s", client.lastTrack)
	}
}

func TestEngineErrorMapping(t *testing.T) {
	// A label with no configured fields maps to 422.
	client := &fakeSignal{recommendResp: &signal.Response{
		Success: true,
		Body: map[string]map[string]float64{
			"catalog.Product.buy": {"name:" + laptopDigest: 0.9},
		},
	}}

	store := records.NewMemory(recommend.DefaultNullLiteral, "")
	engine, err := recommend.New(recommend.Config{
		Owner:      "catalog.Product",
		DataFields: map[string][]string{"like": {"name"}},
		HashFields: true,
	}, client, store)
	if err != nil {
		t.Fatalf("engine setup failed: %v", err)
	}
	router := NewServer(engine, nil).Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/recommend", map[string]any{
		"labels": []string{"buy"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
	}
}
