package rating

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cseServer(t *testing.T, status int, body any, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.RawQuery
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func item(title, snippet string) map[string]any {
	return map[string]any{"title": title, "snippet": snippet}
}

func TestCSERater_ExtractsRating(t *testing.T) {
	var query string
	srv := cseServer(t, http.StatusOK, map[string]any{"items": []any{
		item("Acme Careers", "Join us in 2024 to build the future."),
		item("Working at Acme | Glassdoor", "Acme has an overall rating of 4.1 out of 5 stars, based on 310 reviews."),
	}}, &query)

	r := NewCSERater(srv.URL, "key-1", "cx-1", srv.Client(), nil)
	got, err := r.Rate(context.Background(), "Acme", "Sydney")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4.1 {
		t.Errorf("expected 4.1, got %v", got)
	}

	want := "cx=cx-1&key=key-1&num=3&q=Acme+glassdoor+Sydney"
	if query != want {
		t.Errorf("query = %s, want %s", query, want)
	}
}

func TestCSERater_MetatagsAndRange(t *testing.T) {
	srv := cseServer(t, http.StatusOK, map[string]any{"items": []any{
		map[string]any{
			"title":   "Globex reviews",
			"snippet": "Globex 9.5 rating from an unrelated site",
			"pagemap": map[string]any{"metatags": []any{
				map[string]any{"og:description": "Rated 3.8 by employees. Rating: 3.8"},
			}},
		},
	}}, nil)

	r := NewCSERater(srv.URL, "k", "cx", srv.Client(), nil)
	got, err := r.Rate(context.Background(), "Globex", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3.8 {
		t.Errorf("expected out-of-range 9.5 skipped and 3.8 found, got %v", got)
	}
}

func TestCSERater_NoRatingIsZero(t *testing.T) {
	srv := cseServer(t, http.StatusOK, map[string]any{}, nil)

	r := NewCSERater(srv.URL, "k", "cx", srv.Client(), nil)
	got, err := r.Rate(context.Background(), "Initech", "Sydney")
	if err != nil || got != 0 {
		t.Errorf("expected 0 with no error, got %v %v", got, err)
	}
}

func TestCSERater_HTTPErrorIsZeroAndError(t *testing.T) {
	srv := cseServer(t, http.StatusForbidden, map[string]any{"error": "quota"}, nil)

	r := NewCSERater(srv.URL, "k", "cx", srv.Client(), nil)
	got, err := r.Rate(context.Background(), "Initech", "")
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if got != 0 {
		t.Errorf("expected 0 on failure, got %v", got)
	}
}

func TestExtractRating_PatternTable(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"4.3 out of 5 stars", 4.3, true},
		{"Employees rate it 3.9/5 stars", 3.9, true},
		{"Rating: 4.0", 4.0, true},
		{"rated 3.2 by 120 employees", 3.2, true},
		{"4.5 ★", 4.5, true},
		{"Great place, reviews average 3.7 overall", 3.7, true},
		{"Founded in 1999", 0, false},
	}
	for _, tt := range tests {
		got, ok := extractRating([]cseItem{{Snippet: tt.text}})
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractRating(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractRating_MetatagsInKeyOrder(t *testing.T) {
	var it cseItem
	it.Pagemap.Metatags = []map[string]any{{
		"twitter:description": "Rated 4.6 by employees",
		"og:title":            "Acme careers",
		"og:description":      "Rated 3.8 by employees",
		"og:image:width":      1200,
		"twitter:card":        "Rating: 2.1",
	}}

	for range 50 {
		got, ok := extractRating([]cseItem{it})
		if !ok || got != 3.8 {
			t.Fatalf("expected og:description rating 3.8, got %v, %v", got, ok)
		}
	}
}

type countingRater struct {
	calls  int
	rating float64
	err    error
}

func (c *countingRater) Rate(context.Context, string, string) (float64, error) {
	c.calls++
	return c.rating, c.err
}

type memCache struct {
	ratings map[string]float64
	at      map[string]time.Time
}

func newMemCache() *memCache {
	return &memCache{ratings: map[string]float64{}, at: map[string]time.Time{}}
}

func (m *memCache) Rating(company string) (float64, time.Time, bool, error) {
	r, ok := m.ratings[company]
	return r, m.at[company], ok, nil
}

func (m *memCache) PutRating(company string, rating float64) error {
	m.ratings[company] = rating
	m.at[company] = time.Now()
	return nil
}

func TestCachedRater_HitMissExpiry(t *testing.T) {
	inner := &countingRater{rating: 4.2}
	cache := newMemCache()
	c := NewCachedRater(inner, cache, time.Hour, nil)

	for range 3 {
		got, err := c.Rate(context.Background(), "Acme", "")
		if err != nil || got != 4.2 {
			t.Fatalf("unexpected result %v %v", got, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected one upstream lookup, got %d", inner.calls)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := c.Rate(context.Background(), "Acme", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected expired entry to be refreshed, got %d calls", inner.calls)
	}
}

func TestCachedRater_ErrorsNotCached(t *testing.T) {
	inner := &countingRater{err: errors.New("quota")}
	cache := newMemCache()
	c := NewCachedRater(inner, cache, 0, nil)

	if _, err := c.Rate(context.Background(), "Acme", ""); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := cache.ratings["Acme"]; ok {
		t.Error("expected failed lookup not to be cached")
	}
}

func TestNopRater(t *testing.T) {
	got, err := NewNopRater().Rate(context.Background(), "Acme", "Sydney")
	if err != nil || got != 0 {
		t.Errorf("expected 0, got %v %v", got, err)
	}
}
