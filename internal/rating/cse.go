// Package rating looks up employer ratings for companies.
package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/retry"
)

// DefaultCSEEndpoint is the Google Custom Search JSON API.
const DefaultCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// ratingPatterns are tried in order against every text field of every result.
var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rating of ([0-9.]+) out of 5 stars`),
	regexp.MustCompile(`([0-9.]+) out of 5 stars`),
	regexp.MustCompile(`([0-9.]+)/5 stars`),
	regexp.MustCompile(`Rating: ([0-9.]+)`),
	regexp.MustCompile(`rated ([0-9.]+) by`),
	regexp.MustCompile(`([0-9.]+) rating`),
	regexp.MustCompile(`([0-9.]+) ★`),
	regexp.MustCompile(`(?i)(?:rating|reviews|stars|score)[^\n.]*?([0-9]\.[0-9])`),
	regexp.MustCompile(`(?i)([0-9]\.[0-9])[^\n.]*?(?:rating|reviews|stars|score)`),
}

// CSERater finds a company's Glassdoor rating through Google Custom Search.
type CSERater struct {
	endpoint   string
	apiKey     string
	cx         string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

var _ model.Rater = (*CSERater)(nil)

// NewCSERater creates a rater. An empty endpoint uses DefaultCSEEndpoint.
func NewCSERater(endpoint, apiKey, cx string, httpClient *http.Client, logger *slog.Logger) *CSERater {
	if endpoint == "" {
		endpoint = DefaultCSEEndpoint
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CSERater{
		endpoint:   endpoint,
		apiKey:     apiKey,
		cx:         cx,
		httpClient: httpClient,
		policy: retry.Policy{
			MaxAttempts: 2,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

type cseResponse struct {
	Items []cseItem `json:"items"`
}

type cseItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	HTMLTitle   string `json:"htmlTitle"`
	HTMLSnippet string `json:"htmlSnippet"`
	Pagemap     struct {
		Metatags []map[string]any `json:"metatags"`
	} `json:"pagemap"`
}

// Rate searches "<company> glassdoor <locationHint>" and returns the first
// rating in [0, 5] found in the results, or 0 when none is found.
func (r *CSERater) Rate(ctx context.Context, company, locationHint string) (float64, error) {
	q := strings.TrimSpace(company + " glassdoor " + locationHint)

	var resp cseResponse
	err := r.policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		resp, err = r.search(ctx, q)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("rating %s: %w", company, err)
	}

	rating, ok := extractRating(resp.Items)
	r.logger.Debug("company rating", "company", company, "rating", rating, "found", ok)
	return rating, nil
}

func (r *CSERater) search(ctx context.Context, q string) (cseResponse, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("cx", r.cx)
	params.Set("key", r.apiKey)
	params.Set("num", "3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return cseResponse{}, fmt.Errorf("create search request: %w", err)
	}

	res, err := r.httpClient.Do(req)
	if err != nil {
		return cseResponse{}, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return cseResponse{}, fmt.Errorf("read search response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return cseResponse{}, model.NewHTTPError(res, fmt.Errorf("custom search returned status %d", res.StatusCode))
	}

	var out cseResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return cseResponse{}, fmt.Errorf("parse search response: %w", err)
	}
	return out, nil
}

// extractRating scans each result's title, snippet, and metatag values.
// Metatags are read in key order so the same response always yields the
// same rating.
func extractRating(items []cseItem) (float64, bool) {
	for _, item := range items {
		fields := []string{item.Title, item.Snippet, item.HTMLTitle, item.HTMLSnippet}
		for _, tag := range item.Pagemap.Metatags {
			for _, k := range slices.Sorted(maps.Keys(tag)) {
				if s, ok := tag[k].(string); ok {
					fields = append(fields, s)
				}
			}
		}
		for _, text := range fields {
			for _, re := range ratingPatterns {
				m := re.FindStringSubmatch(text)
				if len(m) < 2 {
					continue
				}
				v, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					continue
				}
				if v >= 0 && v <= 5 {
					return v, true
				}
			}
		}
	}
	return 0, false
}
