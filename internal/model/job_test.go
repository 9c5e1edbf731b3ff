package model

import (
	"errors"
	"testing"
	"time"
)

func TestJobKey_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := Job{Title: "  Data Engineer ", Company: "Acme"}
	b := Job{Title: "data engineer", Company: " ACME  "}
	if a.Key() != b.Key() {
		t.Errorf("expected equal keys, got %q and %q", a.Key(), b.Key())
	}
}

func TestJobCanFetchDetail(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want bool
	}{
		{"url and id", Job{URL: "https://x/jobs/view/1", ID: "1"}, true},
		{"unknown id", Job{URL: "https://x/jobs/view/1", ID: UnknownID}, false},
		{"empty url", Job{ID: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.CanFetchDetail(); got != tt.want {
				t.Errorf("CanFetchDetail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := ClampScore(140); got != 100 {
		t.Errorf("ClampScore(140) = %d", got)
	}
	if got := ClampScore(-3); got != 0 {
		t.Errorf("ClampScore(-3) = %d", got)
	}
	if got := ClampRating(7.5); got != 5 {
		t.Errorf("ClampRating(7.5) = %v", got)
	}
	if got := ClampRating(-1); got != 0 {
		t.Errorf("ClampRating(-1) = %v", got)
	}
	if got := ClampRating(4.2); got != 4.2 {
		t.Errorf("ClampRating(4.2) = %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := ParseRetryAfter("120"); got != 120*time.Second {
		t.Errorf("expected 120s, got %v", got)
	}
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := ParseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"); got != 0 {
		t.Errorf("expected 0 for date format, got %v", got)
	}
}

func TestHTTPError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &HTTPError{StatusCode: 503, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected HTTPError to unwrap to inner error")
	}
	if err.Error() != "HTTP 503: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
