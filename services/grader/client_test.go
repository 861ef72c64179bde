package gradersvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/exercise"
)

func TestParseExpires(t *testing.T) {
	now := time.Date(2026, time.October, 21, 7, 28, 0, 0, time.UTC)
	tests := []struct {
		name    string
		headers http.Header
		want    time.Time
	}{
		{name: "no caching headers", headers: http.Header{}},
		{name: "max-age", headers: http.Header{"Cache-Control": {"public, max-age=300"}}, want: now.Add(5 * time.Minute)},
		{name: "max-age wins over Expires", headers: http.Header{"Cache-Control": {"max-age=60"}, "Expires": {"Wed, 21 Oct 2026 08:28:00 GMT"}}, want: now.Add(time.Minute)},
		{name: "max-age zero grants nothing", headers: http.Header{"Cache-Control": {"max-age=0"}}},
		{name: "garbage max-age", headers: http.Header{"Cache-Control": {"max-age=never"}}},
		{name: "Expires", headers: http.Header{"Expires": {"Wed, 21 Oct 2026 08:28:00 GMT"}}, want: time.Date(2026, time.October, 21, 8, 28, 0, 0, time.UTC)},
		{name: "unparsable Expires", headers: http.Header{"Expires": {"0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseExpires(tt.headers, now); !got.Equal(tt.want) {
				t.Errorf("parseExpires() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClientLoadPage(t *testing.T) {
	var (
		status          int
		ifModifiedSince string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ifModifiedSince = r.Header.Get("If-Modified-Since")
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2026 07:28:00 GMT")
		w.Header().Set("Cache-Control", "max-age=300")
		w.Write([]byte(`<html><body><div id="exercise"><p>Solve it.</p></div></body></html>`))
	}))
	defer srv.Close()

	client := NewClient(core.NewTestConfig(), core.NewNopLogger())
	ctx := context.Background()

	t.Run("Fetches and parses the page", func(t *testing.T) {
		status = http.StatusOK
		page, err := client.LoadPage(ctx, srv.URL, "")
		if err != nil {
			t.Fatalf("LoadPage(): %v", err)
		}
		if !page.IsLoaded {
			t.Error("page not loaded")
		}
		if want := "<p>Solve it.</p>"; page.Content != want {
			t.Errorf("Content = %q, want %q", page.Content, want)
		}
		if want := "Wed, 21 Oct 2026 07:28:00 GMT"; page.LastModified != want {
			t.Errorf("LastModified = %q, want %q", page.LastModified, want)
		}
		if page.Expires.IsZero() {
			t.Error("Expires not derived from Cache-Control")
		}
		if ifModifiedSince != "" {
			t.Errorf("If-Modified-Since = %q, want none", ifModifiedSince)
		}
	})

	t.Run("Conditional fetch keeps an unchanged page", func(t *testing.T) {
		status = http.StatusNotModified
		validator := "Wed, 21 Oct 2026 07:28:00 GMT"

		page, err := client.LoadPage(ctx, srv.URL, validator)
		if err != nil {
			t.Fatalf("LoadPage(): %v", err)
		}
		if ifModifiedSince != validator {
			t.Errorf("If-Modified-Since = %q, want %q", ifModifiedSince, validator)
		}
		if page.IsLoaded {
			t.Error("a 304 must not count as loaded")
		}
		if page.LastModified != validator {
			t.Errorf("LastModified = %q, want %q", page.LastModified, validator)
		}
	})

	t.Run("Service failure", func(t *testing.T) {
		status = http.StatusServiceUnavailable

		_, err := client.LoadPage(ctx, srv.URL, "")
		if !exercise.IsFetchError(err) {
			t.Fatalf("LoadPage() error = %v, want a fetch error", err)
		}
		if fetchErr := err.(*exercise.FetchError); fetchErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, http.StatusServiceUnavailable)
		}
	})

	t.Run("Unreachable service", func(t *testing.T) {
		if _, err := client.LoadPage(ctx, "http://localhost:1/down", ""); !exercise.IsFetchError(err) {
			t.Fatalf("LoadPage() error = %v, want a fetch error", err)
		}
	})
}
