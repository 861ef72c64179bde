package gradersvc

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/exercise"
)

// Client fetches exercise and feedback pages from external exercise
// services over the grading protocol.
type Client struct {
	rst *resty.Client
	log core.Logger
	now func() time.Time
}

var _ exercise.PageLoader = (*Client)(nil)

func NewClient(conf *core.Config, log core.Logger) *Client {
	rst := resty.New().
		SetTimeout(conf.Server.GraderTimeout).
		SetHeader("User-Agent", conf.AppName+"/"+conf.Build)
	return &Client{rst: rst, log: log, now: time.Now}
}

// LoadPage GETs the service URL. A non-empty lastModified turns the fetch
// conditional; on 304 the returned page has no content and IsLoaded stays
// false so callers reuse what they have. Timeouts and non-2xx responses
// come back as *exercise.FetchError.
func (c *Client) LoadPage(ctx context.Context, rawurl, lastModified string) (exercise.Page, error) {
	req := c.rst.R().SetContext(ctx)
	if lastModified != "" {
		req.SetHeader("If-Modified-Since", lastModified)
	}

	resp, err := req.Get(rawurl)
	if err != nil {
		return exercise.Page{}, &exercise.FetchError{URL: rawurl, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotModified:
		return exercise.Page{
			LastModified: lastModified,
			Expires:      parseExpires(resp.Header(), c.now()),
		}, nil
	case resp.StatusCode() != http.StatusOK:
		return exercise.Page{}, &exercise.FetchError{URL: rawurl, StatusCode: resp.StatusCode()}
	}

	page, err := ParsePage(resp.Body())
	if err != nil {
		return exercise.Page{}, &exercise.FetchError{URL: rawurl, Err: err}
	}
	page.IsLoaded = true
	page.LastModified = resp.Header().Get("Last-Modified")
	page.Expires = parseExpires(resp.Header(), c.now())
	return page, nil
}

// parseExpires derives a freshness lease from the response caching headers:
// Cache-Control max-age wins over Expires. Zero when the response grants
// none.
func parseExpires(h http.Header, now time.Time) time.Time {
	if cc := h.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(directive)
			if strings.HasPrefix(directive, "max-age=") {
				secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
				if err != nil || secs <= 0 {
					return time.Time{}
				}
				return now.Add(time.Duration(secs) * time.Second)
			}
		}
	}
	if exp := h.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			return t
		}
	}
	return time.Time{}
}
