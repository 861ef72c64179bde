package exercise

import (
	"context"
	"net/url"
)

type (
	// PageLoaderMock serves a canned page in place of a live exercise
	// service; tests inspect the recorded request details.
	PageLoaderMock struct {
		Page  Page
		Err   error
		Calls int
		// URL is the address of the latest fetch.
		URL string
		// LastModified records the marker of the latest conditional fetch.
		LastModified string
	}

	// RequestSignerMock leaves launch URLs and parameters untouched.
	RequestSignerMock struct{}
)

var (
	_ PageLoader    = (*PageLoaderMock)(nil)
	_ RequestSigner = (*RequestSignerMock)(nil)
)

func (m *PageLoaderMock) LoadPage(_ context.Context, rawurl, lastModified string) (Page, error) {
	m.Calls++
	m.URL = rawurl
	m.LastModified = lastModified
	if m.Err != nil {
		return Page{}, m.Err
	}
	return m.Page, nil
}

func (m *RequestSignerMock) SignGetURL(_ SignRequest, rawurl string) (string, error) {
	return rawurl, nil
}

func (m *RequestSignerMock) SignPostParams(req SignRequest, _ string) (url.Values, error) {
	return req.Extra, nil
}
