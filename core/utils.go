package core

import (
	"net/url"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// UpdateURLParams returns rawurl with the given query parameters set,
// preserving any parameters already present. An unparsable rawurl is
// returned as is.
func UpdateURLParams(rawurl string, params map[string]string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// HasSameDomain reports whether both URLs share a host.
func HasSameDomain(url1, url2 string) bool {
	u1, err1 := url.Parse(url1)
	u2, err2 := url.Parse(url2)
	if err1 != nil || err2 != nil {
		return false
	}
	return u1.Host != "" && strings.EqualFold(u1.Host, u2.Host)
}
