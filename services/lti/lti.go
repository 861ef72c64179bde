package ltisvc

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

// Signer produces LTI 1.0 basic launch requests signed with OAuth 1.0
// HMAC-SHA1 body signing.
type Signer struct {
	appName string
	now     func() time.Time
	nonce   func() string
}

var _ exercise.RequestSigner = (*Signer)(nil)

func NewSigner(conf *core.Config) *Signer {
	return &Signer{
		appName: conf.AppName,
		now:     time.Now,
		nonce:   func() string { return uuid.New().String() },
	}
}

// SignGetURL appends the signed launch parameters to rawurl's query.
func (s *Signer) SignGetURL(req exercise.SignRequest, rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", errors.Wrap(err, "parsing launch URL")
	}
	params := s.launchParams(req)
	for name, values := range u.Query() {
		for _, v := range values {
			params.Add(name, v)
		}
	}
	s.sign(params, "GET", u, req.ConsumerSecret)

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// SignPostParams returns the launch parameters to post to rawurl, signature
// included.
func (s *Signer) SignPostParams(req exercise.SignRequest, rawurl string) (url.Values, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing launch URL")
	}
	params := s.launchParams(req)
	for name, values := range u.Query() {
		for _, v := range values {
			params.Add(name, v)
		}
	}
	s.sign(params, "POST", u, req.ConsumerSecret)
	return params, nil
}

// launchParams builds the LTI basic launch parameter set for the acting
// student, amended with the submitter group and any extra form literals.
func (s *Signer) launchParams(req exercise.SignRequest) url.Values {
	params := url.Values{}
	for name, values := range req.Extra {
		for _, v := range values {
			params.Add(name, v)
		}
	}

	params.Set("lti_version", "LTI-1p0")
	params.Set("lti_message_type", "basic-lti-launch-request")
	params.Set("resource_link_id", req.ResourceLinkID)
	if req.Title != "" {
		params.Set("resource_link_title", req.Title)
	}
	if req.ContextID != "" {
		params.Set("context_id", req.ContextID)
	}
	if req.Instance != nil {
		params.Set("context_title", req.Instance.Course.Name)
		params.Set("context_label", req.Instance.Course.Code)
	}
	params.Set("tool_consumer_instance_name", s.appName)
	if req.Host != "" {
		params.Set("tool_consumer_instance_guid", req.Host)
	}

	if req.User.ID != "" {
		params.Set("user_id", req.User.ID)
		params.Set("lis_person_name_full", req.User.Name)
		params.Set("lis_person_contact_email_primary", req.User.Email)
	}
	if len(req.Students) > 0 {
		params.Set("custom_group_members", strings.Join(course.SortedIDs(req.Students), "-"))
	}

	params.Set("oauth_consumer_key", req.ConsumerKey)
	params.Set("oauth_version", "1.0")
	params.Set("oauth_signature_method", "HMAC-SHA1")
	params.Set("oauth_timestamp", strconv.FormatInt(s.now().Unix(), 10))
	params.Set("oauth_nonce", s.nonce())
	params.Set("oauth_callback", "about:blank")
	return params
}

// sign adds the oauth_signature over the request method, base URL and
// parameters. No token secret is involved, launches are two-legged.
func (s *Signer) sign(params url.Values, method string, u *url.URL, secret string) {
	params.Del("oauth_signature")

	baseURL := fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.EscapedPath())
	base := strings.Join([]string{
		method,
		encode(baseURL),
		encode(normalizedParams(params)),
	}, "&")

	mac := hmac.New(sha1.New, []byte(encode(secret)+"&"))
	mac.Write([]byte(base))
	params.Set("oauth_signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// normalizedParams percent-encodes and sorts the parameters per RFC 5849
// §3.4.1.3.2.
func normalizedParams(params url.Values) string {
	pairs := make([]string, 0, len(params))
	for name, values := range params {
		for _, v := range values {
			pairs = append(pairs, encode(name)+"="+encode(v))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// encode percent-encodes per RFC 5849 §3.6 (stricter than query escaping:
// space is %20, only unreserved characters pass through).
func encode(s string) string {
	var buf strings.Builder
	for _, b := range []byte(s) {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9',
			b == '-', b == '.', b == '_', b == '~':
			buf.WriteByte(b)
		default:
			fmt.Fprintf(&buf, "%%%02X", b)
		}
	}
	return buf.String()
}
