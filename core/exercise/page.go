package exercise

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/trezcool/mazoezi/core/course"
)

type (
	// Page is a rendered exercise or feedback fragment served to the view
	// layer: head goes into the document head, content into the body.
	Page struct {
		ExerciseID int    `json:"exercise_id"`
		Head       string `json:"head"`
		Content    string `json:"content"`
		// IsLoaded reports whether fresh content was fetched; a page built
		// from stale or fallback content leaves it false.
		IsLoaded   bool `json:"is_loaded"`
		IsAccepted bool `json:"is_accepted"`
		// LastModified echoes the service's Last-Modified header for
		// conditional refetches.
		LastModified string `json:"last_modified"`
		// Expires is when the content stops being fresh, derived from the
		// service's caching headers.
		Expires time.Time `json:"expires"`
	}

	// PageRequest carries the request-scoped inputs of a page load.
	PageRequest struct {
		Language string
		// User is the acting student, zero when anonymous.
		User     course.Student
		Students []course.Student
	}

	// PageLoader fetches content from an external exercise service. A
	// non-empty lastModified makes the fetch conditional: when the service
	// reports no change the returned page carries no content and IsLoaded
	// stays false. Failures surface as *FetchError.
	PageLoader interface {
		LoadPage(ctx context.Context, rawurl, lastModified string) (Page, error)
	}

	// RequestSigner produces signed launch parameters for external tools
	// speaking an OAuth-signed launch protocol.
	RequestSigner interface {
		// SignGetURL returns rawurl with the signed launch parameters
		// appended to its query.
		SignGetURL(req SignRequest, rawurl string) (string, error)
		// SignPostParams returns the signed launch parameters to send as a
		// form post to rawurl, merged over req.Extra.
		SignPostParams(req SignRequest, rawurl string) (url.Values, error)
	}

	// SignRequest is everything a launch signature covers.
	SignRequest struct {
		ConsumerKey    string
		ConsumerSecret string
		// User is the student launching the tool; Students lists the whole
		// submitter set when known.
		User           course.Student
		Students       []course.Student
		Instance       *course.CourseInstance
		Host           string
		Title          string
		ContextID      string
		ResourceLinkID string
		Extra          url.Values
	}
)

// FetchError reports a failed or unusable exercise service response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("exercise service request failed: %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("exercise service request failed: %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or its cause) is a service fetch
// failure.
func IsFetchError(err error) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; {
		if _, ok := e.(*FetchError); ok {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}
