package exercise

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
)

// Exercise statuses
const (
	StatusReady              = "ready"
	StatusUnlisted           = "unlisted"
	StatusEnrollment         = "enrollment"
	StatusEnrollmentExternal = "enrollment_ext"
	StatusHidden             = "hidden"
	StatusMaintenance        = "maintenance"
)

// Kind discriminates the exercise variants. Kind-specific behavior is
// dispatched through the variant interface, kind-specific configuration
// lives in the matching payload field of Exercise.
type Kind string

const (
	// KindChapter is a learning material page, not submittable.
	KindChapter Kind = "chapter"
	// KindService is graded by an external exercise service.
	KindService Kind = "service"
	// KindLTI launches an external tool with signed parameters.
	KindLTI Kind = "lti"
	// KindStatic stores submissions without automatic assessment.
	KindStatic Kind = "static"
	// KindAttachment sends a locally stored attachment along with the
	// submission to the grader.
	KindAttachment Kind = "attachment"
)

type (
	// Exercise is a single learning object in a course module: a material
	// chapter or one of the submittable exercise variants.
	Exercise struct {
		ID           int                  `json:"id"`
		CourseModule *course.CourseModule `json:"course_module"`
		Category     *course.Category     `json:"category"`
		ParentID     null.Int             `json:"parent_id"`
		Kind         Kind                 `json:"kind"`
		Status       string               `json:"status"`
		Order        int                  `json:"order"`
		Name         string               `json:"name"`
		URL          string               `json:"url" validate:"required,urlword"`
		ServiceURL   string               `json:"service_url"`

		MinGroupSize   int `json:"min_group_size"`
		MaxGroupSize   int `json:"max_group_size"`
		MaxSubmissions int `json:"max_submissions"` // 0 = unlimited
		MaxPoints      int `json:"max_points"`
		PointsToPass   int `json:"points_to_pass"`

		Difficulty string `json:"difficulty"`

		// Ancestors is the precomputed parent chain, root first, excluding
		// the exercise itself. Filled by the repository on load.
		Ancestors []Breadcrumb `json:"ancestors"`

		// kind-specific payloads; exactly the one matching Kind is set
		Chapter    *ChapterConfig    `json:"chapter,omitempty"`
		LTI        *LTIConfig        `json:"lti,omitempty"`
		Static     *StaticConfig     `json:"static,omitempty"`
		Attachment *AttachmentConfig `json:"attachment,omitempty"`
	}

	// Breadcrumb is one step of an exercise's parent chain.
	Breadcrumb struct {
		ID    int    `json:"id"`
		Order int    `json:"order"`
		URL   string `json:"url"`
	}

	ChapterConfig struct {
		GenerateTableOfContents bool `json:"generate_table_of_contents"`
	}

	LTIConfig struct {
		// LaunchURL is the registered tool address; ServiceURL, when set,
		// must live on the same domain.
		LaunchURL         string `json:"launch_url"`
		ConsumerKey       string `json:"consumer_key"`
		ConsumerSecret    string `json:"-"`
		ContextID         string `json:"context_id"`          // default: instance path
		ResourceLinkID    string `json:"resource_link_id"`    // default: exercise id
		ResourceLinkTitle string `json:"resource_link_title"` // default: exercise name
		// AplusGetAndPost keeps the regular grading protocol and only
		// amends the requests with signed LTI parameters.
		AplusGetAndPost bool `json:"aplus_get_and_post"`
	}

	StaticConfig struct {
		ExercisePageContent   string `json:"exercise_page_content"`
		SubmissionPageContent string `json:"submission_page_content"`
	}

	AttachmentConfig struct {
		// Instructions are stored locally; the grader only sees the
		// attachment and the submitted files.
		Instructions   string   `json:"instructions"`
		FilesToSubmit  []string `json:"files_to_submit"`
		AttachmentPath string   `json:"attachment_path"`
	}
)

func (ex *Exercise) String() string {
	if ex.Order >= 0 {
		return fmt.Sprintf("%d.%s %s", ex.CourseModule.Order, ex.Number(), ex.Name)
	}
	return ex.Name
}

func (ex *Exercise) CourseInstance() *course.CourseInstance {
	return ex.CourseModule.CourseInstance
}

// IsSubmittable reports whether the variant accepts submissions at all;
// material chapters do not.
func (ex *Exercise) IsSubmittable() bool {
	return ex.Kind != KindChapter
}

func (ex *Exercise) IsEnrollmentExercise() bool {
	return ex.Status == StatusEnrollment || ex.Status == StatusEnrollmentExternal
}

// Number renders the hierarchical order, e.g. "2.1.3".
func (ex *Exercise) Number() string {
	parts := make([]string, 0, len(ex.Ancestors)+1)
	for _, a := range ex.Ancestors {
		parts = append(parts, strconv.Itoa(a.Order))
	}
	parts = append(parts, strconv.Itoa(ex.Order))
	return strings.Join(parts, ".")
}

// Path renders the URL path of the exercise under its module.
func (ex *Exercise) Path() string {
	parts := make([]string, 0, len(ex.Ancestors)+1)
	for _, a := range ex.Ancestors {
		parts = append(parts, a.URL)
	}
	parts = append(parts, ex.URL)
	return strings.Join(parts, "/")
}

// Clean validates the exercise configuration before saving. Request-time
// evaluation assumes a clean exercise.
func (ex *Exercise) Clean() error {
	var flds []core.FieldError
	if ex.PointsToPass > ex.MaxPoints {
		flds = append(flds, core.FieldError{Field: "points_to_pass", Error: "points to pass cannot be greater than max points"})
	}
	if ex.MinGroupSize > ex.MaxGroupSize {
		flds = append(flds, core.FieldError{Field: "min_group_size", Error: "minimum group size cannot exceed maximum size"})
	}
	if ex.ParentID.Valid && ex.ParentID.Int == ex.ID && ex.ID != 0 {
		flds = append(flds, core.FieldError{Field: "parent_id", Error: "an exercise cannot be its own parent"})
	}
	if ex.Category != nil && ex.Category.CourseInstance != nil && ex.CourseModule != nil &&
		ex.Category.CourseInstance.ID != ex.CourseModule.CourseInstance.ID {
		flds = append(flds, core.FieldError{Field: "category", Error: "category must belong to the same course instance as the module"})
	}
	if ex.Kind == KindLTI && ex.LTI != nil && ex.ServiceURL != "" && !core.HasSameDomain(ex.ServiceURL, ex.LTI.LaunchURL) {
		flds = append(flds, core.FieldError{Field: "service_url", Error: "exercise must be located in the LTI domain"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid exercise"), flds...)
	}
	return nil
}
