package exercise

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
)

// variant is the kind-specific behavior of an exercise: how its page is
// produced, how feedback is produced, how outgoing grading posts are
// amended and when the exercise counts as empty.
type variant interface {
	Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error)
	Grade(ctx context.Context, ex *Exercise, sub Submission, req PageRequest) (Page, error)
	ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error
	IsEmpty(ex *Exercise) bool
}

func (svc *Service) variantOf(ex *Exercise) variant {
	switch ex.Kind {
	case KindChapter:
		return chapterVariant{svc}
	case KindLTI:
		return ltiVariant{serviceVariant{svc}}
	case KindStatic:
		return staticVariant{}
	case KindAttachment:
		return attachmentVariant{serviceVariant{svc}}
	default:
		return serviceVariant{svc}
	}
}

// LoadPage produces the exercise page for the students, from cache when the
// variant allows it.
func (svc *Service) LoadPage(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	return svc.variantOf(ex).Load(ctx, ex, req)
}

// GradePage produces the feedback page of a submission. Feedback is never
// cached.
func (svc *Service) GradePage(ctx context.Context, ex *Exercise, sub Submission, req PageRequest) (Page, error) {
	return svc.variantOf(ex).Grade(ctx, ex, sub, req)
}

// ModifyPostParameters lets the variant amend the form and files forwarded
// to the grading service.
func (svc *Service) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	return svc.variantOf(ex).ModifyPostParameters(ex, req, form, files, postURL)
}

// IsEmpty reports whether the exercise has any content to show.
func (svc *Service) IsEmpty(ex *Exercise) bool {
	return svc.variantOf(ex).IsEmpty(ex)
}

// chapterVariant serves learning material pages. No submissions, no
// grading protocol parameters; remote content is still cached.
type chapterVariant struct {
	svc *Service
}

func (v chapterVariant) Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	if ex.ServiceURL == "" {
		return Page{ExerciseID: ex.ID}, nil
	}
	loadURL := v.svc.chapterLoadURL(ex, req.Language)
	return v.svc.cachedLoad(ctx, ex, req.Language, loadURL)
}

func (v chapterVariant) Grade(ctx context.Context, ex *Exercise, sub Submission, req PageRequest) (Page, error) {
	return Page{}, ErrNotSubmittable
}

func (v chapterVariant) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	return nil
}

func (v chapterVariant) IsEmpty(ex *Exercise) bool {
	return ex.ServiceURL == "" && (ex.Chapter == nil || !ex.Chapter.GenerateTableOfContents)
}

func (svc *Service) chapterLoadURL(ex *Exercise, language string) string {
	return core.UpdateURLParams(ex.ServiceURL, map[string]string{"lang": language})
}

// serviceVariant talks the grading protocol with an external exercise
// service.
type serviceVariant struct {
	svc *Service
}

func (v serviceVariant) loadURL(ctx context.Context, ex *Exercise, req PageRequest) (string, error) {
	count := 0
	if req.User.ID != "" {
		var err error
		count, err = v.svc.submissions.CountForStudent(ctx, ex.ID, req.User.ID, false)
		if err != nil {
			return "", err
		}
	}
	submissionURL, err := v.svc.submissionCallbackURL(ex, req.User)
	if err != nil {
		return "", err
	}
	return v.svc.buildServiceURL(ex, req.Language, req.Students, count+1, submissionURL), nil
}

func (v serviceVariant) Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	if ex.ServiceURL == "" {
		return Page{ExerciseID: ex.ID}, nil
	}
	loadURL, err := v.loadURL(ctx, ex, req)
	if err != nil {
		return Page{}, err
	}
	return v.svc.cachedLoad(ctx, ex, req.Language, loadURL)
}

func (v serviceVariant) Grade(ctx context.Context, ex *Exercise, sub Submission, req PageRequest) (Page, error) {
	ordinal, err := v.svc.OrdinalNumber(ctx, sub)
	if err != nil {
		return Page{}, err
	}
	feedbackURL, err := v.svc.feedbackCallbackURL(sub)
	if err != nil {
		return Page{}, err
	}
	gradeURL := v.svc.buildServiceURL(ex, req.Language, sub.Submitters, ordinal, feedbackURL)
	page, err := v.svc.loader.LoadPage(ctx, gradeURL, "")
	if err != nil {
		return Page{}, errors.Wrap(err, "loading feedback page")
	}
	page.ExerciseID = ex.ID
	return page, nil
}

func (v serviceVariant) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	return nil
}

func (v serviceVariant) IsEmpty(ex *Exercise) bool {
	return ex.ServiceURL == ""
}

// ltiVariant launches an external tool with signed parameters; with
// AplusGetAndPost it keeps the regular protocol and only signs the
// requests.
type ltiVariant struct {
	serviceVariant
}

var ltiLaunchTmpl = template.Must(template.New("lti_launch").Parse(`<form action="{{.URL}}" method="post" target="_blank">
{{- range $name, $values := .Params}}{{range $values}}
	<input type="hidden" name="{{$name}}" value="{{.}}">
{{- end}}{{end}}
	<button type="submit">{{.Title}}</button>
</form>
`))

func (v ltiVariant) Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	if ex.LTI == nil {
		return Page{ExerciseID: ex.ID}, nil
	}
	if ex.LTI.AplusGetAndPost {
		if ex.ServiceURL == "" {
			return Page{ExerciseID: ex.ID}, nil
		}
		loadURL, err := v.loadURL(ctx, ex, req)
		if err != nil {
			return Page{}, err
		}
		signedURL, err := v.svc.signer.SignGetURL(v.svc.signRequest(ex, req.User, nil), loadURL)
		if err != nil {
			return Page{}, errors.Wrap(err, "signing launch URL")
		}
		return v.svc.cachedLoad(ctx, ex, req.Language, signedURL)
	}

	if len(req.Students) == 0 {
		return Page{ExerciseID: ex.ID}, nil
	}
	launchURL := ex.ServiceURL
	if launchURL == "" {
		launchURL = ex.LTI.LaunchURL
	}
	params, err := v.svc.signer.SignPostParams(v.svc.signRequest(ex, req.Students[0], req.Students), launchURL)
	if err != nil {
		return Page{}, errors.Wrap(err, "signing launch parameters")
	}

	title := ex.LTI.ResourceLinkTitle
	if title == "" {
		title = ex.Name
	}
	var buf strings.Builder
	if err := ltiLaunchTmpl.Execute(&buf, map[string]interface{}{
		"URL":    launchURL,
		"Params": map[string][]string(params),
		"Title":  title,
	}); err != nil {
		return Page{}, errors.Wrap(err, "rendering launch form")
	}
	return Page{ExerciseID: ex.ID, Content: buf.String(), IsLoaded: true}, nil
}

func (v ltiVariant) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	if ex.LTI == nil {
		return nil
	}
	extra := url.Values{}
	for name, values := range form {
		if len(values) > 0 {
			extra.Set(name, values[0])
		}
	}
	sreq := v.svc.signRequest(ex, req.User, req.Students)
	sreq.Extra = extra
	signed, err := v.svc.signer.SignPostParams(sreq, postURL)
	if err != nil {
		return errors.Wrap(err, "signing post parameters")
	}
	for name, values := range signed {
		form[name] = values
	}
	return nil
}

func (v ltiVariant) IsEmpty(ex *Exercise) bool {
	return ex.ServiceURL == "" && (ex.LTI == nil || ex.LTI.LaunchURL == "")
}

// signRequest assembles the launch-signature inputs for the exercise,
// filling the tool defaults for blank context and link ids.
func (svc *Service) signRequest(ex *Exercise, user course.Student, students []course.Student) SignRequest {
	instance := ex.CourseInstance()
	host := svc.serverHost()

	contextID := ex.LTI.ContextID
	if contextID == "" {
		contextID = fmt.Sprintf("%s/%s/%s/", host, instance.Course.URL, instance.URL)
	}
	resourceLinkID := ex.LTI.ResourceLinkID
	if resourceLinkID == "" {
		resourceLinkID = fmt.Sprintf("exercise%d", ex.ID)
	}
	title := ex.LTI.ResourceLinkTitle
	if title == "" {
		title = ex.Name
	}
	return SignRequest{
		ConsumerKey:    ex.LTI.ConsumerKey,
		ConsumerSecret: ex.LTI.ConsumerSecret,
		User:           user,
		Students:       students,
		Instance:       instance,
		Host:           host,
		Title:          title,
		ContextID:      contextID,
		ResourceLinkID: resourceLinkID,
	}
}

func (svc *Service) serverHost() string {
	if u, err := url.Parse(svc.cfg.Server.BaseURL); err == nil {
		return u.Host
	}
	return ""
}

// staticVariant serves locally stored content and accepts submissions
// without automatic assessment.
type staticVariant struct{}

func (staticVariant) Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	page := Page{ExerciseID: ex.ID, IsLoaded: true}
	if ex.Static != nil {
		page.Content = ex.Static.ExercisePageContent
	}
	return page, nil
}

func (staticVariant) Grade(ctx context.Context, ex *Exercise, sub Submission, req PageRequest) (Page, error) {
	page := Page{ExerciseID: ex.ID, IsLoaded: true, IsAccepted: true}
	if ex.Static != nil {
		page.Content = ex.Static.SubmissionPageContent
	}
	return page, nil
}

func (staticVariant) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	return nil
}

func (staticVariant) IsEmpty(ex *Exercise) bool {
	return ex.ServiceURL == "" && (ex.Static == nil || ex.Static.ExercisePageContent == "")
}

// attachmentVariant keeps the instructions locally and sends a stored
// attachment to the grader along with the submitted files.
type attachmentVariant struct {
	serviceVariant
}

var fileFormTmpl = template.Must(template.New("file_form").Parse(`<form method="post" enctype="multipart/form-data">
{{- range .Files}}
	<label>{{.}} <input type="file" name="{{.}}"></label>
{{- end}}
	<button type="submit">Submit</button>
</form>
`))

func (v attachmentVariant) Load(ctx context.Context, ex *Exercise, req PageRequest) (Page, error) {
	page := Page{ExerciseID: ex.ID, IsLoaded: true}
	if ex.Attachment == nil {
		return page, nil
	}
	page.Content = ex.Attachment.Instructions
	if len(ex.Attachment.FilesToSubmit) > 0 {
		var buf strings.Builder
		if err := fileFormTmpl.Execute(&buf, map[string]interface{}{
			"Files": ex.Attachment.FilesToSubmit,
		}); err != nil {
			return Page{}, errors.Wrap(err, "rendering submit form")
		}
		page.Content += buf.String()
	}
	return page, nil
}

// ModifyPostParameters attaches the stored file; the grader client names
// it by its base name.
func (v attachmentVariant) ModifyPostParameters(ex *Exercise, req PageRequest, form url.Values, files map[string]string, postURL string) error {
	if ex.Attachment == nil || ex.Attachment.AttachmentPath == "" {
		return nil
	}
	files["content_0"] = ex.Attachment.AttachmentPath
	return nil
}

func (v attachmentVariant) IsEmpty(ex *Exercise) bool {
	return ex.ServiceURL == "" && (ex.Attachment == nil || ex.Attachment.Instructions == "")
}
