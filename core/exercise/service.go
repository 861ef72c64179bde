package exercise

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/cache"
	"github.com/trezcool/mazoezi/core/course"
)

var (
	ErrExerciseNotFound   = errors.New("exercise not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotSubmittable     = errors.New("exercise does not accept submissions")
	ErrTokenInvalid       = errors.New("invalid grader token")
)

type (
	// Repository provides access to the exercise reference data. Saves and
	// deletes go through Service so the content cache stays in sync.
	Repository interface {
		GetExercise(ctx context.Context, id int) (Exercise, error)
		// GetExerciseByPath resolves a hierarchical exercise path (see
		// Exercise.Path) within a course instance.
		GetExerciseByPath(ctx context.Context, instanceID int, path string) (Exercise, error)
		SaveExercise(ctx context.Context, ex *Exercise) error
		DeleteExercise(ctx context.Context, id int) error
	}

	Service struct {
		cfg         *core.Config
		log         core.Logger
		courseSvc   *course.Service
		repo        Repository
		submissions SubmissionRepository
		deviations  DeviationRepository
		loader      PageLoader
		signer      RequestSigner
		store       cache.Store
		mailSvc     core.EmailService

		now func() time.Time
	}
)

func NewService(
	cfg *core.Config,
	log core.Logger,
	courseSvc *course.Service,
	repo Repository,
	subRepo SubmissionRepository,
	devRepo DeviationRepository,
	loader PageLoader,
	signer RequestSigner,
	store cache.Store,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		cfg:         cfg,
		log:         log,
		courseSvc:   courseSvc,
		repo:        repo,
		submissions: subRepo,
		deviations:  devRepo,
		loader:      loader,
		signer:      signer,
		store:       store,
		mailSvc:     mailSvc,
		now:         time.Now,
	}
}

func (svc *Service) GetExercise(ctx context.Context, id int) (Exercise, error) {
	return svc.repo.GetExercise(ctx, id)
}

func (svc *Service) GetExerciseByPath(ctx context.Context, instanceID int, path string) (Exercise, error) {
	return svc.repo.GetExerciseByPath(ctx, instanceID, path)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.submissions.GetSubmission(ctx, id)
}

// SaveExercise validates and persists the exercise, then drops its cached
// content (and the parent's, whose page may embed it) for every configured
// language. Invalidation is synchronous with the write.
func (svc *Service) SaveExercise(ctx context.Context, ex *Exercise) error {
	if err := ex.Clean(); err != nil {
		return err
	}
	if err := svc.repo.SaveExercise(ctx, ex); err != nil {
		return errors.Wrap(err, "saving exercise")
	}
	svc.InvalidatePage(ctx, ex)
	return nil
}

// DeleteExercise removes the exercise and drops its cached content.
func (svc *Service) DeleteExercise(ctx context.Context, ex *Exercise) error {
	if err := svc.repo.DeleteExercise(ctx, ex.ID); err != nil {
		return errors.Wrap(err, "deleting exercise")
	}
	svc.InvalidatePage(ctx, ex)
	return nil
}

// MaxSubmissionsFor is the student's personal submission quota: the
// exercise default plus any extra granted by deviation. 0 = unlimited.
func (svc *Service) MaxSubmissionsFor(ctx context.Context, ex *Exercise, student course.Student) (int, error) {
	if ex.MaxSubmissions == 0 {
		return 0, nil
	}
	extra, err := svc.deviations.ExtraSubmissions(ctx, ex.ID, student.ID)
	if err != nil {
		return 0, err
	}
	return ex.MaxSubmissions + extra, nil
}

// OneHasSubmissions reports whether at least one of the students still has
// quota left on the exercise. A group may submit as long as one member can.
func (svc *Service) OneHasSubmissions(ctx context.Context, ex *Exercise, students []course.Student) (bool, error) {
	if ex.MaxSubmissions == 0 {
		return true, nil
	}
	for _, s := range students {
		count, err := svc.submissions.CountForStudent(ctx, ex.ID, s.ID, true)
		if err != nil {
			return false, err
		}
		max, err := svc.MaxSubmissionsFor(ctx, ex, s)
		if err != nil {
			return false, err
		}
		if count < max {
			return true, nil
		}
	}
	return false, nil
}

// NoSubmissionsLeft reports whether every student has used up their whole
// quota on the exercise. Always false on unlimited exercises.
func (svc *Service) NoSubmissionsLeft(ctx context.Context, ex *Exercise, students []course.Student) (bool, error) {
	if ex.MaxSubmissions == 0 {
		return false, nil
	}
	for _, s := range students {
		count, err := svc.submissions.CountForStudent(ctx, ex.ID, s.ID, true)
		if err != nil {
			return false, err
		}
		max, err := svc.MaxSubmissionsFor(ctx, ex, s)
		if err != nil {
			return false, err
		}
		if count < max {
			return false, nil
		}
	}
	return true, nil
}

// OrdinalNumber is the 1-based rank of the submission among the first
// submitter's submissions to the exercise.
func (svc *Service) OrdinalNumber(ctx context.Context, sub Submission) (int, error) {
	if len(sub.Submitters) == 0 {
		return 1, nil
	}
	count, err := svc.submissions.CountForStudentBefore(ctx, sub.ExerciseID, sub.Submitters[0].ID, sub.SubmittedAt)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

// bestDeadlineDeviation resolves the deviation the submitter set benefits
// from: the one with the latest resulting deadline across all of them.
func (svc *Service) bestDeadlineDeviation(ctx context.Context, ex *Exercise, students []course.Student) (*DeadlineDeviation, error) {
	devs, err := svc.deviations.DeadlineDeviations(ctx, ex.ID, course.SortedIDs(students))
	if err != nil {
		return nil, err
	}
	return BestDeadlineDeviation(devs, ex.CourseModule), nil
}

// Access checks whether any of the students may submit right now, taking
// granted extra time into account, and returns the timing warnings.
func (svc *Service) Access(ctx context.Context, ex *Exercise, students []course.Student, when time.Time) (bool, []string, error) {
	dev, err := svc.bestDeadlineDeviation(ctx, ex, students)
	if err != nil {
		return false, nil, err
	}
	ok, warnings := ex.Access(dev, when)
	return ok, warnings, nil
}

// GetTiming evaluates the submission window for the students at the given
// instant, deviations included.
func (svc *Service) GetTiming(ctx context.Context, ex *Exercise, students []course.Student, when time.Time) (Timing, error) {
	dev, err := svc.bestDeadlineDeviation(ctx, ex, students)
	if err != nil {
		return Timing{}, err
	}
	return ex.Timing(dev, when), nil
}

// GraderClaims authorize an external grading service to call back about one
// exercise or one submission.
type GraderClaims struct {
	jwt.StandardClaims
	ExerciseID   int    `json:"exercise_id,omitempty"`
	StudentID    string `json:"student_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
}

func (svc *Service) signGraderClaims(claims *GraderClaims) (string, error) {
	now := svc.now()
	claims.Issuer = svc.cfg.AppName
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(svc.cfg.Server.GraderTokenExpiration).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(svc.cfg.SecretKey))
	return ss, errors.Wrap(err, "signing grader token")
}

// ParseGraderToken validates a grader callback token and returns its claims.
func (svc *Service) ParseGraderToken(tokenStr string) (GraderClaims, error) {
	var claims GraderClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(svc.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return GraderClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// submissionCallbackURL is the absolute address the grading service posts
// exercise results to, authorized by a signed token for the acting student.
func (svc *Service) submissionCallbackURL(ex *Exercise, student course.Student) (string, error) {
	token, err := svc.signGraderClaims(&GraderClaims{ExerciseID: ex.ID, StudentID: student.ID})
	if err != nil {
		return "", err
	}
	base := svc.cfg.Server.BaseURL
	if svc.cfg.Server.OverrideSubmissionHost != "" {
		base = svc.cfg.Server.OverrideSubmissionHost
	}
	return core.UpdateURLParams(fmt.Sprintf("%s/v1/exercises/%d/grade", base, ex.ID), map[string]string{
		"token": token,
	}), nil
}

// feedbackCallbackURL is the absolute address the grading service posts
// regrade results of one submission to.
func (svc *Service) feedbackCallbackURL(sub Submission) (string, error) {
	token, err := svc.signGraderClaims(&GraderClaims{SubmissionID: sub.ID})
	if err != nil {
		return "", err
	}
	base := svc.cfg.Server.BaseURL
	if svc.cfg.Server.OverrideSubmissionHost != "" {
		base = svc.cfg.Server.OverrideSubmissionHost
	}
	return core.UpdateURLParams(fmt.Sprintf("%s/v1/submissions/%s/grade", base, sub.ID), map[string]string{
		"token": token,
	}), nil
}

func (svc *Service) exercisePostURL(ex *Exercise) string {
	return fmt.Sprintf("%s/v1/exercises/%d", svc.cfg.Server.BaseURL, ex.ID)
}

// buildServiceURL composes the complete address of the exercise service
// with the grading protocol parameters appended.
func (svc *Service) buildServiceURL(ex *Exercise, language string, students []course.Student, ordinal int, submissionURL string) string {
	return core.UpdateURLParams(ex.ServiceURL, map[string]string{
		"max_points":      strconv.Itoa(ex.MaxPoints),
		"max_submissions": strconv.Itoa(ex.MaxSubmissions),
		"submission_url":  submissionURL,
		"post_url":        svc.exercisePostURL(ex),
		"uid":             strings.Join(course.SortedIDs(students), "-"),
		"ordinal_number":  strconv.Itoa(ordinal),
		"lang":            language,
	})
}

// reportServiceError mails the instance's technical contacts about a
// misbehaving exercise service. Best effort.
func (svc *Service) reportServiceError(ctx context.Context, ex *Exercise, err error) {
	recipients, rerr := svc.courseSvc.ErrorRecipients(ctx, *ex.CourseInstance())
	if rerr != nil {
		svc.log.Warn("resolving error report recipients failed", "exercise", ex.ID, "err", rerr)
	}
	if len(recipients) == 0 && svc.cfg.TechErrorEmail != "" {
		recipients = []string{svc.cfg.TechErrorEmail}
	}
	if len(recipients) == 0 {
		return
	}

	msg := &core.EmailMessage{
		Subject: fmt.Sprintf("Exercise service error: %s", ex.Name),
		BodyStr: fmt.Sprintf(
			"The service of exercise %s (%s) failed.\n\nService URL: %s\nError: %v\n",
			ex.Name, ex.CourseInstance(), ex.ServiceURL, err,
		),
	}
	msg.AddRecipients(recipients...)
	svc.mailSvc.SendMessages(msg)
}
