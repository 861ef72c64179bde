package course

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrInstanceNotFound   = errors.New("course instance not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrGroupNotFound      = errors.New("student group not found")
)

type (
	// Repository provides access to the course reference data kept in sync
	// from the LMS.
	Repository interface {
		GetInstance(ctx context.Context, id int) (CourseInstance, error)
		GetInstanceByURL(ctx context.Context, courseURL, instanceURL string) (CourseInstance, error)
		GetEnrollment(ctx context.Context, instanceID int, studentID string) (Enrollment, error)
		GetGroup(ctx context.Context, instanceID, groupID int) (StudentGroup, error)
		IsCourseStaff(ctx context.Context, instanceID int, studentID string) (bool, error)
		StaffEmails(ctx context.Context, instanceID int) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetInstance(ctx context.Context, id int) (CourseInstance, error) {
	return svc.repo.GetInstance(ctx, id)
}

func (svc *Service) GetInstanceByURL(ctx context.Context, courseURL, instanceURL string) (CourseInstance, error) {
	return svc.repo.GetInstanceByURL(ctx, courseURL, instanceURL)
}

// GetEnrollmentFor returns the student's enrollment in the instance.
func (svc *Service) GetEnrollmentFor(ctx context.Context, instance CourseInstance, student Student) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, instance.ID, student.ID)
}

// FindGroup returns the group only if the student is one of its members;
// ErrGroupNotFound otherwise.
func (svc *Service) FindGroup(ctx context.Context, instance CourseInstance, groupID int, member Student) (StudentGroup, error) {
	group, err := svc.repo.GetGroup(ctx, instance.ID, groupID)
	if err != nil {
		return StudentGroup{}, err
	}
	for _, m := range group.Members {
		if m.ID == member.ID {
			return group, nil
		}
	}
	return StudentGroup{}, ErrGroupNotFound
}

func (svc *Service) IsCourseStaff(ctx context.Context, instanceID int, studentID string) (bool, error) {
	return svc.repo.IsCourseStaff(ctx, instanceID, studentID)
}

// AllStaff reports whether every given student is staff on the instance.
func (svc *Service) AllStaff(ctx context.Context, instanceID int, students []Student) (bool, error) {
	for _, s := range students {
		ok, err := svc.repo.IsCourseStaff(ctx, instanceID, s.ID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ErrorRecipients returns the addresses exercise error reports go to:
// the instance's technical contacts when set, the course staff otherwise.
func (svc *Service) ErrorRecipients(ctx context.Context, instance CourseInstance) ([]string, error) {
	if len(instance.TechnicalErrorEmails) > 0 {
		return instance.TechnicalErrorEmails, nil
	}
	return svc.repo.StaffEmails(ctx, instance.ID)
}
