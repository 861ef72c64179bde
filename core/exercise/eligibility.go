package exercise

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core/course"
)

// Verdict is the outcome of a submission eligibility check. A denied
// attempt is expected data, not an error: Warnings explain the denial (or
// accompany an allowed verdict, e.g. late-penalty notices) and Students is
// the resolved submitter set the attempt would be credited to.
type Verdict struct {
	Allowed  bool             `json:"allowed"`
	Warnings []string         `json:"warnings"`
	Students []course.Student `json:"students"`
}

// GroupChanged reports whether the requested group differs from the
// submitter set of an earlier submission. A nil group means a solo attempt.
// Membership comparison only, order does not matter.
func GroupChanged(priorSubmitters []course.Student, group *course.StudentGroup, requester course.Student) bool {
	if group != nil {
		return !group.Equals(priorSubmitters)
	}
	return len(priorSubmitters) > 1 || priorSubmitters[0].ID != requester.ID
}

// DuplicateAcrossGroups reports whether any group member other than the
// requester already submitted, given each member's submission count. Solo
// attempts never conflict.
func DuplicateAcrossGroups(group *course.StudentGroup, requester course.Student, submissionCounts map[string]int) bool {
	if group == nil {
		return false
	}
	for _, m := range group.Members {
		if m.ID != requester.ID && submissionCounts[m.ID] > 0 {
			return true
		}
	}
	return false
}

// IsSubmissionAllowed decides whether the requester may submit to the
// exercise right now and with whom, collecting human-readable warnings
// along the way.
//
// groupID carries the group selection posted with the attempt: nil falls
// back to the group selected at enrollment, zero or negative means
// deliberately solo. Staff may submit over timing, group and quota
// restrictions but never over enrollment-exercise audience limits.
func (svc *Service) IsSubmissionAllowed(ctx context.Context, ex *Exercise, requester course.Student, groupID *int) (Verdict, error) {
	if !ex.IsSubmittable() {
		return Verdict{}, ErrNotSubmittable
	}

	students := []course.Student{requester}
	var warnings []string
	instance := ex.CourseInstance()

	enrollment, err := svc.courseSvc.GetEnrollmentFor(ctx, *instance, requester)
	enrolled := err == nil
	if err != nil && errors.Cause(err) != course.ErrEnrollmentNotFound {
		return Verdict{}, err
	}

	if ex.IsEnrollmentExercise() {
		if !instance.IsEnrollable(requester) {
			return Verdict{
				Warnings: []string{"You cannot enroll in the course."},
				Students: students,
			}, nil
		}
	} else if !enrolled {
		staff, err := svc.courseSvc.IsCourseStaff(ctx, instance.ID, requester.ID)
		if err != nil {
			return Verdict{}, err
		}
		return Verdict{
			Allowed:  staff,
			Warnings: []string{"You must enroll at course home to submit exercises."},
			Students: students,
		}, nil
	}

	group, err := svc.resolveGroup(ctx, instance, requester, enrollment, enrolled, groupID)
	if err != nil {
		return Verdict{}, err
	}

	// Groups cannot change while submissions to the exercise exist.
	priors, err := svc.submissions.ListForStudent(ctx, ex.ID, requester.ID, false)
	if err != nil {
		return Verdict{}, err
	}
	if len(priors) > 0 {
		first := priors[0]
		if GroupChanged(first.Submitters, group, requester) {
			msg := "Group can only change between different exercises."
			if len(first.Submitters) == 1 {
				warnings = append(warnings, "You have previously submitted to this exercise alone. "+msg)
			} else {
				warnings = append(warnings, fmt.Sprintf(
					"You have previously submitted to this exercise with %s. %s",
					course.FormatCollaboratorNames(first.Submitters, requester), msg))
			}
			return Verdict{Warnings: warnings, Students: students}, nil
		}
	} else if group != nil {
		counts, err := svc.memberSubmissionCounts(ctx, ex, group, requester)
		if err != nil {
			return Verdict{}, err
		}
		if DuplicateAcrossGroups(group, requester, counts) {
			warnings = append(warnings, fmt.Sprintf(
				"%s already submitted to this exercise in a different group.",
				group.CollaboratorNames(requester)))
			return Verdict{Warnings: warnings, Students: students}, nil
		}
	}

	if group != nil {
		students = append([]course.Student(nil), group.Members...)
	}

	if len(students) < ex.MinGroupSize || len(students) > ex.MaxGroupSize {
		size := strconv.Itoa(ex.MinGroupSize)
		if ex.MaxGroupSize != ex.MinGroupSize {
			size = fmt.Sprintf("%d-%d", ex.MinGroupSize, ex.MaxGroupSize)
		}
		warnings = append(warnings, fmt.Sprintf(
			"This exercise must be submitted in groups of %s students.", size))
	}

	accessOK, accessWarnings, err := svc.Access(ctx, ex, students, svc.now())
	if err != nil {
		return Verdict{}, err
	}

	hasQuota, err := svc.OneHasSubmissions(ctx, ex, students)
	if err != nil {
		return Verdict{}, err
	}
	if !hasQuota {
		if ex.CourseModule.LateSubmissionsAllowed {
			accessWarnings = append(accessWarnings,
				"You have used the allowed amount of submissions for this exercise. You may still submit unofficially to receive feedback.")
		} else {
			warnings = append(warnings,
				"You have used the allowed amount of submissions for this exercise.")
		}
	}

	allowed := accessOK && len(warnings) == 0
	if !allowed {
		staff, err := svc.courseSvc.AllStaff(ctx, instance.ID, students)
		if err != nil {
			return Verdict{}, err
		}
		allowed = staff
	}
	return Verdict{
		Allowed:  allowed,
		Warnings: append(warnings, accessWarnings...),
		Students: students,
	}, nil
}

// resolveGroup picks the group the attempt is made with: the explicitly
// posted one (requester must be a member, else solo) or the one selected at
// enrollment.
func (svc *Service) resolveGroup(
	ctx context.Context,
	instance *course.CourseInstance,
	requester course.Student,
	enrollment course.Enrollment,
	enrolled bool,
	groupID *int,
) (*course.StudentGroup, error) {
	var gid int
	switch {
	case groupID != nil:
		gid = *groupID
	case enrolled && enrollment.SelectedGroupID.Valid:
		gid = enrollment.SelectedGroupID.Int
	}
	if gid <= 0 {
		return nil, nil
	}
	group, err := svc.courseSvc.FindGroup(ctx, *instance, gid, requester)
	if err != nil {
		if errors.Cause(err) == course.ErrGroupNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (svc *Service) memberSubmissionCounts(ctx context.Context, ex *Exercise, group *course.StudentGroup, requester course.Student) (map[string]int, error) {
	counts := make(map[string]int, len(group.Members))
	for _, m := range group.Members {
		if m.ID == requester.ID {
			continue
		}
		n, err := svc.submissions.CountForStudent(ctx, ex.ID, m.ID, false)
		if err != nil {
			return nil, err
		}
		counts[m.ID] = n
	}
	return counts, nil
}
