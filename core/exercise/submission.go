package exercise

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core/course"
)

// Submission statuses
const (
	// SubmissionStatusInitialized - submission accepted, not yet sent for grading
	SubmissionStatusInitialized = "initialized"
	// SubmissionStatusWaiting - sent to the grading service, awaiting feedback
	SubmissionStatusWaiting = "waiting"
	// SubmissionStatusReady - graded
	SubmissionStatusReady = "ready"
	// SubmissionStatusError - the grading service failed on it
	SubmissionStatusError = "error"
	// SubmissionStatusRejected - the grading service refused it
	SubmissionStatusRejected = "rejected"
)

type (
	// Submission is one submission attempt credited to an ordered set of
	// submitters. The eligibility rules only ever read submissions; writes
	// happen in the grading pipeline.
	Submission struct {
		ID                 string           `json:"id"`
		ExerciseID         int              `json:"exercise_id"`
		Submitters         []course.Student `json:"submitters"`
		SubmittedAt        time.Time        `json:"submitted_at"`
		Status             string           `json:"status"`
		Grade              int              `json:"grade"`
		LatePenaltyApplied null.Float64     `json:"late_penalty_applied"`
	}

	// SubmissionRepository reads the submission history.
	SubmissionRepository interface {
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// ListForStudent returns the student's submissions to the exercise
		// in submission-time order, oldest first. excludeErrors drops
		// submissions the grading service failed on.
		ListForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) ([]Submission, error)
		CountForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) (int, error)
		// CountForStudentBefore counts the student's submissions to the
		// exercise made strictly before the given instant.
		CountForStudentBefore(ctx context.Context, exerciseID int, studentID string, before time.Time) (int, error)
	}
)

// IsErrored reports whether the grading service failed on the submission.
// Errored submissions never consume quota.
func (s Submission) IsErrored() bool {
	return s.Status == SubmissionStatusError
}
