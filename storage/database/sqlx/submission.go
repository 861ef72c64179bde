package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lib/pq"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

type submissionRow struct {
	ID                 string       `db:"id"`
	ExerciseID         int          `db:"exercise_id"`
	SubmittedAt        time.Time    `db:"submitted_at"`
	Status             string       `db:"status"`
	Grade              int          `db:"grade"`
	LatePenaltyApplied null.Float64 `db:"late_penalty_applied"`
}

func (r submissionRow) submission() exercise.Submission {
	return exercise.Submission{
		ID:                 r.ID,
		ExerciseID:         r.ExerciseID,
		SubmittedAt:        r.SubmittedAt,
		Status:             r.Status,
		Grade:              r.Grade,
		LatePenaltyApplied: r.LatePenaltyApplied,
	}
}

type submitterRow struct {
	SubmissionID string `db:"submission_id"`
	studentRow
}

type submissionRepository struct {
	exec core.DBExecutor
}

var _ exercise.SubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) *submissionRepository {
	return &submissionRepository{exec: exec}
}

// fetchSubmitters loads the submitter sets of the given submissions in one
// round trip, keyed by submission ID.
func (repo submissionRepository) fetchSubmitters(ctx context.Context, ids []string) (map[string][]course.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `
SELECT ss.submission_id, s.id, s.name, s.email, s.external
FROM submission_submitter ss
JOIN student s ON s.id = ss.student_id
WHERE ss.submission_id = ANY($1)
ORDER BY ss.submission_id, ss.ord`

	var rows []submitterRow
	if err := repo.exec.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "fetching submitters")
	}
	submitters := make(map[string][]course.Student, len(ids))
	for _, row := range rows {
		submitters[row.SubmissionID] = append(submitters[row.SubmissionID], row.student())
	}
	return submitters, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string) (exercise.Submission, error) {
	var row submissionRow
	q := `SELECT id, exercise_id, submitted_at, status, grade, late_penalty_applied FROM submission WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return exercise.Submission{}, trapNoRowsErr(err, exercise.ErrSubmissionNotFound, "finding submission")
	}

	submitters, err := repo.fetchSubmitters(ctx, []string{id})
	if err != nil {
		return exercise.Submission{}, err
	}
	sub := row.submission()
	sub.Submitters = submitters[id]
	return sub, nil
}

func (repo submissionRepository) ListForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) ([]exercise.Submission, error) {
	q := `
SELECT sub.id, sub.exercise_id, sub.submitted_at, sub.status, sub.grade, sub.late_penalty_applied
FROM submission sub
JOIN submission_submitter ss ON ss.submission_id = sub.id
WHERE sub.exercise_id = $1 AND ss.student_id = $2`
	args := []interface{}{exerciseID, studentID}
	if excludeErrors {
		q += ` AND sub.status <> $3`
		args = append(args, exercise.SubmissionStatusError)
	}
	q += ` ORDER BY sub.submitted_at, sub.id`

	var rows []submissionRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing submissions")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	submitters, err := repo.fetchSubmitters(ctx, ids)
	if err != nil {
		return nil, err
	}

	subs := make([]exercise.Submission, 0, len(rows))
	for _, row := range rows {
		sub := row.submission()
		sub.Submitters = submitters[row.ID]
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo submissionRepository) CountForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) (int, error) {
	q := `
SELECT count(*)
FROM submission sub
JOIN submission_submitter ss ON ss.submission_id = sub.id
WHERE sub.exercise_id = $1 AND ss.student_id = $2`
	args := []interface{}{exerciseID, studentID}
	if excludeErrors {
		q += ` AND sub.status <> $3`
		args = append(args, exercise.SubmissionStatusError)
	}

	var count int
	if err := repo.exec.GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}

func (repo submissionRepository) CountForStudentBefore(ctx context.Context, exerciseID int, studentID string, before time.Time) (int, error) {
	q := `
SELECT count(*)
FROM submission sub
JOIN submission_submitter ss ON ss.submission_id = sub.id
WHERE sub.exercise_id = $1 AND ss.student_id = $2 AND sub.submitted_at < $3`

	var count int
	if err := repo.exec.GetContext(ctx, &count, q, exerciseID, studentID, before); err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}
