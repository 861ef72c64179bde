package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lib/pq"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/exercise"
)

type deadlineDeviationRow struct {
	ExerciseID         int    `db:"exercise_id"`
	StudentID          string `db:"student_id"`
	ExtraMinutes       int    `db:"extra_minutes"`
	WithoutLatePenalty bool   `db:"without_late_penalty"`
}

type deviationRepository struct {
	exec core.DBExecutor
}

var _ exercise.DeviationRepository = (*deviationRepository)(nil) // interface compliance check

func NewDeviationRepository(exec core.DBExecutor) *deviationRepository {
	return &deviationRepository{exec: exec}
}

func (repo deviationRepository) DeadlineDeviations(ctx context.Context, exerciseID int, studentIDs []string) ([]exercise.DeadlineDeviation, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	q := `
SELECT exercise_id, student_id, extra_minutes, without_late_penalty
FROM deadline_deviation
WHERE exercise_id = $1 AND student_id = ANY($2)`

	var rows []deadlineDeviationRow
	if err := repo.exec.SelectContext(ctx, &rows, q, exerciseID, pq.Array(studentIDs)); err != nil {
		return nil, errors.Wrap(err, "fetching deadline deviations")
	}

	devs := make([]exercise.DeadlineDeviation, 0, len(rows))
	for _, row := range rows {
		devs = append(devs, exercise.DeadlineDeviation{
			ExerciseID:         row.ExerciseID,
			StudentID:          row.StudentID,
			ExtraMinutes:       row.ExtraMinutes,
			WithoutLatePenalty: row.WithoutLatePenalty,
		})
	}
	return devs, nil
}

func (repo deviationRepository) ExtraSubmissions(ctx context.Context, exerciseID int, studentID string) (int, error) {
	q := `SELECT COALESCE(SUM(extra_submissions), 0) FROM max_submissions_deviation WHERE exercise_id = $1 AND student_id = $2`

	var extra int
	if err := repo.exec.GetContext(ctx, &extra, q, exerciseID, studentID); err != nil {
		return 0, errors.Wrap(err, "fetching extra submissions")
	}
	return extra, nil
}
