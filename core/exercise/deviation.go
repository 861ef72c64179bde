package exercise

import (
	"context"
	"time"

	"github.com/trezcool/mazoezi/core/course"
)

type (
	// DeadlineDeviation grants one student extra time on one exercise,
	// optionally waiving the late penalty.
	DeadlineDeviation struct {
		ExerciseID         int    `json:"exercise_id"`
		StudentID          string `json:"student_id"`
		ExtraMinutes       int    `json:"extra_minutes"`
		WithoutLatePenalty bool   `json:"without_late_penalty"`
	}

	// MaxSubmissionsDeviation grants one student extra submissions on one
	// exercise, additive to the exercise default.
	MaxSubmissionsDeviation struct {
		ExerciseID       int    `json:"exercise_id"`
		StudentID        string `json:"student_id"`
		ExtraSubmissions int    `json:"extra_submissions"`
	}

	// DeviationRepository reads per-student overrides granted by staff.
	DeviationRepository interface {
		// DeadlineDeviations returns the deadline deviations any of the
		// students holds on the exercise.
		DeadlineDeviations(ctx context.Context, exerciseID int, studentIDs []string) ([]DeadlineDeviation, error)
		// ExtraSubmissions returns the student's extra submission quota on
		// the exercise, 0 when no deviation exists.
		ExtraSubmissions(ctx context.Context, exerciseID int, studentID string) (int, error)
	}
)

// NewDeadline is the deadline the deviation grants: module closing time
// plus the extra time.
func (d DeadlineDeviation) NewDeadline(module *course.CourseModule) time.Time {
	return module.ClosingTime.Add(time.Duration(d.ExtraMinutes) * time.Minute)
}

// BestDeadlineDeviation picks the deviation with the latest resulting
// deadline, the whole group benefits from it. First seen wins ties. Returns
// nil when none apply.
func BestDeadlineDeviation(devs []DeadlineDeviation, module *course.CourseModule) *DeadlineDeviation {
	var best *DeadlineDeviation
	for i := range devs {
		d := &devs[i]
		if best == nil || d.NewDeadline(module).After(best.NewDeadline(module)) {
			best = d
		}
	}
	return best
}
