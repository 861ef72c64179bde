package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/mazoezi/core/exercise"
)

type exerciseRepository struct {
	db *DB
}

var _ exercise.Repository = (*exerciseRepository)(nil) // interface compliance check

func NewExerciseRepository(db *DB) exercise.Repository {
	return &exerciseRepository{db: db}
}

func (repo *exerciseRepository) GetExercise(ctx context.Context, id int) (exercise.Exercise, error) {
	repo.db.exercise.mutex.RLock()
	defer repo.db.exercise.mutex.RUnlock()

	if ex, ok := repo.db.exercise.table[id]; ok {
		return *ex, nil
	}
	return exercise.Exercise{}, exercise.ErrExerciseNotFound
}

func (repo *exerciseRepository) GetExerciseByPath(ctx context.Context, instanceID int, path string) (exercise.Exercise, error) {
	repo.db.exercise.mutex.RLock()
	defer repo.db.exercise.mutex.RUnlock()

	for _, ex := range repo.db.exercise.table {
		if ex.CourseModule == nil || ex.CourseModule.CourseInstance == nil {
			continue
		}
		if ex.CourseInstance().ID == instanceID && ex.Path() == path {
			return *ex, nil
		}
	}
	return exercise.Exercise{}, exercise.ErrExerciseNotFound
}

func (repo *exerciseRepository) SaveExercise(ctx context.Context, ex *exercise.Exercise) error {
	repo.db.exercise.mutex.Lock()
	defer repo.db.exercise.mutex.Unlock()

	if ex.ID == 0 {
		repo.db.exercise.pkCount++
		ex.ID = repo.db.exercise.pkCount
	}
	cp := *ex
	repo.db.exercise.table[ex.ID] = &cp
	return nil
}

func (repo *exerciseRepository) DeleteExercise(ctx context.Context, id int) error {
	repo.db.exercise.mutex.Lock()
	defer repo.db.exercise.mutex.Unlock()

	delete(repo.db.exercise.table, id)
	return nil
}

type submissionRepository struct {
	db *DB
}

var _ exercise.SubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) exercise.SubmissionRepository {
	return &submissionRepository{db: db}
}

// list filters under an acquired read lock.
func (repo *submissionRepository) list(exerciseID int, studentID string, excludeErrors bool) []exercise.Submission {
	subs := make([]exercise.Submission, 0)
	for _, sub := range repo.db.submission.table {
		if sub.ExerciseID != exerciseID {
			continue
		}
		if excludeErrors && sub.Status == exercise.SubmissionStatusError {
			continue
		}
		for _, s := range sub.Submitters {
			if s.ID == studentID {
				subs = append(subs, *sub)
				break
			}
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (exercise.Submission, error) {
	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()

	if sub, ok := repo.db.submission.table[id]; ok {
		return *sub, nil
	}
	return exercise.Submission{}, exercise.ErrSubmissionNotFound
}

func (repo *submissionRepository) ListForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) ([]exercise.Submission, error) {
	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()
	return repo.list(exerciseID, studentID, excludeErrors), nil
}

func (repo *submissionRepository) CountForStudent(ctx context.Context, exerciseID int, studentID string, excludeErrors bool) (int, error) {
	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()
	return len(repo.list(exerciseID, studentID, excludeErrors)), nil
}

func (repo *submissionRepository) CountForStudentBefore(ctx context.Context, exerciseID int, studentID string, before time.Time) (int, error) {
	repo.db.submission.mutex.RLock()
	defer repo.db.submission.mutex.RUnlock()

	var count int
	for _, sub := range repo.list(exerciseID, studentID, false) {
		if sub.SubmittedAt.Before(before) {
			count++
		}
	}
	return count, nil
}

type deviationRepository struct {
	db *DB
}

var _ exercise.DeviationRepository = (*deviationRepository)(nil) // interface compliance check

func NewDeviationRepository(db *DB) exercise.DeviationRepository {
	return &deviationRepository{db: db}
}

func (repo *deviationRepository) DeadlineDeviations(ctx context.Context, exerciseID int, studentIDs []string) ([]exercise.DeadlineDeviation, error) {
	repo.db.deviation.mutex.RLock()
	defer repo.db.deviation.mutex.RUnlock()

	devs := make([]exercise.DeadlineDeviation, 0, len(studentIDs))
	for _, sid := range studentIDs {
		if dev, ok := repo.db.deviation.deadlines[deviationKey(exerciseID, sid)]; ok {
			devs = append(devs, *dev)
		}
	}
	return devs, nil
}

func (repo *deviationRepository) ExtraSubmissions(ctx context.Context, exerciseID int, studentID string) (int, error) {
	repo.db.deviation.mutex.RLock()
	defer repo.db.deviation.mutex.RUnlock()
	return repo.db.deviation.extras[deviationKey(exerciseID, studentID)], nil
}
