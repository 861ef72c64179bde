package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

const exerciseQuery = `
SELECT id, course_module_id, category_id, parent_id, kind, status, ord, name, url, service_url,
       min_group_size, max_group_size, max_submissions, max_points, points_to_pass, difficulty, config
FROM exercise`

// ancestorsQuery walks parent_id up from the exercise and returns the chain
// root first, excluding the exercise itself.
const ancestorsQuery = `
WITH RECURSIVE chain AS (
    SELECT e.id, e.parent_id, e.ord, e.url, 0 AS depth
    FROM exercise e
    WHERE e.id = $1
    UNION ALL
    SELECT p.id, p.parent_id, p.ord, p.url, chain.depth + 1
    FROM exercise p
    JOIN chain ON p.id = chain.parent_id
)
SELECT id, ord, url FROM chain WHERE depth > 0 ORDER BY depth DESC`

type exerciseRow struct {
	ID             int      `db:"id"`
	CourseModuleID int      `db:"course_module_id"`
	CategoryID     null.Int `db:"category_id"`
	ParentID       null.Int `db:"parent_id"`
	Kind           string   `db:"kind"`
	Status         string   `db:"status"`
	Ord            int      `db:"ord"`
	Name           string   `db:"name"`
	URL            string   `db:"url"`
	ServiceURL     string   `db:"service_url"`
	MinGroupSize   int      `db:"min_group_size"`
	MaxGroupSize   int      `db:"max_group_size"`
	MaxSubmissions int      `db:"max_submissions"`
	MaxPoints      int      `db:"max_points"`
	PointsToPass   int      `db:"points_to_pass"`
	Difficulty     string   `db:"difficulty"`
	Config         []byte   `db:"config"`
}

type moduleRow struct {
	ID                     int       `db:"id"`
	CourseInstanceID       int       `db:"course_instance_id"`
	Status                 string    `db:"status"`
	Ord                    int       `db:"ord"`
	Name                   string    `db:"name"`
	URL                    string    `db:"url"`
	PointsToPass           int       `db:"points_to_pass"`
	OpeningTime            time.Time `db:"opening_time"`
	ClosingTime            time.Time `db:"closing_time"`
	LateSubmissionsAllowed bool      `db:"late_submissions_allowed"`
	LateSubmissionDeadline time.Time `db:"late_submission_deadline"`
	LateSubmissionPenalty  float64   `db:"late_submission_penalty"`
}

func (r moduleRow) module(ci *course.CourseInstance) *course.CourseModule {
	return &course.CourseModule{
		ID:                     r.ID,
		CourseInstance:         ci,
		Status:                 r.Status,
		Order:                  r.Ord,
		Name:                   r.Name,
		URL:                    r.URL,
		PointsToPass:           r.PointsToPass,
		OpeningTime:            r.OpeningTime,
		ClosingTime:            r.ClosingTime,
		LateSubmissionsAllowed: r.LateSubmissionsAllowed,
		LateSubmissionDeadline: r.LateSubmissionDeadline,
		LateSubmissionPenalty:  r.LateSubmissionPenalty,
	}
}

type categoryRow struct {
	ID                      int    `db:"id"`
	CourseInstanceID        int    `db:"course_instance_id"`
	Status                  string `db:"status"`
	Name                    string `db:"name"`
	PointsToPass            int    `db:"points_to_pass"`
	ConfirmTheLevel         bool   `db:"confirm_the_level"`
	AcceptUnofficialSubmits bool   `db:"accept_unofficial_submits"`
}

func (r categoryRow) category(ci *course.CourseInstance) *course.Category {
	return &course.Category{
		ID:                      r.ID,
		CourseInstance:          ci,
		Status:                  r.Status,
		Name:                    r.Name,
		PointsToPass:            r.PointsToPass,
		ConfirmTheLevel:         r.ConfirmTheLevel,
		AcceptUnofficialSubmits: r.AcceptUnofficialSubmits,
	}
}

type breadcrumbRow struct {
	ID  int    `db:"id"`
	Ord int    `db:"ord"`
	URL string `db:"url"`
}

// ltiConfigRow keeps the consumer secret in the stored payload; the domain
// struct hides it from JSON responses.
type ltiConfigRow struct {
	exercise.LTIConfig
	ConsumerSecret string `json:"consumer_secret"`
}

func marshalConfig(ex *exercise.Exercise) (string, error) {
	var v interface{}
	switch {
	case ex.Chapter != nil:
		v = ex.Chapter
	case ex.LTI != nil:
		v = ltiConfigRow{LTIConfig: *ex.LTI, ConsumerSecret: ex.LTI.ConsumerSecret}
	case ex.Static != nil:
		v = ex.Static
	case ex.Attachment != nil:
		v = ex.Attachment
	default:
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encoding exercise config")
	}
	return string(b), nil
}

func unmarshalConfig(ex *exercise.Exercise, config []byte) error {
	if len(config) == 0 {
		return nil
	}
	var err error
	switch ex.Kind {
	case exercise.KindChapter:
		ex.Chapter = new(exercise.ChapterConfig)
		err = json.Unmarshal(config, ex.Chapter)
	case exercise.KindLTI:
		var row ltiConfigRow
		if err = json.Unmarshal(config, &row); err == nil {
			row.LTIConfig.ConsumerSecret = row.ConsumerSecret
			ex.LTI = &row.LTIConfig
		}
	case exercise.KindStatic:
		ex.Static = new(exercise.StaticConfig)
		err = json.Unmarshal(config, ex.Static)
	case exercise.KindAttachment:
		ex.Attachment = new(exercise.AttachmentConfig)
		err = json.Unmarshal(config, ex.Attachment)
	}
	return errors.Wrap(err, "decoding exercise config")
}

type exerciseRepository struct {
	exec core.DBExecutor
}

var _ exercise.Repository = (*exerciseRepository)(nil) // interface compliance check

func NewExerciseRepository(exec core.DBExecutor) *exerciseRepository {
	return &exerciseRepository{exec: exec}
}

func (repo exerciseRepository) GetExercise(ctx context.Context, id int) (exercise.Exercise, error) {
	var row exerciseRow
	if err := repo.exec.GetContext(ctx, &row, exerciseQuery+` WHERE id = $1`, id); err != nil {
		return exercise.Exercise{}, trapNoRowsErr(err, exercise.ErrExerciseNotFound, "finding exercise")
	}
	return repo.load(ctx, row)
}

func (repo exerciseRepository) GetExerciseByPath(ctx context.Context, instanceID int, path string) (exercise.Exercise, error) {
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	var rows []exerciseRow
	q := exerciseQuery + `
WHERE url = $2 AND course_module_id IN (SELECT id FROM course_module WHERE course_instance_id = $1)
ORDER BY id`
	if err := repo.exec.SelectContext(ctx, &rows, q, instanceID, last); err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "finding exercise by path")
	}
	for _, row := range rows {
		ex, err := repo.load(ctx, row)
		if err != nil {
			return exercise.Exercise{}, err
		}
		if ex.Path() == path {
			return ex, nil
		}
	}
	return exercise.Exercise{}, exercise.ErrExerciseNotFound
}

// load assembles the full exercise: module, instance, category, parent chain
// and the kind-specific payload.
func (repo exerciseRepository) load(ctx context.Context, row exerciseRow) (exercise.Exercise, error) {
	ex := exercise.Exercise{
		ID:             row.ID,
		ParentID:       row.ParentID,
		Kind:           exercise.Kind(row.Kind),
		Status:         row.Status,
		Order:          row.Ord,
		Name:           row.Name,
		URL:            row.URL,
		ServiceURL:     row.ServiceURL,
		MinGroupSize:   row.MinGroupSize,
		MaxGroupSize:   row.MaxGroupSize,
		MaxSubmissions: row.MaxSubmissions,
		MaxPoints:      row.MaxPoints,
		PointsToPass:   row.PointsToPass,
		Difficulty:     row.Difficulty,
	}

	var mrow moduleRow
	q := `
SELECT id, course_instance_id, status, ord, name, url, points_to_pass, opening_time, closing_time,
       late_submissions_allowed, late_submission_deadline, late_submission_penalty
FROM course_module
WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &mrow, q, row.CourseModuleID); err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "fetching course module")
	}
	ci, err := fetchInstance(ctx, repo.exec, mrow.CourseInstanceID)
	if err != nil {
		return exercise.Exercise{}, err
	}
	ex.CourseModule = mrow.module(&ci)

	if row.CategoryID.Valid {
		var crow categoryRow
		q = `
SELECT id, course_instance_id, status, name, points_to_pass, confirm_the_level, accept_unofficial_submits
FROM category
WHERE id = $1`
		if err = repo.exec.GetContext(ctx, &crow, q, row.CategoryID.Int); err != nil {
			return exercise.Exercise{}, errors.Wrap(err, "fetching category")
		}
		ex.Category = crow.category(ex.CourseModule.CourseInstance)
	}

	var crumbs []breadcrumbRow
	if err = repo.exec.SelectContext(ctx, &crumbs, ancestorsQuery, row.ID); err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "fetching exercise ancestors")
	}
	ex.Ancestors = make([]exercise.Breadcrumb, 0, len(crumbs))
	for _, c := range crumbs {
		ex.Ancestors = append(ex.Ancestors, exercise.Breadcrumb{ID: c.ID, Order: c.Ord, URL: c.URL})
	}

	if err = unmarshalConfig(&ex, row.Config); err != nil {
		return exercise.Exercise{}, err
	}
	return ex, nil
}

const insertExerciseQuery = `
INSERT INTO exercise (course_module_id, category_id, parent_id, kind, status, ord, name, url, service_url,
                      min_group_size, max_group_size, max_submissions, max_points, points_to_pass, difficulty, config)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id`

const updateExerciseQuery = `
UPDATE exercise
SET course_module_id = $2, category_id = $3, parent_id = $4, kind = $5, status = $6, ord = $7, name = $8,
    url = $9, service_url = $10, min_group_size = $11, max_group_size = $12, max_submissions = $13,
    max_points = $14, points_to_pass = $15, difficulty = $16, config = $17
WHERE id = $1`

func (repo exerciseRepository) SaveExercise(ctx context.Context, ex *exercise.Exercise) error {
	config, err := marshalConfig(ex)
	if err != nil {
		return err
	}
	var categoryID null.Int
	if ex.Category != nil {
		categoryID = null.IntFrom(ex.Category.ID)
	}

	if ex.ID == 0 {
		err = repo.exec.GetContext(ctx, &ex.ID, insertExerciseQuery,
			ex.CourseModule.ID, categoryID, ex.ParentID, string(ex.Kind), ex.Status, ex.Order, ex.Name, ex.URL,
			ex.ServiceURL, ex.MinGroupSize, ex.MaxGroupSize, ex.MaxSubmissions, ex.MaxPoints, ex.PointsToPass,
			ex.Difficulty, config)
		return errors.Wrap(err, "inserting exercise")
	}

	if _, err = repo.exec.ExecContext(ctx, updateExerciseQuery,
		ex.ID, ex.CourseModule.ID, categoryID, ex.ParentID, string(ex.Kind), ex.Status, ex.Order, ex.Name, ex.URL,
		ex.ServiceURL, ex.MinGroupSize, ex.MaxGroupSize, ex.MaxSubmissions, ex.MaxPoints, ex.PointsToPass,
		ex.Difficulty, config); err != nil {
		return errors.Wrap(err, "updating exercise")
	}
	return nil
}

func (repo exerciseRepository) DeleteExercise(ctx context.Context, id int) error {
	if _, err := repo.exec.ExecContext(ctx, `DELETE FROM exercise WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting exercise")
	}
	return nil
}
