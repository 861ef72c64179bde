package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lib/pq"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
)

// trapNoRowsErr maps psql "no rows" err to the given domain err
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

const instanceQuery = `
SELECT ci.id, ci.instance_name, ci.url, ci.visible, ci.enrollment_audience,
       ci.starting_time, ci.ending_time, ci.lifesupport_time, ci.archive_time,
       ci.enrollment_starting_time, ci.enrollment_ending_time, ci.technical_error_emails,
       c.id AS course_id, c.code AS course_code, c.name AS course_name, c.url AS course_url
FROM course_instance ci
JOIN course c ON c.id = ci.course_id`

type instanceRow struct {
	ID                     int            `db:"id"`
	InstanceName           string         `db:"instance_name"`
	URL                    string         `db:"url"`
	Visible                bool           `db:"visible"`
	EnrollmentAudience     int            `db:"enrollment_audience"`
	StartingTime           time.Time      `db:"starting_time"`
	EndingTime             time.Time      `db:"ending_time"`
	LifesupportTime        null.Time      `db:"lifesupport_time"`
	ArchiveTime            null.Time      `db:"archive_time"`
	EnrollmentStartingTime null.Time      `db:"enrollment_starting_time"`
	EnrollmentEndingTime   null.Time      `db:"enrollment_ending_time"`
	TechnicalErrorEmails   pq.StringArray `db:"technical_error_emails"`
	CourseID               int            `db:"course_id"`
	CourseCode             string         `db:"course_code"`
	CourseName             string         `db:"course_name"`
	CourseURL              string         `db:"course_url"`
}

func (r instanceRow) instance() course.CourseInstance {
	return course.CourseInstance{
		ID: r.ID,
		Course: course.Course{
			ID:   r.CourseID,
			Code: r.CourseCode,
			Name: r.CourseName,
			URL:  r.CourseURL,
		},
		InstanceName:           r.InstanceName,
		URL:                    r.URL,
		Visible:                r.Visible,
		EnrollmentAudience:     r.EnrollmentAudience,
		StartingTime:           r.StartingTime,
		EndingTime:             r.EndingTime,
		LifesupportTime:        r.LifesupportTime,
		ArchiveTime:            r.ArchiveTime,
		EnrollmentStartingTime: r.EnrollmentStartingTime,
		EnrollmentEndingTime:   r.EnrollmentEndingTime,
		TechnicalErrorEmails:   r.TechnicalErrorEmails,
	}
}

func fetchInstance(ctx context.Context, exec core.DBExecutor, id int) (course.CourseInstance, error) {
	var row instanceRow
	if err := exec.GetContext(ctx, &row, instanceQuery+` WHERE ci.id = $1`, id); err != nil {
		return course.CourseInstance{}, trapNoRowsErr(err, course.ErrInstanceNotFound, "finding course instance")
	}
	return row.instance(), nil
}

type studentRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	External bool   `db:"external"`
}

func (r studentRow) student() course.Student {
	return course.Student{
		ID:       r.ID,
		Name:     r.Name,
		Email:    r.Email,
		External: r.External,
	}
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) GetInstance(ctx context.Context, id int) (course.CourseInstance, error) {
	return fetchInstance(ctx, repo.exec, id)
}

func (repo courseRepository) GetInstanceByURL(ctx context.Context, courseURL, instanceURL string) (course.CourseInstance, error) {
	var row instanceRow
	if err := repo.exec.GetContext(ctx, &row, instanceQuery+` WHERE c.url = $1 AND ci.url = $2`, courseURL, instanceURL); err != nil {
		return course.CourseInstance{}, trapNoRowsErr(err, course.ErrInstanceNotFound, "finding course instance by url")
	}
	return row.instance(), nil
}

type enrollmentRow struct {
	CourseInstanceID int       `db:"course_instance_id"`
	Timestamp        time.Time `db:"timestamp"`
	PersonalCode     string    `db:"personal_code"`
	SelectedGroupID  null.Int  `db:"selected_group_id"`
	StudentID        string    `db:"student_id"`
	StudentName      string    `db:"student_name"`
	StudentEmail     string    `db:"student_email"`
	StudentExternal  bool      `db:"student_external"`
}

func (r enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment{
		CourseInstanceID: r.CourseInstanceID,
		Student: course.Student{
			ID:       r.StudentID,
			Name:     r.StudentName,
			Email:    r.StudentEmail,
			External: r.StudentExternal,
		},
		Timestamp:       r.Timestamp,
		PersonalCode:    r.PersonalCode,
		SelectedGroupID: r.SelectedGroupID,
	}
}

func (repo courseRepository) GetEnrollment(ctx context.Context, instanceID int, studentID string) (course.Enrollment, error) {
	q := `
SELECT e.course_instance_id, e.timestamp, e.personal_code, e.selected_group_id,
       s.id AS student_id, s.name AS student_name, s.email AS student_email, s.external AS student_external
FROM enrollment e
JOIN student s ON s.id = e.student_id
WHERE e.course_instance_id = $1 AND e.student_id = $2`

	var row enrollmentRow
	if err := repo.exec.GetContext(ctx, &row, q, instanceID, studentID); err != nil {
		return course.Enrollment{}, trapNoRowsErr(err, course.ErrEnrollmentNotFound, "finding enrollment")
	}
	return row.enrollment(), nil
}

type groupRow struct {
	ID               int       `db:"id"`
	CourseInstanceID int       `db:"course_instance_id"`
	Timestamp        time.Time `db:"timestamp"`
}

func (repo courseRepository) GetGroup(ctx context.Context, instanceID, groupID int) (course.StudentGroup, error) {
	var row groupRow
	q := `SELECT id, course_instance_id, timestamp FROM student_group WHERE course_instance_id = $1 AND id = $2`
	if err := repo.exec.GetContext(ctx, &row, q, instanceID, groupID); err != nil {
		return course.StudentGroup{}, trapNoRowsErr(err, course.ErrGroupNotFound, "finding student group")
	}

	var members []studentRow
	q = `
SELECT s.id, s.name, s.email, s.external
FROM student s
JOIN student_group_member m ON m.student_id = s.id
WHERE m.group_id = $1
ORDER BY s.id`
	if err := repo.exec.SelectContext(ctx, &members, q, groupID); err != nil {
		return course.StudentGroup{}, errors.Wrap(err, "fetching group members")
	}

	grp := course.StudentGroup{
		ID:               row.ID,
		CourseInstanceID: row.CourseInstanceID,
		Timestamp:        row.Timestamp,
		Members:          make([]course.Student, 0, len(members)),
	}
	for _, m := range members {
		grp.Members = append(grp.Members, m.student())
	}
	return grp, nil
}

func (repo courseRepository) IsCourseStaff(ctx context.Context, instanceID int, studentID string) (bool, error) {
	var isStaff bool
	q := `SELECT EXISTS (SELECT 1 FROM course_staff WHERE course_instance_id = $1 AND student_id = $2)`
	if err := repo.exec.GetContext(ctx, &isStaff, q, instanceID, studentID); err != nil {
		return false, errors.Wrap(err, "checking course staff")
	}
	return isStaff, nil
}

func (repo courseRepository) StaffEmails(ctx context.Context, instanceID int) ([]string, error) {
	emails := make([]string, 0)
	q := `
SELECT s.email
FROM student s
JOIN course_staff cs ON cs.student_id = s.id
WHERE cs.course_instance_id = $1
ORDER BY s.email`
	if err := repo.exec.SelectContext(ctx, &emails, q, instanceID); err != nil {
		return nil, errors.Wrap(err, "fetching staff emails")
	}
	return emails, nil
}
