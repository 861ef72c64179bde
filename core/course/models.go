package course

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
)

// Enrollment audiences
const (
	AudienceInternalUsers = 1
	AudienceExternalUsers = 2
	AudienceAllUsers      = 3
)

// Module statuses
const (
	ModuleStatusReady       = "ready"
	ModuleStatusUnlisted    = "unlisted"
	ModuleStatusHidden      = "hidden"
	ModuleStatusMaintenance = "maintenance"
)

var reservedModuleURLs = []string{"toc", "teachers", "user", "exercises", "apps", "lti-login"}

// Student identifies a course participant. Profiles are owned by an external
// identity service; only the fields the submission rules need are carried.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	External bool   `json:"external"`
}

// SortedIDs returns the deduplicated student IDs in ascending order.
func SortedIDs(students []Student) []string {
	seen := make(map[string]bool, len(students))
	ids := make([]string, 0, len(students))
	for _, s := range students {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// SameStudents reports whether both slices contain the same student ID sets,
// ignoring order and duplicates.
func SameStudents(a, b []Student) bool {
	aIDs, bIDs := SortedIDs(a), SortedIDs(b)
	if len(aIDs) != len(bIDs) {
		return false
	}
	for i := range aIDs {
		if aIDs[i] != bIDs[i] {
			return false
		}
	}
	return true
}

// FilterCollaboratorsOf returns members excluding the given student.
func FilterCollaboratorsOf(members []Student, student Student) []Student {
	collabs := make([]Student, 0, len(members))
	for _, m := range members {
		if m.ID != student.ID {
			collabs = append(collabs, m)
		}
	}
	return collabs
}

// FormatCollaboratorNames joins the names of members excluding the given student.
func FormatCollaboratorNames(members []Student, student Student) string {
	collabs := FilterCollaboratorsOf(members, student)
	names := make([]string, 0, len(collabs))
	for _, c := range collabs {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// Course represents a university course. Individual realizations of it are
// CourseInstances.
type Course struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	URL  string `json:"url" validate:"required,urlword"`
}

func (c Course) String() string {
	return fmt.Sprintf("%s %s", c.Code, c.Name)
}

// CourseInstance is a single realization of a Course. Archival and lifecycle
// timing live here and always override module open/close timing.
type CourseInstance struct {
	ID                     int       `json:"id"`
	Course                 Course    `json:"course"`
	InstanceName           string    `json:"instance_name"`
	URL                    string    `json:"url" validate:"required,urlword"`
	Visible                bool      `json:"visible"`
	EnrollmentAudience     int       `json:"enrollment_audience"`
	StartingTime           time.Time `json:"starting_time"`
	EndingTime             time.Time `json:"ending_time"`
	LifesupportTime        null.Time `json:"lifesupport_time"`
	ArchiveTime            null.Time `json:"archive_time"`
	EnrollmentStartingTime null.Time `json:"enrollment_starting_time"`
	EnrollmentEndingTime   null.Time `json:"enrollment_ending_time"`
	// TechnicalErrorEmails overrides the teachers as recipients of exercise
	// error reports when set.
	TechnicalErrorEmails []string `json:"technical_error_emails"`
}

func (ci CourseInstance) String() string {
	return fmt.Sprintf("%s: %s", ci.Course, ci.InstanceName)
}

// Clean validates the instance before saving.
func (ci CourseInstance) Clean() error {
	var flds []core.FieldError
	if !ci.EndingTime.After(ci.StartingTime) {
		flds = append(flds, core.FieldError{Field: "ending_time", Error: "ending time must be later than starting time"})
	}
	if ci.LifesupportTime.Valid && !ci.LifesupportTime.Time.After(ci.EndingTime) {
		flds = append(flds, core.FieldError{Field: "lifesupport_time", Error: "lifesupport time must be later than ending time"})
	}
	if ci.ArchiveTime.Valid && ci.LifesupportTime.Valid && !ci.ArchiveTime.Time.After(ci.LifesupportTime.Time) {
		flds = append(flds, core.FieldError{Field: "archive_time", Error: "archive time must be later than lifesupport time"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid course instance"), flds...)
	}
	return nil
}

func (ci CourseInstance) IsOpen(when time.Time) bool {
	return !when.Before(ci.StartingTime) && !when.After(ci.EndingTime)
}

func (ci CourseInstance) IsPast(when time.Time) bool {
	return ci.EndingTime.Before(when)
}

func (ci CourseInstance) IsOnLifesupport(when time.Time) bool {
	return ci.LifesupportTime.Valid && ci.LifesupportTime.Time.Before(when)
}

func (ci CourseInstance) IsArchived(when time.Time) bool {
	return ci.ArchiveTime.Valid && ci.ArchiveTime.Time.Before(when)
}

func (ci CourseInstance) EnrollmentStart() time.Time {
	if ci.EnrollmentStartingTime.Valid {
		return ci.EnrollmentStartingTime.Time
	}
	return ci.StartingTime
}

func (ci CourseInstance) EnrollmentEnd() time.Time {
	if ci.EnrollmentEndingTime.Valid {
		return ci.EnrollmentEndingTime.Time
	}
	return ci.EndingTime
}

func (ci CourseInstance) IsEnrollmentOpen(when time.Time) bool {
	return !when.Before(ci.EnrollmentStart()) && !when.After(ci.EnrollmentEnd())
}

// IsEnrollable reports whether the student belongs to the enrollment audience.
func (ci CourseInstance) IsEnrollable(student Student) bool {
	switch ci.EnrollmentAudience {
	case AudienceInternalUsers:
		return !student.External
	case AudienceExternalUsers:
		return student.External
	}
	return true
}

// CourseModule groups exercises into logical sets and carries their opening
// times and deadlines.
type CourseModule struct {
	ID             int             `json:"id"`
	CourseInstance *CourseInstance `json:"course_instance"`
	Status         string          `json:"status"`
	Order          int             `json:"order"`
	Name           string          `json:"name"`
	URL            string          `json:"url" validate:"required,urlword"`
	PointsToPass   int             `json:"points_to_pass"`
	OpeningTime    time.Time       `json:"opening_time"`
	ClosingTime    time.Time       `json:"closing_time"`

	LateSubmissionsAllowed bool      `json:"late_submissions_allowed"`
	LateSubmissionDeadline time.Time `json:"late_submission_deadline"`
	// LateSubmissionPenalty is the multiplier of points to reduce, as
	// decimal. 0.1 = 10%
	LateSubmissionPenalty float64 `json:"late_submission_penalty" validate:"percent"`
}

func (m CourseModule) String() string {
	if m.Order > 0 {
		return fmt.Sprintf("%d. %s", m.Order, m.Name)
	}
	return m.Name
}

// Clean validates the module before saving.
func (m CourseModule) Clean() error {
	var flds []core.FieldError
	for _, word := range reservedModuleURLs {
		if m.URL == word {
			flds = append(flds, core.FieldError{
				Field: "url",
				Error: fmt.Sprintf("taken words include: %s", strings.Join(reservedModuleURLs, ", ")),
			})
			break
		}
	}
	if m.LateSubmissionPenalty < 0 || m.LateSubmissionPenalty > 1 {
		flds = append(flds, core.FieldError{Field: "late_submission_penalty", Error: "must be a multiplier between 0 and 1"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid course module"), flds...)
	}
	return nil
}

func (m CourseModule) IsOpen(when time.Time) bool {
	return !when.Before(m.OpeningTime) && !when.After(m.ClosingTime)
}

// IsAfterOpen checks if the given time is past the module opening time.
func (m CourseModule) IsAfterOpen(when time.Time) bool {
	return !when.Before(m.OpeningTime)
}

func (m CourseModule) IsLateSubmissionOpen(when time.Time) bool {
	return m.LateSubmissionsAllowed &&
		!when.Before(m.ClosingTime) && !when.After(m.LateSubmissionDeadline)
}

func (m CourseModule) IsClosed(when time.Time) bool {
	if m.LateSubmissionsAllowed && m.LateSubmissionPenalty < 1 {
		return when.After(m.LateSubmissionDeadline)
	}
	return when.After(m.ClosingTime)
}

// LateSubmissionPointWorth returns the percentage (0-100) that late
// submission points are worth.
func (m CourseModule) LateSubmissionPointWorth() int {
	if m.LateSubmissionsAllowed {
		return int((1.0 - m.LateSubmissionPenalty) * 100.0)
	}
	return 0
}

// Category statuses
const (
	CategoryStatusReady   = "ready"
	CategoryStatusNoTotal = "nototal"
	CategoryStatusHidden  = "hidden"
)

// Category groups exercises across modules.
type Category struct {
	ID             int             `json:"id"`
	CourseInstance *CourseInstance `json:"course_instance"`
	Status         string          `json:"status"`
	Name           string          `json:"name"`
	PointsToPass   int             `json:"points_to_pass"`
	// ConfirmTheLevel treats the owning module as always open: grading a
	// non-zero score confirms the points on the hierarchy level.
	ConfirmTheLevel bool `json:"confirm_the_level"`
	// AcceptUnofficialSubmits grades submissions after the deadlines have
	// passed; points are stored but kept out of official records.
	AcceptUnofficialSubmits bool `json:"accept_unofficial_submits"`
}

func (c Category) String() string {
	return c.Name
}

// StudentGroup is a user group within a course instance. Equality compares
// member sets, not order.
type StudentGroup struct {
	ID               int       `json:"id"`
	CourseInstanceID int       `json:"course_instance_id"`
	Members          []Student `json:"members"`
	Timestamp        time.Time `json:"timestamp"`
}

func (g StudentGroup) Equals(students []Student) bool {
	return SameStudents(g.Members, students)
}

func (g StudentGroup) CollaboratorsOf(student Student) []Student {
	return FilterCollaboratorsOf(g.Members, student)
}

func (g StudentGroup) CollaboratorNames(student Student) string {
	return FormatCollaboratorNames(g.Members, student)
}

// Enrollment maps an enrolled student to a course instance.
type Enrollment struct {
	CourseInstanceID int       `json:"course_instance_id"`
	Student          Student   `json:"student"`
	Timestamp        time.Time `json:"timestamp"`
	PersonalCode     string    `json:"personal_code"`
	SelectedGroupID  null.Int  `json:"selected_group_id"`
}
