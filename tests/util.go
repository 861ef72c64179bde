package testutil

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
	inmemdb "github.com/trezcool/mazoezi/storage/database/inmem"
)

func OpenDB() *inmemdb.DB {
	db, _ := inmemdb.Open()
	return db
}

// ResetDB empties the DB. Call it at the start of every test that shares one.
func ResetDB(t *testing.T, db *inmemdb.DB) {
	db.Reset()
}

// CreateInstance stores a visible course instance open between starting and
// ending. Tweak the returned value and AddInstance it again for variations.
func CreateInstance(
	t *testing.T,
	db *inmemdb.DB,
	courseURL, url string,
	starting, ending time.Time,
) course.CourseInstance {
	ci := course.CourseInstance{
		Course: course.Course{
			Code: "CS-A1111",
			Name: "Test Course",
			URL:  courseURL,
		},
		InstanceName:       "Test Instance",
		URL:                url,
		Visible:            true,
		EnrollmentAudience: course.AudienceAllUsers,
		StartingTime:       starting,
		EndingTime:         ending,
	}
	if err := ci.Clean(); err != nil {
		t.Fatalf("CreateInstance() failed: %v", err)
	}
	return db.AddInstance(ci)
}

// NewModule returns a ready module of the instance. Modules live embedded in
// exercises; nothing is stored.
func NewModule(ci *course.CourseInstance, url string, opening, closing time.Time) *course.CourseModule {
	return &course.CourseModule{
		ID:             1,
		CourseInstance: ci,
		Status:         course.ModuleStatusReady,
		Order:          1,
		Name:           "Test Module",
		URL:            url,
		OpeningTime:    opening,
		ClosingTime:    closing,
	}
}

// CreateExercise stores a submittable exercise of the module. Tweak the
// returned value and AddExercise it again for variations.
func CreateExercise(
	t *testing.T,
	db *inmemdb.DB,
	mod *course.CourseModule,
	kind exercise.Kind,
	url string,
) exercise.Exercise {
	ex := exercise.Exercise{
		CourseModule:   mod,
		Kind:           kind,
		Status:         exercise.StatusReady,
		Order:          1,
		Name:           "Test Exercise",
		URL:            url,
		ServiceURL:     "http://grader.test.cd/ex/",
		MinGroupSize:   1,
		MaxGroupSize:   1,
		MaxSubmissions: 10,
		MaxPoints:      100,
	}
	if err := ex.Clean(); err != nil {
		t.Fatalf("CreateExercise() failed: %v", err)
	}
	return db.AddExercise(ex)
}

func NewStudent(id, name string, external bool) course.Student {
	return course.Student{
		ID:       id,
		Name:     name,
		Email:    id + "@test.cd",
		External: external,
	}
}

func Enroll(
	t *testing.T,
	db *inmemdb.DB,
	ci course.CourseInstance,
	student course.Student,
	groupID ...int,
) course.Enrollment {
	enr := course.Enrollment{
		CourseInstanceID: ci.ID,
		Student:          student,
		Timestamp:        time.Now().UTC(),
	}
	if len(groupID) > 0 {
		enr.SelectedGroupID = null.IntFrom(groupID[0])
	}
	return db.AddEnrollment(enr)
}

func CreateGroup(
	t *testing.T,
	db *inmemdb.DB,
	ci course.CourseInstance,
	members ...course.Student,
) course.StudentGroup {
	return db.AddGroup(course.StudentGroup{
		CourseInstanceID: ci.ID,
		Members:          members,
		Timestamp:        time.Now().UTC(),
	})
}

func CreateSubmission(
	t *testing.T,
	db *inmemdb.DB,
	ex exercise.Exercise,
	status string,
	submittedAt time.Time,
	submitters ...course.Student,
) exercise.Submission {
	return db.AddSubmission(exercise.Submission{
		ExerciseID:  ex.ID,
		Submitters:  submitters,
		SubmittedAt: submittedAt,
		Status:      status,
	})
}
