package inmemdb

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/mazoezi/core/course"
	"github.com/trezcool/mazoezi/core/exercise"
)

type (
	DB struct {
		instance   *instanceTable
		enrollment *enrollmentTable
		group      *groupTable
		staff      *staffTable
		exercise   *exerciseTable
		submission *submissionTable
		deviation  *deviationTable
	}

	instanceTable struct {
		table   map[int]*course.CourseInstance
		pkCount int
		mutex   sync.RWMutex
	}

	enrollmentTable struct {
		table map[string]*course.Enrollment // key: instanceID:studentID
		mutex sync.RWMutex
	}

	groupTable struct {
		table   map[int]*course.StudentGroup
		pkCount int
		mutex   sync.RWMutex
	}

	staffTable struct {
		table map[int][]course.Student
		mutex sync.RWMutex
	}

	exerciseTable struct {
		table   map[int]*exercise.Exercise
		pkCount int
		mutex   sync.RWMutex
	}

	submissionTable struct {
		table map[string]*exercise.Submission
		mutex sync.RWMutex
	}

	deviationTable struct {
		deadlines map[string]*exercise.DeadlineDeviation // key: exerciseID:studentID
		extras    map[string]int
		mutex     sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		instance:   &instanceTable{table: make(map[int]*course.CourseInstance)},
		enrollment: &enrollmentTable{table: make(map[string]*course.Enrollment)},
		group:      &groupTable{table: make(map[int]*course.StudentGroup)},
		staff:      &staffTable{table: make(map[int][]course.Student)},
		exercise:   &exerciseTable{table: make(map[int]*exercise.Exercise)},
		submission: &submissionTable{table: make(map[string]*exercise.Submission)},
		deviation: &deviationTable{
			deadlines: make(map[string]*exercise.DeadlineDeviation),
			extras:    make(map[string]int),
		},
	}
	return db, nil
}

// Reset drops all stored data and restarts the ID sequences.
func (db *DB) Reset() {
	db.instance.mutex.Lock()
	db.instance.table = make(map[int]*course.CourseInstance)
	db.instance.pkCount = 0
	db.instance.mutex.Unlock()

	db.enrollment.mutex.Lock()
	db.enrollment.table = make(map[string]*course.Enrollment)
	db.enrollment.mutex.Unlock()

	db.group.mutex.Lock()
	db.group.table = make(map[int]*course.StudentGroup)
	db.group.pkCount = 0
	db.group.mutex.Unlock()

	db.staff.mutex.Lock()
	db.staff.table = make(map[int][]course.Student)
	db.staff.mutex.Unlock()

	db.exercise.mutex.Lock()
	db.exercise.table = make(map[int]*exercise.Exercise)
	db.exercise.pkCount = 0
	db.exercise.mutex.Unlock()

	db.submission.mutex.Lock()
	db.submission.table = make(map[string]*exercise.Submission)
	db.submission.mutex.Unlock()

	db.deviation.mutex.Lock()
	db.deviation.deadlines = make(map[string]*exercise.DeadlineDeviation)
	db.deviation.extras = make(map[string]int)
	db.deviation.mutex.Unlock()
}

func enrollmentKey(instanceID int, studentID string) string {
	return fmt.Sprintf("%d:%s", instanceID, studentID)
}

func deviationKey(exerciseID int, studentID string) string {
	return fmt.Sprintf("%d:%s", exerciseID, studentID)
}

// AddInstance stores the instance, assigning an ID when missing.
func (db *DB) AddInstance(ci course.CourseInstance) course.CourseInstance {
	db.instance.mutex.Lock()
	defer db.instance.mutex.Unlock()

	if ci.ID == 0 {
		db.instance.pkCount++
		ci.ID = db.instance.pkCount
	}
	db.instance.table[ci.ID] = &ci
	return ci
}

func (db *DB) AddEnrollment(enr course.Enrollment) course.Enrollment {
	db.enrollment.mutex.Lock()
	defer db.enrollment.mutex.Unlock()

	db.enrollment.table[enrollmentKey(enr.CourseInstanceID, enr.Student.ID)] = &enr
	return enr
}

// AddGroup stores the group, assigning an ID when missing.
func (db *DB) AddGroup(grp course.StudentGroup) course.StudentGroup {
	db.group.mutex.Lock()
	defer db.group.mutex.Unlock()

	if grp.ID == 0 {
		db.group.pkCount++
		grp.ID = db.group.pkCount
	}
	db.group.table[grp.ID] = &grp
	return grp
}

func (db *DB) AddStaff(instanceID int, students ...course.Student) {
	db.staff.mutex.Lock()
	defer db.staff.mutex.Unlock()

	db.staff.table[instanceID] = append(db.staff.table[instanceID], students...)
}

// AddExercise stores the exercise, assigning an ID when missing.
func (db *DB) AddExercise(ex exercise.Exercise) exercise.Exercise {
	db.exercise.mutex.Lock()
	defer db.exercise.mutex.Unlock()

	if ex.ID == 0 {
		db.exercise.pkCount++
		ex.ID = db.exercise.pkCount
	}
	db.exercise.table[ex.ID] = &ex
	return ex
}

// AddSubmission stores the submission, assigning an ID when missing.
func (db *DB) AddSubmission(sub exercise.Submission) exercise.Submission {
	db.submission.mutex.Lock()
	defer db.submission.mutex.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	db.submission.table[sub.ID] = &sub
	return sub
}

func (db *DB) AddDeadlineDeviation(dev exercise.DeadlineDeviation) {
	db.deviation.mutex.Lock()
	defer db.deviation.mutex.Unlock()

	db.deviation.deadlines[deviationKey(dev.ExerciseID, dev.StudentID)] = &dev
}

func (db *DB) AddMaxSubmissionsDeviation(dev exercise.MaxSubmissionsDeviation) {
	db.deviation.mutex.Lock()
	defer db.deviation.mutex.Unlock()

	db.deviation.extras[deviationKey(dev.ExerciseID, dev.StudentID)] = dev.ExtraSubmissions
}
