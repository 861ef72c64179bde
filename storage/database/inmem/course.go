package inmemdb

import (
	"context"

	"github.com/trezcool/mazoezi/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) GetInstance(ctx context.Context, id int) (course.CourseInstance, error) {
	repo.db.instance.mutex.RLock()
	defer repo.db.instance.mutex.RUnlock()

	if ci, ok := repo.db.instance.table[id]; ok {
		return *ci, nil
	}
	return course.CourseInstance{}, course.ErrInstanceNotFound
}

func (repo *courseRepository) GetInstanceByURL(ctx context.Context, courseURL, instanceURL string) (course.CourseInstance, error) {
	repo.db.instance.mutex.RLock()
	defer repo.db.instance.mutex.RUnlock()

	for _, ci := range repo.db.instance.table {
		if ci.Course.URL == courseURL && ci.URL == instanceURL {
			return *ci, nil
		}
	}
	return course.CourseInstance{}, course.ErrInstanceNotFound
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, instanceID int, studentID string) (course.Enrollment, error) {
	repo.db.enrollment.mutex.RLock()
	defer repo.db.enrollment.mutex.RUnlock()

	if enr, ok := repo.db.enrollment.table[enrollmentKey(instanceID, studentID)]; ok {
		return *enr, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetGroup(ctx context.Context, instanceID, groupID int) (course.StudentGroup, error) {
	repo.db.group.mutex.RLock()
	defer repo.db.group.mutex.RUnlock()

	if grp, ok := repo.db.group.table[groupID]; ok && grp.CourseInstanceID == instanceID {
		return *grp, nil
	}
	return course.StudentGroup{}, course.ErrGroupNotFound
}

func (repo *courseRepository) IsCourseStaff(ctx context.Context, instanceID int, studentID string) (bool, error) {
	repo.db.staff.mutex.RLock()
	defer repo.db.staff.mutex.RUnlock()

	for _, s := range repo.db.staff.table[instanceID] {
		if s.ID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) StaffEmails(ctx context.Context, instanceID int) ([]string, error) {
	repo.db.staff.mutex.RLock()
	defer repo.db.staff.mutex.RUnlock()

	staff := repo.db.staff.table[instanceID]
	emails := make([]string, 0, len(staff))
	for _, s := range staff {
		emails = append(emails, s.Email)
	}
	return emails, nil
}
