package course

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
)

func TestCourseInstanceLifecycle(t *testing.T) {
	now := time.Now()
	ci := CourseInstance{
		StartingTime:    now.Add(-48 * time.Hour),
		EndingTime:      now.Add(48 * time.Hour),
		LifesupportTime: null.TimeFrom(now.Add(72 * time.Hour)),
		ArchiveTime:     null.TimeFrom(now.Add(96 * time.Hour)),
	}

	tests := []struct {
		name                                string
		when                                time.Time
		wantOpen, wantPast, wantLS, wantArc bool
	}{
		{name: "before start", when: now.Add(-72 * time.Hour)},
		{name: "running", when: now, wantOpen: true},
		{name: "ended", when: now.Add(60 * time.Hour), wantPast: true},
		{name: "on lifesupport", when: now.Add(80 * time.Hour), wantPast: true, wantLS: true},
		{name: "archived", when: now.Add(100 * time.Hour), wantPast: true, wantLS: true, wantArc: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ci.IsOpen(tt.when); got != tt.wantOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tt.wantOpen)
			}
			if got := ci.IsPast(tt.when); got != tt.wantPast {
				t.Errorf("IsPast() = %v, want %v", got, tt.wantPast)
			}
			if got := ci.IsOnLifesupport(tt.when); got != tt.wantLS {
				t.Errorf("IsOnLifesupport() = %v, want %v", got, tt.wantLS)
			}
			if got := ci.IsArchived(tt.when); got != tt.wantArc {
				t.Errorf("IsArchived() = %v, want %v", got, tt.wantArc)
			}
		})
	}
}

func TestCourseInstanceEnrollmentWindow(t *testing.T) {
	now := time.Now()
	ci := CourseInstance{
		StartingTime: now.Add(-48 * time.Hour),
		EndingTime:   now.Add(48 * time.Hour),
	}
	earlyClose := ci
	earlyClose.EnrollmentEndingTime = null.TimeFrom(now.Add(-24 * time.Hour))

	tests := []struct {
		name string
		ci   CourseInstance
		when time.Time
		want bool
	}{
		{name: "defaults to the instance lifetime", ci: ci, when: now, want: true},
		{name: "closed before the instance opens", ci: ci, when: now.Add(-72 * time.Hour)},
		{name: "explicit window is respected", ci: earlyClose, when: now},
		{name: "open within the explicit window", ci: earlyClose, when: now.Add(-36 * time.Hour), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ci.IsEnrollmentOpen(tt.when); got != tt.want {
				t.Errorf("IsEnrollmentOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourseInstanceIsEnrollable(t *testing.T) {
	internal := Student{ID: "123"}
	external := Student{ID: "999", External: true}

	tests := []struct {
		name     string
		audience int
		student  Student
		want     bool
	}{
		{name: "all takes internal", audience: AudienceAllUsers, student: internal, want: true},
		{name: "all takes external", audience: AudienceAllUsers, student: external, want: true},
		{name: "internal takes internal", audience: AudienceInternalUsers, student: internal, want: true},
		{name: "internal refuses external", audience: AudienceInternalUsers, student: external},
		{name: "external takes external", audience: AudienceExternalUsers, student: external, want: true},
		{name: "external refuses internal", audience: AudienceExternalUsers, student: internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ci := CourseInstance{EnrollmentAudience: tt.audience}
			if got := ci.IsEnrollable(tt.student); got != tt.want {
				t.Errorf("IsEnrollable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourseInstanceClean(t *testing.T) {
	now := time.Now()
	valid := CourseInstance{
		Course:       Course{Code: "CS-A1111", Name: "Test Course", URL: "cs-a1111"},
		InstanceName: "Test Instance",
		URL:          "2026",
		StartingTime: now,
		EndingTime:   now.Add(24 * time.Hour),
	}
	backwards := valid
	backwards.EndingTime = now.Add(-24 * time.Hour)
	earlyLS := valid
	earlyLS.LifesupportTime = null.TimeFrom(now.Add(12 * time.Hour))
	earlyArc := valid
	earlyArc.LifesupportTime = null.TimeFrom(now.Add(48 * time.Hour))
	earlyArc.ArchiveTime = null.TimeFrom(now.Add(36 * time.Hour))

	tests := []struct {
		name    string
		ci      CourseInstance
		wantFld string
	}{
		{name: "valid", ci: valid},
		{name: "ending before starting", ci: backwards, wantFld: "ending_time"},
		{name: "lifesupport before ending", ci: earlyLS, wantFld: "lifesupport_time"},
		{name: "archive before lifesupport", ci: earlyArc, wantFld: "archive_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ci.Clean()
			if tt.wantFld == "" {
				if err != nil {
					t.Errorf("Clean() error = %v, want nil", err)
				}
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("Clean() error = %v, want a validation error", err)
			}
			if vErr.Fields[0].Field != tt.wantFld {
				t.Errorf("Clean() field = %v, want %v", vErr.Fields[0].Field, tt.wantFld)
			}
		})
	}
}

func TestCourseModuleClean(t *testing.T) {
	valid := CourseModule{Name: "Test Module", URL: "module1"}
	reserved := valid
	reserved.URL = "toc"
	badPenalty := valid
	badPenalty.LateSubmissionPenalty = 1.5

	tests := []struct {
		name    string
		m       CourseModule
		wantFld string
	}{
		{name: "valid", m: valid},
		{name: "reserved url word", m: reserved, wantFld: "url"},
		{name: "penalty out of range", m: badPenalty, wantFld: "late_submission_penalty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Clean()
			if tt.wantFld == "" {
				if err != nil {
					t.Errorf("Clean() error = %v, want nil", err)
				}
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("Clean() error = %v, want a validation error", err)
			}
			if vErr.Fields[0].Field != tt.wantFld {
				t.Errorf("Clean() field = %v, want %v", vErr.Fields[0].Field, tt.wantFld)
			}
		})
	}
}

func TestCourseModuleWindows(t *testing.T) {
	now := time.Now()
	m := CourseModule{
		OpeningTime:            now.Add(-12 * time.Hour),
		ClosingTime:            now.Add(-2 * time.Hour),
		LateSubmissionsAllowed: true,
		LateSubmissionDeadline: now.Add(24 * time.Hour),
		LateSubmissionPenalty:  0.5,
	}
	strict := m
	strict.LateSubmissionsAllowed = false

	tests := []struct {
		name                                    string
		m                                       CourseModule
		when                                    time.Time
		wantOpen, wantAfter, wantLate, wantDone bool
	}{
		{name: "before opening", m: m, when: now.Add(-24 * time.Hour)},
		{name: "open", m: m, when: now.Add(-6 * time.Hour), wantOpen: true, wantAfter: true},
		{name: "late window", m: m, when: now, wantAfter: true, wantLate: true},
		{name: "after late deadline", m: m, when: now.Add(48 * time.Hour), wantAfter: true, wantDone: true},
		{name: "no late submissions", m: strict, when: now, wantAfter: true, wantDone: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.IsOpen(tt.when); got != tt.wantOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tt.wantOpen)
			}
			if got := tt.m.IsAfterOpen(tt.when); got != tt.wantAfter {
				t.Errorf("IsAfterOpen() = %v, want %v", got, tt.wantAfter)
			}
			if got := tt.m.IsLateSubmissionOpen(tt.when); got != tt.wantLate {
				t.Errorf("IsLateSubmissionOpen() = %v, want %v", got, tt.wantLate)
			}
			if got := tt.m.IsClosed(tt.when); got != tt.wantDone {
				t.Errorf("IsClosed() = %v, want %v", got, tt.wantDone)
			}
		})
	}
}

func TestLateSubmissionPointWorth(t *testing.T) {
	tests := []struct {
		name    string
		allowed bool
		penalty float64
		want    int
	}{
		{name: "not allowed", penalty: 0.5, want: 0},
		{name: "no penalty", allowed: true, want: 100},
		{name: "half", allowed: true, penalty: 0.5, want: 50},
		{name: "quarter", allowed: true, penalty: 0.25, want: 75},
		{name: "full penalty", allowed: true, penalty: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CourseModule{LateSubmissionsAllowed: tt.allowed, LateSubmissionPenalty: tt.penalty}
			if got := m.LateSubmissionPointWorth(); got != tt.want {
				t.Errorf("LateSubmissionPointWorth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortedIDs(t *testing.T) {
	students := []Student{{ID: "456"}, {ID: "123"}, {ID: "456"}, {ID: "99"}}

	got := SortedIDs(students)
	want := []string{"123", "456", "99"}
	if len(got) != len(want) {
		t.Fatalf("SortedIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SortedIDs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSameStudents(t *testing.T) {
	alice := Student{ID: "123", Name: "Alice A"}
	bob := Student{ID: "456", Name: "Bob B"}
	carol := Student{ID: "789", Name: "Carol C"}

	tests := []struct {
		name string
		a, b []Student
		want bool
	}{
		{name: "same order", a: []Student{alice, bob}, b: []Student{alice, bob}, want: true},
		{name: "different order", a: []Student{alice, bob}, b: []Student{bob, alice}, want: true},
		{name: "duplicates ignored", a: []Student{alice, alice, bob}, b: []Student{bob, alice}, want: true},
		{name: "different members", a: []Student{alice, bob}, b: []Student{alice, carol}},
		{name: "subset", a: []Student{alice, bob}, b: []Student{alice}},
		{name: "both empty", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameStudents(tt.a, tt.b); got != tt.want {
				t.Errorf("SameStudents() = %v, want %v", got, tt.want)
			}
			if got := (StudentGroup{Members: tt.a}).Equals(tt.b); got != tt.want {
				t.Errorf("Equals() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatCollaboratorNames(t *testing.T) {
	alice := Student{ID: "123", Name: "Alice A"}
	bob := Student{ID: "456", Name: "Bob B"}
	carol := Student{ID: "789", Name: "Carol C"}

	tests := []struct {
		name    string
		members []Student
		student Student
		want    string
	}{
		{name: "one collaborator", members: []Student{alice, bob}, student: alice, want: "Bob B"},
		{name: "several collaborators", members: []Student{alice, bob, carol}, student: bob, want: "Alice A, Carol C"},
		{name: "not a member", members: []Student{alice, bob}, student: carol, want: "Alice A, Bob B"},
		{name: "alone", members: []Student{alice}, student: alice, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCollaboratorNames(tt.members, tt.student); got != tt.want {
				t.Errorf("FormatCollaboratorNames() = %q, want %q", got, tt.want)
			}
		})
	}
}
