package exercise

import (
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/course"
)

func TestExerciseNumberAndPath(t *testing.T) {
	tests := []struct {
		name     string
		ex       Exercise
		wantNum  string
		wantPath string
	}{
		{
			name:    "top level",
			ex:      Exercise{Order: 3, URL: "quiz1"},
			wantNum: "3", wantPath: "quiz1",
		},
		{
			name: "nested",
			ex: Exercise{
				Order: 3,
				URL:   "quiz1",
				Ancestors: []Breadcrumb{
					{ID: 1, Order: 1, URL: "round1"},
					{ID: 2, Order: 2, URL: "chapter1"},
				},
			},
			wantNum: "1.2.3", wantPath: "round1/chapter1/quiz1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ex.Number(); got != tt.wantNum {
				t.Errorf("Number() = %q, want %q", got, tt.wantNum)
			}
			if got := tt.ex.Path(); got != tt.wantPath {
				t.Errorf("Path() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestExerciseClean(t *testing.T) {
	valid := Exercise{
		Kind:           KindService,
		Name:           "Test Exercise",
		URL:            "quiz1",
		ServiceURL:     "http://grader.test.cd/ex/",
		MinGroupSize:   1,
		MaxGroupSize:   1,
		MaxSubmissions: 10,
		MaxPoints:      100,
	}
	badPoints := valid
	badPoints.PointsToPass = 200
	badGroups := valid
	badGroups.MinGroupSize = 3
	badGroups.MaxGroupSize = 2
	ownParent := valid
	ownParent.ID = 7
	ownParent.ParentID = null.IntFrom(7)
	foreignCategory := valid
	foreignCategory.CourseModule = &course.CourseModule{CourseInstance: &course.CourseInstance{ID: 1}}
	foreignCategory.Category = &course.Category{CourseInstance: &course.CourseInstance{ID: 2}}
	badLTI := valid
	badLTI.Kind = KindLTI
	badLTI.LTI = &LTIConfig{LaunchURL: "http://tool.test.cd/launch"}
	goodLTI := badLTI
	goodLTI.LTI = &LTIConfig{LaunchURL: "http://grader.test.cd/launch"}

	tests := []struct {
		name    string
		ex      Exercise
		wantFld string
	}{
		{name: "valid", ex: valid},
		{name: "points to pass above max", ex: badPoints, wantFld: "points_to_pass"},
		{name: "group bounds crossed", ex: badGroups, wantFld: "min_group_size"},
		{name: "own parent", ex: ownParent, wantFld: "parent_id"},
		{name: "category of another instance", ex: foreignCategory, wantFld: "category"},
		{name: "service outside the LTI domain", ex: badLTI, wantFld: "service_url"},
		{name: "service in the LTI domain", ex: goodLTI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ex.Clean()
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
