package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core/exercise"
	"github.com/trezcool/mazoezi/tests"
)

func Test_courseApi_retrieve(t *testing.T) {
	testutil.ResetDB(t, db)

	now := time.Now()
	ci := testutil.CreateInstance(t, db, "cs-a1111", "2026", now.Add(-24*time.Hour), now.Add(24*time.Hour))

	tests := []httpTest{
		{name: "Instance found", path: "/v1/courses/cs-a1111/2026", wantData: marchallObj(t, ci)},
		{
			name: "Unknown course", path: "/v1/courses/lol/2026", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course instance not found"}),
		},
		{
			name: "Unknown instance", path: "/v1/courses/cs-a1111/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course instance not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieveExercise(t *testing.T) {
	testutil.ResetDB(t, db)

	now := time.Now()
	ci := testutil.CreateInstance(t, db, "cs-a1111", "2026", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	mod := testutil.NewModule(&ci, "module1", now.Add(-time.Hour), now.Add(12*time.Hour))

	parent := testutil.CreateExercise(t, db, mod, exercise.KindChapter, "chapter1")
	child := testutil.CreateExercise(t, db, mod, exercise.KindService, "quiz1")
	child.ParentID = null.IntFrom(parent.ID)
	child.Ancestors = []exercise.Breadcrumb{{ID: parent.ID, Order: parent.Order, URL: parent.URL}}
	child = db.AddExercise(child)

	tests := []httpTest{
		{name: "Top-level exercise", path: "/v1/courses/cs-a1111/2026/exercises/chapter1", wantData: marchallObj(t, parent)},
		{name: "Nested exercise", path: "/v1/courses/cs-a1111/2026/exercises/chapter1/quiz1", wantData: marchallObj(t, child)},
		{
			name: "Unknown path", path: "/v1/courses/cs-a1111/2026/exercises/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "exercise not found"}),
		},
		{
			name: "Parent path only matches the parent", path: "/v1/courses/cs-a1111/2026/exercises/quiz1", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "exercise not found"}),
		},
		{
			name: "Unknown instance", path: "/v1/courses/cs-a1111/lol/exercises/chapter1", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course instance not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
