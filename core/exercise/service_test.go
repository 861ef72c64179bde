package exercise

import (
	"context"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mazoezi/core"
	"github.com/trezcool/mazoezi/core/cache"
	"github.com/trezcool/mazoezi/core/course"
)

func TestParseGraderToken(t *testing.T) {
	svc := &Service{cfg: core.NewTestConfig(), now: time.Now}

	validToken, err := svc.signGraderClaims(&GraderClaims{ExerciseID: 7, StudentID: "123"})
	if err != nil {
		t.Fatalf("signGraderClaims(): %v", err)
	}

	// generate an expired token
	svc.now = func() time.Time { return time.Now().Add(-2 * svc.cfg.Server.GraderTokenExpiration) }
	expiredToken, err := svc.signGraderClaims(&GraderClaims{ExerciseID: 7, StudentID: "123"})
	if err != nil {
		t.Fatalf("signGraderClaims(): %v", err)
	}
	svc.now = time.Now // reset

	// generate a token under another key
	foreignSvc := &Service{cfg: core.NewTestConfig(), now: time.Now}
	foreignSvc.cfg.SecretKey = "wrong"
	foreignToken, err := foreignSvc.signGraderClaims(&GraderClaims{ExerciseID: 7, StudentID: "123"})
	if err != nil {
		t.Fatalf("signGraderClaims(): %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrTokenInvalid},
		{name: "garbage token", token: "lmaooolol", wantErr: ErrTokenInvalid},
		{name: "wrong key", token: foreignToken, wantErr: ErrTokenInvalid},
		{name: "expired token", token: expiredToken, wantErr: ErrTokenInvalid},
		{name: "valid token", token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ParseGraderToken(tt.token)
			if err != tt.wantErr {
				t.Errorf("ParseGraderToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (claims.ExerciseID != 7 || claims.StudentID != "123") {
				t.Errorf("ParseGraderToken() claims = %+v", claims)
			}
		})
	}
}

func TestBuildServiceURL(t *testing.T) {
	svc := &Service{cfg: core.NewTestConfig(), now: time.Now}
	ex := &Exercise{
		ID:             7,
		ServiceURL:     "http://grader.test.cd/ex/?preset=1",
		MaxSubmissions: 10,
		MaxPoints:      100,
	}
	students := []course.Student{{ID: "456"}, {ID: "123"}}

	rawurl := svc.buildServiceURL(ex, "en", students, 2, "http://localhost:8000/v1/exercises/7/grade?token=tok")
	u, err := url.Parse(rawurl)
	if err != nil {
		t.Fatalf("url.Parse(%q) failed: %v", rawurl, err)
	}

	q := u.Query()
	want := map[string]string{
		"preset":          "1",
		"max_points":      "100",
		"max_submissions": "10",
		"submission_url":  "http://localhost:8000/v1/exercises/7/grade?token=tok",
		"post_url":        "http://localhost:8000/v1/exercises/7",
		"uid":             "123-456",
		"ordinal_number":  "2",
		"lang":            "en",
	}
	for name, val := range want {
		if got := q.Get(name); got != val {
			t.Errorf("buildServiceURL() %s = %q, want %q", name, got, val)
		}
	}
}

type storeMock struct {
	deleted []string
}

func (s *storeMock) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrMiss }

func (s *storeMock) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (s *storeMock) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestInvalidatePage(t *testing.T) {
	store := &storeMock{}
	svc := &Service{cfg: core.NewTestConfig(), log: core.NewNopLogger(), store: store}
	ctx := context.Background()

	ex := Exercise{ID: 7}
	svc.InvalidatePage(ctx, &ex)
	want := []string{"exercise.page:7:en", "exercise.page:7:fi"}
	if !reflect.DeepEqual(store.deleted, want) {
		t.Errorf("deleted keys = %v, want %v", store.deleted, want)
	}

	// the parent's page may embed the child's content
	store.deleted = nil
	child := Exercise{ID: 8, ParentID: null.IntFrom(7)}
	svc.InvalidatePage(ctx, &child)
	want = []string{"exercise.page:8:en", "exercise.page:8:fi", "exercise.page:7:en", "exercise.page:7:fi"}
	if !reflect.DeepEqual(store.deleted, want) {
		t.Errorf("deleted keys = %v, want %v", store.deleted, want)
	}
}
