package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mazoezi/core"
)

type fakeStore struct {
	table  map[string][]byte
	getErr error
	setErr error
}

func newFakeStore() *fakeStore { return &fakeStore{table: make(map[string][]byte)} }

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.table[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.table[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.table, key)
	return nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		ids       []string
		modifiers []string
		want      string
	}{
		{name: "single id and modifier", prefix: "exercise.page", ids: []string{"7"}, modifiers: []string{"en"}, want: "exercise.page:7:en"},
		{name: "several ids", prefix: "p", ids: []string{"a", "b"}, modifiers: []string{"c"}, want: "p:a,b:c"},
		{name: "several modifiers", prefix: "p", ids: []string{"a"}, modifiers: []string{"b", "c"}, want: "p:a:b,c"},
		{name: "no modifiers", prefix: "p", ids: []string{"a"}, want: "p:a:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.prefix, tt.ids, tt.modifiers...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetOrGenerate(t *testing.T) {
	ctx := context.Background()
	log := core.NewNopLogger()
	key := Key("p", []string{"1"})
	fresh := func(data []byte) bool { return string(data) != "stale" }

	t.Run("Fresh hit skips generation", func(t *testing.T) {
		store := newFakeStore()
		store.table[key] = []byte("cached")
		calls := 0

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, _ []byte) ([]byte, bool, error) {
			calls++
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "cached" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "cached")
		}
		if calls != 0 {
			t.Errorf("generator calls = %d, want 0", calls)
		}
	})

	t.Run("Stale hit regenerates with the old value", func(t *testing.T) {
		store := newFakeStore()
		store.table[key] = []byte("stale")

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, prev []byte) ([]byte, bool, error) {
			if string(prev) != "stale" {
				t.Errorf("generator prev = %q, want %q", prev, "stale")
			}
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "new" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "new")
		}
		if string(store.table[key]) != "new" {
			t.Errorf("stored = %q, want %q", store.table[key], "new")
		}
	})

	t.Run("Miss generates and stores", func(t *testing.T) {
		store := newFakeStore()

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, prev []byte) ([]byte, bool, error) {
			if prev != nil {
				t.Errorf("generator prev = %q, want nil", prev)
			}
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "new" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "new")
		}
		if string(store.table[key]) != "new" {
			t.Errorf("stored = %q, want %q", store.table[key], "new")
		}
	})

	t.Run("Dirty value is returned but never stored", func(t *testing.T) {
		store := newFakeStore()

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, _ []byte) ([]byte, bool, error) {
			return []byte("fallback"), true, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "fallback" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "fallback")
		}
		if _, ok := store.table[key]; ok {
			t.Error("dirty value was stored")
		}
	})

	t.Run("Generation failure propagates", func(t *testing.T) {
		store := newFakeStore()
		wantErr := errors.New("service down")

		if _, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, _ []byte) ([]byte, bool, error) {
			return nil, false, wantErr
		}, log); errors.Cause(err) != wantErr {
			t.Errorf("GetOrGenerate() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("Backend read failure degrades to generation", func(t *testing.T) {
		store := newFakeStore()
		store.table[key] = []byte("cached")
		store.getErr = errors.New("backend down")

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, prev []byte) ([]byte, bool, error) {
			if prev != nil {
				t.Errorf("generator prev = %q, want nil", prev)
			}
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "new" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "new")
		}
	})

	t.Run("Backend write failure only costs the caching", func(t *testing.T) {
		store := newFakeStore()
		store.setErr = errors.New("backend down")

		got, err := GetOrGenerate(ctx, store, key, NoTTL, fresh, func(_ context.Context, _ []byte) ([]byte, bool, error) {
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "new" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "new")
		}
	})

	t.Run("Nil freshness treats every hit as usable", func(t *testing.T) {
		store := newFakeStore()
		store.table[key] = []byte("stale")
		calls := 0

		got, err := GetOrGenerate(ctx, store, key, NoTTL, nil, func(_ context.Context, _ []byte) ([]byte, bool, error) {
			calls++
			return []byte("new"), false, nil
		}, log)
		if err != nil {
			t.Fatalf("GetOrGenerate(): %v", err)
		}
		if string(got) != "stale" {
			t.Errorf("GetOrGenerate() = %q, want %q", got, "stale")
		}
		if calls != 0 {
			t.Errorf("generator calls = %d, want 0", calls)
		}
	})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	key := Key("p", []string{"1"})
	store.table[key] = []byte("cached")

	Invalidate(ctx, store, key, core.NewNopLogger())

	if _, ok := store.table[key]; ok {
		t.Error("Invalidate() left the entry in place")
	}
}
