package animation

import (
	"context"
	"errors"
	"testing"
)

func rowsFixture() []Row {
	return []Row{
		{ID: "a", Name: "A", MarkerTags: []any{5}},
		{ID: "b", Name: "B", MarkerTags: []any{"5", 6}},
		{ID: "c", Name: "C", MarkerTags: []any{5.0}},
		{ID: "d", Name: "D", MarkerTags: []any{9}},
		{Name: "no id", MarkerTags: []any{9}},
	}
}

func TestLibrary_Load(t *testing.T) {
	lib := NewLibrary()
	if lib.Loaded() {
		t.Fatal("new library should not be loaded")
	}

	if err := lib.Load(context.Background(), &MockSource{Rows: rowsFixture()}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !lib.Loaded() {
		t.Error("library should be loaded")
	}
	if lib.Len() != 4 {
		t.Errorf("Len = %d, want 4 (row without id skipped)", lib.Len())
	}

	got := lib.Candidates(5)
	if len(got) != 3 {
		t.Fatalf("Candidates(5) = %d, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("candidate %d = %s, want %s (catalog order)", i, got[i].ID, want)
		}
	}
	if lib.CandidateCount(6) != 1 {
		t.Errorf("CandidateCount(6) = %d", lib.CandidateCount(6))
	}
	if lib.MultiMarkers() != 1 {
		t.Errorf("MultiMarkers = %d, want 1", lib.MultiMarkers())
	}
}

func TestLibrary_LoadErrorKeepsCatalog(t *testing.T) {
	lib := NewLibrary()
	lib.Load(context.Background(), &MockSource{Rows: rowsFixture()})

	boom := errors.New("network down")
	err := lib.Load(context.Background(), &MockSource{
		ListFunc: func(ctx context.Context) ([]Row, error) { return nil, boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if lib.Len() != 4 {
		t.Errorf("failed load should keep previous catalog, Len = %d", lib.Len())
	}
	if !errors.Is(lib.LastError(), boom) {
		t.Errorf("LastError = %v", lib.LastError())
	}
}

func TestLibrary_NilSource(t *testing.T) {
	if err := NewLibrary().Load(context.Background(), nil); !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
}

func TestLibrary_Clear(t *testing.T) {
	lib := NewLibrary()
	lib.Load(context.Background(), &MockSource{Rows: rowsFixture()})
	lib.Clear()

	if lib.Loaded() {
		t.Error("Clear should reset the loaded flag")
	}
	if lib.Len() != 0 || len(lib.Candidates(5)) != 0 {
		t.Error("Clear should drop cached animations")
	}
}

func TestLibrary_Get(t *testing.T) {
	lib := NewLibrary()
	lib.Replace([]Animation{{ID: "x", Name: "X"}, {ID: "x", Name: "dup"}})

	a, err := lib.Get("x")
	if err != nil || a.Name != "X" {
		t.Errorf("Get = (%+v, %v), want first X", a, err)
	}
	if _, err := lib.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
