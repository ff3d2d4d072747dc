package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Unix(1700000000, 123)
	r, err := s.Record(ctx, Run{
		Program:  "fact.c",
		Entry:    "main",
		Status:   StatusOK,
		Value:    120,
		Output:   "120 ",
		Steps:    42,
		Started:  started,
		Duration: 3 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.ID == "" {
		t.Fatal("Record did not assign an ID")
	}

	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Program != "fact.c" || got.Status != StatusOK || got.Value != 120 || got.Steps != 42 {
		t.Errorf("Get = %+v", got)
	}
	if !got.Started.Equal(started) {
		t.Errorf("started = %v, want %v", got.Started, started)
	}
	if got.Duration != 3*time.Millisecond {
		t.Errorf("duration = %v", got.Duration)
	}
	if got.Output != "120 " {
		t.Errorf("output = %q", got.Output)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Get(missing) = %v, want ErrRunNotFound", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, status := range []Status{StatusOK, StatusError, StatusEnded} {
		r := Run{
			Program: "p.c",
			Entry:   "main",
			Status:  status,
			Value:   i,
			Started: base.Add(time.Duration(i) * time.Second),
		}
		if status == StatusError {
			r.ErrorKind = "division by zero"
		}
		_, err := s.Record(ctx, r)
		if err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}

	runs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent(2) returned %d runs", len(runs))
	}
	if runs[0].Status != StatusEnded || runs[1].Status != StatusError {
		t.Errorf("order = %v, %v; want ended, error", runs[0].Status, runs[1].Status)
	}
	if runs[1].ErrorKind != "division by zero" {
		t.Errorf("error kind = %q", runs[1].ErrorKind)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d runs, want 3", len(all))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, err := s.Record(context.Background(), Run{Program: "a.c", Entry: "main", Status: StatusOK})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), r.ID); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
