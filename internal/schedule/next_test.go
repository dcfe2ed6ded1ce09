package schedule

import (
	"testing"
	"time"

	"clawchat/internal/domain"
)

func TestNextRun(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)

	next, err := NextRun("0 9 * * *", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}

	next, err = NextRun("@hourly", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("@hourly: got %v, want %v", next, want)
	}
}

func TestNextRun_Invalid(t *testing.T) {
	for _, expr := range []string{"", "   ", "every day", "61 * * * *", "* * * * * *"} {
		if _, err := NextRun(expr, time.Now()); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}

func TestFillNextRuns(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	jobs := []domain.CronJob{
		{ID: "a", Schedule: "0 9 * * *", Enabled: true},
		{ID: "b", Schedule: "0 9 * * *", Enabled: false},
		{ID: "c", Schedule: "bogus", Enabled: true},
		{ID: "d", Schedule: "0 9 * * *", Enabled: true, NextRun: "server-provided"},
	}
	bad := FillNextRuns(jobs, now)
	if bad != 1 {
		t.Errorf("expected 1 unparseable job, got %d", bad)
	}
	if jobs[0].NextRun != "2025-03-10T09:00:00Z" {
		t.Errorf("job a NextRun = %q", jobs[0].NextRun)
	}
	if jobs[1].NextRun != "" || jobs[2].NextRun != "" {
		t.Error("disabled and invalid jobs must be left alone")
	}
	if jobs[3].NextRun != "server-provided" {
		t.Error("existing NextRun must be kept")
	}
}

func TestFlatten(t *testing.T) {
	jobs := Flatten([]domain.Schedule{
		{Name: "Kai", Tasks: []domain.CronJob{{ID: "1"}, {ID: "2"}}},
		{Name: "Rich"},
		{Name: "Code", Tasks: []domain.CronJob{{ID: "3"}}},
	})
	if len(jobs) != 3 || jobs[2].ID != "3" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}
