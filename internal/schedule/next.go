// Package schedule computes run times for the gateway's cron job mirrors.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	robcron "github.com/robfig/cron/v3"

	"clawchat/internal/domain"
)

var parser = robcron.NewParser(robcron.Minute | robcron.Hour | robcron.Dom | robcron.Month | robcron.Dow | robcron.Descriptor)

// NextRun returns the first activation of a standard five-field cron
// expression (or @descriptor) strictly after now.
func NextRun(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, errors.New("empty cron expression")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expr: %w", err)
	}
	return sched.Next(now), nil
}

// FillNextRuns sets NextRun on enabled jobs that lack one. Jobs whose
// expression does not parse are left untouched; the count of those is
// returned.
func FillNextRuns(jobs []domain.CronJob, now time.Time) int {
	bad := 0
	for i := range jobs {
		j := &jobs[i]
		if !j.Enabled || j.NextRun != "" {
			continue
		}
		next, err := NextRun(j.Schedule, now)
		if err != nil {
			bad++
			continue
		}
		j.NextRun = next.Format(time.RFC3339)
	}
	return bad
}

// Flatten collects every task of every schedule, in order.
func Flatten(schedules []domain.Schedule) []domain.CronJob {
	var jobs []domain.CronJob
	for _, s := range schedules {
		jobs = append(jobs, s.Tasks...)
	}
	return jobs
}
