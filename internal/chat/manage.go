package chat

import (
	"context"
	"fmt"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
	"clawchat/internal/schedule"
)

// FetchStatus refreshes the gateway status. A failed fetch sets status "error".
func (s *Store) FetchStatus(ctx context.Context) (domain.SystemStatus, error) {
	var st domain.SystemStatus
	var err error
	if s.gw == nil {
		err = fmt.Errorf("no gateway configured")
	} else {
		var got *domain.SystemStatus
		if got, err = s.gw.Status(ctx); err == nil {
			st = *got
		}
	}
	if err != nil {
		s.logger.Warn("fetch status failed", "err", err)
		st = domain.SystemStatus{Status: domain.StatusError, Error: err.Error()}
	}

	s.mu.Lock()
	s.state.Manage.Status = st
	s.mu.Unlock()
	s.emit(bus.EventManageUpdated, map[string]any{"section": "status"})
	if err != nil {
		return st, fmt.Errorf("fetch status: %w", err)
	}
	return st, nil
}

// FetchManageAgents refreshes the agent roster as configured on the gateway.
func (s *Store) FetchManageAgents(ctx context.Context) ([]domain.Agent, error) {
	if s.gw == nil {
		return nil, fmt.Errorf("no gateway configured")
	}
	agents, err := s.gw.Agents(ctx)
	if err != nil {
		s.logger.Warn("fetch agents failed", "err", err)
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	s.mu.Lock()
	s.state.Manage.Agents = agents
	s.mu.Unlock()
	s.emit(bus.EventManageUpdated, map[string]any{"section": "agents"})
	return agents, nil
}

func (s *Store) FetchChannels(ctx context.Context) (map[string]domain.ChannelInfo, error) {
	if s.gw == nil {
		return nil, fmt.Errorf("no gateway configured")
	}
	channels, err := s.gw.Channels(ctx)
	if err != nil {
		s.logger.Warn("fetch channels failed", "err", err)
		return nil, fmt.Errorf("fetch channels: %w", err)
	}
	s.mu.Lock()
	s.state.Manage.Channels = channels
	s.mu.Unlock()
	s.emit(bus.EventManageUpdated, map[string]any{"section": "channels"})
	return channels, nil
}

// FetchSchedules refreshes the cron mirrors. Jobs without a next run get
// one computed from their expression.
func (s *Store) FetchSchedules(ctx context.Context) ([]domain.CronJob, error) {
	if s.gw == nil {
		return nil, fmt.Errorf("no gateway configured")
	}
	schedules, err := s.gw.Schedules(ctx)
	if err != nil {
		s.logger.Warn("fetch schedules failed", "err", err)
		return nil, fmt.Errorf("fetch schedules: %w", err)
	}
	jobs := schedule.Flatten(schedules)
	if bad := schedule.FillNextRuns(jobs, s.now()); bad > 0 {
		s.logger.Debug("cron jobs with unparseable schedule", "count", bad)
	}

	s.mu.Lock()
	s.state.Manage.Schedules = schedules
	s.state.Manage.CronJobs = jobs
	s.mu.Unlock()
	s.emit(bus.EventManageUpdated, map[string]any{"section": "schedules", "jobs": len(jobs)})
	return jobs, nil
}

// ToggleJob expands a job's details, or collapses it if already expanded.
func (s *Store) ToggleJob(id string) {
	s.setUI(func(st *State) {
		if st.Manage.ExpandedJob == id {
			st.Manage.ExpandedJob = ""
		} else {
			st.Manage.ExpandedJob = id
		}
	})
}
