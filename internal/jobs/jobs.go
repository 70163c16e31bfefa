// Package jobs defines the periodic sweeps Keeper registers on the
// scheduler. Each worker is a thin adapter: the state transitions and
// their once-only guarantees live in the owning service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"keeper.dev/keeper/internal/scheduler"
)

// Job kinds double as scheduler job names.
const (
	KindSubscriptionSweep = "subscription_sweep"
	KindJoinRequestSweep  = "join_request_sweep"
	KindPostSweep         = "post_sweep"
	KindMissionTimeout    = "mission_timeout_sweep"
	KindAuditRetention    = "audit_retention"
	KindAbuseCompaction   = "abuse_compaction"
)

// Worker performs one sweep.
type Worker interface {
	Kind() string
	Work(ctx context.Context) error
}

// Schedule holds the cadence of each built-in sweep.
type Schedule struct {
	SubscriptionHour   int
	SubscriptionMinute int
	JoinInterval       time.Duration
	PostInterval       time.Duration
	MissionInterval    time.Duration
}

// Workers is the set of sweeps to register. Nil workers are skipped.
type Workers struct {
	Subscriptions   *SubscriptionSweepWorker
	JoinRequests    *JoinRequestSweepWorker
	Posts           *PostSweepWorker
	MissionTimeouts *MissionTimeoutWorker
	AuditRetention  *AuditRetentionWorker
	AbuseCompaction *AbuseCompactionWorker
}

type entry struct {
	worker  Worker
	cadence scheduler.Cadence
	opts    []scheduler.JobOption
}

// Register adds every configured sweep to s.
func Register(s *scheduler.Scheduler, sched Schedule, w Workers) error {
	var entries []entry
	if w.Subscriptions != nil {
		entries = append(entries, entry{w.Subscriptions, scheduler.DailyAt(sched.SubscriptionHour, sched.SubscriptionMinute), nil})
	}
	if w.JoinRequests != nil {
		entries = append(entries, entry{w.JoinRequests, scheduler.Every(sched.JoinInterval), []scheduler.JobOption{scheduler.RunOnStart()}})
	}
	if w.Posts != nil {
		entries = append(entries, entry{w.Posts, scheduler.Every(sched.PostInterval), []scheduler.JobOption{scheduler.RunOnStart()}})
	}
	if w.MissionTimeouts != nil {
		entries = append(entries, entry{w.MissionTimeouts, scheduler.Every(sched.MissionInterval), nil})
	}
	if w.AuditRetention != nil {
		entries = append(entries, entry{w.AuditRetention, scheduler.Hourly(), nil})
	}
	if w.AbuseCompaction != nil {
		entries = append(entries, entry{w.AbuseCompaction, scheduler.Hourly(), nil})
	}

	for _, e := range entries {
		if err := s.AddJob(e.worker.Kind(), e.cadence, e.worker.Work, e.opts...); err != nil {
			return fmt.Errorf("register %s: %w", e.worker.Kind(), err)
		}
	}
	return nil
}
