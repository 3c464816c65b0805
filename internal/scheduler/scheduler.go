// Package scheduler requests external sync runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
)

// ScheduledReason tags sync requests raised by the scheduler.
const ScheduledReason = "scheduled"

// SystemActor is the identity scheduled requests are recorded under.
var SystemActor = domain.Actor{UserID: "system:scheduler", Role: domain.RoleAdministrador}

// SyncRequester enqueues sync runs.
type SyncRequester interface {
	RequestSync(ctx context.Context, actor domain.Actor, reason string) (*domain.SyncRequest, error)
}

// Scheduler wraps a cron runner with a single sync job.
type Scheduler struct {
	cron      *cron.Cron
	requester SyncRequester
	timeout   time.Duration
}

// New parses spec (standard five-field cron syntax) and registers the sync job.
func New(spec string, requester SyncRequester) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		requester: requester,
		timeout:   30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler until ctx is cancelled, then waits for a running job to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) trigger() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req, err := s.requester.RequestSync(ctx, SystemActor, ScheduledReason)
	if err != nil {
		log.Error().Err(err).Msg("scheduled sync request failed")
		return
	}
	log.Info().Str("request_id", req.ID).Msg("scheduled sync requested")
}
