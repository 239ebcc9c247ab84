package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"oncall-roster-audit/internal/config"
	"oncall-roster-audit/internal/logger"
	"oncall-roster-audit/internal/opsgenie"
)

// RoleUser is the ordinary-user role tag the audit narrows the roster to
const RoleUser = "User"

// Result is the outcome of one audit run
type Result struct {
	RunID      string
	Target     Range
	AllUsers   []string
	OnCall     []string
	Admins     []string
	Candidates []string
	Entries    []OnCallEntry
}

// Service runs the roster audit: it merges the paginated roster, the team
// admin lists and every schedule timeline into consistent in-memory sets and
// computes the downgrade candidates. Partial fetch failures reduce the data
// and are logged; they never abort the run.
type Service struct {
	client      *opsgenie.Client
	reconciler  *Reconciler
	concurrency int
	delay       time.Duration
}

// NewService creates an audit service
func NewService(client *opsgenie.Client, cfg *config.Config) *Service {
	return &Service{
		client:      client,
		reconciler:  NewReconciler(logger.New()),
		concurrency: cfg.FetchConcurrency,
		delay:       cfg.RequestDelay(),
	}
}

// Run performs the full audit for the target range
func (s *Service) Run(ctx context.Context, target Range) (*Result, error) {
	if !target.Start.Before(target.End) {
		return nil, fmt.Errorf("invalid target range: start %s is not before end %s", target.Start, target.End)
	}

	runID := uuid.NewString()
	log := logger.WithRun(runID)
	log.Infof("Starting roster audit for range %s .. %s",
		target.Start.Format(time.RFC3339), target.End.Format(time.RFC3339))

	// Full roster, narrowed to ordinary users
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		if len(users) == 0 {
			return nil, fmt.Errorf("failed to fetch users: %w", err)
		}
		log.Warnf("User listing incomplete, continuing with %d fetched users: %v", len(users), err)
	}
	roster := opsgenie.UsernamesWithRole(users, RoleUser)
	log.Infof("Total number of users with role %q: %d", RoleUser, len(roster))

	// Team admins are excluded from the candidate set
	admins, err := s.client.TeamAdmins(ctx)
	if err != nil {
		log.Warnf("Team admin collection failed, continuing without exclusions: %v", err)
	}

	entries, err := s.fetchEntries(ctx, log, target)
	if err != nil {
		return nil, err
	}

	onCall := s.reconciler.OnCallUsernames(entries, target)
	log.Infof("Unique users holding on-call duty in range: %d", len(onCall))

	candidates := Diff(roster, onCall, admins)
	log.Infof("Users eligible for downgrade (excluding admins): %d: %v", len(candidates), candidates)

	return &Result{
		RunID:      runID,
		Target:     target,
		AllUsers:   roster,
		OnCall:     onCall,
		Admins:     admins,
		Candidates: candidates,
		Entries:    entries,
	}, nil
}

// fetchEntries expands and flattens every schedule timeline. Fetches run
// under a bounded group so the remote rate limit is respected collectively;
// a courtesy delay separates launches. Individual schedule failures are
// logged and skipped.
func (s *Service) fetchEntries(ctx context.Context, log *logger.Logger, target Range) ([]OnCallEntry, error) {
	schedules, err := s.client.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules: %w", err)
	}

	window := FetchWindow(target)
	log.Infof("Expanding %d schedule timeline(s) over %d %s from %s",
		len(schedules), window.Interval, window.Unit, window.Date.Format(time.RFC3339))

	var (
		mu      sync.Mutex
		entries []OnCallEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, schedule := range schedules {
		if i > 0 && s.delay > 0 {
			time.Sleep(s.delay)
		}
		g.Go(func() error {
			tl, err := s.client.GetScheduleTimeline(gctx, schedule.ID, window)
			if err != nil {
				log.Errorf("Failed to fetch timeline for schedule ID %s: %v", schedule.ID, err)
				return nil
			}
			flat := s.reconciler.Flatten(tl)
			mu.Lock()
			entries = append(entries, flat...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entries, err
	}

	log.Infof("Collected %d flattened on-call entries", len(entries))
	return entries, nil
}
