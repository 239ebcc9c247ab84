package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"oncall-roster-audit/internal/config"
	"oncall-roster-audit/internal/logger"
	"oncall-roster-audit/internal/opsgenie"
)

// Outcome status values
const (
	StatusRoleChanged = "role-changed"
	StatusSkipped     = "skipped"
)

// Skip reasons
const (
	ReasonIDUnresolved   = "id-unresolved"
	ReasonRolePatchError = "role-patch-error"
)

// Outcome is the final per-user result of one downgrade cascade
type Outcome struct {
	Username        string
	Status          string
	Reason          string
	TeamFetchFailed bool
	TeamsRemoved    int
	TeamFailures    int
	RotationsEdited int
}

// Report collects the outcomes of one downgrade batch
type Report struct {
	RunID    string
	Role     string
	Outcomes []Outcome
}

// Changed returns how many users ended with a successful role change
func (r *Report) Changed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusRoleChanged {
			n++
		}
	}
	return n
}

// Skipped returns how many users were skipped
func (r *Report) Skipped() int {
	return len(r.Outcomes) - r.Changed()
}

// Workflow performs the cascading role downgrade. Each user's cascade is
// strictly sequential; the batch never aborts on a per-user failure and
// nothing is ever rolled back.
type Workflow struct {
	client        *opsgenie.Client
	log           *logger.Logger
	delay         time.Duration
	rotationEdits bool
}

// NewWorkflow creates a downgrade workflow
func NewWorkflow(client *opsgenie.Client, cfg *config.Config) *Workflow {
	return &Workflow{
		client:        client,
		log:           logger.New(),
		delay:         cfg.RequestDelay(),
		rotationEdits: cfg.EnableRotationEdits,
	}
}

// Downgrade runs the cascade for every username and patches each user's role
// to newRole. It always returns a full report: one outcome per user.
func (w *Workflow) Downgrade(ctx context.Context, usernames []string, newRole string) *Report {
	report := &Report{
		RunID: uuid.NewString(),
		Role:  newRole,
	}
	log := w.log.WithField("run", report.RunID)
	log.Infof("Starting downgrade of %d user(s) to role %s", len(usernames), newRole)

	for i, username := range usernames {
		if i > 0 && w.delay > 0 {
			time.Sleep(w.delay)
		}
		report.Outcomes = append(report.Outcomes, w.downgradeUser(ctx, log, username, newRole))
	}

	log.Infof("Downgrade finished: %d changed, %d skipped", report.Changed(), report.Skipped())
	return report
}

// downgradeUser runs the six-stage cascade for a single user
func (w *Workflow) downgradeUser(ctx context.Context, log *logger.Logger, username, newRole string) Outcome {
	log = log.WithField("user", username)
	log.Info("Processing user")
	outcome := Outcome{Username: username}

	// Stage 1: resolve identity. Without an id no later stage can run.
	userID, err := w.client.GetUserID(ctx, username)
	if err != nil {
		log.Warnf("Skipping user due to ID fetch error: %v", err)
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonIDUnresolved
		return outcome
	}

	// Stages 2 and 3: enumerate teams and best-effort removal from each.
	// A fetch error skips the removals but never the rest of the cascade.
	teams, err := w.client.ListUserTeams(ctx, username)
	switch {
	case err != nil:
		log.Warnf("Skipping team removal due to team fetch error: %v", err)
		outcome.TeamFetchFailed = true
	case len(teams) == 0:
		log.Info("No teams found for user, skipping team removal")
	default:
		for _, team := range teams {
			if err := w.client.RemoveTeamMember(ctx, team.ID, userID); err != nil {
				log.Errorf("Failed to remove user from team %s: %v", team.Name, err)
				outcome.TeamFailures++
				continue
			}
			outcome.TeamsRemoved++
		}
	}

	// Stage 4: enumerate schedules. A fetch error here skips the schedule
	// cleanup but never the role change.
	schedules, err := w.client.ListUserSchedules(ctx, username)
	switch {
	case err != nil:
		log.Warnf("Skipping schedule cleanup due to schedule fetch error: %v", err)
	case len(schedules) == 0:
		log.Info("No schedules found for user, skipping schedule cleanup")
	default:
		// Stage 5: detach the user from every rotation referencing them
		for _, schedule := range schedules {
			outcome.RotationsEdited += w.detachFromSchedule(ctx, log, schedule, username)
		}
	}

	// Stage 6: the role change is the authoritative final step and is
	// attempted regardless of removal outcomes.
	if err := w.client.UpdateUserRole(ctx, userID, newRole); err != nil {
		log.Errorf("Failed to change role: %v", err)
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonRolePatchError
		return outcome
	}

	outcome.Status = StatusRoleChanged
	return outcome
}

// detachFromSchedule rewrites the participant list of every rotation in the
// schedule that references the user. Returns the number of rotations edited.
// When rotation edits are disabled the rewrite is computed and logged but not
// sent.
func (w *Workflow) detachFromSchedule(ctx context.Context, log *logger.Logger, schedule opsgenie.ScheduleRef, username string) int {
	rotations, err := w.client.ListRotations(ctx, schedule.ID)
	if err != nil {
		log.Errorf("Failed to list rotations for schedule %s: %v", schedule.Name, err)
		return 0
	}

	edited := 0
	for _, rotation := range rotations {
		remaining := make([]opsgenie.Participant, 0, len(rotation.Participants))
		references := false
		for _, p := range rotation.Participants {
			if p.Username == username {
				references = true
				continue
			}
			remaining = append(remaining, p)
		}
		if !references {
			continue
		}

		if !w.rotationEdits {
			log.Infof("Rotation edits disabled: would remove %s from rotation %s of schedule %s (%d participant(s) would remain)",
				username, rotation.Name, schedule.Name, len(remaining))
			continue
		}

		if err := w.client.UpdateRotationParticipants(ctx, schedule.ID, rotation.ID, remaining); err != nil {
			log.Errorf("Failed to rewrite rotation %s of schedule %s: %v", rotation.Name, schedule.Name, err)
			continue
		}
		edited++
	}
	return edited
}
