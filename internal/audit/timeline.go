package audit

import (
	"sort"
	"time"

	"oncall-roster-audit/internal/logger"
	"oncall-roster-audit/internal/opsgenie"
)

// Range is a target date range in UTC
type Range struct {
	Start time.Time
	End   time.Time
}

// OnCallEntry is one flattened on-call interval derived from a schedule
// timeline
type OnCallEntry struct {
	ScheduleName string
	RotationName string
	Username     string
	Start        time.Time
	End          time.Time
}

// Overlaps reports whether the entry's interval overlaps the target range.
// Partial overlap counts: duty spanning a range boundary is still coverage.
func (e OnCallEntry) Overlaps(target Range) bool {
	return !e.Start.After(target.End) && !e.End.Before(target.Start)
}

// FetchWindow computes a timeline expansion window guaranteed to contain the
// target range: anchored at the range start and spanning enough whole months
// to reach past its end.
func FetchWindow(target Range) opsgenie.TimelineWindow {
	months := 1
	for target.Start.AddDate(0, months, 0).Before(target.End) {
		months++
	}
	return opsgenie.TimelineWindow{
		Interval: months,
		Unit:     "months",
		Date:     target.Start,
	}
}

// Reconciler flattens schedule timelines into on-call entries and derives the
// set of users holding duty inside a target range.
type Reconciler struct {
	log *logger.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.New()
	}
	return &Reconciler{log: log}
}

// Flatten turns the nested rotation/period structure of one timeline into
// flat entries. Periods without a named user recipient are skipped silently;
// a rotation with no periods field is recorded as a warning and skipped.
func (r *Reconciler) Flatten(tl *opsgenie.Timeline) []OnCallEntry {
	var entries []OnCallEntry
	for _, rotation := range tl.Rotations {
		if rotation.Periods == nil {
			r.log.Warnf("No 'periods' found for rotation: %s in Schedule: %s", rotation.Name, tl.ScheduleName)
			continue
		}
		for _, period := range rotation.Periods {
			if period.Recipient == nil || period.Recipient.Name == "" {
				continue
			}
			entries = append(entries, OnCallEntry{
				ScheduleName: tl.ScheduleName,
				RotationName: rotation.Name,
				Username:     period.Recipient.Name,
				Start:        period.StartDate,
				End:          period.EndDate,
			})
		}
	}
	return entries
}

// OnCallUsernames returns the sorted distinct usernames of entries that
// overlap the target range.
func (r *Reconciler) OnCallUsernames(entries []OnCallEntry, target Range) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.Overlaps(target) {
			seen[e.Username] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
