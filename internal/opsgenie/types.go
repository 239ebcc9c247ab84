package opsgenie

import "time"

// Role is the platform role attached to a user account
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User represents a platform user account
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// TeamRef is the short team form returned by listing endpoints
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamMember is a membership entry inside a team, tagged with the member role
type TeamMember struct {
	Role string `json:"role"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

// Team is the full team form including its member list
type Team struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Members []TeamMember `json:"members"`
}

// ScheduleRef is the short schedule form returned by listing endpoints
type ScheduleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Recipient identifies who a timeline period is assigned to. Name is empty
// for non-user recipient kinds such as rotation groups.
type Recipient struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Period is a single on-call interval inside a timeline rotation
type Period struct {
	Recipient *Recipient `json:"recipient"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
}

// TimelineRotation is one rotation of a schedule timeline. Periods stays nil
// when the platform omits the field, which callers treat as a recoverable
// condition distinct from an empty list.
type TimelineRotation struct {
	Name    string   `json:"name"`
	Periods []Period `json:"periods"`
}

// Timeline is the expanded final timeline of one schedule
type Timeline struct {
	ScheduleName string
	Rotations    []TimelineRotation
}

// Participant is a named member of a rotation
type Participant struct {
	Type     string `json:"type,omitempty"`
	Username string `json:"username,omitempty"`
}

// Rotation is a schedule rotation with its participant list
type Rotation struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// TimelineWindow describes the expansion window requested from the timeline
// endpoint: Interval whole Units anchored at Date.
type TimelineWindow struct {
	Interval int
	Unit     string
	Date     time.Time
}
