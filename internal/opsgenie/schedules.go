package opsgenie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "oncall-roster-audit/internal/errors"
)

// ListSchedules fetches all schedules
func (c *Client) ListSchedules(ctx context.Context) ([]ScheduleRef, error) {
	c.log.Info("Fetching all schedules from the platform")

	var envelope struct {
		Data []ScheduleRef `json:"data"`
	}
	if err := c.get(ctx, "/schedules", nil, &envelope); err != nil {
		return nil, err
	}
	c.log.Infof("Successfully fetched %d schedules", len(envelope.Data))
	return envelope.Data, nil
}

// GetScheduleTimeline requests the expanded final timeline of a schedule for
// the given window. The schedule name comes from the _parent reference of the
// response.
func (c *Client) GetScheduleTimeline(ctx context.Context, scheduleID string, window TimelineWindow) (*Timeline, error) {
	c.log.Infof("Fetching timeline for schedule ID %s", scheduleID)

	query := url.Values{}
	query.Set("interval", strconv.Itoa(window.Interval))
	query.Set("intervalUnit", window.Unit)
	if !window.Date.IsZero() {
		query.Set("date", window.Date.UTC().Format(time.RFC3339))
	}

	var envelope struct {
		Data struct {
			Parent struct {
				Name string `json:"name"`
			} `json:"_parent"`
			FinalTimeline *struct {
				Rotations []TimelineRotation `json:"rotations"`
			} `json:"finalTimeline"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/schedules/"+scheduleID+"/timeline", query, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data.FinalTimeline == nil {
		return nil, apperrors.NewMalformedResponseError("finalTimeline")
	}

	return &Timeline{
		ScheduleName: envelope.Data.Parent.Name,
		Rotations:    envelope.Data.FinalTimeline.Rotations,
	}, nil
}

// ListRotations fetches the rotations of a schedule with their participant
// lists.
func (c *Client) ListRotations(ctx context.Context, scheduleID string) ([]Rotation, error) {
	var envelope struct {
		Data []Rotation `json:"data"`
	}
	if err := c.get(ctx, "/schedules/"+scheduleID+"/rotations", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// GetRotation fetches a single rotation
func (c *Client) GetRotation(ctx context.Context, scheduleID, rotationID string) (*Rotation, error) {
	var envelope struct {
		Data Rotation `json:"data"`
	}
	if err := c.get(ctx, "/schedules/"+scheduleID+"/rotations/"+rotationID, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// UpdateRotationParticipants rewrites the participant list of a rotation.
// Named participants live inside rotations, so this is the only way to detach
// a user from rotation-embedded membership.
func (c *Client) UpdateRotationParticipants(ctx context.Context, scheduleID, rotationID string, participants []Participant) error {
	c.log.Infof("Updating participants of rotation %s in schedule %s", rotationID, scheduleID)

	payload := map[string]interface{}{
		"participants": participants,
	}
	path := "/schedules/" + scheduleID + "/rotations/" + rotationID
	if _, err := c.do(ctx, http.MethodPatch, path, nil, payload); err != nil {
		return fmt.Errorf("failed to update rotation %s of schedule %s: %w", rotationID, scheduleID, err)
	}
	c.log.Infof("Successfully updated participants of rotation %s in schedule %s", rotationID, scheduleID)
	return nil
}

// RemoveUserFromSchedule deletes a schedule outright. This coarse legacy
// variant cannot detach a single participant from rotation-embedded
// membership; the downgrade workflow rewrites rotation participants instead.
func (c *Client) RemoveUserFromSchedule(ctx context.Context, scheduleID string) error {
	c.log.Infof("Removing schedule ID %s", scheduleID)

	if _, err := c.do(ctx, http.MethodDelete, "/schedule/"+scheduleID, nil, nil); err != nil {
		if apperrors.RequestStatus(err) == http.StatusNotFound {
			c.log.Infof("Schedule ID %s already absent", scheduleID)
			return nil
		}
		return fmt.Errorf("failed to remove schedule %s: %w", scheduleID, err)
	}
	c.log.Infof("Successfully removed schedule ID %s", scheduleID)
	return nil
}
