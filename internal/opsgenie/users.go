package opsgenie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "oncall-roster-audit/internal/errors"
)

// ListUsers fetches the full user roster page by page. When a page fetch
// fails the users collected so far are returned alongside the error.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	c.log.Info("Fetching all users from the platform")

	raws, fetchErr := c.fetchPaged(ctx, "/users", nil)

	users := make([]User, 0, len(raws))
	for _, raw := range raws {
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			c.log.Warnf("Skipping unparsable user entry: %v", err)
			continue
		}
		users = append(users, u)
	}

	c.log.Infof("Total number of users fetched: %d", len(users))
	return users, fetchErr
}

// UsernamesWithRole filters a roster client-side on the role name
func UsernamesWithRole(users []User, role string) []string {
	var names []string
	for _, u := range users {
		if u.Role.Name == role {
			names = append(names, u.Username)
		}
	}
	return names
}

// GetUserID resolves a username to the platform-assigned user id
func (c *Client) GetUserID(ctx context.Context, username string) (string, error) {
	c.log.Infof("Fetching user ID for %s", username)

	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/users/"+username, nil, &envelope); err != nil {
		return "", err
	}
	if envelope.Data.ID == "" {
		return "", apperrors.ErrUserNotFound
	}
	return envelope.Data.ID, nil
}

// ListUserTeams fetches the teams a user belongs to. An empty result is a
// non-nil empty slice, distinct from the nil returned on fetch failure.
func (c *Client) ListUserTeams(ctx context.Context, username string) ([]TeamRef, error) {
	c.log.Infof("Fetching teams for user %s", username)

	var envelope struct {
		Data []TeamRef `json:"data"`
	}
	if err := c.get(ctx, "/users/"+username+"/teams", nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return []TeamRef{}, nil
	}
	return envelope.Data, nil
}

// ListUserSchedules fetches the schedules a user belongs to, with the same
// nil-versus-empty contract as ListUserTeams.
func (c *Client) ListUserSchedules(ctx context.Context, username string) ([]ScheduleRef, error) {
	c.log.Infof("Fetching schedules for user %s", username)

	var envelope struct {
		Data []ScheduleRef `json:"data"`
	}
	if err := c.get(ctx, "/users/"+username+"/schedules", nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return []ScheduleRef{}, nil
	}
	return envelope.Data, nil
}

// UpdateUserRole patches a user's role. The platform accepts the role name
// for both id and name fields of the payload.
func (c *Client) UpdateUserRole(ctx context.Context, userID, role string) error {
	c.log.Infof("Changing role for user ID %s to %s", userID, role)

	payload := map[string]interface{}{
		"role": Role{ID: role, Name: role},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/users/"+userID, nil, payload); err != nil {
		return fmt.Errorf("failed to change role for user %s: %w", userID, err)
	}
	c.log.Infof("Successfully changed role for user ID %s to %s", userID, role)
	return nil
}
