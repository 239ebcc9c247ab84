package opsgenie

import (
	"context"
	"fmt"
	"net/http"

	apperrors "oncall-roster-audit/internal/errors"
)

// ListTeams fetches all teams
func (c *Client) ListTeams(ctx context.Context) ([]TeamRef, error) {
	c.log.Info("Fetching all teams from the platform")

	var envelope struct {
		Data []TeamRef `json:"data"`
	}
	if err := c.get(ctx, "/teams", nil, &envelope); err != nil {
		return nil, err
	}
	c.log.Infof("Successfully fetched %d teams", len(envelope.Data))
	return envelope.Data, nil
}

// GetTeam fetches one team including its member list
func (c *Client) GetTeam(ctx context.Context, teamID string) (*Team, error) {
	var envelope struct {
		Data Team `json:"data"`
	}
	if err := c.get(ctx, "/teams/"+teamID, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// TeamAdmins collects the usernames of every team member holding the admin
// role, across all teams. A team whose member fetch fails is logged and
// skipped; the aggregation never aborts.
func (c *Client) TeamAdmins(ctx context.Context) ([]string, error) {
	c.log.Info("Starting to collect team admins")

	teams, err := c.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	var admins []string
	for _, ref := range teams {
		team, err := c.GetTeam(ctx, ref.ID)
		if err != nil {
			c.log.Errorf("Failed to fetch members for team %s (%s): %v", ref.Name, ref.ID, err)
			continue
		}
		count := 0
		for _, m := range team.Members {
			if m.Role == "admin" && m.User.Username != "" {
				admins = append(admins, m.User.Username)
				count++
			}
		}
		c.log.Infof("Found %d admin(s) in team %s", count, ref.Name)
	}

	c.log.Infof("Completed collecting admins, total found: %d", len(admins))
	return admins, nil
}

// RemoveTeamMember deletes the user-to-team membership edge. A 404 means the
// membership is already gone and counts as success, so re-running a partial
// cascade converges.
func (c *Client) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	c.log.Infof("Removing user ID %s from team ID %s", userID, teamID)

	if _, err := c.do(ctx, http.MethodDelete, "/teams/"+teamID+"/members/"+userID, nil, nil); err != nil {
		if apperrors.RequestStatus(err) == http.StatusNotFound {
			c.log.Infof("User ID %s already absent from team ID %s", userID, teamID)
			return nil
		}
		return fmt.Errorf("failed to remove user %s from team %s: %w", userID, teamID, err)
	}
	c.log.Infof("Successfully removed user ID %s from team ID %s", userID, teamID)
	return nil
}
