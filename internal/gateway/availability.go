package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/detailongo/dotg-team/internal/models"
)

// Availability lists the open start instants for branch. Every returned
// slot is scoped to that branch.
func (c *Client) Availability(ctx context.Context, branch string) ([]models.TimeSlot, error) {
	if c.cfg.AvailabilityURL == "" {
		return nil, fmt.Errorf("%w: availability", ErrNotConfigured)
	}
	endpoint := c.cfg.AvailabilityURL + "?branch=" + url.QueryEscape(branch)

	var starts []string
	if err := c.doGet(ctx, endpoint, &starts); err != nil {
		return nil, err
	}

	slots := make([]models.TimeSlot, 0, len(starts))
	for _, s := range starts {
		if s == "" {
			continue
		}
		slots = append(slots, models.TimeSlot{Branch: branch, Start: s})
	}
	c.logger.Debug().Str("branch", branch).Int("slots", len(slots)).Msg("availability loaded")
	return slots, nil
}
