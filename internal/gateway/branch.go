package gateway

import (
	"context"
	"fmt"
	"net/url"
)

// BranchMatch is the nearest branch to an address.
type BranchMatch struct {
	Branch         string `json:"branch"`
	EmployeeName   string `json:"employeeName"`
	EmployeeEmail  string `json:"employeeEmail"`
	BusinessNumber string `json:"businessNumber"`
}

type branchMatchResponse struct {
	ClosestBranch *BranchMatch `json:"closestBranch"`
}

// MatchBranch looks up the branch closest to address.
func (c *Client) MatchBranch(ctx context.Context, address string) (BranchMatch, error) {
	if c.cfg.BranchMatchURL == "" {
		return BranchMatch{}, fmt.Errorf("%w: branch match", ErrNotConfigured)
	}
	var resp branchMatchResponse
	if err := c.doGet(ctx, c.cfg.BranchMatchURL+"?address="+url.QueryEscape(address), &resp); err != nil {
		return BranchMatch{}, err
	}
	if resp.ClosestBranch == nil {
		return BranchMatch{}, fmt.Errorf("%w: no closest branch in response", ErrInvalidResponse)
	}
	return *resp.ClosestBranch, nil
}
