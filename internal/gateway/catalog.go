package gateway

import (
	"context"
	"fmt"
	"net/url"
)

type makesResponse struct {
	Results []struct {
		MakeName string `json:"MakeName"`
	} `json:"Results"`
}

type modelsResponse struct {
	Results []struct {
		ModelName string `json:"Model_Name"`
	} `json:"Results"`
}

// Makes returns the vehicle makes offered for year.
func (c *Client) Makes(ctx context.Context, year string) ([]string, error) {
	if c.cfg.CatalogURL == "" {
		return nil, fmt.Errorf("%w: catalog", ErrNotConfigured)
	}
	cacheKey := "catalog:makes:" + year
	var names []string
	if c.readCache(ctx, cacheKey, &names) {
		return names, nil
	}

	var resp makesResponse
	endpoint := joinURL(c.cfg.CatalogURL, "/makes") + "?year=" + url.QueryEscape(year)
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	names = make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MakeName != "" {
			names = append(names, r.MakeName)
		}
	}
	c.writeCache(ctx, cacheKey, names)
	return names, nil
}

// Models returns the models of vehicleMake for year.
func (c *Client) Models(ctx context.Context, vehicleMake, year string) ([]string, error) {
	if c.cfg.CatalogURL == "" {
		return nil, fmt.Errorf("%w: catalog", ErrNotConfigured)
	}
	cacheKey := fmt.Sprintf("catalog:models:%s:%s", year, vehicleMake)
	var names []string
	if c.readCache(ctx, cacheKey, &names) {
		return names, nil
	}

	q := url.Values{}
	q.Set("make", vehicleMake)
	q.Set("year", year)
	var resp modelsResponse
	if err := c.doGet(ctx, joinURL(c.cfg.CatalogURL, "/models")+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	names = make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ModelName != "" {
			names = append(names, r.ModelName)
		}
	}
	c.writeCache(ctx, cacheKey, names)
	return names, nil
}
