package binom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/campaign-distributor/ports"
)

// Client talks to a Binom-style tracker over its single-endpoint action API.
// Every call is a GET against the tracker root with an action parameter and
// the api key.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type offerRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type statsRow struct {
	Clicks  int64  `json:"clicks"`
	Leads   int64  `json:"leads"`
	Cost    string `json:"cost"`
	Revenue string `json:"revenue"`
}

func (c *Client) OfferExists(ctx context.Context, name string) (string, bool, error) {
	var rows []offerRow
	err := c.call(ctx, url.Values{
		"action": {"offer@get_all"},
	}, &rows)
	if err != nil {
		return "", false, err
	}
	for _, row := range rows {
		if row.Name == name {
			return row.ID, true, nil
		}
	}
	return "", false, nil
}

func (c *Client) CreateOffer(ctx context.Context, name, targetURL, geo string) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, url.Values{
		"action": {"offer@create"},
		"name":   {name},
		"url":    {targetURL},
		"geo":    {geo},
		"payout": {"0"},
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("tracker returned no offer id for %q", name)
	}
	return created.ID, nil
}

func (c *Client) AssignOffer(ctx context.Context, campaignID, offerID string) error {
	var result struct {
		Status string `json:"status"`
	}
	err := c.call(ctx, url.Values{
		"action":   {"campaign@add_offer"},
		"camp_id":  {campaignID},
		"offer_id": {offerID},
	}, &result)
	if err != nil {
		return err
	}
	if result.Status != "" && !strings.EqualFold(result.Status, "ok") {
		return fmt.Errorf("tracker rejected offer assignment: %s", result.Status)
	}
	return nil
}

func (c *Client) CampaignStats(ctx context.Context, campaignID string) (ports.CampaignStats, error) {
	var row statsRow
	err := c.call(ctx, url.Values{
		"action":  {"stats@campaign"},
		"camp_id": {campaignID},
	}, &row)
	if err != nil {
		return ports.CampaignStats{}, err
	}

	cost, err := decimal.NewFromString(defaultZero(row.Cost))
	if err != nil {
		return ports.CampaignStats{}, fmt.Errorf("parse stats cost: %w", err)
	}
	revenue, err := decimal.NewFromString(defaultZero(row.Revenue))
	if err != nil {
		return ports.CampaignStats{}, fmt.Errorf("parse stats revenue: %w", err)
	}
	return ports.CampaignStats{
		Clicks:      row.Clicks,
		Conversions: row.Leads,
		Cost:        cost,
		Revenue:     revenue,
	}, nil
}

func (c *Client) call(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.APIKey)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	response, err := c.HTTP.Do(request)
	if err != nil {
		return fmt.Errorf("tracker request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("tracker responded %d for action %s", response.StatusCode, params.Get("action"))
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tracker response: %w", err)
	}
	return nil
}

func defaultZero(value string) string {
	if strings.TrimSpace(value) == "" {
		return "0"
	}
	return value
}
