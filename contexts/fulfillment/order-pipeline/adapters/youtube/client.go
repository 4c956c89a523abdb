package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultEndpoint = "https://www.googleapis.com/youtube/v3/videos"

// Client reads public video statistics from the YouTube Data API.
type Client struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		Endpoint: defaultEndpoint,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

type videoListResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (c *Client) BaselineViews(ctx context.Context, videoID string) (int64, error) {
	payload, err := c.lookup(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if len(payload.Items) == 0 {
		return 0, fmt.Errorf("video %s not found", videoID)
	}
	raw := payload.Items[0].Statistics.ViewCount
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	views, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse view count %q: %w", raw, err)
	}
	return views, nil
}

func (c *Client) VideoExists(ctx context.Context, videoID string) (bool, error) {
	payload, err := c.lookup(ctx, videoID)
	if err != nil {
		return false, err
	}
	return len(payload.Items) > 0, nil
}

func (c *Client) lookup(ctx context.Context, videoID string) (videoListResponse, error) {
	params := url.Values{
		"part": {"statistics"},
		"id":   {strings.TrimSpace(videoID)},
		"key":  {c.APIKey},
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return videoListResponse{}, err
	}
	response, err := c.HTTP.Do(request)
	if err != nil {
		return videoListResponse{}, fmt.Errorf("video metadata request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return videoListResponse{}, fmt.Errorf("video metadata responded %d", response.StatusCode)
	}
	var payload videoListResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return videoListResponse{}, fmt.Errorf("decode video metadata: %w", err)
	}
	return payload, nil
}
