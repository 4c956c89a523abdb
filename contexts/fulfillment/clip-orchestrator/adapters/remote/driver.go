package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Driver hands clip creation to an external clipper service over HTTP. The
// browser automation itself lives behind that service; this process only
// submits the job and waits for the clip URL within the caller's deadline.
type Driver struct {
	Endpoint string
	HTTP     *http.Client
}

func NewDriver(endpoint string) *Driver {
	return &Driver{
		Endpoint: strings.TrimSpace(endpoint),
		// No client timeout here: the per-attempt deadline arrives on ctx.
		HTTP: &http.Client{},
	}
}

type clipRequest struct {
	OriginalURL string `json:"original_url"`
	Identity    string `json:"identity"`
	Title       string `json:"title"`
}

type clipResponse struct {
	ClipURL string `json:"clip_url"`
	Error   string `json:"error"`
}

func (d *Driver) CreateClip(ctx context.Context, originalURL, identity, title string) (string, error) {
	body, err := json.Marshal(clipRequest{
		OriginalURL: originalURL,
		Identity:    identity,
		Title:       title,
	})
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := d.HTTP.Do(request)
	if err != nil {
		return "", fmt.Errorf("clipper request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("clipper responded %d", response.StatusCode)
	}
	var payload clipResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode clipper response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("clipper failed: %s", payload.Error)
	}
	if payload.ClipURL == "" {
		return "", fmt.Errorf("clipper returned no clip url")
	}
	return payload.ClipURL, nil
}
