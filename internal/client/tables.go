package client

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"castenobar/internal/models"
	"castenobar/internal/profile"
	"castenobar/internal/session"
)

var (
	_ session.AccountService = (*Client)(nil)
	_ session.ProfileLookup  = (*Client)(nil)
	_ profile.Tables         = (*Client)(nil)
	_ profile.Blobs          = (*Client)(nil)
)

func (c *Client) ProfileExists(ctx context.Context, whatsappNumber string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	path := "/v1/profiles/exists?whatsapp_number=" + url.QueryEscape(whatsappNumber)
	if err := c.Get(ctx, path, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) InsertProfile(ctx context.Context, p *models.Profile) error {
	return c.Post(ctx, "/v1/profiles", p, p)
}

// ProfileByOwner reads the signed-in owner's row; the server derives the
// owner from the token.
func (c *Client) ProfileByOwner(ctx context.Context, _ string) (*models.Profile, error) {
	var p models.Profile
	if err := c.Get(ctx, "/v1/profiles/me", &p); err != nil {
		if StatusOf(err) == 404 {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, _ string, p *models.Profile) (*models.Profile, error) {
	var out models.Profile
	if err := c.Put(ctx, "/v1/profiles/me", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProfiles returns every visible profile except the caller's.
func (c *Client) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := c.Get(ctx, "/v1/profiles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Settings(ctx context.Context, _ string) (*models.Settings, error) {
	var s models.Settings
	if err := c.Get(ctx, "/v1/settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpsertSettings(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	var out models.Settings
	if err := c.Put(ctx, "/v1/settings", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Overview fetches the admin statistics as raw JSON fields.
func (c *Client) Overview(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.Get(ctx, "/v1/admin/overview", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload stores a photo under "<owner>/<file>" and returns the stored path.
func (c *Client) Upload(ctx context.Context, objectPath string, body io.Reader, overwrite bool) (string, error) {
	var resp struct {
		Path string `json:"path"`
		URL  string `json:"url"`
	}
	path := fmt.Sprintf("/v1/storage/photos/%s?overwrite=%t", objectPath, overwrite)
	if err := c.send(ctx, "PUT", path, body, "application/octet-stream", &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (c *Client) PublicURL(objectPath string) string {
	return c.baseURL + "/uploads/" + objectPath
}
