package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/h0rv/ghcord/internal/domain"
)

// fetchOutsideCollaborators lists the org's outside collaborators via REST;
// the GraphQL schema has no organization-level equivalent.
func (c *Client) fetchOutsideCollaborators(ctx context.Context) ([]domain.Person, error) {
	url := fmt.Sprintf("%s/orgs/%s/outside_collaborators?per_page=100", c.rest, c.org)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("outside collaborators request returned %s", resp.Status)
	}

	var body []struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode outside collaborators: %w", err)
	}

	people := make([]domain.Person, 0, len(body))
	for _, u := range body {
		people = append(people, domain.Person{Login: u.Login, AvatarURL: u.AvatarURL})
	}
	return people, nil
}

// FetchViewer returns the login of the user a token belongs to. It is used
// after the device authorization flow completes, with the user's token
// rather than the service token.
func (c *Client) FetchViewer(ctx context.Context, userToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rest+"/user", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user identity request returned %s", resp.Status)
	}

	var body struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode user identity: %w", err)
	}
	if body.Login == "" {
		return "", fmt.Errorf("user identity response missing login")
	}
	return body.Login, nil
}
