// Package gh provides the GitHub client used by the snapshot refresher and
// the mutation workflows. GraphQL covers Projects v2 reads and writes; a
// couple of endpoints GraphQL does not expose (outside collaborators, the
// authenticated-user lookup for device-flow tokens) go through REST.
package gh

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
)

// Client is an organization-scoped GitHub API client.
type Client struct {
	gql   *graphql.Client
	http  *http.Client
	rest  string
	org   string
	token string
	log   *slog.Logger
}

// New creates a client for one organization using a service token.
func New(graphqlURL, restURL, org, token string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		gql:   graphql.NewClient(graphqlURL),
		http:  &http.Client{Timeout: 30 * time.Second},
		rest:  restURL,
		org:   org,
		token: token,
		log:   log,
	}
}

// run executes a GraphQL request with the service token attached.
func (c *Client) run(ctx context.Context, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.gql.Run(ctx, req, resp)
}
