// Package gmail wraps the Gmail REST API behind a small client interface
// so the pipeline can be tested without network access.
package gmail

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// user refers to the authenticated mailbox owner.
const user = "me"

// Client defines the Gmail operations used by the pipeline.
type Client interface {
	// ListMessageIDs returns up to limit message IDs matching the Gmail
	// search query. An empty query lists the most recent messages.
	ListMessageIDs(ctx context.Context, query string, limit int64) ([]string, error)
	// GetMessage fetches a full message including headers and body parts.
	GetMessage(ctx context.Context, id string) (*gmailapi.Message, error)
	// Profile returns the email address of the authenticated mailbox.
	Profile(ctx context.Context) (string, error)
}

type apiClient struct {
	svc *gmailapi.Service
}

// NewClient creates a Gmail client authenticated with the given OAuth2
// access token. Extra options are appended after the token source, so
// tests can override the endpoint and HTTP client.
func NewClient(ctx context.Context, accessToken string, opts ...option.ClientOption) (Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, src)

	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmailapi.NewService(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create service")
	}
	return &apiClient{svc: svc}, nil
}

// NewClientWithHTTP creates a Gmail client on top of an explicit HTTP
// client. Used by tests with httptest servers.
func NewClientWithHTTP(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmailapi.NewService(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "gmail: create service")
	}
	return &apiClient{svc: svc}, nil
}

func (c *apiClient) ListMessageIDs(ctx context.Context, query string, limit int64) ([]string, error) {
	call := c.svc.Users.Messages.List(user).MaxResults(limit).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	list, err := call.Do()
	if err != nil {
		return nil, eris.Wrap(err, "gmail: list messages")
	}

	ids := make([]string, 0, len(list.Messages))
	for _, m := range list.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (c *apiClient) GetMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := c.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "gmail: get message %s", id)
	}
	return msg, nil
}

func (c *apiClient) Profile(ctx context.Context) (string, error) {
	profile, err := c.svc.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gmail: get profile")
	}
	return profile.EmailAddress, nil
}
