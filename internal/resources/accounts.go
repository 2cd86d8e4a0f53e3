package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/server"
)

const (
	// AccountsURI lists every stored account.
	AccountsURI = "accounts://list"

	accountURIPrefix = "accounts://"
	accountURISuffix = "/status"
	// AccountStatusTemplate resolves the credential state of one account.
	AccountStatusTemplate = accountURIPrefix + "{user_id}" + accountURISuffix
)

// AccountStatus is the JSON body of both resources.
type AccountStatus struct {
	UserID    string     `json:"user_id"`
	State     string     `json:"state"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	// LastRefreshAt is only known for accounts listed from the index.
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`
}

// RegisterAccountResources registers the account list and the per-account
// status template.
func RegisterAccountResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listResource := mcp.NewResource(
		AccountsURI,
		"Connected Gmail accounts",
		mcp.WithResourceDescription("Accounts with a stored Gmail credential and their state"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(listResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccountList(ctx, request, sc)
	})

	statusTemplate := mcp.NewResourceTemplate(
		AccountStatusTemplate,
		"Gmail account status",
		mcp.WithTemplateDescription("Credential state (absent, valid, expired_refreshable, expired_unrefreshable) of one account"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(statusTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccountStatus(ctx, request, sc)
	})

	return nil
}

func handleAccountList(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	accounts, err := sc.Manager().Store().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	statuses := make([]AccountStatus, 0, len(accounts))
	for _, a := range accounts {
		state, err := sc.Manager().State(ctx, a.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to read credential for %s: %w", a.UserID, err)
		}
		updated := a.UpdatedAt
		statuses = append(statuses, AccountStatus{
			UserID:        a.UserID,
			State:         state.String(),
			UpdatedAt:     &updated,
			LastRefreshAt: a.LastRefreshAt,
		})
	}
	return jsonContents(request.Params.URI, statuses)
}

func handleAccountStatus(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	userID, err := userIDFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}
	state, err := sc.Manager().State(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential for %s: %w", userID, err)
	}
	return jsonContents(request.Params.URI, AccountStatus{UserID: userID, State: state.String()})
}

func userIDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, accountURIPrefix) || !strings.HasSuffix(uri, accountURISuffix) {
		return "", fmt.Errorf("unexpected account resource URI %q", uri)
	}
	userID := strings.TrimSuffix(strings.TrimPrefix(uri, accountURIPrefix), accountURISuffix)
	if userID == "" || strings.Contains(userID, "/") {
		return "", fmt.Errorf("unexpected account resource URI %q", uri)
	}
	return userID, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
