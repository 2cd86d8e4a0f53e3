package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/gmail"
	"github.com/teemow/calendar-mcp/internal/google"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// NoEmailsPayload is returned verbatim when a query matches nothing.
const NoEmailsPayload = `{"emails": [], "total": 0, "message": "No emails found matching your query."}`

const (
	msgDisconnected = "Gmail account disconnected. The next email check will prompt you to log in with a new account."
	msgNotConnected = "No Gmail account was connected. The next email check will prompt you to log in."
)

// SwitchResult is the payload of switch_gmail_account.
type SwitchResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RegisterGmailTools registers check_gmail and switch_gmail_account.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	checkTool := mcp.NewTool("check_gmail",
		mcp.WithDescription("Check Gmail inbox and return recent emails. Use this when the user wants to check, read, or search their email."),
		mcp.WithString("query",
			mcp.Description("Gmail search query (e.g. 'is:unread', 'from:someone@example.com', 'is:inbox')"),
			mcp.DefaultString(gmail.DefaultQuery),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of emails to return (1-%d)", sc.MaxEmailResults())),
			mcp.DefaultNumber(gmail.DefaultMaxResults),
			mcp.Min(1),
			mcp.Max(float64(sc.MaxEmailResults())),
		),
		mcp.WithString("user_id",
			mcp.Description("The app user identifier whose Gmail credential is used"),
			mcp.DefaultString(common.DefaultUserID),
		),
	)
	s.AddTool(checkTool, common.Instrumented("check_gmail", instrumentation.ProviderGmail, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckGmail(ctx, request, sc)
		}))

	switchTool := mcp.NewTool("switch_gmail_account",
		mcp.WithDescription("Switch to a different Gmail account by clearing the saved authentication. Use this when the user wants to switch, change, or log out of their current Gmail account."),
		mcp.WithString("user_id",
			mcp.Description("The app user identifier whose Gmail credential should be cleared"),
			mcp.DefaultString(common.DefaultUserID),
		),
	)
	s.AddTool(switchTool, common.Instrumented("switch_gmail_account", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSwitchAccount(ctx, request, sc)
		}))

	return nil
}

func handleCheckGmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	userID := common.UserID(request)
	query := request.GetString("query", gmail.DefaultQuery)
	maxResults := request.GetInt("max_results", gmail.DefaultMaxResults)
	if maxResults > sc.MaxEmailResults() {
		maxResults = sc.MaxEmailResults()
	}

	logger := logging.WithTool(sc.Logger(), "check_gmail")
	logger.Info("checking gmail", logging.UserHash(userID), "query", query, "max_results", maxResults)

	client, err := sc.GmailClient(ctx, userID)
	if err == nil {
		var res *gmail.InboxResult
		res, err = client.CheckInbox(ctx, query, maxResults)
		if err == nil {
			if len(res.Emails) == 0 {
				return mcp.NewToolResultText(NoEmailsPayload), nil
			}
			return common.JSONResult(res)
		}
	}

	if google.IsAuthRequired(err) {
		return nil, err
	}
	logger.Error("error checking gmail", logging.Err(err))
	return common.ErrorPayload("Failed to check Gmail: " + err.Error()), nil
}

func handleSwitchAccount(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	userID := common.UserID(request)

	existed, err := sc.Manager().SwitchAccount(ctx, userID)
	if err != nil {
		logging.WithTool(sc.Logger(), "switch_gmail_account").Error("error switching gmail account", logging.Err(err))
		return common.ErrorPayload("Failed to switch account: " + err.Error()), nil
	}

	msg := msgNotConnected
	if existed {
		msg = msgDisconnected
	}
	return common.JSONResult(SwitchResult{Status: "success", Message: msg})
}
