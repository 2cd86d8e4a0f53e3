// Package gmail_tools exposes the Gmail inbox to MCP clients.
//
// Tools:
//   - check_gmail: list recent messages matching a Gmail search query
//   - switch_gmail_account: forget the stored credential of a user
//
// Both tools take an optional user_id ("default" when omitted) that selects
// whose stored Google credential is used. The tools never start a browser
// login. When no usable credential exists the call fails with an
// authentication-required error telling the operator to run
// `calendar-mcp auth login --user <id>`.
package gmail_tools
