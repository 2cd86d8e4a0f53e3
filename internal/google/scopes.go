package google

import gmail "google.golang.org/api/gmail/v1"

// GmailScopes are the scopes requested for inbox inspection.
var GmailScopes = []string{
	gmail.GmailReadonlyScope,
}
