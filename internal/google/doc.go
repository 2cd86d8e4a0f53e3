// Package google manages the OAuth2 lifecycle of per-user Gmail credentials.
//
// There are two entry points. Manager serves requests: it loads a stored
// credential, refreshes it through the token endpoint when it has expired and
// otherwise fails with an *AuthRequiredError. It never prompts. Interactive
// runs the browser consent flow and is only reachable from the
// "auth login" command.
package google
