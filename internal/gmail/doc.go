// Package gmail lists recent messages of a Gmail inbox.
//
// Listing is one messages.list call followed by one metadata get per
// returned id. Only the Subject, From, To and Date headers are fetched.
package gmail
