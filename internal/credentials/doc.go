// Package credentials persists per-user OAuth2 credentials for Gmail.
//
// Each account is stored as one JSON file named after a hash of its user_id,
// so distinct identifiers never share a file. Writes go through a temp file
// and a rename. A small SQLite index maps file keys back to user_id values
// for listing.
package credentials
