// Package google handles OAuth2 credentials for the Gmail and Calendar APIs.
//
// Client secrets come from a credentials.json file downloaded from the
// Google Cloud console. The user's token is cached in token.json by the auth
// command; FileTokenProvider loads it, refreshes it when it expires and
// writes the refreshed token back.
package google
