package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Default file locations, relative to the working directory.
const (
	DefaultCredentialsFile = "credentials.json"
	DefaultTokenFile       = "token.json"
)

// ErrNoToken is returned when no cached token exists yet. Run the auth
// command to create one.
var ErrNoToken = errors.New("no Google OAuth token found")

// LoadOAuthConfig reads an installed-app client secret file as downloaded
// from the Google Cloud console.
func LoadOAuthConfig(credentialsFile string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client credentials: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client credentials %s: %w", credentialsFile, err)
	}
	return conf, nil
}

// AuthURL returns the consent page URL. Offline access and forced consent
// make Google return a refresh token every time.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeAndSave exchanges an authorization code for a token and writes it
// to tokenFile.
func ExchangeAndSave(ctx context.Context, conf *oauth2.Config, authCode, tokenFile string) (*oauth2.Token, error) {
	tok, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := WriteToken(tokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// HasToken reports whether tokenFile exists.
func HasToken(tokenFile string) bool {
	_, err := os.Stat(tokenFile)
	return err == nil
}

// ReadToken loads a token written by WriteToken.
func ReadToken(tokenFile string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNoToken, tokenFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", tokenFile, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("invalid token file %s: no access or refresh token", tokenFile)
	}
	return &tok, nil
}

// WriteToken stores tok as JSON, readable only by the current user. The file
// is replaced atomically.
func WriteToken(tokenFile string, tok *oauth2.Token) error {
	if dir := filepath.Dir(tokenFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp := tokenFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, tokenFile); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
