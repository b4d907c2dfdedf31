package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		credentialsFile string
		tokenFile       string
		readOnly        bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail and Google Calendar",
		Long: `Authorize the agent to read and send email and to read your calendar.

Download an OAuth client of type "Desktop app" from the Google Cloud console
and save it as credentials.json. This command prints a consent URL; open it,
grant access and paste the authorization code back. The token is stored in
token.json and refreshed automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			credentialsFile = envString(cmd, "credentials-file", "GOOGLE_CREDENTIALS_FILE", credentialsFile)
			tokenFile = envString(cmd, "token-file", "GOOGLE_TOKEN_FILE", tokenFile)
			readOnly = envBool(cmd, "read-only", "AGENT_READ_ONLY", readOnly)

			conf, err := google.LoadOAuthConfig(credentialsFile, google.Scopes(readOnly))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this URL in your browser and authorize access:\n\n%s\n\n", google.AuthURL(conf, uuid.NewString()))
			fmt.Fprint(out, "Enter the authorization code: ")

			reader := bufio.NewReader(cmd.InOrStdin())
			code, err := reader.ReadString('\n')
			code = strings.TrimSpace(code)
			if code == "" {
				if err != nil {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				return fmt.Errorf("authorization code is empty")
			}

			if _, err := google.ExchangeAndSave(cmd.Context(), conf, code, tokenFile); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", tokenFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialsFile, "credentials-file", google.DefaultCredentialsFile, "Google OAuth client secrets file. Can also use GOOGLE_CREDENTIALS_FILE env var.")
	cmd.Flags().StringVar(&tokenFile, "token-file", google.DefaultTokenFile, "Where to store the token. Can also use GOOGLE_TOKEN_FILE env var.")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Request read-only scopes (send_email will not work). Can also use AGENT_READ_ONLY env var.")
	return cmd
}
