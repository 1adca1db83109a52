// Package token provides commands for managing the stream access token.
package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/emoji"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/output"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// NewCommand creates the token command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		GroupID: "management",
		Short:   "Issue, inspect and clear stream access tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newIssueCommand(app))
	cmd.AddCommand(newStatusCommand(app))
	cmd.AddCommand(newClearCommand(app))
	return cmd
}

// Result is the structured output of token issue.
type Result struct {
	User      string    `json:"user"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Stored    string    `json:"stored"`
}

func newIssueCommand(app appcontext.Interface) *cobra.Command {
	var (
		user     string
		secret   string
		ttl      time.Duration
		remember bool
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a development token signed with the server secret",
		Long: `Issue signs a token for --user with server.jwt_secret
(SARRAL_SERVER_JWT_SECRET). The development server accepts it on the
stream and emit endpoints.

With --remember the token is written to the durable token file and used by
later runs. Without it the token is printed for the current session, e.g.

  export SARRAL_TOKEN=$(sarral-scan token issue --user alice)`,
		Example: `  sarral-scan token issue --user alice
  sarral-scan token issue --user alice --remember --ttl 1h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = app.ServerConfig().JWTSecret
			}
			if ttl == 0 {
				ttl = app.ServerConfig().TokenTTL
			}
			issuer, err := auth.NewIssuer(secret, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(user)
			if err != nil {
				return err
			}

			durable, err := app.TokenStore()
			if err != nil {
				return err
			}
			store := credentials.ForScope(remember, durable, app.SessionStore())
			if err := store.Save(cmd.Context(), token); err != nil {
				return err
			}
			app.Logger().Debug().Str("user", user).Bool("remember", remember).Msg("Token issued")

			res := Result{User: user, ExpiresAt: expiresAt, Stored: "session"}
			if remember {
				res.Stored = storePath(durable)
			} else {
				res.Token = token
			}
			return printResult(cmd, app, res)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "user the token is issued for (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default server.jwt_secret)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default server.token_ttl)")
	cmd.Flags().BoolVar(&remember, "remember", false, "store the token in the durable token file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printResult(cmd *cobra.Command, app appcontext.Interface, res Result) error {
	out := cmd.OutOrStdout()
	switch format := output.Format(app.OutputFormat()); format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(out, res)
	}
	if res.Token != "" {
		_, err := fmt.Fprintln(out, res.Token)
		return err
	}
	_, err := fmt.Fprintf(out, "%s Token for %s saved to %s (expires %s)\n",
		emoji.Success, res.User, res.Stored, res.ExpiresAt.Format(time.RFC3339))
	return err
}

// Status describes the stored durable token.
type Status struct {
	Path      string    `json:"path"`
	Stored    bool      `json:"stored"`
	User      string    `json:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

func newStatusCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the token stored in the durable token file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			durable, err := app.TokenStore()
			if err != nil {
				return err
			}
			st := Status{Path: storePath(durable)}

			token, err := durable.Credential(cmd.Context())
			switch {
			case errors.IsNoCredential(err):
			case err != nil:
				return err
			default:
				claims, err := auth.Inspect(token)
				if err != nil {
					return err
				}
				st.Stored = true
				st.User = claims.Subject
				st.ExpiresAt = claims.ExpiresAt
				st.Expired = !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(time.Now())
			}

			out := cmd.OutOrStdout()
			switch format := output.Format(app.OutputFormat()); format {
			case output.FormatJSON, output.FormatYAML:
				return output.NewFormatter(format).Format(out, st)
			}
			if !st.Stored {
				_, err = fmt.Fprintf(out, "%s No token stored in %s\n", emoji.Waiting, st.Path)
				return err
			}
			symbol, state := emoji.Success, "valid until"
			if st.Expired {
				symbol, state = emoji.Error, "expired at"
			}
			_, err = fmt.Fprintf(out, "%s Token for %s %s %s\n", symbol, st.User, state, st.ExpiresAt.Format(time.RFC3339))
			return err
		},
	}
}

func newClearCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			durable, err := app.TokenStore()
			if err != nil {
				return err
			}
			if err := durable.Clear(cmd.Context()); err != nil {
				return err
			}
			if err := app.SessionStore().Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s Token removed from %s\n", emoji.Success, storePath(durable))
			return err
		},
	}
}

func storePath(s credentials.Store) string {
	if fs, ok := s.(*credentials.FileStore); ok {
		return fs.Path()
	}
	return "memory"
}
