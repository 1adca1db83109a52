// Package emit provides the command that publishes a test event.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/emoji"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/output"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/handlers"
	"github.com/reddy-bhavesh/sarral-scan/internal/transport"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// Options holds the emit flags.
type Options struct {
	Type  string
	Data  string
	File  string
	Token string
}

// NewCommand creates the emit command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:     "emit TYPE [JSON]",
		GroupID: "core",
		Short:   "Publish an event to your own streams",
		Long: `Emit posts an event to the emit endpoint of the event backend. The
event is delivered to every open stream of the token's user, so a running
"sarral-scan watch" shows it immediately.

The payload is given as the second argument, with --data, or read from
--file ("-" reads standard input).`,
		Example: `  sarral-scan emit SCAN_UPDATE '{"scanId":1,"status":"Running","progress":40}'
  sarral-scan emit REPORT_READY --file report.json
  echo '{"message":"hi"}' | sarral-scan emit CONNECTED --file -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Type = args[0]
			if len(args) == 2 {
				if opts.Data != "" || opts.File != "" {
					return errors.NewValidationError("data", args[1], "payload given twice")
				}
				opts.Data = args[1]
			}
			return Run(cmd.Context(), app, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the JSON payload from a file (- for stdin)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "access token (default SARRAL_TOKEN or the stored token)")

	return cmd
}

// Run posts one event and prints the acknowledgement.
func Run(ctx context.Context, app appcontext.Interface, opts *Options, in io.Reader, out io.Writer) error {
	eventType := events.Type(strings.ToUpper(strings.TrimSpace(opts.Type)))
	if eventType == "" {
		return errors.NewValidationError("type", opts.Type, "event type is required")
	}

	data, err := payload(opts, in)
	if err != nil {
		return err
	}

	token, err := resolveToken(ctx, app, opts.Token)
	if err != nil {
		return err
	}

	endpoint, err := url.JoinPath(app.APIURL(), app.ServerConfig().EmitPath)
	if err != nil {
		return errors.NewValidationError("api_url", app.APIURL(), "must be a valid URL")
	}

	var ack handlers.EmitResponse
	client := transport.New(&transport.BearerAuth{})
	req := handlers.EmitRequest{Type: eventType, Data: data}
	if err := client.PostJSON(ctx, endpoint, token, req, &ack); err != nil {
		return err
	}
	app.Logger().Debug().
		Str("event_id", ack.ID).
		Str("event_type", string(ack.Type)).
		Msg("Event emitted")

	switch format := output.Format(app.OutputFormat()); format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(out, ack)
	}
	_, err = fmt.Fprintf(out, "%s Emitted %s (id %s)\n", emoji.Success, ack.Type, ack.ID)
	return err
}

// payload returns the JSON payload from --data or --file. An empty payload
// is sent without data.
func payload(opts *Options, in io.Reader) (json.RawMessage, error) {
	raw := []byte(opts.Data)
	switch {
	case opts.File == "-":
		b, err := io.ReadAll(in)
		if err != nil {
			return nil, errors.WrapIO("read", "stdin", err)
		}
		raw = b
	case opts.File != "":
		b, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, errors.WrapIO("read", opts.File, err)
		}
		raw = b
	}

	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, errors.NewValidationError("data", string(raw), "payload must be valid JSON")
	}
	return raw, nil
}

// resolveToken prefers an explicit token, then the session and the
// durable store.
func resolveToken(ctx context.Context, app appcontext.Interface, explicit string) (string, error) {
	if explicit != "" {
		return credentials.Normalize(explicit), nil
	}
	chain := credentials.Chain{app.SessionStore()}
	if durable, err := app.TokenStore(); err == nil {
		chain = append(chain, durable)
	}
	token, err := chain.Credential(ctx)
	if errors.IsNoCredential(err) {
		return "", errors.NewAuthenticationError("", "token",
			"no access token; pass --token, set SARRAL_TOKEN or run 'sarral-scan token issue --remember'", err)
	}
	return token, err
}
