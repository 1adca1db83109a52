package app

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/reddy-bhavesh/sarral-scan/cmd/sarral-scan/cmd/completion"
	"github.com/reddy-bhavesh/sarral-scan/cmd/sarral-scan/cmd/emit"
	"github.com/reddy-bhavesh/sarral-scan/cmd/sarral-scan/cmd/serve"
	"github.com/reddy-bhavesh/sarral-scan/cmd/sarral-scan/cmd/token"
	"github.com/reddy-bhavesh/sarral-scan/cmd/sarral-scan/cmd/watch"
)

// CreateWatchCommand creates the watch command with app dependencies.
func (a *App) CreateWatchCommand() *cobra.Command {
	return watch.NewCommand(a)
}

// CreateServeCommand creates the serve command with app dependencies.
func (a *App) CreateServeCommand() *cobra.Command {
	return serve.NewCommand(a)
}

// CreateEmitCommand creates the emit command with app dependencies.
func (a *App) CreateEmitCommand() *cobra.Command {
	return emit.NewCommand(a)
}

// CreateTokenCommand creates the token command with app dependencies.
func (a *App) CreateTokenCommand() *cobra.Command {
	return token.NewCommand(a)
}

// CreateCompletionCommand creates the completion command.
func (a *App) CreateCompletionCommand() *cobra.Command {
	return completion.NewCommand()
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("sarral-scan %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
