// Package completion provides the shell completion command.
package completion

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/completion"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/emoji"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// NewCommand creates the completion command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion SHELL",
		GroupID:   "management",
		Short:     "Generate or install shell completions",
		ValidArgs: []string{completion.ShellBash, completion.ShellZsh, completion.ShellFish, completion.ShellPowerShell},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Example: `  sarral-scan completion zsh > "${fpath[1]}/_sarral-scan"
  sarral-scan completion install
  sarral-scan completion uninstall fish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return completion.Generate(cmd.Root(), args[0], cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newInstallCommand())
	cmd.AddCommand(newUninstallCommand())
	return cmd
}

func newInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "install [SHELL...]",
		Short:     "Install completions (default bash, fish and zsh)",
		ValidArgs: completion.Shells(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var failed []string
			for _, shell := range shellsOrAll(args) {
				path, err := completion.Install(cmd.Root(), shell)
				if err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", emoji.Error, shell, err)
					failed = append(failed, shell)
					continue
				}
				fmt.Fprintf(out, "%s %s completions installed to %s\n", emoji.Success, shell, path)
			}
			if len(failed) > 0 {
				return errors.NewResourceError("install", "completion", strings.Join(failed, ","), errors.New("installation failed"))
			}
			fmt.Fprintln(out, "Start a new shell session to load the completions.")
			return nil
		},
	}
}

func newUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "uninstall [SHELL...]",
		Short:     "Remove installed completions",
		ValidArgs: completion.Shells(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, shell := range shellsOrAll(args) {
				removed, err := completion.Uninstall(cmd.Root(), shell)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "%s %s completions removed\n", emoji.Success, shell)
				} else {
					fmt.Fprintf(out, "%s %s completions not installed\n", emoji.Info, shell)
				}
			}
			return nil
		},
	}
}

func shellsOrAll(args []string) []string {
	if len(args) == 0 {
		return completion.Shells()
	}
	return args
}
