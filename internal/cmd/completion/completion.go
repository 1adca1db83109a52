// Package completion installs and removes shell completion scripts.
package completion

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Supported shells.
const (
	ShellBash       = "bash"
	ShellZsh        = "zsh"
	ShellFish       = "fish"
	ShellPowerShell = "powershell"
)

// location describes where a shell looks for completion scripts, relative
// to a Homebrew prefix and to the user's home directory.
type location struct {
	brew []string
	home []string
	file func(name string) string
}

var locations = map[string]location{
	ShellBash: {
		brew: []string{"etc", "bash_completion.d"},
		home: []string{".bash_completion.d"},
		file: func(name string) string { return name },
	},
	ShellZsh: {
		brew: []string{"share", "zsh", "site-functions"},
		home: []string{".zsh", "completions"},
		file: func(name string) string { return "_" + name },
	},
	ShellFish: {
		brew: []string{"share", "fish", "vendor_completions.d"},
		home: []string{".config", "fish", "completions"},
		file: func(name string) string { return name + ".fish" },
	},
}

// Shells returns the shells Install supports.
func Shells() []string {
	out := make([]string, 0, len(locations))
	for shell := range locations {
		out = append(out, shell)
	}
	sort.Strings(out)
	return out
}

// Generate writes the completion script for shell to w.
func Generate(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case ShellBash:
		return root.GenBashCompletionV2(w, true)
	case ShellZsh:
		return root.GenZshCompletion(w)
	case ShellFish:
		return root.GenFishCompletion(w, true)
	case ShellPowerShell:
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return errors.NewValidationError("shell", shell, "expected bash, zsh, fish or powershell")
	}
}

// Path returns the script location for shell. A Homebrew prefix is
// preferred when one is set or detected; otherwise the user's home is used.
func Path(shell, name string) (string, error) {
	loc, ok := locations[shell]
	if !ok {
		return "", errors.NewValidationError("shell", shell, "install supports bash, zsh and fish")
	}

	if prefix := brewPrefix(); prefix != "" {
		return filepath.Join(append(append([]string{prefix}, loc.brew...), loc.file(name))...), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapIO("resolve", "home directory", err)
	}
	return filepath.Join(append(append([]string{home}, loc.home...), loc.file(name))...), nil
}

// Install writes the completion script for shell and returns its path.
func Install(root *cobra.Command, shell string) (string, error) {
	path, err := Path(shell, root.Name())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", filepath.Dir(path), err)
	}

	file, err := os.Create(path) // #nosec G304 - path is built from fixed locations
	if err != nil {
		return "", errors.WrapIO("create", path, err)
	}
	if err := Generate(root, shell, file); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.WrapIO("close", path, err)
	}
	return path, nil
}

// Uninstall removes the completion script for shell. It reports whether a
// file was removed.
func Uninstall(root *cobra.Command, shell string) (bool, error) {
	path, err := Path(shell, root.Name())
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.WrapIO("delete", path, err)
	}
}

func brewPrefix() string {
	if prefix := os.Getenv("HOMEBREW_PREFIX"); prefix != "" {
		return prefix
	}
	for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
		if _, err := os.Stat(filepath.Join(prefix, "bin", "brew")); err == nil {
			return prefix
		}
	}
	return ""
}
