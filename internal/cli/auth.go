package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored API credential",
		Long: `Manage the API key used to authenticate with the service.

The key is stored in the system keyring (macOS Keychain, Linux Secret
Service, Windows Credential Manager). The FOUNDRY_API_KEY environment
variable, when set, takes precedence over the stored key.

Commands:
  login     Store an API key
  logout    Remove the stored API key
  status    Show where the active credential comes from`,
	}

	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())

	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store an API key in the system keyring",
		Long: `Store an API key in the system keyring.

The key can be provided via:
  - Interactive prompt (hidden input, default)
  - Standard input: echo "key" | foundry auth login`,
		Args: cobra.NoArgs,
		RunE: runAuthLogin,
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE:  runAuthLogout,
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the active credential comes from",
		Args:  cobra.NoArgs,
		RunE:  runAuthStatus,
	}
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	key, err := readAPIKey()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	if err := keyring.Set(keyringService, keyringAccount, key); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key stored in system keyring")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	if err := keyring.Delete(keyringService, keyringAccount); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored API key")
			return nil
		}
		return fmt.Errorf("failed to remove API key from keyring: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key removed from system keyring")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if key := os.Getenv(envAPIKey); key != "" {
		creds := foundry.APIKeyCredentials{APIKey: key}
		fmt.Fprintf(out, "Active credential: %s (from %s)\n", creds.Redacted(), envAPIKey)
		return nil
	}

	key, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintln(out, "No credential configured: set FOUNDRY_API_KEY or run 'foundry auth login'")
			return nil
		}
		return fmt.Errorf("cannot read keyring: %w", err)
	}
	creds := foundry.APIKeyCredentials{APIKey: key}
	fmt.Fprintf(out, "Active credential: %s (from system keyring)\n", creds.Redacted())
	return nil
}

// readAPIKey reads the key from a stdin pipe when present, otherwise
// prompts with hidden input.
func readAPIKey() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	fmt.Fprint(os.Stderr, "API key: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
