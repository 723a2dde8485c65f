package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"internhub-engine/internal/config"
	"internhub-engine/internal/secrets"
)

var secretAccount string

func init() {
	secretCmd.PersistentFlags().StringVar(&secretAccount, "account", "", "keychain account (default trigger.keyring_account)")
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the trigger secret in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set [secret]",
	Short: "Store the trigger secret (reads stdin when no argument is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value string
		if len(args) == 1 {
			value = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no secret on stdin")
			}
			value = strings.TrimSpace(line)
		}
		acct := keyringAccount()
		if err := secrets.SetTriggerSecret(acct, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored trigger secret for %s\n", acct)
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the trigger secret from the keychain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return secrets.DeleteTriggerSecret(keyringAccount())
	},
}

// keyringAccount does not need a valid config; a broken config file should
// not stop someone from setting the secret.
func keyringAccount() string {
	if secretAccount != "" {
		return secretAccount
	}
	if path, overlay, err := resolvePaths(); err == nil {
		if cfg, err := loader(path, overlay)(); err == nil && cfg.Trigger.KeyringAccount != "" {
			return cfg.Trigger.KeyringAccount
		}
	}
	return config.Default().Trigger.KeyringAccount
}
