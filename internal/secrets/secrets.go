// Package secrets resolves the trigger bearer secret. A config value
// (usually from INTERNHUB_TRIGGER_SECRET) wins; otherwise the OS keychain
// entry is used.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"internhub-engine/internal/config"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "internhub"

var ErrNoSecret = errors.New("trigger secret not found (set it in the keychain or via INTERNHUB_TRIGGER_SECRET)")

// TriggerSecret returns the secret the scrape trigger compares against.
func TriggerSecret(cfg config.TriggerConfig) (string, error) {
	if s := strings.TrimSpace(cfg.Secret); s != "" {
		return s, nil
	}
	if acct := strings.TrimSpace(cfg.KeyringAccount); acct != "" {
		s, err := keyring.Get(KeyringService, acct)
		if err == nil && strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", ErrNoSecret
}

func SetTriggerSecret(account, secret string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, secret)
}

func DeleteTriggerSecret(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
