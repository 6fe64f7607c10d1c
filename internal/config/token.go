package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	tokenService = "studio"
	tokenAccount = "api_token"
)

// SecretStore reads and writes secrets in the platform secret store.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// NewKeychain returns the platform secret store.
func NewKeychain() SecretStore {
	return platformKeychain{}
}

// GetAPIToken returns the bearer token shared by the server and CLI
// client, generating and persisting one on first use. The
// STUDIO_SERVER_API_TOKEN environment variable overrides the stored
// token.
func GetAPIToken(kc SecretStore) (string, error) {
	if tok := os.Getenv("STUDIO_SERVER_API_TOKEN"); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(tokenService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}
	tok := uuid.NewString()
	if err := kc.Set(tokenService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
