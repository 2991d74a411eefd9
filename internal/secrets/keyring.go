// Package secrets stores the weather API key in the OS keyring.
package secrets

// file: internal/secrets/keyring.go

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "WeatherMCPServer"  // Service name for keyring.
	keyringUser    = "OpenWeatherMapKey" // Account name for keyring entry.
)

// KeyringStore handles storing/retrieving the API key using the OS keychain.
type KeyringStore struct {
	service string
	user    string
	logger  logging.Logger
}

// NewKeyringStore creates a store for the weather API key.
func NewKeyringStore(logger logging.Logger) *KeyringStore {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &KeyringStore{
		service: keyringService,
		user:    keyringUser,
		logger:  logger.WithField("component", "keyring_store"),
	}
}

// LoadAPIKey returns the stored key, or "" when none is stored.
func (s *KeyringStore) LoadAPIKey() (string, error) {
	key, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			s.logger.Debug("No weather API key stored in system keyring.")
			return "", nil
		}
		return "", errors.Wrap(err, "failed to load API key from system keyring")
	}
	s.logger.Debug("Weather API key loaded from system keyring.")
	return key, nil
}

// SaveAPIKey stores key, replacing any previous value.
func (s *KeyringStore) SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cannot save empty API key to keyring")
	}
	if err := keyring.Set(s.service, s.user, key); err != nil {
		s.logger.Error("keyring.Set operation failed.", "error", err)
		return errors.Wrap(err, "failed to save API key to system keyring")
	}
	s.logger.Info("Weather API key saved to system keyring.")
	return nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func (s *KeyringStore) DeleteAPIKey() error {
	err := keyring.Delete(s.service, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete API key from system keyring")
	}
	s.logger.Info("Weather API key removed from system keyring.")
	return nil
}
