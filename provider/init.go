package provider

import (
	"fmt"
	"net/http"

	"blac/config"
	apperrors "blac/errors"
	"blac/model"
)

// KeySource supplies API keys by provider ID. config.CredentialStore
// satisfies it.
type KeySource interface {
	APIKey(providerID string) string
}

// FromConfig creates the provider selected by the [assistant] section,
// reading the API key from keys at call time so a key saved moments ago is
// honored.
func FromConfig(cfg *config.Config, keys KeySource, httpClient *http.Client) (model.Provider, error) {
	providerID := cfg.Assistant.Provider
	providerType := MapProviderIDToType(providerID)

	apiKey := ""
	if keys != nil {
		apiKey = keys.APIKey(providerID)
	}
	if RequiresAPIKey(providerType) && apiKey == "" {
		return nil, fmt.Errorf("%s: %w", config.ProviderDisplayName(providerID), apperrors.ErrMissingKey)
	}

	p, err := NewProvider(Config{
		Type:       providerType,
		BaseURL:    cfg.Assistant.BaseURL,
		Model:      cfg.Assistant.Model,
		APIKey:     apiKey,
		HTTPClient: httpClient,
	})
	if err != nil {
		config.Debugf("[Provider] failed to initialize %s: %v", providerID, err)
		return nil, err
	}

	config.Debugf("[Provider] Initialized provider: %s (model: %s)", providerID, p.GetModel())
	return p, nil
}
