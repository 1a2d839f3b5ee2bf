package provider

import (
	"context"
	"fmt"

	"blac/config"
)

// Validate builds a throwaway provider and checks that it answers. Used to
// verify an API key before it is saved.
func Validate(ctx context.Context, providerID, baseURL, apiKey string) error {
	p, err := NewProvider(Config{
		Type:    MapProviderIDToType(providerID),
		BaseURL: baseURL,
		APIKey:  apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	config.Debugf("[Provider] Provider %s ping successful", providerID)
	return nil
}
