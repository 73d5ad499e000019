// Package auth persists the proxy API key in the system keyring.
package auth

import (
	"errors"

	"github.com/anisan-cli/anistream/constant"
	"github.com/zalando/go-keyring"
)

const user = "proxy-api-key"

// SetAPIKey persists the proxy API key to the system keyring.
func SetAPIKey(apiKey string) error {
	return keyring.Set(constant.App, user, apiKey)
}

// APIKey retrieves the proxy API key from the system keyring.
func APIKey() (string, error) {
	return keyring.Get(constant.App, user)
}

// LookupAPIKey is APIKey with a missing key reported as "".
func LookupAPIKey() (string, error) {
	apiKey, err := APIKey()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return apiKey, err
}

// DeleteAPIKey removes the proxy API key from the system keyring.
func DeleteAPIKey() error {
	err := keyring.Delete(constant.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
