/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package config

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService = "DetailPageComposer"
	keyringAPIKey  = "generator_api_key"
)

// tokenStore abstracts the keyring so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteAPIKey removes the stored generator API key.
func DeleteAPIKey() error { return tokenStore.Delete(keyringService, keyringAPIKey) }
