// Package admin holds the durable per-instance key/value store used for
// credentials and transient OAuth artifacts.
package admin

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("value not found")

type Store interface {
	GetValue(ctx context.Context, instanceID, key string) (string, error)
	SetValue(ctx context.Context, instanceID, key, value string) error
	DeleteValue(ctx context.Context, instanceID, key string) error
	Close() error
}

func validateKeyFields(instanceID, key string) error {
	if strings.TrimSpace(instanceID) == "" {
		return errors.New("instance id is required")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	return nil
}

func valueKey(instanceID, key string) string {
	return instanceID + ":" + key
}
