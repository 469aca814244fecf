// Package storage persists whole named collections as JSON documents.
//
// Every backend honours the same contract: Load reads the complete
// collection and Save replaces it atomically. There is no partial write
// and no merge; concurrent writers from separate processes race with
// last-write-wins semantics.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Collection loads and saves named collections under a namespace.
type Collection interface {
	// Load decodes the stored collection into dest. It reports false when
	// nothing has been saved under name yet.
	Load(ctx context.Context, name string, dest any) (bool, error)
	// Save replaces the stored collection with value.
	Save(ctx context.Context, name string, value any) error
}

// DefaultNamespace prefixes every key when none is configured.
const DefaultNamespace = "cabinet"

// ErrEmptyName is returned when a collection name is blank.
var ErrEmptyName = errors.New("storage: collection name required")

// Key builds the namespaced storage key for a collection.
func Key(namespace, name string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + ":" + name
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

func wrap(backend, op, key string, err error) error {
	return fmt.Errorf("storage/%s: %s %s: %w", backend, op, key, err)
}
