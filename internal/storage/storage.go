// Package storage defines where recipe images live. The local and s3store
// subpackages provide the two implementations selected by STORAGE_DRIVER.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/rs/xid"
)

// RecipeImagePrefix is the key prefix for every recipe image.
const RecipeImagePrefix = "uploads/recipe"

var ErrInvalidKey = errors.New("storage: invalid key")

// Store persists image blobs by key. Keys are slash-separated relative
// paths such as "uploads/recipe/cv2k3q0d8m1s73e0kbag.jpg".
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL is the public address clients use to fetch key.
	URL(key string) string
}

// NewRecipeImageKey returns a fresh key under RecipeImagePrefix with the
// given extension (without the dot).
func NewRecipeImageKey(ext string) string {
	return path.Join(RecipeImagePrefix, xid.New().String()+"."+strings.ToLower(ext))
}

// CleanKey rejects empty, absolute and parent-escaping keys and returns the
// canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// JoinURL appends key to base with exactly one slash between them.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
