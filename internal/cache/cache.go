// Package cache provides a filesystem JSON cache with expiry for upstream API responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/where"
)

const TTL = 7 * 24 * time.Hour

// Dir returns the directory entries are stored in.
var Dir = where.Skips

// GenerateKey generates a deterministic SHA-256 hash from a query and namespace pair for use as a cache identifier.
func GenerateKey(query, namespace string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(query, " ", "")) + namespace
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Read decodes a cached object into target if it exists and has not exceeded its TTL.
func Read(key string, target any) bool {
	path := filepath.Join(Dir(), key)

	info, err := filesystem.API().Stat(path)
	if err != nil || time.Since(info.ModTime()) > TTL {
		return false
	}

	f, err := filesystem.API().Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(target) == nil
}

// Write persists a serializable object through a temporary file and a rename.
func Write(key string, data any) error {
	path := filepath.Join(Dir(), key)
	tmpPath := path + ".tmp"

	f, err := filesystem.API().Create(tmpPath)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return filesystem.API().Rename(tmpPath, path)
}

// CollectGarbage removes expired entries.
func CollectGarbage() {
	dir := Dir()
	_ = filesystem.API().Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > TTL {
			_ = filesystem.API().Remove(path)
		}
		return nil
	})
}
