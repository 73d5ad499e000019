// Package util holds helpers shared by the commands and the controls.
package util

import (
	"github.com/anisan-cli/anistream/filesystem"
	"golang.org/x/exp/constraints"
)

// Clamp bounds v to [low, high].
func Clamp[T constraints.Ordered](v, low, high T) T {
	return min(max(v, low), high)
}

// Ignore calls f and drops its error, for deferred closes.
func Ignore(f func() error) {
	_ = f()
}

// Delete removes path, recursively when it is a directory.
func Delete(path string) error {
	info, err := filesystem.API().Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return filesystem.API().RemoveAll(path)
	}
	return filesystem.API().Remove(path)
}
