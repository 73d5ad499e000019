package util

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s]+`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)
	edgeSeparators      = regexp.MustCompile(`^[_\-.]+|[_\-.]+$`)
)

// SanitizeFilename maps name to something every platform accepts as a file name.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	return edgeSeparators.ReplaceAllString(name, "")
}

// Quantify formats "1 fragment" or "3 fragments".
func Quantify(count int, singular, plural string) string {
	noun := plural
	if count == 1 {
		noun = singular
	}
	return strconv.Itoa(count) + " " + noun
}

// FileStem is the base name of path without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
