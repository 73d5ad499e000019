// Package version looks up the latest release and tells the user about it.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// parse reads "v1.2.3", "1.2" or "1.2.3-rc.1" into major, minor and patch.
// Pre-release and build suffixes are ignored.
func parse(s string) ([3]int, error) {
	var v [3]int

	core, _, _ := strings.Cut(strings.TrimPrefix(strings.TrimSpace(s), "v"), "-")
	core, _, _ = strings.Cut(core, "+")

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("malformed version %q", s)
	}

	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return v, fmt.Errorf("malformed version %q", s)
		}
		v[i] = n
	}

	return v, nil
}

// Compare returns 1 when a is newer than b, -1 when older and 0 when equal.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for i := range av {
		switch {
		case av[i] > bv[i]:
			return 1, nil
		case av[i] < bv[i]:
			return -1, nil
		}
	}

	return 0, nil
}
