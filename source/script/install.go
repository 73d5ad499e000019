package script

import (
	"context"
	"net/url"
	"path"

	"github.com/anisan-cli/anistream/internal/scraper"
)

// Install downloads a script from remoteURL into the sources directory and checks that it loads.
// It reports the installed name and whether the file changed.
func Install(ctx context.Context, remoteURL string) (name string, updated bool, err error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return "", false, err
	}

	target := Path(path.Base(parsed.Path))
	updated, err = scraper.Install(ctx, remoteURL, target)
	if err != nil {
		return "", false, err
	}

	s, err := Load(target)
	if err != nil {
		return "", updated, err
	}
	defer s.Close()

	return s.Name(), updated, nil
}
