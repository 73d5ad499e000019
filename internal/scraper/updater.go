package scraper

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/network"
)

// Install downloads a script to localPath unless the local copy already has the same content.
func Install(ctx context.Context, remoteURL, localPath string) (updated bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := network.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download %s: %s", remoteURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	if local, err := filesystem.API().ReadFile(localPath); err == nil && sha256.Sum256(local) == sha256.Sum256(body) {
		return false, nil
	}

	if err := filesystem.WriteAtomic(localPath, body, 0o644); err != nil {
		return false, err
	}

	Forget(localPath)
	return true, nil
}
