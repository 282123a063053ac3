package patch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pocketrelay/client/update"
)

// maxAssetSize is the sanity limit for downloaded patch files.
const maxAssetSize = 16 << 20

// Source fetches patch files from the release channel.
type Source struct {
	client   *http.Client
	endpoint string
}

// NewSource returns a new patch file source using the given release lookup
// endpoint.
func NewSource(client *http.Client, endpoint string) *Source {
	return &Source{
		client:   client,
		endpoint: endpoint,
	}
}

// FetchAsset downloads the named asset of the latest release.
func (s *Source) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	release, err := s.fetchRelease(ctx)
	if err != nil {
		return nil, err
	}

	for _, asset := range release.Assets {
		if asset.Name == name {
			return s.download(ctx, asset.DownloadURL)
		}
	}
	return nil, fmt.Errorf("release %s has no asset %q", release.TagName, name)
}

func (s *Source) fetchRelease(ctx context.Context) (*update.Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release channel replied with %s", resp.Status)
	}

	release := &update.Release{}
	if err := json.NewDecoder(resp.Body).Decode(release); err != nil {
		return nil, fmt.Errorf("invalid release data: %w", err)
	}
	return release, nil
}

func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download replied with %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
}
