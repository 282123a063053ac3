// Package update checks the release channel for newer client versions and
// optionally applies them in place.
package update

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/storage"
)

// Temp file suffixes used while swapping the running executable.
const (
	suffixDownload = ".tmp-download"
	suffixOld      = ".tmp-old"
)

// checkInterval is how often a running client re-checks the release channel.
const checkInterval = 24 * time.Hour

// ErrNoAsset means the release carries no binary for this platform.
var ErrNoAsset = errors.New("release is missing a binary for this platform")

// Updater checks for and applies client updates.
type Updater struct {
	mgr      *mgr.Manager
	instance instance
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Version() string
	Config() *config.Config
	Storage() storage.Storage
	HTTPClient() *http.Client
}

// Release is the part of a release channel reply the updater needs.
type Release struct {
	URL         string  `json:"html_url"`
	TagName     string  `json:"tag_name"`
	Name        string  `json:"name"`
	PublishedAt string  `json:"published_at"`
	Assets      []Asset `json:"assets"`
}

// Asset is a single downloadable release file.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// New returns a new updater.
func New(instance instance) *Updater {
	return &Updater{
		mgr:      mgr.New("update"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (u *Updater) Manager() *mgr.Manager {
	return u.mgr
}

// Start starts the update check in the background.
// The check runs once immediately and repeats while the client is running.
func (u *Updater) Start() error {
	if u.instance.Config().Update.Disable {
		u.mgr.Info("update check is disabled")
		return nil
	}

	u.mgr.Repeat("update check", checkInterval, u.checkWorker).Go()
	return nil
}

// Stop stops the updater.
func (u *Updater) Stop() error {
	return nil
}

// checkWorker checks for a newer release. Failures are logged only, an
// unreachable release channel must never keep the client from starting.
func (u *Updater) checkWorker(w *mgr.WorkerCtx) error {
	release, err := u.FetchLatestRelease(w)
	if err != nil {
		w.Warn("failed to check for updates", "err", err)
		return nil
	}
	if err := u.instance.Storage().SaveLastUpdateCheck(time.Now()); err != nil {
		w.Warn("failed to record update check", "err", err)
	}

	latest := "v" + strings.TrimPrefix(release.TagName, "v")
	if !semver.IsValid(latest) {
		w.Warn("release channel returned an invalid version", "tag", release.TagName)
		return nil
	}

	current := "v" + strings.TrimPrefix(u.instance.Version(), "v")
	switch semver.Compare(latest, current) {
	case 0:
		w.Debug("latest version is installed", "version", current)
		return nil
	case -1:
		w.Debug("future release is installed", "version", current, "latest", latest)
		return nil
	}

	if !u.instance.Config().Update.Apply {
		w.Info(
			"a newer client version is available",
			"current", current,
			"latest", latest,
			"url", release.URL,
		)
		return nil
	}

	w.Info("updating client", "current", current, "latest", latest)
	if err := u.Apply(w, release); err != nil {
		w.Error("failed to apply update", "err", err)
		return nil
	}
	w.Info("update applied, restart the client to use the new version", "version", latest)
	return nil
}

// FetchLatestRelease queries the release channel for the latest release.
func (u *Updater) FetchLatestRelease(w *mgr.WorkerCtx) (*Release, error) {
	req, err := http.NewRequestWithContext(
		w.Ctx(), http.MethodGet,
		u.instance.Config().UpdateEndpoint(), nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.instance.HTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release channel replied with %s", resp.Status)
	}

	release := &Release{}
	if err := json.NewDecoder(resp.Body).Decode(release); err != nil {
		return nil, fmt.Errorf("invalid release data: %w", err)
	}
	return release, nil
}

// Apply downloads the platform binary of the given release and swaps it in
// for the running executable. The new version runs on the next start.
func (u *Updater) Apply(w *mgr.WorkerCtx, release *Release) error {
	asset, err := platformAsset(release)
	if err != nil {
		return err
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	tmpDownload := exePath + suffixDownload
	tmpOld := exePath + suffixOld

	if err := u.download(w, asset, tmpDownload); err != nil {
		_ = os.Remove(tmpDownload)
		return fmt.Errorf("download release: %w", err)
	}

	// Swap: the running executable stays valid until the very last rename.
	if err := os.Rename(exePath, tmpOld); err != nil {
		_ = os.Remove(tmpDownload)
		return fmt.Errorf("move old executable: %w", err)
	}
	if err := os.Rename(tmpDownload, exePath); err != nil {
		// Try to roll back to the old executable.
		_ = os.Rename(tmpOld, exePath)
		_ = os.Remove(tmpDownload)
		return fmt.Errorf("move new executable: %w", err)
	}
	if err := os.Remove(tmpOld); err != nil {
		w.Warn("failed to remove old executable", "path", tmpOld, "err", err)
	}
	return nil
}

func (u *Updater) download(w *mgr.WorkerCtx, asset *Asset, path string) error {
	req, err := http.NewRequestWithContext(w.Ctx(), http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return err
	}

	resp, err := u.instance.HTTPClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download replied with %s", resp.Status)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// platformAsset picks the release asset matching this platform.
func platformAsset(release *Release) (*Asset, error) {
	name := AssetName()
	for i := range release.Assets {
		if release.Assets[i].Name == name {
			return &release.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoAsset, name)
}

// AssetName returns the release asset name for this platform.
func AssetName() string {
	if runtime.GOOS == "windows" {
		return "pocket-relay-client.exe"
	}
	return fmt.Sprintf("pocket-relay-client-%s-%s", runtime.GOOS, runtime.GOARCH)
}
