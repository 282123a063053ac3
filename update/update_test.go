package update

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/storage"
)

type testInstance struct {
	version string
	config  *config.Config
	storage storage.Storage
}

func (i *testInstance) Version() string          { return i.version }
func (i *testInstance) Config() *config.Config   { return i.config }
func (i *testInstance) Storage() storage.Storage { return i.storage }
func (i *testInstance) HTTPClient() *http.Client { return &http.Client{} }

func releaseChannel(t *testing.T, release *Release) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestUpdater(t *testing.T, version string, endpoint string) *Updater {
	t.Helper()
	return New(&testInstance{
		version: version,
		config: config.MakeTestConfig(config.Store{
			Update: config.Update{Endpoint: endpoint},
		}),
		storage: storage.NewMemStorage(),
	})
}

func TestFetchLatestRelease(t *testing.T) {
	t.Parallel()

	channel := releaseChannel(t, &Release{
		TagName: "v0.7.1",
		Name:    "v0.7.1",
		URL:     "https://example.com/releases/v0.7.1",
		Assets: []Asset{
			{Name: "pocket-relay-client.exe", DownloadURL: "https://example.com/dl/win"},
		},
	})

	u := newTestUpdater(t, "0.6.0", channel.URL)
	err := mgr.New("test").Do("fetch", func(w *mgr.WorkerCtx) error {
		release, err := u.FetchLatestRelease(w)
		require.NoError(t, err)
		assert.Equal(t, "v0.7.1", release.TagName)
		require.Len(t, release.Assets, 1)
		assert.Equal(t, "pocket-relay-client.exe", release.Assets[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestFetchLatestReleaseUnreachable(t *testing.T) {
	t.Parallel()

	channel := releaseChannel(t, &Release{})
	channel.Close()

	u := newTestUpdater(t, "0.6.0", channel.URL)
	err := mgr.New("test").Do("fetch", func(w *mgr.WorkerCtx) error {
		_, err := u.FetchLatestRelease(w)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	// The check worker swallows the failure, it must never be fatal.
	err = mgr.New("test").Do("check", u.checkWorker)
	assert.NoError(t, err)
}

func TestCheckRecordsLastCheck(t *testing.T) {
	t.Parallel()

	channel := releaseChannel(t, &Release{TagName: "v0.6.0"})

	u := newTestUpdater(t, "0.6.0", channel.URL)
	require.NoError(t, mgr.New("test").Do("check", u.checkWorker))

	_, err := u.instance.Storage().GetLastUpdateCheck()
	assert.NoError(t, err)
}

func TestPlatformAsset(t *testing.T) {
	t.Parallel()

	release := &Release{Assets: []Asset{
		{Name: "pocket-relay-client.exe"},
		{Name: AssetName()},
	}}
	asset, err := platformAsset(release)
	require.NoError(t, err)
	assert.Equal(t, AssetName(), asset.Name)

	_, err = platformAsset(&Release{})
	assert.ErrorIs(t, err, ErrNoAsset)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	binary := []byte("new client binary")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(binary)
	}))
	defer server.Close()

	u := newTestUpdater(t, "0.6.0", server.URL)
	path := filepath.Join(t.TempDir(), "client"+suffixDownload)

	err := mgr.New("test").Do("download", func(w *mgr.WorkerCtx) error {
		return u.download(w, &Asset{DownloadURL: server.URL}, path)
	})
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, binary, written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
}
