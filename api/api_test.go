package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/hosts"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/storage"
)

type testInstance struct {
	config  *config.Config
	storage storage.Storage
	target  *lookup.Target
	guard   *hosts.Guard
}

func (i *testInstance) Version() string          { return "0.6.0" }
func (i *testInstance) Config() *config.Config   { return i.config }
func (i *testInstance) Storage() storage.Storage { return i.storage }
func (i *testInstance) Lookup() *lookup.Target   { return i.target }
func (i *testInstance) HostsGuard() *hosts.Guard { return i.guard }
func (i *testInstance) HTTPClient() *http.Client { return &http.Client{} }

func newTestAPI() (*API, *testInstance) {
	instance := &testInstance{
		config:  config.MakeTestConfig(config.Store{}),
		storage: storage.NewMemStorage(),
	}
	instance.target = lookup.New(instance)
	instance.guard = hosts.NewGuard(instance)
	return New(instance), instance
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI()
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "0.6.0", status.Version)
	assert.Nil(t, status.Target)
	assert.False(t, status.HostsEntryApplied)
	assert.Equal(t, "127.0.0.1 gosredirector.ea.com", status.HostsEntry)
	assert.Equal(t, config.DefaultRedirectorPort, status.RedirectorPort)
	assert.Equal(t, config.DefaultBlazeProxyPort, status.BlazeProxyPort)
}

func TestConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version": "0.6.0",
			"ident":   "POCKET_RELAY_SERVER",
		})
	}))
	defer server.Close()

	api, instance := newTestAPI()

	body, err := json.Marshal(connectRequest{ConnectionURL: server.URL})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/connect", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var data lookup.Data
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&data))
	assert.Equal(t, "v0.6.0", data.Version)

	// The connection string is persisted for the next run.
	saved, err := instance.storage.GetConnectionURL()
	require.NoError(t, err)
	assert.Equal(t, server.URL, saved)

	// The status endpoint now reports the target.
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.NotNil(t, status.Target)
	assert.Equal(t, data.Host, status.Target.Host)

	// Disconnect drops the target.
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/disconnect", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = instance.target.Get()
	assert.ErrorIs(t, err, lookup.ErrNoTarget)
}

func TestConnectSlowServer(t *testing.T) {
	t.Parallel()

	// The server takes noticeably longer than a second to answer the
	// details request. The connect reply must still arrive complete.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version": "0.6.0",
			"ident":   "POCKET_RELAY_SERVER",
		})
	}))
	defer server.Close()

	api, instance := newTestAPI()
	instance.config = config.MakeTestConfig(config.Store{
		System: config.System{APIListen: "127.0.0.1:0"},
	})
	require.NoError(t, api.Start())
	defer func() { _ = api.Stop() }()

	body, err := json.Marshal(connectRequest{ConnectionURL: server.URL})
	require.NoError(t, err)
	resp, err := http.Post(
		"http://"+api.Addr().String()+"/api/connect",
		"application/json", bytes.NewReader(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data lookup.Data
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, "v0.6.0", data.Version)
}

func TestConnectInvalidBody(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI()
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/connect", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCrossOriginDenied(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
