package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketrelay/client/config"
)

func detailsServer(t *testing.T, details map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/server" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(details)
	}))
	t.Cleanup(server.Close)
	return server
}

func serverAddress(t *testing.T, server *httptest.Server) *Address {
	t.Helper()

	a, err := ParseAddress(strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	return a
}

func TestFetch(t *testing.T) {
	t.Parallel()

	server := detailsServer(t, map[string]any{
		"version": "0.6.1",
		"ident":   config.ServerIdent,
	})

	data, err := Fetch(context.Background(), server.Client(), serverAddress(t, server))
	require.NoError(t, err)
	assert.Equal(t, "v0.6.1", data.Version)
	assert.Equal(t, "http", data.Scheme)
	assert.Equal(t, "127.0.0.1", data.Host)
	assert.Equal(t, server.URL+"/api/server/upgrade", data.URL("api/server/upgrade"))
}

func TestFetchNotPocketRelay(t *testing.T) {
	t.Parallel()

	server := detailsServer(t, map[string]any{
		"version": "0.6.1",
	})

	_, err := Fetch(context.Background(), server.Client(), serverAddress(t, server))
	assert.ErrorIs(t, err, ErrNotPocketRelay)
}

func TestFetchOutdatedServer(t *testing.T) {
	t.Parallel()

	server := detailsServer(t, map[string]any{
		"version": "0.1.0",
		"ident":   config.ServerIdent,
	})

	_, err := Fetch(context.Background(), server.Client(), serverAddress(t, server))
	assert.ErrorIs(t, err, ErrServerOutdated)
}

func TestFetchErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	_, err := Fetch(context.Background(), server.Client(), serverAddress(t, server))
	assert.ErrorIs(t, err, ErrErrorResponse)
}

func TestFetchConnectionFailed(t *testing.T) {
	t.Parallel()

	// Bind a listener and close it again to get a dead port.
	server := httptest.NewServer(http.NotFoundHandler())
	address := serverAddress(t, server)
	server.Close()

	_, err := Fetch(context.Background(), http.DefaultClient, address)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestResolveIPLiteral(t *testing.T) {
	t.Parallel()

	// IP literals must resolve without any network activity.
	resolver := NewResolverWithServers("192.0.2.1:53")
	ip, err := resolver.Resolve(context.Background(), &Address{
		Scheme: "http",
		Host:   "198.51.100.4",
		Port:   80,
	})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("198.51.100.4"), ip)
}
