package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/pocketrelay/client/config"
)

// Lookup errors.
var (
	// ErrConnectionFailed means the server could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to server")

	// ErrErrorResponse means the server replied with an error status.
	ErrErrorResponse = errors.New("server replied with error response")

	// ErrInvalidResponse means the reply could not be parsed.
	ErrInvalidResponse = errors.New("invalid server response")

	// ErrNotPocketRelay means the reply did not carry the server identifier.
	ErrNotPocketRelay = errors.New("server identifier was incorrect (not a Pocket Relay server?)")

	// ErrServerOutdated means the server version is older than supported.
	ErrServerOutdated = errors.New("server version is too outdated for this client")
)

// detailsEndpoint is the server endpoint providing the server details.
const detailsEndpoint = "api/server"

// Data is the result of a completed server lookup.
type Data struct {
	// Scheme is the scheme the server was reached with.
	Scheme string `json:"scheme"`
	// Host is the host portion of the connection string.
	Host string `json:"host"`
	// Addr is the resolved address of the host.
	Addr netip.Addr `json:"addr"`
	// Port is the server port.
	Port uint16 `json:"port"`
	// Version is the server version.
	Version string `json:"version"`
}

// BaseURL returns the server base URL with a trailing slash.
func (d *Data) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d/", d.Scheme, d.Host, d.Port)
}

// URL returns the server URL for the given sub path.
func (d *Data) URL(path string) string {
	return d.BaseURL() + strings.TrimPrefix(path, "/")
}

// serverDetails is the part of the server details reply the client needs.
type serverDetails struct {
	Version string `json:"version"`
	Ident   string `json:"ident"`
}

// Fetch requests the server details behind the given address and checks
// that it is a Pocket Relay server this client can talk to.
func Fetch(ctx context.Context, client *http.Client, address *Address) (*Data, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		address.BaseURL()+detailsEndpoint, nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrErrorResponse, resp.Status)
	}

	var details serverDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	// Check that this is a real server and recent enough.
	if details.Ident != config.ServerIdent {
		return nil, ErrNotPocketRelay
	}
	version := "v" + strings.TrimPrefix(details.Version, "v")
	if !semver.IsValid(version) {
		return nil, fmt.Errorf("%w: version %q is not valid", ErrInvalidResponse, details.Version)
	}
	if semver.Compare(version, config.MinServerVersion) < 0 {
		return nil, fmt.Errorf(
			"%w: server is %s, this client requires %s or greater",
			ErrServerOutdated, version, config.MinServerVersion,
		)
	}

	return &Data{
		Scheme:  address.Scheme,
		Host:    address.Host,
		Port:    address.Port,
		Version: version,
	}, nil
}
