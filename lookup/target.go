package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tevino/abool"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/storage"
)

// connectRetryInterval is how long the auto-connect worker waits between
// attempts to reach a configured server.
const connectRetryInterval = 30 * time.Second

// ErrNoTarget means no server lookup has completed yet.
var ErrNoTarget = errors.New("not connected to any server")

// Target holds the current server lookup result shared by all local
// servers. It auto-connects on start when a connection string is known
// from config or a previous run.
type Target struct {
	mgr      *mgr.Manager
	instance instance

	resolver *Resolver

	lock sync.RWMutex
	data *Data
	set  abool.AtomicBool
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
	Storage() storage.Storage
	HTTPClient() *http.Client
}

// New returns a new target store.
func New(instance instance) *Target {
	return &Target{
		mgr:      mgr.New("lookup"),
		instance: instance,
		resolver: NewResolver(),
	}
}

// Manager returns the module manager.
func (t *Target) Manager() *mgr.Manager {
	return t.mgr
}

// Start starts the auto-connect worker if a connection string is known.
func (t *Target) Start() error {
	definition := t.instance.Config().ConnectionURL
	if definition == "" {
		if saved, err := t.instance.Storage().GetConnectionURL(); err == nil {
			definition = saved
		}
	}
	if definition == "" {
		t.mgr.Info("no connection string configured, waiting for connect request")
		return nil
	}

	// Reject a broken connection string immediately instead of retrying it.
	if _, err := ParseAddress(definition); err != nil {
		return fmt.Errorf("invalid connection string %q: %w", definition, err)
	}

	t.mgr.Go("auto connect", func(w *mgr.WorkerCtx) error {
		return t.autoConnect(w, definition)
	})
	return nil
}

// Stop stops the module.
func (t *Target) Stop() error {
	return nil
}

func (t *Target) autoConnect(w *mgr.WorkerCtx, definition string) error {
	ticker := time.NewTicker(connectRetryInterval)
	defer ticker.Stop()

	for {
		data, err := t.Connect(w.Ctx(), definition, false)
		if err == nil {
			w.Info(
				"connected to server",
				"host", data.Host,
				"addr", data.Addr,
				"port", data.Port,
				"version", data.Version,
			)
			return nil
		}
		w.Warn(
			"failed to connect to server",
			"target", definition,
			"err", err,
			"retry", connectRetryInterval,
		)

		select {
		case <-ticker.C:
		case <-w.Done():
			return nil
		}
	}
}

// Connect parses the given connection string, resolves it, looks up the
// server behind it and makes it the current target. With persist set, the
// connection string is additionally saved for the next run.
func (t *Target) Connect(ctx context.Context, definition string, persist bool) (*Data, error) {
	address, err := ParseAddress(definition)
	if err != nil {
		return nil, err
	}

	// Resolve before anything else, a failure aborts the whole attempt.
	addr, err := t.resolver.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	data, err := Fetch(ctx, t.instance.HTTPClient(), address)
	if err != nil {
		return nil, err
	}
	data.Addr = addr

	t.setData(data)

	if persist {
		if err := t.instance.Storage().SaveConnectionURL(definition); err != nil {
			t.mgr.Warn("failed to save connection string", "err", err)
		}
	}

	return data, nil
}

// Get returns the current lookup data.
func (t *Target) Get() (*Data, error) {
	if !t.set.IsSet() {
		return nil, ErrNoTarget
	}

	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.data, nil
}

// Clear drops the current lookup data.
func (t *Target) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.set.UnSet()
	t.data = nil
}

func (t *Target) setData(data *Data) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.data = data
	t.set.Set()
}
