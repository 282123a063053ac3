package hosts

import (
	"net/netip"
	"sync"

	"github.com/tevino/abool"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/mgr"
)

// Guard owns the hosts file redirect entry for the lifetime of the client.
// It applies the entry on start and removes it again on stop.
type Guard struct {
	mgr      *mgr.Manager
	instance instance

	entry   Entry
	applied abool.AtomicBool

	// writeLock serializes hosts file mutations.
	// Only one write may be in flight at any time.
	writeLock sync.Mutex
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
}

// NewGuard returns a new hosts file guard.
func NewGuard(instance instance) *Guard {
	return &Guard{
		mgr:      mgr.New("hosts"),
		instance: instance,
		entry: Entry{
			IP:   netip.MustParseAddr(config.HostValue),
			Host: config.HostKey,
		},
	}
}

// Manager returns the module manager.
func (g *Guard) Manager() *mgr.Manager {
	return g.mgr
}

// Start applies the redirect entry.
func (g *Guard) Start() error {
	if g.instance.Config().System.DisableHostsEntry {
		g.mgr.Info("hosts entry management is disabled")
		return nil
	}

	if !Elevated() {
		g.mgr.Warn("process is not elevated, modifying the hosts file will likely fail")
	}

	if err := g.Apply(); err != nil {
		return err
	}
	g.mgr.Debug(
		"applied hosts entry",
		"path", g.instance.Config().HostsFilePath(),
		"entry", g.entry,
	)
	return nil
}

// Stop removes the redirect entry again, if it was applied.
func (g *Guard) Stop() error {
	if !g.applied.IsSet() {
		return nil
	}

	if err := g.Remove(); err != nil {
		return err
	}
	g.mgr.Debug("removed hosts entry")
	return nil
}

// Entry returns the managed entry.
func (g *Guard) Entry() Entry {
	return g.entry
}

// Applied reports whether the entry is currently applied.
func (g *Guard) Applied() bool {
	return g.applied.IsSet()
}

// Apply writes the redirect entry to the hosts file.
func (g *Guard) Apply() error {
	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	if err := Apply(g.instance.Config().HostsFilePath(), g.entry); err != nil {
		return err
	}
	g.applied.Set()
	return nil
}

// Remove removes the redirect entry from the hosts file.
func (g *Guard) Remove() error {
	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	if err := Remove(g.instance.Config().HostsFilePath(), g.entry.Host); err != nil {
		return err
	}
	g.applied.UnSet()
	return nil
}
