package storage

import (
	"net/netip"
	"sync"
	"time"

	"github.com/pocketrelay/client/mgr"
)

// MemStorage is a simple storage implementation using memory only.
type MemStorage struct {
	mgr *mgr.Manager

	lock  sync.RWMutex
	state storedState
}

// storedState is the format used to store the client state.
type storedState struct {
	ConnectionURL string `json:"connectionUrl,omitempty" cbor:"1,keyasint,omitempty"`

	PublicAddress        netip.Addr `json:"publicAddress,omitempty"        cbor:"2,keyasint,omitempty"`
	PublicAddressExpires time.Time  `json:"publicAddressExpires,omitempty" cbor:"3,keyasint,omitempty"`

	LastUpdateCheck time.Time `json:"lastUpdateCheck,omitempty" cbor:"4,keyasint,omitempty"`
}

// NewMemStorage returns an empty storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		mgr: mgr.New("storage"),
	}
}

// Manager returns the module manager.
func (s *MemStorage) Manager() *mgr.Manager {
	return s.mgr
}

// Start does nothing.
func (s *MemStorage) Start() error {
	return nil
}

// Stop does nothing.
func (s *MemStorage) Stop() error {
	return nil
}

// GetConnectionURL returns the last saved connection string.
func (s *MemStorage) GetConnectionURL() (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.state.ConnectionURL == "" {
		return "", ErrNotFound
	}
	return s.state.ConnectionURL, nil
}

// SaveConnectionURL saves the given connection string.
func (s *MemStorage) SaveConnectionURL(url string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.state.ConnectionURL = url
	return nil
}

// GetPublicAddress returns the cached public address, if it is still valid.
func (s *MemStorage) GetPublicAddress() (netip.Addr, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	switch {
	case !s.state.PublicAddress.IsValid():
		return netip.Addr{}, ErrNotFound
	case time.Now().After(s.state.PublicAddressExpires):
		return netip.Addr{}, ErrExpired
	default:
		return s.state.PublicAddress, nil
	}
}

// SavePublicAddress caches the public address until the given expiry.
func (s *MemStorage) SavePublicAddress(addr netip.Addr, expires time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.state.PublicAddress = addr
	s.state.PublicAddressExpires = expires
	return nil
}

// GetLastUpdateCheck returns when the last update check happened.
func (s *MemStorage) GetLastUpdateCheck() (time.Time, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.state.LastUpdateCheck.IsZero() {
		return time.Time{}, ErrNotFound
	}
	return s.state.LastUpdateCheck, nil
}

// SaveLastUpdateCheck saves when the last update check happened.
func (s *MemStorage) SaveLastUpdateCheck(when time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.state.LastUpdateCheck = when
	return nil
}

func (s *MemStorage) exportState() storedState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.state
}

func (s *MemStorage) importState(state storedState) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.state = state
}
