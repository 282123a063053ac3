// Package storage persists small bits of client state between runs.
package storage

import (
	"errors"
	"net/netip"
	"time"

	"github.com/pocketrelay/client/mgr"
)

// Errors.
var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")
)

// Storage includes all storage interfaces.
type Storage interface {
	StateModule
	TargetStorage
	CacheStorage
}

// StateModule is an interface to a managed storage backend.
type StateModule interface {
	Start() error
	Stop() error
	Manager() *mgr.Manager
}

// TargetStorage stores the last successfully used connection string.
type TargetStorage interface {
	GetConnectionURL() (string, error)
	SaveConnectionURL(url string) error
}

// CacheStorage stores cached values with limited lifetime.
type CacheStorage interface {
	GetPublicAddress() (netip.Addr, error)
	SavePublicAddress(addr netip.Addr, expires time.Time) error

	GetLastUpdateCheck() (time.Time, error)
	SaveLastUpdateCheck(when time.Time) error
}
