package utils

import (
	"fmt"
	"net"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// GeoCache persists per-address geolocation results across runs so repeated
// parses and viewer sessions skip the mmdb lookups they already did. A
// sync.Map front absorbs repeat lookups within one run.
type GeoCache struct {
	db    *badger.DB
	cache sync.Map
}

func OpenGeoCache(path string) (*GeoCache, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &GeoCache{db: db}, nil
}

func (c *GeoCache) Close() error {
	return c.db.Close()
}

func ipKey(ipStr string) ([]byte, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP: %s", ipStr)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4, nil
	}
	return ip.To16(), nil
}

// Get returns the cached payload for an address, if any.
func (c *GeoCache) Get(ipStr string) ([]byte, bool) {
	if v, ok := c.cache.Load(ipStr); ok {
		return v.([]byte), true
	}
	key, err := ipKey(ipStr)
	if err != nil {
		return nil, false
	}
	var value []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		// badger.ErrKeyNotFound and real errors both mean "look it up again"
		return nil, false
	}
	c.cache.Store(ipStr, value)
	return value, true
}

// Set stores the payload for an address.
func (c *GeoCache) Set(ipStr string, value []byte) error {
	key, err := ipKey(ipStr)
	if err != nil {
		return err
	}
	c.cache.Store(ipStr, value)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}
