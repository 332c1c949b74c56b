// Package iocache persists the image build cache and the lint run history.
package iocache

import (
	"sync"

	"github.com/huangsam/packlint/internal/contract"
)

// StoreManager holds the process-wide image cache and run history stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	images       contract.ImageCacheStore
	runs         contract.RunStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetImageStore returns the image cache store, or nil when caching is off.
func (mgr *StoreManager) GetImageStore() contract.ImageCacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.images
}

// GetRunStore returns the run history store, or nil when history is off.
func (mgr *StoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
