package iocache

import (
	"github.com/huangsam/packlint/internal/contract"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of CacheManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockStoreManager{} // Compile-time check

// GetImageStore implements the CacheManager interface.
func (m *MockStoreManager) GetImageStore() contract.ImageCacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ImageCacheStore)
	return store
}

// GetRunStore implements the CacheManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}
