package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// AdaptorInfo describes a registered adaptor.
type AdaptorInfo struct {
	Type        string `json:"type"`         // "sqlite", "postgres", "mssql", "neo4j"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// AdaptorFactory opens an adaptor from the backing options of one partition.
type AdaptorFactory func(ctx context.Context, config map[string]any, logger *zap.Logger) (Adaptor, error)

// AdaptorRegistration contains info + factory for creating adaptors.
type AdaptorRegistration struct {
	Info    AdaptorInfo
	Factory AdaptorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdaptorRegistration)
)

// Register is called by each adaptor's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdaptorRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdaptors returns info for all registered adaptors, sorted by type.
func RegisteredAdaptors() []AdaptorInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdaptorInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for an adaptor type.
// Returns nil if type is not registered.
func GetFactory(adaptorType string) AdaptorFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[adaptorType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if an adaptor type is available.
func IsRegistered(adaptorType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[adaptorType]
	return ok
}

// Open creates an adaptor of the given type.
func Open(ctx context.Context, adaptorType string, config map[string]any, logger *zap.Logger) (Adaptor, error) {
	factory := GetFactory(adaptorType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported adaptor type: %s (not compiled in)", adaptorType)
	}
	return factory(ctx, config, logger)
}
