package urkel

import (
	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/internal/ulog"
	"github.com/urkel-db/urkel/store"
)

// DefaultBits is the default fixed key width in bits: 256, matching a
// SHA-256 digest, which is what SecureTree hashes arbitrary keys down to.
const DefaultBits = 256

// DefaultCacheDepth is the default number of top levels kept resolved in
// RAM between commits.
const DefaultCacheDepth = 4

// Options configures a Tree: a single Options struct with defaulted zero
// values rather than file-based configuration, in the style of
// pkg/core/rawdb/freezer_table.go's FreezerTableConfig.
type Options struct {
	// Hasher selects the hash primitive; defaults to SHA-256.
	Hasher hasher.Hasher
	// Bits is the fixed key width in bits; must be a multiple of 8.
	// Defaults to 256.
	Bits int
	// CacheDepth is how many top tree levels stay resolved in memory
	// between commits. Defaults to 4.
	CacheDepth int
	// MaxFileSize caps each store data file; defaults to store.MaxFileSize.
	MaxFileSize uint32
	// MaxOpenFiles bounds the store's file-handle cache.
	MaxOpenFiles int
	// Metrics, if set, publishes store counters to a prometheus registry.
	Metrics *store.Metrics
	// Logger defaults to a "tree"-scoped child of the process logger.
	Logger *ulog.Logger
}

func (o Options) withDefaults() Options {
	if o.Hasher == nil {
		o.Hasher = hasher.SHA256()
	}
	if o.Bits == 0 {
		o.Bits = DefaultBits
	}
	if o.CacheDepth == 0 {
		o.CacheDepth = DefaultCacheDepth
	}
	if o.Logger == nil {
		o.Logger = ulog.Default().Module("tree")
	}
	return o
}

func (o Options) storeOptions() store.Options {
	return store.Options{
		Hasher:       o.Hasher,
		MaxFileSize:  o.MaxFileSize,
		MaxOpenFiles: o.MaxOpenFiles,
		Metrics:      o.Metrics,
		Logger:       o.Logger,
	}
}
