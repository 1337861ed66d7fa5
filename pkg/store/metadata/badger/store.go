package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/filewallet/pkg/store/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB for persistence.
//
// It is the default production store: an embedded key-value database with
// crash recovery, no external service to run, and point lookups for both
// the Index and individual records (see keys.go for the key schema).
//
// Thread Safety:
// BadgerDB transactions provide the required isolation; the store keeps no
// state of its own beyond the database handle.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for creating a BadgerDB metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerMetadataStore opens (or creates) the database described by config.
//
// Example:
//
//	store, err := NewBadgerMetadataStore(ctx, BadgerMetadataStoreConfig{
//	    DBPath: "/var/lib/filewallet/metadata",
//	})
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	// Records are small JSON documents: compression does not pay off.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerMetadataStore{db: db}, nil
}

func ioError(domain, op string, err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return metadata.NewError(metadata.ErrClosed, domain, op, err)
	}
	return metadata.NewError(metadata.ErrIOError, domain, op, err)
}

func (s *BadgerMetadataStore) ReadIndex(ctx context.Context, domain string) (*metadata.Index, error) {
	if err := metadata.ValidateDomain(domain); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyIndex(domain))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, ioError(domain, "failed to read index", err)
	}
	if data == nil {
		return metadata.NewIndex(), nil
	}
	return metadata.DecodeIndex(domain, data)
}

func (s *BadgerMetadataStore) SaveIndex(ctx context.Context, domain string, index *metadata.Index) error {
	if err := metadata.ValidateDomain(domain); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := metadata.EncodeIndex(index)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode index", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyIndex(domain), data)
	}); err != nil {
		return ioError(domain, "failed to save index", err)
	}
	return nil
}

func (s *BadgerMetadataStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *metadata.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFile(domain, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := metadata.DecodeFile(domain, val)
			if err != nil {
				return err
			}
			record = decoded
			return nil
		})
	})
	if err != nil {
		var se *metadata.StoreError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, ioError(domain, "failed to read file record", err)
	}
	return record, nil
}

func (s *BadgerMetadataStore) SaveFile(ctx context.Context, domain string, record *metadata.FileRecord) error {
	if err := metadata.ValidateRecord(domain, record); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := metadata.EncodeFile(record)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode file record", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyFile(domain, record.ID), data)
	}); err != nil {
		return ioError(domain, "failed to save file record", err)
	}
	return nil
}

func (s *BadgerMetadataStore) DeleteFile(ctx context.Context, domain, id string) (bool, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := keyFile(domain, id)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, ioError(domain, "failed to delete file record", err)
	}
	return removed, nil
}

// Domains scans the index namespace (keys only).
func (s *BadgerMetadataStore) Domains(ctx context.Context) ([]string, error) {
	domains := make([]string, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixIndex)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			domains = append(domains, domainFromIndexKey(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, ioError("", "failed to list domains", err)
	}
	return domains, nil
}

// Healthcheck opens a read transaction; BadgerDB rejects it once closed.
func (s *BadgerMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.db.IsClosed() {
		return metadata.NewError(metadata.ErrClosed, "", "healthcheck failed", badger.ErrDBClosed)
	}
	if err := s.db.View(func(txn *badger.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the database.
func (s *BadgerMetadataStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
