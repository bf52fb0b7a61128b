package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"incomestatement/internal/config"
	"incomestatement/internal/statement"
	"incomestatement/pkg/contracts/domain"
)

// Dataset is an ingested table pivoted into a product index. It is never
// modified after it is stored.
type Dataset struct {
	ID         string
	Name       string
	Source     string
	Checksum   string
	Size       int64
	Index      *statement.ProductIndex
	UploadedAt time.Time
	ExpiresAt  time.Time

	seq uint64
}

// Summary describes the dataset without its values
func (d *Dataset) Summary() domain.DatasetSummary {
	products := d.Index.Products()
	return domain.DatasetSummary{
		ID:           d.ID,
		Name:         d.Name,
		Source:       d.Source,
		Checksum:     d.Checksum,
		Products:     products,
		ProductCount: len(products),
		RowCount:     d.Index.Rows(),
		Overwrites:   d.Index.Overwrites(),
		UploadedAt:   d.UploadedAt,
		ExpiresAt:    d.ExpiresAt,
	}
}

// Checksum returns the hex blake2b-256 digest of data
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TableChecksum digests a table that did not arrive as raw bytes
func TableChecksum(t *statement.Table) string {
	h, _ := blake2b.New256(nil)
	write := func(row []string) {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	write(t.Header)
	for _, row := range t.Rows {
		write(row)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EvictFunc is notified of datasets dropped by capacity or expiry
type EvictFunc func(ctx context.Context, d *Dataset, reason string)

// DatasetStore holds datasets in memory with a capacity bound and TTL
type DatasetStore struct {
	mu       sync.RWMutex
	items    map[string]*Dataset
	capacity int
	ttl      time.Duration
	seq      uint64
	now      func() time.Time
	onEvict  EvictFunc
	logger   *slog.Logger
}

// NewDatasetStore creates a store from configuration. A zero capacity or TTL
// disables that bound.
func NewDatasetStore(cfg config.DatasetConfig, logger *slog.Logger) *DatasetStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetStore{
		items:    make(map[string]*Dataset),
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      time.Now,
		logger:   logger,
	}
}

// OnEvict registers a callback for evicted datasets
func (s *DatasetStore) OnEvict(fn EvictFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Put stores d, stamping UploadedAt and ExpiresAt, and evicts the oldest
// datasets when the store is over capacity.
func (s *DatasetStore) Put(ctx context.Context, d *Dataset) error {
	if d == nil || d.ID == "" || d.Index == nil {
		return errors.New("invalid dataset: id and index are required")
	}

	s.mu.Lock()
	now := s.now()
	s.seq++
	d.seq = s.seq
	d.UploadedAt = now
	if s.ttl > 0 {
		d.ExpiresAt = now.Add(s.ttl)
	}
	s.items[d.ID] = d

	evicted := s.expireLocked(now)
	for s.capacity > 0 && len(s.items) > s.capacity {
		oldest := s.oldestLocked()
		delete(s.items, oldest.ID)
		evicted = append(evicted, eviction{oldest, "capacity"})
	}
	onEvict := s.onEvict
	s.mu.Unlock()

	s.notify(ctx, onEvict, evicted)
	return nil
}

// Get returns a live dataset
func (s *DatasetStore) Get(ctx context.Context, id string) (*Dataset, error) {
	s.mu.RLock()
	d, ok := s.items[id]
	expired := ok && s.expired(d, s.now())
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if expired {
		s.PurgeExpired(ctx)
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return d, nil
}

// Delete removes a live dataset. An expired entry is purged and reported
// as not found, as Get does.
func (s *DatasetStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	d, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if s.expired(d, s.now()) {
		evicted := s.expireLocked(s.now())
		onEvict := s.onEvict
		s.mu.Unlock()

		s.notify(ctx, onEvict, evicted)
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// List returns live datasets, oldest first
func (s *DatasetStore) List(ctx context.Context) []*Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	list := make([]*Dataset, 0, len(s.items))
	for _, d := range s.items {
		if !s.expired(d, now) {
			list = append(list, d)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].seq < list[j].seq
	})
	return list
}

// Len returns the number of stored datasets, expired ones included until purged
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Capacity returns the configured capacity
func (s *DatasetStore) Capacity() int {
	return s.capacity
}

// PurgeExpired drops every expired dataset and returns how many were removed
func (s *DatasetStore) PurgeExpired(ctx context.Context) int {
	s.mu.Lock()
	evicted := s.expireLocked(s.now())
	onEvict := s.onEvict
	s.mu.Unlock()

	s.notify(ctx, onEvict, evicted)
	return len(evicted)
}

// RunJanitor purges expired datasets every interval until ctx is done
func (s *DatasetStore) RunJanitor(ctx context.Context, interval time.Duration) error {
	if s.ttl <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.PurgeExpired(ctx); n > 0 {
				s.logger.DebugContext(ctx, "expired datasets purged", slog.Int("count", n))
			}
		}
	}
}

type eviction struct {
	dataset *Dataset
	reason  string
}

func (s *DatasetStore) expired(d *Dataset, now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

func (s *DatasetStore) expireLocked(now time.Time) []eviction {
	var evicted []eviction
	for id, d := range s.items {
		if s.expired(d, now) {
			delete(s.items, id)
			evicted = append(evicted, eviction{d, "expired"})
		}
	}
	return evicted
}

func (s *DatasetStore) oldestLocked() *Dataset {
	var oldest *Dataset
	for _, d := range s.items {
		if oldest == nil || d.seq < oldest.seq {
			oldest = d
		}
	}
	return oldest
}

func (s *DatasetStore) notify(ctx context.Context, fn EvictFunc, evicted []eviction) {
	for _, e := range evicted {
		s.logger.InfoContext(ctx, "dataset evicted",
			slog.String("dataset_id", e.dataset.ID),
			slog.String("reason", e.reason))
		if fn != nil {
			fn(ctx, e.dataset, e.reason)
		}
	}
}
