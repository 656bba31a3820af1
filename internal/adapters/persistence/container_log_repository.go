package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

const (
	// logDedupWindow suppresses identical messages from the same container
	// within this window so tight iteration loops do not flood the table.
	logDedupWindow = 60 * time.Second

	// logDedupMaxEntries caps the dedup cache before expired entries are
	// swept out.
	logDedupMaxEntries = 10000
)

// GormContainerLogRepository implements container.LogRepository with a
// time-windowed dedup cache in front of the table.
type GormContainerLogRepository struct {
	db    *gorm.DB
	clock shared.Clock

	dedupMu    sync.Mutex
	dedupCache map[string]time.Time
}

// NewGormContainerLogRepository creates a new container log repository.
// A nil clock selects the real clock.
func NewGormContainerLogRepository(db *gorm.DB, clock shared.Clock) *GormContainerLogRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormContainerLogRepository{
		db:         db,
		clock:      clock,
		dedupCache: make(map[string]time.Time),
	}
}

var _ container.LogRepository = (*GormContainerLogRepository)(nil)

// Log writes a log entry, dropping repeats of the same message within the
// dedup window.
func (r *GormContainerLogRepository) Log(ctx context.Context, containerID string, playerID shared.PlayerID, message, level string, metadata map[string]interface{}) error {
	now := r.clock.Now()
	cacheKey := containerID + "|" + message

	r.dedupMu.Lock()
	if lastLogged, exists := r.dedupCache[cacheKey]; exists {
		if now.Sub(lastLogged) < logDedupWindow {
			r.dedupMu.Unlock()
			return nil
		}
	}
	if len(r.dedupCache) >= logDedupMaxEntries {
		r.sweepDedupCache(now)
	}
	r.dedupCache[cacheKey] = now
	r.dedupMu.Unlock()

	var metadataJSON string
	if len(metadata) > 0 {
		// Metadata is best effort; a marshal failure drops it, not the line.
		if jsonBytes, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	entry := &ContainerLogModel{
		ContainerID: containerID,
		PlayerID:    playerID.Value(),
		Timestamp:   now,
		Level:       level,
		Message:     message,
		Metadata:    metadataJSON,
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write container log: %w", err)
	}
	return nil
}

// sweepDedupCache drops entries older than the dedup window. Caller holds
// dedupMu.
func (r *GormContainerLogRepository) sweepDedupCache(now time.Time) {
	cutoff := now.Add(-logDedupWindow)
	for key, timestamp := range r.dedupCache {
		if timestamp.Before(cutoff) {
			delete(r.dedupCache, key)
		}
	}
}

// GetLogs returns the newest entries first. level and since are optional
// filters.
func (r *GormContainerLogRepository) GetLogs(ctx context.Context, containerID string, playerID shared.PlayerID, limit int, level *string, since *time.Time) ([]container.LogEntry, error) {
	var models []ContainerLogModel

	query := r.db.WithContext(ctx).
		Where("container_id = ? AND player_id = ?", containerID, playerID.Value())

	if level != nil {
		query = query.Where("level = ?", *level)
	}
	if since != nil {
		query = query.Where("timestamp > ?", *since)
	}

	query = query.Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}

	entries := make([]container.LogEntry, len(models))
	for i := range models {
		entries[i] = r.modelToEntry(&models[i], playerID)
	}

	return entries, nil
}

// DeleteByContainer removes every log row of a container.
func (r *GormContainerLogRepository) DeleteByContainer(ctx context.Context, containerID string) error {
	err := r.db.WithContext(ctx).
		Where("container_id = ?", containerID).
		Delete(&ContainerLogModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete container logs: %w", err)
	}
	return nil
}

func (r *GormContainerLogRepository) modelToEntry(model *ContainerLogModel, playerID shared.PlayerID) container.LogEntry {
	var metadata map[string]interface{}
	if model.Metadata != "" {
		if err := json.Unmarshal([]byte(model.Metadata), &metadata); err != nil {
			metadata = nil
		}
	}

	return container.LogEntry{
		ID:          model.ID,
		ContainerID: model.ContainerID,
		PlayerID:    playerID,
		Timestamp:   model.Timestamp,
		Level:       model.Level,
		Message:     model.Message,
		Metadata:    metadata,
	}
}
