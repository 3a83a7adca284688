package service

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
	"github.com/replaysMike/Binner-sub003/internal/config"
	"github.com/replaysMike/Binner-sub003/internal/metrics"
)

// Services 服务集合
type Services struct {
	Project *ProjectService
	Bom     *BomService
	Part    *PartService
	Events  *events.Hub
}

// NewServices wires the services. rdb may be nil to run without a snapshot
// cache; exports are archived only when MinIO is configured.
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Services, error) {
	cache := NewSnapshotCache(rdb, cfg.Cache.SnapshotTTL, logger)
	hub := events.NewHub(logger)

	var archive ExportArchiver
	archiver, err := NewMinIOArchiver(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("init export archive: %w", err)
	}
	if archiver != nil {
		archive = archiver
	}

	return &Services{
		Project: NewProjectService(repos, cache, hub, m),
		Bom:     NewBomService(repos, cache, hub, archive, logger, m),
		Part:    NewPartService(repos, cache, hub, m),
		Events:  hub,
	}, nil
}
