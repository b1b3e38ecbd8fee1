package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const snapshotTTL = 6 * time.Hour

// SnapshotCache keeps collected competitor snapshots around so repeated
// analyses of the same profile within the TTL skip the platform APIs.
type SnapshotCache interface {
	Get(ctx context.Context, url string, maxPosts, timePeriodDays int) (*transfer.CompetitorSnapshot, error)
	Set(ctx context.Context, snapshot *transfer.CompetitorSnapshot, maxPosts, timePeriodDays int) error
}

type snapshotCache struct {
	rdb *redis.Client
}

func NewSnapshotCache(rdb *redis.Client) SnapshotCache {
	return &snapshotCache{rdb: rdb}
}

func snapshotKey(url string, maxPosts, timePeriodDays int) string {
	return fmt.Sprintf("competitor_snapshot:%s:%d:%d", url, maxPosts, timePeriodDays)
}

func (c *snapshotCache) Get(ctx context.Context, url string, maxPosts, timePeriodDays int) (*transfer.CompetitorSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(url, maxPosts, timePeriodDays)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var snapshot transfer.CompetitorSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &snapshot, nil
}

func (c *snapshotCache) Set(ctx context.Context, snapshot *transfer.CompetitorSnapshot, maxPosts, timePeriodDays int) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	err = c.rdb.Set(ctx, snapshotKey(snapshot.URL, maxPosts, timePeriodDays), data, snapshotTTL).Err()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
