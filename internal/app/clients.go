package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/cache"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/gcp"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/neo4jdb"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

// Clients holds external connections. Everything except Cache may be nil:
// the pipeline runs its deterministic paths without them.
type Clients struct {
	OpenAI  openai.Client
	Redis   *goredis.Client
	Cache   cache.Cache
	Neo4j   *neo4jdb.Client
	Palette gcp.Palette
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// OpenAI
	ai, err := openai.NewClient(log, cfg.OpenAI)
	switch {
	case errors.Is(err, openai.ErrNotConfigured):
		log.Warn("OPENAI_API_KEY not set; AI collaborators disabled")
	case err != nil:
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	default:
		out.OpenAI = ai
	}

	// Redis
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.Cache = cache.NewRedis(log, rdb, cfg.Redis.Prefix)
	} else {
		out.Cache = cache.NewMemory()
	}

	// Neo4j
	n4j, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}
	out.Neo4j = n4j

	// Vision
	if cfg.StyleVisionEnabled {
		palette, err := gcp.NewVisionPalette(ctx, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init vision palette: %w", err)
		}
		out.Palette = palette
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Palette != nil {
		_ = c.Palette.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(context.Background())
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
