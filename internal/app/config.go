package app

import (
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/db"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/diversity"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/exploration"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/cache"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/envutil"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

type Config struct {
	DB     db.Config
	Redis  cache.RedisConfig
	OpenAI openai.Config

	CacheTTL            time.Duration
	StyleVisionEnabled  bool
	MetricsAddr         string
	GenerationBudget    time.Duration
	HistoryMaxInFlight  int
	HistoryWriteTimeout time.Duration

	Diversity   diversity.Config
	Exploration exploration.Config
	Brief       brief.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", "sqlite"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "merch"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "merch.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 10),
			LogSQL:           envutil.Bool("DB_LOG_SQL", false),
		},
		Redis: cache.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Prefix:   envutil.String("REDIS_PREFIX", "merch"),
		},
		OpenAI: openai.ConfigFromEnv(),

		CacheTTL:            envutil.Seconds("CACHE_TTL_SECONDS", 30*time.Minute),
		StyleVisionEnabled:  envutil.Bool("STYLE_VISION_ENABLED", false),
		MetricsAddr:         envutil.String("METRICS_ADDR", ""),
		GenerationBudget:    envutil.Seconds("GENERATION_BUDGET_SECONDS", 240*time.Second),
		HistoryMaxInFlight:  envutil.Int("HISTORY_MAX_IN_FLIGHT", 32),
		HistoryWriteTimeout: envutil.Seconds("HISTORY_WRITE_TIMEOUT_SECONDS", 5*time.Second),

		Diversity: diversity.Config{
			Lookback:      envutil.Hours("DIVERSITY_LOOKBACK_HOURS", 72*time.Hour),
			NicheCooldown: envutil.Hours("DIVERSITY_NICHE_COOLDOWN_HOURS", 24*time.Hour),
			MinAcceptable: envutil.Float("DIVERSITY_MIN_ACCEPTABLE", 0.4),
			HistoryLimit:  envutil.Int("DIVERSITY_HISTORY_LIMIT", 100),
		},
		Exploration: exploration.Config{
			Rate:               envutil.Float("EXPLORATION_RATE", 0.3),
			ExploitOnly:        envutil.Float("EXPLORATION_RATE", 0.3) == 0,
			UserCooldown:       envutil.Hours("EXPLORATION_USER_COOLDOWN_HOURS", 4*time.Hour),
			BatchSize:          envutil.Int("EXPLORATION_BATCH_SIZE", 15),
			MaxAttempts:        envutil.Int("EXPLORATION_MAX_ATTEMPTS", 5),
			DegradedConfidence: envutil.Float("EXPLORATION_DEGRADED_CONFIDENCE", 0.3),
		},
		Brief: brief.Config{
			IconPolicy:    brief.ParseIconPolicy(envutil.String("BRIEF_ICON_DEFAULT", "include")),
			MaxTextLength: envutil.Int("BRIEF_MAX_TEXT_LENGTH", brief.DefaultMaxTextLength),
		},
	}

	log.Info("Config loaded",
		"db_driver", cfg.DB.Driver,
		"redis", cfg.Redis.Addr != "",
		"openai_model", cfg.OpenAI.Model,
		"openai_key_set", cfg.OpenAI.APIKey != "",
		"exploration_rate", cfg.Exploration.Rate,
		"icon_policy", cfg.Brief.IconPolicy,
		"generation_budget", cfg.GenerationBudget.String(),
	)
	return cfg
}
