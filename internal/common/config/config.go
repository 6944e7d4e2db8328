package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Ton struct {
		ConfigURL        string `env:"TON_CONFIG_URL" envDefault:"https://ton.org/global.config.json"`
		WalletSeed       string `env:"TON_WALLET_SEED"`
		QualifyingJetton string `env:"QUALIFYING_JETTON_MASTER"`
	}

	Provider struct {
		BaseURL  string        `env:"PROVIDER_BASE_URL" envDefault:"http://localhost:9090"`
		APIToken string        `env:"PROVIDER_API_TOKEN"`
		Timeout  time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"8s"`
		CacheTTL time.Duration `env:"PROVIDER_CACHE_TTL" envDefault:"60s"`
	}

	Verifier struct {
		BaseURL string        `env:"VERIFIER_BASE_URL" envDefault:"http://localhost:9091"`
		Timeout time.Duration `env:"VERIFIER_TIMEOUT" envDefault:"5s"`
	}

	Limits Limits
}

// Limits carries every protocol constant. All of them are env-overridable
// so staging environments can shrink the windows.
type Limits struct {
	MaxVerificationAge   time.Duration `env:"MAX_VERIFICATION_AGE" envDefault:"300s"`
	MinVerificationScore uint8         `env:"MIN_VERIFICATION_SCORE" envDefault:"50"`

	MinOracleStake uint64 `env:"MIN_ORACLE_STAKE" envDefault:"1000000000"`
	MaxOracleStake uint64 `env:"MAX_ORACLE_STAKE" envDefault:"100000000000"`

	MaxClaimAmount       uint64        `env:"MAX_CLAIM_AMOUNT" envDefault:"10000000000"`
	MaxHarvestAmount     uint64        `env:"MAX_HARVEST_AMOUNT" envDefault:"1000000000000"`
	HarvestInterval      time.Duration `env:"HARVEST_INTERVAL" envDefault:"3600s"`
	ClaimRateLimitWindow time.Duration `env:"CLAIM_RATE_LIMIT_WINDOW" envDefault:"3600s"`
	MaxClaimsPerWindow   uint32        `env:"MAX_CLAIMS_PER_WINDOW" envDefault:"10"`
	MinTimeBetweenClaims time.Duration `env:"MIN_TIME_BETWEEN_CLAIMS" envDefault:"300s"`

	MinStakingPeriod time.Duration `env:"MIN_STAKING_PERIOD" envDefault:"24h"`
	MaxStakingPeriod time.Duration `env:"MAX_STAKING_PERIOD" envDefault:"720h"`

	RateWindow       time.Duration `env:"RATE_WINDOW" envDefault:"60s"`
	RateCeiling      int           `env:"RATE_CEILING" envDefault:"60"`
	DenylistPatterns []string      `env:"DENYLIST_PATTERNS" envSeparator:","`

	MinAchievements int   `env:"MIN_ACHIEVEMENTS" envDefault:"5"`
	MinActivityTxs  int   `env:"MIN_ACTIVITY_TXS" envDefault:"3"`
	MinReputation   int64 `env:"MIN_EXTERNAL_REPUTATION" envDefault:"100"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env is optional, production sets variables directly
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// DefaultLimits returns the protocol limits without touching the
// environment. Used by tests and by components that only need limits.
func DefaultLimits() Limits {
	l := Limits{}
	if err := env.Parse(&l); err != nil {
		panic(err)
	}
	return l
}
