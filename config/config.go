package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	AES        AESConfig        `mapstructure:"aes"`
	Log        LogConfig        `mapstructure:"log"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Solana     SolanaConfig     `mapstructure:"solana"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Operator   OperatorConfig   `mapstructure:"operator"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key, decrypts an "enc:" custody key
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// SettlementConfig controls the periodic settlement pass.
type SettlementConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	BetDurationMinutes int           `mapstructure:"bet_duration_minutes"`
	PayoutMultiplier   string        `mapstructure:"payout_multiplier"`
	Concurrency        int           `mapstructure:"concurrency"`
	PriceTimeout       time.Duration `mapstructure:"price_timeout"`
	PayoutTimeout      time.Duration `mapstructure:"payout_timeout"`
	StaleAfter         time.Duration `mapstructure:"stale_after"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
}

// BetDuration returns the wager window as a duration.
func (s SettlementConfig) BetDuration() time.Duration {
	return time.Duration(s.BetDurationMinutes) * time.Minute
}

// Multiplier parses the configured payout multiplier.
func (s SettlementConfig) Multiplier() (decimal.Decimal, error) {
	m, err := decimal.NewFromString(strings.TrimSpace(s.PayoutMultiplier))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing payout multiplier %q: %w", s.PayoutMultiplier, err)
	}
	return m, nil
}

// OracleConfig points at the DexScreener-compatible market data API.
type OracleConfig struct {
	BaseURL         string            `mapstructure:"base_url"`
	ReferenceQuote  string            `mapstructure:"reference_quote"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	CacheTTL        time.Duration     `mapstructure:"cache_ttl"`
	MinLiquidityUSD float64           `mapstructure:"min_liquidity_usd"`
	Assets          map[string]string `mapstructure:"assets"` // extra SYMBOL -> mint address entries
}

type SolanaConfig struct {
	RPCURL       string        `mapstructure:"rpc_url"`
	Commitment   string        `mapstructure:"commitment"` // confirmed, finalized
	PrivateKey   string        `mapstructure:"private_key"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// IngestConfig holds the shared HMAC credential of the wager-creation collaborator.
type IngestConfig struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type OperatorConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // Argon2id encoded hash
}

type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"` // comma-separated; empty disables publishing
	TopicPlaced  string `mapstructure:"topic_placed"`
	TopicSettled string `mapstructure:"topic_settled"`
}

type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id"`
	DiscordWebhook string `mapstructure:"discord_webhook"`
}

// Validate checks the settlement parameters that must hold for the process lifetime.
func (c *Config) Validate() error {
	var errs []error
	if c.Settlement.Interval <= 0 {
		errs = append(errs, errors.New("settlement.interval must be positive"))
	}
	if c.Settlement.BetDurationMinutes <= 0 {
		errs = append(errs, errors.New("settlement.bet_duration_minutes must be positive"))
	}
	m, err := c.Settlement.Multiplier()
	if err != nil {
		errs = append(errs, err)
	} else if !m.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("settlement.payout_multiplier must be greater than 1"))
	}
	if c.Settlement.Concurrency <= 0 {
		errs = append(errs, errors.New("settlement.concurrency must be positive"))
	}
	// Locks must not expire while a payout is still being confirmed.
	if c.Settlement.LockTTL <= c.Settlement.PayoutTimeout {
		errs = append(errs, errors.New("settlement.lock_ttl must exceed settlement.payout_timeout"))
	}
	if c.Oracle.BaseURL == "" {
		errs = append(errs, errors.New("oracle.base_url is required"))
	}
	switch c.Solana.Commitment {
	case "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("solana.commitment %q must be confirmed or finalized", c.Solana.Commitment))
	}
	return errors.Join(errs...)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ARENA_.
// Nested keys use underscore: ARENA_DATABASE_HOST, ARENA_SOLANA_PRIVATE_KEY, etc.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "degen_arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "degen-arena-referee")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("settlement.interval", "30s")
	v.SetDefault("settlement.bet_duration_minutes", 5)
	v.SetDefault("settlement.payout_multiplier", "1.9")
	v.SetDefault("settlement.concurrency", 4)
	v.SetDefault("settlement.price_timeout", "10s")
	v.SetDefault("settlement.payout_timeout", "90s")
	v.SetDefault("settlement.stale_after", "24h")
	v.SetDefault("settlement.lock_ttl", "5m")
	v.SetDefault("oracle.base_url", "https://api.dexscreener.com")
	v.SetDefault("oracle.reference_quote", "SOL")
	v.SetDefault("oracle.timeout", "10s")
	v.SetDefault("oracle.cache_ttl", "5s")
	v.SetDefault("oracle.min_liquidity_usd", 10000)
	v.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.private_key", "")
	v.SetDefault("solana.poll_interval", "2s")
	v.SetDefault("ingest.access_key", "")
	v.SetDefault("ingest.secret_key", "")
	v.SetDefault("operator.username", "referee")
	v.SetDefault("operator.password_hash", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic_placed", "wager_placed")
	v.SetDefault("kafka.topic_settled", "wager_settled")
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("notify.discord_webhook", "")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ARENA_DATABASE_HOST -> database.host
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
