package main

import (
	"context"
	"fmt"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/chain"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/messaging"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/metrics"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/notify"
	"github.com/Jamarblack/Degen-Arena/internal/adapter/oracle"
	pgStorage "github.com/Jamarblack/Degen-Arena/internal/adapter/storage/postgres"
	redisStorage "github.com/Jamarblack/Degen-Arena/internal/adapter/storage/redis"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"
	"github.com/Jamarblack/Degen-Arena/internal/service"
	"github.com/Jamarblack/Degen-Arena/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the wired process. close releases every connection it opened.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	pool  *pgxpool.Pool
	rdb   *goredis.Client
	kafka *messaging.KafkaPublisher

	assets     *domain.AssetRegistry
	oracle     *oracle.Cached
	executor   *chain.Executor
	rpcHealth  *chain.HealthCheck
	bus        *redisStorage.EventBus
	events     ports.EventPublisher
	quarantine *redisStorage.Quarantine
	metrics    *metrics.Metrics
	auditSvc   *service.AuditServiceImpl
	wagerSvc   *service.WagerServiceImpl
	engine     *service.SettlementEngine
}

func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb

	var dec chain.Decrypter
	if cfg.AES.Key != "" {
		encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
		if err != nil {
			return nil, fmt.Errorf("init encryption: %w", err)
		}
		dec = encSvc
	}
	key, err := chain.LoadPrivateKey(cfg.Solana.PrivateKey, dec)
	if err != nil {
		return nil, fmt.Errorf("load custodial key: %w", err)
	}
	rpcClient := chain.NewRPCClient(cfg.Solana.RPCURL)
	a.executor = chain.NewExecutor(rpcClient, key, cfg.Solana, log)
	a.rpcHealth = chain.NewHealthCheck(rpcClient)

	a.assets = domain.NewAssetRegistry(cfg.Oracle.Assets)
	a.oracle = oracle.NewCached(
		oracle.NewDexScreener(cfg.Oracle, a.assets),
		redisStorage.NewPriceCache(rdb),
		redisStorage.NewMarketCache(rdb),
		cfg.Oracle.CacheTTL,
		log,
	)

	a.bus = redisStorage.NewEventBus(rdb, log)
	publishers := []ports.EventPublisher{a.bus}
	if cfg.Kafka.Brokers != "" {
		a.kafka = messaging.NewKafkaPublisher(messaging.NewWriter(cfg.Kafka.Brokers), cfg.Kafka)
		publishers = append(publishers, a.kafka)
	}
	a.events = messaging.NewFanout(publishers...)

	a.quarantine = redisStorage.NewQuarantine(rdb)
	a.metrics = metrics.New(prometheus.NewRegistry())

	wagerRepo := pgStorage.NewWagerRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	a.auditSvc = service.NewAuditService(auditRepo, log)
	a.wagerSvc = service.NewWagerService(wagerRepo, auditRepo, transactor, a.assets, a.quarantine, a.executor, a.events, log)

	a.engine, err = service.NewSettlementEngine(service.SettlementDeps{
		Wagers:     wagerRepo,
		Audit:      auditRepo,
		Tx:         transactor,
		Oracle:     a.oracle,
		Payouts:    a.executor,
		Journal:    redisStorage.NewReceiptJournal(rdb),
		Quarantine: a.quarantine,
		Locks:      redisStorage.NewLockManager(rdb),
		Events:     a.events,
		Notifier:   notify.FromConfig(cfg.Notify, log),
		Metrics:    a.metrics,
	}, cfg.Settlement, log)
	if err != nil {
		return nil, fmt.Errorf("init settlement engine: %w", err)
	}

	log.Info().
		Str("pool_address", a.executor.PoolAddress()).
		Str("commitment", cfg.Solana.Commitment).
		Bool("kafka", a.kafka != nil).
		Msg("referee wired")

	ok = true
	return a, nil
}

func (a *app) close() {
	if a.auditSvc != nil {
		a.auditSvc.Wait()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing kafka writer")
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
