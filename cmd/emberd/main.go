// Command emberd runs the practice engine daemon: it wires the encrypted
// redis store, the reminder dispatcher, the live-data cache, and the
// configured LLM curriculum provider, then ticks until signalled.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	goredis "github.com/redis/go-redis/v9"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
	"goa.design/clue/log"
	"goa.design/pulse/pool"

	"github.com/emberloop/ember/cache"
	"github.com/emberloop/ember/config"
	"github.com/emberloop/ember/curriculum"
	curriculuminmem "github.com/emberloop/ember/curriculum/inmem"
	curriculummongo "github.com/emberloop/ember/curriculum/mongo"
	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/engine"
	"github.com/emberloop/ember/llm"
	"github.com/emberloop/ember/llm/anthropic"
	"github.com/emberloop/ember/llm/bedrock"
	"github.com/emberloop/ember/llm/middleware"
	"github.com/emberloop/ember/llm/openai"
	"github.com/emberloop/ember/notify"
	"github.com/emberloop/ember/providers"
	"github.com/emberloop/ember/remind"
	"github.com/emberloop/ember/store"
	redisstore "github.com/emberloop/ember/store/redis"
	"github.com/emberloop/ember/telemetry"
)

// reminderTickerName is the distributed ticker every node joins; pulse elects
// one node to receive each tick.
const reminderTickerName = "ember:reminders"

func main() {
	var (
		configF = flag.String("config", "", "Path to the YAML configuration file")
		dbgF    = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "load configuration")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.NewLogger()
	metrics := telemetry.NewMetrics()

	// Redis-backed encrypted store.
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf(ctx, err, "parse redis url")
	}
	rdb := goredis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf(ctx, err, "ping redis")
	}

	kv, err := redisstore.New(rdb)
	if err != nil {
		log.Fatalf(ctx, err, "create redis backend")
	}
	storeOpts := []store.Option{store.WithLogger(logger)}
	if cfg.Encryption.Key != "" {
		cipher, err := store.NewCipherFromBase64(cfg.Encryption.KeyID, cfg.Encryption.KeyVersion, cfg.Encryption.Key)
		if err != nil {
			log.Fatalf(ctx, err, "create cipher")
		}
		storeOpts = append(storeOpts, store.WithCipher(cipher))
	} else {
		log.Printf(ctx, "encryption key not set, storing plaintext envelopes")
	}
	st, err := store.New(kv, storeOpts...)
	if err != nil {
		log.Fatalf(ctx, err, "create store")
	}

	// Live-data cache with per-category TTLs.
	cacheCfg := cache.DefaultConfig()
	cacheCfg.TTL = providers.DefaultTTLs()
	cacheCfg.Logger = logger
	cacheCfg.Metrics = metrics
	dataCache := cache.New(cacheCfg)

	// Notification channels. Log channels stand in until real transports
	// are registered.
	registry := notify.NewRegistry()
	for _, ch := range cfg.Reminders.Channels {
		channel := notify.NewLogChannel("log-"+ch, domain.ReminderChannel(ch), logger)
		if err := registry.Register(channel); err != nil {
			log.Fatalf(ctx, err, "register channel %s", ch)
		}
	}

	engineOpts := []engine.Option{
		engine.WithRegistry(registry),
		engine.WithCache(dataCache),
		engine.WithReminderConfig(cfg.ReminderConfig()),
		engine.WithMasteryThreshold(cfg.MasteryThreshold),
		engine.WithDrillDays(cfg.DrillDays),
		engine.WithDefaultTimezone(cfg.DefaultTimezone),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	}

	// LLM provider, rate-limited, feeding the curriculum structurer.
	if cfg.LLM.Provider != "" {
		client, err := buildLLMClient(ctx, cfg)
		if err != nil {
			log.Fatalf(ctx, err, "create %s client", cfg.LLM.Provider)
		}
		limiter := middleware.NewAdaptiveRateLimiter(cfg.LLM.TokensPerMinute, 2*cfg.LLM.TokensPerMinute)
		client = limiter.Middleware()(client)
		structurer, err := curriculum.New(client,
			curriculum.WithModel(cfg.LLM.Model),
			curriculum.WithTemperature(cfg.LLM.Temperature),
			curriculum.WithLogger(logger),
			curriculum.WithMetrics(metrics),
		)
		if err != nil {
			log.Fatalf(ctx, err, "create structurer")
		}
		engineOpts = append(engineOpts, engine.WithStructurer(structurer))
		log.Printf(ctx, "curriculum generation enabled via %s", cfg.LLM.Provider)
	}

	// Curriculum archive: durable when mongo is configured.
	var archive curriculum.Archive = curriculuminmem.New()
	if cfg.Archive.MongoURI != "" {
		mongoClient, err := mongodrv.Connect(mongoopts.Client().ApplyURI(cfg.Archive.MongoURI))
		if err != nil {
			log.Fatalf(ctx, err, "connect mongo")
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Errorf(ctx, err, "disconnect mongo")
			}
		}()
		archive, err = curriculummongo.New(curriculummongo.Options{
			Client:   mongoClient,
			Database: cfg.Archive.Database,
		})
		if err != nil {
			log.Fatalf(ctx, err, "create mongo archive")
		}
	}
	engineOpts = append(engineOpts, engine.WithArchive(archive))

	eng, err := engine.New(st, engineOpts...)
	if err != nil {
		log.Fatalf(ctx, err, "create engine")
	}

	dispatcher, err := remind.NewDispatcher(st, registry,
		remind.WithLogger(logger),
		remind.WithMetrics(metrics),
		remind.WithTickInterval(cfg.Dispatch.TickInterval),
	)
	if err != nil {
		log.Fatalf(ctx, err, "create dispatcher")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dataCache.Run(ctx)
	}()

	if cfg.Dispatch.Distributed {
		node, err := pool.AddNode(ctx, cfg.Dispatch.PoolName, rdb)
		if err != nil {
			log.Fatalf(ctx, err, "join dispatch pool")
		}
		ticker, err := node.NewTicker(ctx, reminderTickerName, cfg.Dispatch.TickInterval)
		if err != nil {
			log.Fatalf(ctx, err, "create distributed ticker")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := dispatcher.Tick(ctx); err != nil {
						log.Errorf(ctx, err, "reminder tick")
					}
				}
			}
		}()
		defer func() {
			if err := node.Close(context.Background()); err != nil {
				log.Errorf(ctx, err, "close pool node")
			}
		}()
		log.Printf(ctx, "distributed dispatch joined pool %s", cfg.Dispatch.PoolName)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Run(ctx)
		}()
	}

	stats := eng.Stats()
	log.Printf(ctx, "emberd started (channels: %d, tick: %s, tz: %s)",
		stats.Channels, cfg.Dispatch.TickInterval, cfg.DefaultTimezone)

	<-ctx.Done()
	log.Printf(ctx, "exiting (%v)", ctx.Err())
	wg.Wait()
	log.Printf(ctx, "exited")
}

// buildLLMClient constructs the configured provider adapter. Model defaults
// follow each provider's current general-purpose tier.
func buildLLMClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	model := cfg.LLM.Model
	switch cfg.LLM.Provider {
	case "anthropic":
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return anthropic.NewFromAPIKey(cfg.LLM.APIKey, model)
	case "openai":
		if model == "" {
			model = "gpt-4o"
		}
		return openai.NewFromAPIKey(cfg.LLM.APIKey, model)
	case "bedrock":
		if model == "" {
			model = "anthropic.claude-3-5-sonnet-20241022-v2:0"
		}
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cfg.LLM.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.LLM.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, domain.WrapError(domain.KindBackend, err, "load aws config")
		}
		runtime := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.New(runtime, bedrock.Options{
			DefaultModel: model,
			Temperature:  cfg.LLM.Temperature,
		})
	default:
		return nil, domain.NewError(domain.KindValidation, "unknown llm provider %q", cfg.LLM.Provider)
	}
}
