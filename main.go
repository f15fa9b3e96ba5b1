package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tanpawarit/chative-concierge/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-concierge/agent/catalog"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	llmx "github.com/tanpawarit/chative-concierge/agent/llm"
	"github.com/tanpawarit/chative-concierge/agent/notifier"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	configx "github.com/tanpawarit/chative-concierge/pkg/config"
	geminix "github.com/tanpawarit/chative-concierge/pkg/gemini"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
	_ "github.com/tanpawarit/chative-concierge/pkg/logger/autoload"
	postgresx "github.com/tanpawarit/chative-concierge/pkg/postgres"
	qstashx "github.com/tanpawarit/chative-concierge/pkg/qstash"
	redisx "github.com/tanpawarit/chative-concierge/pkg/redis"
)

type AppConfig struct {
	Locale         string `split_words:"true" default:"es"`
	Channel        string `split_words:"true" default:"console"`
	UserID         string `envconfig:"USER_ID" default:"local"`
	SessionBackend string `split_words:"true" default:"memory"`
	SessionCache   int    `split_words:"true" default:"256"`
	SessionPrefix  string `split_words:"true"`
	CatalogEnabled bool   `split_words:"true" default:"false"`
	NotifyEnabled  bool   `split_words:"true" default:"false"`
	Observe        bool   `split_words:"true" default:"false"`
}

func (c *AppConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.SessionBackend)) {
	case "memory", "redis", "upstash", "sqlite":
	default:
		return fmt.Errorf("%w: unknown session backend %q", contractx.ErrValidation, c.SessionBackend)
	}
	if c.SessionCache < 0 {
		return fmt.Errorf("%w: session cache size must not be negative", contractx.ErrValidation)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	business := configx.MustNew[promptx.Business]("BUSINESS")
	notifyCfg := configx.MustNew[notifier.Config]("NOTIFY")
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	prompts, err := promptx.LoadPromptSet(appCfg.Locale, *business)
	if err != nil {
		logx.Error().Err(err).Msg("load prompts")
		os.Exit(1)
	}

	store, closeStore, err := newSessionStore(ctx, appCfg)
	if err != nil {
		logx.Error().Err(err).Str("backend", appCfg.SessionBackend).Msg("init session store")
		os.Exit(1)
	}
	defer closeStore()

	var geminiCfg *geminix.Config
	if llmCfg.Provider == llmx.ProviderGemini {
		geminiCfg = configx.MustNew[geminix.Config]("GEMINI")
	}
	completers, err := llmx.NewCompleters(ctx, *llmCfg, geminiCfg)
	if err != nil {
		logx.Error().Err(err).Msg("init completers")
		os.Exit(1)
	}

	var searcher contractx.CatalogSearcher
	if appCfg.CatalogEnabled {
		searcher, err = newCatalogSearcher(ctx, *llmCfg)
		if err != nil {
			logx.Error().Err(err).Msg("init catalog")
			os.Exit(1)
		}
	}

	var sender contractx.NotificationSender
	if appCfg.NotifyEnabled {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		sender, err = notifier.NewQStashSender(qstashx.MustNew(*qstashCfg), notifyCfg.RelayURL)
		if err != nil {
			logx.Error().Err(err).Msg("init notifier")
			os.Exit(1)
		}
	}

	caps, err := orchestrator.NewCapabilities(orchestrator.Dependencies{
		Completers: completers,
		Catalog:    searcher,
		Sender:     sender,
		Recipient:  notifyCfg.Recipient,
		Prompts:    prompts,
	})
	if err != nil {
		logx.Error().Err(err).Msg("init capabilities")
		os.Exit(1)
	}
	orch, err := orchestrator.New(store, caps, orchestrator.Config{Prompts: prompts, Observe: appCfg.Observe})
	if err != nil {
		logx.Error().Err(err).Msg("init orchestrator")
		os.Exit(1)
	}

	sessionKey := statex.SessionKey(appCfg.Channel, appCfg.UserID)
	logx.Info().Str("session", sessionKey).Str("locale", prompts.Locale).Msg("concierge ready")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			fmt.Println(orch.Process(ctx, sessionKey, line))
		}
	}
}

func newSessionStore(ctx context.Context, cfg *AppConfig) (statex.Store, func(), error) {
	var (
		inner   statex.Store
		closeFn = func() {}
	)

	switch strings.ToLower(strings.TrimSpace(cfg.SessionBackend)) {
	case "memory":
		inner = statex.NewMemoryStore()
	case "redis":
		redisCfg := configx.MustNew[redisx.Config]("REDIS")
		rdb, err := redisCfg.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		s, err := statex.NewRedisStore(rdb,
			statex.WithTTL(redisCfg.SessionTTL),
			statex.WithKeyPrefix(cfg.SessionPrefix),
		)
		if err != nil {
			return nil, nil, err
		}
		inner, closeFn = s, func() { _ = rdb.Close() }
	case "upstash":
		upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		s, err := statex.NewUpstashRedisStore(*upstashCfg,
			&http.Client{Timeout: upstashCfg.Timeout},
			statex.WithKeyPrefix(cfg.SessionPrefix),
		)
		if err != nil {
			return nil, nil, err
		}
		inner = s
	case "sqlite":
		sqliteCfg := configx.MustNew[statex.SQLiteConfig]("SQLITE")
		s, err := statex.NewSQLiteStore(*sqliteCfg)
		if err != nil {
			return nil, nil, err
		}
		inner, closeFn = s, func() { _ = s.Close() }
	default:
		return nil, nil, fmt.Errorf("%w: unknown session backend %q", contractx.ErrValidation, cfg.SessionBackend)
	}

	if cfg.SessionCache <= 0 {
		return inner, closeFn, nil
	}
	cached, err := statex.NewCachedStore(inner, cfg.SessionCache)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return cached, closeFn, nil
}

func newCatalogSearcher(ctx context.Context, llmCfg llmx.Config) (*catalog.Agent, error) {
	pgCfg := configx.MustNew[postgresx.Config]("POSTGRES")
	db, err := pgCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := catalog.NewBunRepository(db)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateSchema(ctx); err != nil {
		return nil, err
	}
	chatModel, err := llmx.NewCatalogModel(ctx, llmCfg)
	if err != nil {
		return nil, err
	}
	return catalog.NewAgent(ctx, chatModel, repo, catalog.AgentConfig{
		Temperature: llmCfg.CatalogTemperature,
		MaxSteps:    llmCfg.CatalogMaxSteps,
	})
}
