package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kataras/golog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/phantomlabs/beastmode/agents"
	"github.com/phantomlabs/beastmode/config"
	"github.com/phantomlabs/beastmode/db"
	"github.com/phantomlabs/beastmode/llm"
	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/pipeline"
	"github.com/phantomlabs/beastmode/store"
	"github.com/phantomlabs/beastmode/store/memory"
	"github.com/phantomlabs/beastmode/store/postgres"
	redisstore "github.com/phantomlabs/beastmode/store/redis"
	"github.com/phantomlabs/beastmode/store/sqlite"
	"github.com/phantomlabs/beastmode/tasks"
	"github.com/phantomlabs/beastmode/tool"

	openai "github.com/sashabaranov/go-openai"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "beastmode",
	Short:         "LLM-orchestrated B2B lead generation pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, huntCmd, workerCmd)
}

func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := log.NewGologLogger(golog.Default)
	logger.SetLevel(parseLevel(cfg.LogLevel))
	log.SetDefaultLogger(logger)
	return cfg, logger, nil
}

func parseLevel(level string) log.LogLevel {
	switch level {
	case "debug":
		return log.LogLevelDebug
	case "warn":
		return log.LogLevelWarn
	case "error":
		return log.LogLevelError
	case "none":
		return log.LogLevelNone
	default:
		return log.LogLevelInfo
	}
}

// runtime bundles the wired collaborators and their teardown.
type runtime struct {
	cfg     *config.Config
	logger  log.Logger
	deps    *agents.Deps
	saver   store.Saver
	redis   *redis.Client
	cleanup []func()
}

func (rt *runtime) close() {
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

// buildRuntime constructs every collaborator from the configuration.
func buildRuntime(ctx context.Context, cfg *config.Config, logger log.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	llmClient := llm.NewOpenAIClientWithConfig(clientCfg,
		llm.WithModel(cfg.Model),
		llm.WithVisionModel(cfg.VisionModel),
		llm.WithEmbeddingModel(cfg.EmbeddingModel),
		llm.WithLogger(logger),
	)

	dbStore, err := db.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	rt.cleanup = append(rt.cleanup, dbStore.Close)
	if err := dbStore.InitSchema(ctx); err != nil {
		logger.Warn("schema init failed (continuing): %v", err)
	}

	var searcher tool.WebSearcher
	if cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchEngineID != "" {
		s, err := tool.NewGoogleSearch(cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID)
		if err != nil {
			return nil, err
		}
		searcher = s
	} else {
		logger.Warn("web search not configured; research will use internal knowledge")
	}

	rt.deps = &agents.Deps{
		LLM:      llmClient,
		Search:   searcher,
		Browser:  tool.NewChromeBrowser(30 * time.Second),
		Notifier: tool.NewDiscordWebhook(cfg.DiscordWebhookURL, nil),
		Niches:   dbStore,
		Leads:    dbStore,
		Logger:   logger,
	}

	if cfg.DispatchLeads || cfg.CheckpointBackend == "redis" {
		rt.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		rt.cleanup = append(rt.cleanup, func() { rt.redis.Close() })
	}
	if cfg.DispatchLeads {
		rt.deps.Dispatcher = tasks.NewRedisDispatcher(rt.redis, cfg.LeadQueueKey)
	}

	saver, err := buildSaver(ctx, cfg, rt)
	if err != nil {
		return nil, err
	}
	rt.saver = saver
	return rt, nil
}

func buildSaver(ctx context.Context, cfg *config.Config, rt *runtime) (store.Saver, error) {
	switch cfg.CheckpointBackend {
	case "memory":
		return memory.NewSaver(), nil
	case "sqlite":
		saver, err := sqlite.NewSaver(sqlite.Options{Path: cfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		rt.cleanup = append(rt.cleanup, func() { saver.Close() })
		return saver, nil
	case "postgres":
		saver, err := postgres.NewSaver(ctx, postgres.Options{ConnString: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		if err := saver.InitSchema(ctx); err != nil {
			return nil, err
		}
		rt.cleanup = append(rt.cleanup, saver.Close)
		return saver, nil
	case "redis":
		return redisstore.NewSaverWithClient(rt.redis, "", 0), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
	}
}

// buildService assembles the graph and service on top of a runtime.
func buildService(rt *runtime) (*pipeline.Service, error) {
	g, err := pipeline.Build(rt.deps, pipeline.Options{
		UseStrategist: rt.cfg.UseStrategist,
		DispatchLeads: rt.cfg.DispatchLeads,
	})
	if err != nil {
		return nil, err
	}

	var followup *tool.FollowupSender
	if rt.cfg.DiscordAppID != "" {
		followup = tool.NewFollowupSender(rt.cfg.DiscordAppID, http.DefaultClient)
	}
	return pipeline.NewService(g, rt.saver, rt.deps, followup, rt.logger), nil
}
