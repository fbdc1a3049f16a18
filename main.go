// go_vidsum: Video AI Summarizer.
//
// Answers questions about an uploaded video or a YouTube link with a Gemini
// agent backed by web search and YouTube captions. Serves an HTML site and a
// JSON API over gin, and optionally the same lookups as MCP tools.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_vidsum/internal/agent"
	"github.com/anatolykoptev/go_vidsum/internal/analysis"
	"github.com/anatolykoptev/go_vidsum/internal/contact"
	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
	"github.com/anatolykoptev/go_vidsum/internal/vidserver"
	"github.com/anatolykoptev/go_vidsum/internal/webserver"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	initLogger(env.Str("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initEngine()
	defer engine.CloseCache()

	variant, err := analysis.ParseVariant(env.Str("APP_VARIANT", "url"))
	if err != nil {
		slog.Error("invalid APP_VARIANT", slog.Any("error", err))
		os.Exit(1)
	}

	uploadDir := env.Str("UPLOAD_DIR", "static/uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		slog.Error("create upload dir", slog.String("dir", uploadDir), slog.Any("error", err))
		os.Exit(1)
	}

	captions := sources.NewCaptionService()
	deps := analysis.Deps{
		Captions: captions,
		Stager:   &analysis.Stager{Dir: uploadDir, URLPrefix: "/static/uploads"},
	}

	a := newAgent(ctx, variant, captions)
	if a != nil {
		defer a.Close()
		deps.Runner = a
		deps.Processor = agent.NewBridge(a.Files(), agent.BridgeConfig{
			PollInterval:    env.Duration("PROCESSING_POLL_INTERVAL", time.Second),
			MaxPollInterval: env.Duration("PROCESSING_POLL_MAX_INTERVAL", 5*time.Second),
			Timeout:         env.Duration("PROCESSING_TIMEOUT", 10*time.Minute),
		})
	}
	svc := analysis.NewService(variant, deps)

	store, err := contact.Open(ctx, env.Str("CONTACT_STORE_DSN", ""))
	if err != nil {
		slog.Warn("contact store init failed, logging messages only", slog.Any("error", err))
	}
	if store != nil {
		defer store.Close()
	}

	if port := env.Str("MCP_PORT", ""); port != "" {
		go runMCP(port, vidserver.Deps{
			Analysis: analysis.NewService(analysis.VariantURL, deps),
			Captions: captions,
			Contact:  store,
		})
	}

	gin.SetMode(gin.ReleaseMode)
	router := webserver.NewRouter(webserver.Config{
		Analysis:       svc,
		Contact:        &contact.Recorder{Store: store},
		UploadDir:      uploadDir,
		MaxUploadBytes: int64(env.Int("MAX_UPLOAD_MB", 512)) << 20,
	})

	port := env.Str("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", slog.Any("error", err))
		}
	}()

	slog.Info("starting go_vidsum",
		slog.String("port", port),
		slog.String("variant", string(variant)),
		slog.Bool("model", a != nil),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", slog.Any("error", err))
	}
	slog.Info("stopped")
}

func initLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	})))
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		SearchMaxResults:     env.Int("SEARCH_MAX_RESULTS", 5),
		SearchRatePerSec:     env.Float("SEARCH_RATE_PER_SEC", 1),
		SearchRegion:         env.Str("SEARCH_REGION", "wt-wt"),
		MaxContentChars:      env.Int("MAX_CONTENT_CHARS", 4000),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		YtDlpPath:            env.Str("YTDLP_PATH", "yt-dlp"),
		CaptionLangs:         env.List("CAPTION_LANGS", "en"),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 500),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	}
	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithMaxTokens(256),
			llm.WithTemperature(0.3),
			llm.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		)
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// newAgent returns nil when no model credential is configured.
func newAgent(ctx context.Context, variant analysis.Variant, captions *sources.CaptionService) *agent.Agent {
	apiKey := env.Str("GOOGLE_API_KEY", "")
	if apiKey == "" {
		slog.Warn("GOOGLE_API_KEY is not set, analysis requests will fail")
		return nil
	}

	tools := []agent.Tool{&agent.SearchTool{
		MaxResults: engine.Cfg.SearchMaxResults,
		FetchPages: env.Int("SEARCH_FETCH_PAGES", 2),
	}}
	if variant == analysis.VariantURL {
		tools = append(tools,
			&agent.CaptionsTool{Captions: captions},
			agent.VideoDataTool{},
			&agent.YouTubeSearchTool{MaxResults: 5},
		)
	}

	a, err := agent.New(ctx, apiKey, agent.Config{
		Model:         env.Str("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		MaxToolRounds: env.Int("AGENT_MAX_TOOL_ROUNDS", 5),
	}, tools...)
	if err != nil {
		slog.Error("agent init failed", slog.Any("error", err))
		return nil
	}
	return a
}

func runMCP(port string, deps vidserver.Deps) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_vidsum",
		Version: version,
	}, nil)

	n := vidserver.RegisterTools(server, deps)
	slog.Info("mcp tools registered", slog.Int("count", n), slog.String("port", port))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_vidsum",
		Version:      version,
		Port:         port,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
	}
}
