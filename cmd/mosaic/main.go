package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mosaic-search/mosaic/internal/config"
	"github.com/mosaic-search/mosaic/internal/corpus"
	"github.com/mosaic-search/mosaic/internal/db"
	dbRedis "github.com/mosaic-search/mosaic/internal/db/redis"
	"github.com/mosaic-search/mosaic/internal/domain"
	"github.com/mosaic-search/mosaic/internal/index/lexical"
	"github.com/mosaic-search/mosaic/internal/index/semantic"
	logpkg "github.com/mosaic-search/mosaic/internal/logger"
	"github.com/mosaic-search/mosaic/internal/metrics"
	"github.com/mosaic-search/mosaic/internal/repository/embcache"
	vectorrepo "github.com/mosaic-search/mosaic/internal/repository/vector"
	chiTransport "github.com/mosaic-search/mosaic/internal/transport/chi"
	openaiTransport "github.com/mosaic-search/mosaic/internal/transport/openai"
	answeruc "github.com/mosaic-search/mosaic/internal/usecase/answer"
	embeddinguc "github.com/mosaic-search/mosaic/internal/usecase/embedding"
	healthuc "github.com/mosaic-search/mosaic/internal/usecase/health"
	retrievaluc "github.com/mosaic-search/mosaic/internal/usecase/retrieval"
	"github.com/mosaic-search/mosaic/internal/version"
)

func main() {
	repl := flag.Bool("repl", false, "read questions from stdin instead of serving HTTP")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mosaic",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("corpus", cfg.Corpus.Path),
	)

	ctx := context.Background()

	// Create vector store based on driver. The memory driver needs no
	// external service and disables the embedding cache.
	var store db.Store
	var vectorIndex domain.VectorIndex
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")

		redisIdx := vectorrepo.NewRedisIndex(store, cfg.Embedding.Dimensions)
		if cfg.Index.HNSW {
			redisIdx = redisIdx.WithHNSW(vectorrepo.HNSWConfig{
				M:           cfg.Index.HNSWM,
				EFConstruct: cfg.Index.HNSWEFConstruct,
			})
		}
		vectorIndex = redisIdx
	case "memory":
		vectorIndex = vectorrepo.NewMemoryIndex()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	metrics.Register()

	// Base embedding provider carries transport metrics and the health check.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// The corpus build retries transient provider failures; query-time
	// embedding does not, so an outage degrades the search immediately
	// instead of stalling every request behind backoff.
	docEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger, true)
	queryEmbedder := buildEmbedder(baseEmbedder, cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger, false)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		MaxAttempts: cfg.Generation.MaxAttempts,
		Provider:    cfg.Generation.Provider,
		Logger:      logger,
	})

	// Load the corpus and build both indexes. Index build failure is
	// fatal: the service never starts with a partial index.
	docs, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.Int("documents", docs.Len()))

	lexIndex, err := lexical.New(docs)
	if err != nil {
		logger.Fatal("Failed to build lexical index", zap.Error(err))
	}

	semBuilder := semantic.NewBuilder(vectorIndex, docEmbedder, logger).
		WithBatchSize(cfg.Embedding.BatchSize).
		WithParallelism(cfg.Embedding.Parallelism)
	if cfg.Embedding.RatePerSec > 0 {
		semBuilder = semBuilder.WithRateLimit(cfg.Embedding.RatePerSec)
	}

	buildStart := time.Now()
	semIndex, err := semBuilder.Build(ctx, docs)
	if err != nil {
		logger.Fatal("Failed to build semantic index", zap.Error(err))
	}
	// Query-time embeddings may carry a different instruction prefix.
	semIndex = semIndex.WithQueryEmbedder(queryEmbedder)
	logger.Info("Semantic index built", zap.Duration("took", time.Since(buildStart)))

	// Use case services
	retrievalSvc := retrievaluc.New(lexIndex, semIndex, retrievaluc.Defaults{
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		Smoothing:      cfg.Retrieval.Smoothing,
	}, logger)

	answerSvc := answeruc.New(retrievalSvc, generator, logger).
		WithMaxPassages(cfg.Generation.MaxPassages)

	if *repl {
		runREPL(ctx, answerSvc, logger)
		return
	}

	var dbPinger healthuc.DBPinger
	if store != nil {
		dbPinger = store
	}
	healthSvc := healthuc.New(dbPinger, baseEmbedder, generator)

	server := chiTransport.NewServer(retrievalSvc, answerSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain:
// OpenAI -> [Retrying] -> Cached -> Instrumented -> Instruction.
// The instruction wraps outermost so the cache key includes it.
// retry is set for the corpus-build chain only; query-path failures
// propagate untouched to the retrieval degradation policy.
func buildEmbedder(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
	retry bool,
) domain.Embedder {
	embedder := base
	if retry {
		embedder = embeddinguc.NewRetryingEmbedder(base, cfg.Provider, logger).
			WithMaxAttempts(cfg.MaxAttempts)
	}

	if cfg.Cache && store != nil {
		cached := embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
		if cfg.CacheTTLSec > 0 {
			cached = cached.WithTTL(time.Duration(cfg.CacheTTLSec) * time.Second)
		}
		embedder = cached
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// runREPL answers questions from stdin, one per line. Useful for
// smoke-testing a corpus without standing up the HTTP server.
func runREPL(ctx context.Context, answerSvc *answeruc.Service, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("mosaic ready, ask away (ctrl-d to exit)")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		ans, err := answerSvc.Ask(ctx, question)
		if err != nil {
			logger.Error("ask failed", zap.Error(err))
			continue
		}

		fmt.Println(ans.Text)
		for i, p := range ans.Passages {
			fmt.Printf("  [%d] %s\n", i+1, p.ID())
		}
		if ans.Degraded {
			fmt.Printf("  (degraded: %s source unavailable)\n", ans.FailedSource)
		}
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
