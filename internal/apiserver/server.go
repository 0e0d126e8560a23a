// Package apiserver assembles the MoKITUL conversation API server.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/biz"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/handler"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/router"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/store"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/moodle"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/pkg/pdfconv"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/component/milvus"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/component/mongodb"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/component/redis"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm"
	httpopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/http"
	llmopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/llm"
	logopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/logger"
	milvusopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/milvus"
	mongodbopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/mongodb"
	moodleopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/moodle"
	redisopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/redis"
	retrievalopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/retrieval"

	// Register the LLM providers.
	_ "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm/ollama"
	_ "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "mokitul-api"

// Config contains everything needed to assemble the server.
type Config struct {
	HTTP         *httpopts.Options
	Log          *logopts.Options
	Mongo        *mongodbopts.Options
	Milvus       *milvusopts.Options
	Redis        *redisopts.Options
	Retrieval    *retrievalopts.Options
	Moodle       *moodleopts.Options
	ChatLLM      *llmopts.ProviderOptions
	EmbeddingLLM *llmopts.ProviderOptions

	ShutdownTimeout time.Duration
}

// Server is the running API server. The HTTP listener comes up
// immediately with health endpoints only; the API routes are swapped in
// once the backend connections are verified, so a request can never
// reach an unchecked Mongo or Milvus client.
type Server struct {
	cfg *Config

	engine  atomic.Pointer[gin.Engine]
	ready   atomic.Bool
	closers []func()
}

// NewServer initializes logging and prepares the server for Run.
func (cfg *Config) NewServer(_ context.Context) (*Server, error) {
	cfg.Log.AddInitialField("service.name", Name)
	if err := cfg.Log.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &Server{cfg: cfg}

	// The startup engine has no API handlers wired, so its gate stays
	// closed for good. Readiness flips via the swapped-in engine only.
	health := handler.NewHealthHandler(s.ready.Load)
	s.engine.Store(router.New(routerConfig(cfg), nil, health, func() bool { return false }))

	return s, nil
}

func routerConfig(cfg *Config) router.Config {
	return router.Config{
		RootPath:      cfg.HTTP.RootPath,
		EnableLLMPath: cfg.HTTP.EnableLLMPath,
	}
}

// ServeHTTP dispatches to the current engine.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.Load().ServeHTTP(w, r)
}

// Run starts the HTTP listener and the backend bootstrap, then blocks
// until ctx is cancelled or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Infow("http server listening", "addr", s.cfg.HTTP.Addr, "root_path", s.cfg.HTTP.RootPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := s.bootstrap(ctx); err != nil {
			errCh <- fmt.Errorf("backend bootstrap failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Errorw("server failed", "error", err.Error())
		defer s.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err.Error())
	}
	s.close()
	return nil
}

// bootstrap connects the backends, wires the full dependency graph and
// swaps the API routes in.
func (s *Server) bootstrap(ctx context.Context) error {
	cfg := s.cfg

	mongoClient, err := mongodb.New(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("connecting mongodb: %w", err)
	}
	s.closers = append(s.closers, func() { _ = mongoClient.Close(context.Background()) })
	logger.Infow("mongodb connected", "database", cfg.Mongo.Database)

	milvusClient, err := milvus.New(ctx, cfg.Milvus)
	if err != nil {
		return fmt.Errorf("connecting milvus: %w", err)
	}
	s.closers = append(s.closers, func() { _ = milvusClient.Close(context.Background()) })
	logger.Infow("milvus connected", "collection", cfg.Milvus.Collection)

	embedder, err := s.buildEmbedder(ctx)
	if err != nil {
		return err
	}

	chatProvider, err := llm.NewProvider(cfg.ChatLLM.Provider, cfg.ChatLLM.ToConfigMap())
	if err != nil {
		return fmt.Errorf("creating chat provider: %w", err)
	}
	if err := chatProvider.Ping(ctx); err != nil {
		logger.Warnw("chat provider not reachable yet", "provider", cfg.ChatLLM.Provider, "error", err.Error())
	}

	conversationStore := store.NewConversationStore(mongoClient, cfg.Mongo.Collection)
	vectorStore, err := store.NewVectorStore(ctx, milvusClient, embedder, cfg.Milvus, cfg.Retrieval)
	if err != nil {
		return err
	}

	moodleClient, err := moodle.NewClient(cfg.Moodle)
	if err != nil {
		return err
	}

	conversations := biz.NewConversationUsecases(conversationStore)
	ingestor := biz.NewIngestor(moodleClient, pdfconv.New(), vectorStore)
	engine := biz.NewRAGEngine(vectorStore, chatProvider)
	chat := biz.NewChatService(conversations, ingestor, engine)

	conversationHandler := handler.NewConversationHandler(conversations, chat)
	health := handler.NewHealthHandler(s.ready.Load)

	s.engine.Store(router.New(routerConfig(cfg), conversationHandler, health, s.ready.Load))
	s.ready.Store(true)
	logger.Info("api server ready")
	return nil
}

// buildEmbedder creates the embedding provider, wrapped with the Redis
// cache when enabled.
func (s *Server) buildEmbedder(ctx context.Context) (llm.EmbeddingProvider, error) {
	cfg := s.cfg

	provider, err := llm.NewProvider(cfg.EmbeddingLLM.Provider, cfg.EmbeddingLLM.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	if err := provider.Ping(ctx); err != nil {
		logger.Warnw("embedding provider not reachable yet", "provider", cfg.EmbeddingLLM.Provider, "error", err.Error())
	}

	if cfg.Redis == nil || !cfg.Redis.Enabled {
		return provider, nil
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connecting redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = redisClient.Close() })
	logger.Infow("embedding cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL.String())

	cacheConfig := llm.DefaultEmbeddingCacheConfig()
	cacheConfig.TTL = cfg.Redis.TTL
	return llm.NewCachedEmbeddingProvider(provider, redisClient, cacheConfig), nil
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
