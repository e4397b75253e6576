package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"typhoon/internal/ai"
	"typhoon/internal/config"
	"typhoon/internal/handler"
	"typhoon/internal/pkg/cache"
	"typhoon/internal/pkg/database"
	"typhoon/internal/repository"
	"typhoon/internal/server/middleware"
	"typhoon/internal/service"
	"typhoon/internal/tokenizer"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	db     *gorm.DB
	redis  *cache.RedisCache
	namer  *service.Namer
}

// New 创建服务器实例并完成全部装配:
// 数据库 -> 注册表种子 -> 分词器预热 -> 客户端池 -> 服务 -> 路由
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.SeedLLMRegistry(db); err != nil {
		return nil, err
	}
	log.Info().Msg("connected to database")

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	if cfg.AI.APIKey == "" {
		log.Warn().Msg("LLM API key not configured")
	}

	// 仓库
	llmRepo := repository.NewLLMRepo(db, redisCache)
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	messageRepo := repository.NewMessageRepo(db)

	// 分词器缓存: 按注册表预热, 首请求不付加载延迟
	fullnames, err := llmRepo.Fullnames(context.Background())
	if err != nil {
		return nil, err
	}
	tokenizers := tokenizer.NewCache(tokenizer.RegistryLoader(fullnames))
	tokenizers.Prewarm(context.Background(), fullnames, cfg.AI.PrewarmWorkers)

	// LLM 客户端池与服务
	pool := ai.NewPool(&cfg.AI)
	chatSvc := service.NewChatService(pool, tokenizers)
	namer := service.NewNamer(db, chatSvc)
	registerSvc := service.NewRegisterService(db, namer)

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		db:     db,
		redis:  redisCache,
		namer:  namer,
	}

	srv.setupRoutes(chatSvc, registerSvc, llmRepo, userRepo, sessionRepo, messageRepo)

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(
	chatSvc *service.ChatService,
	registerSvc *service.RegisterService,
	llmRepo *repository.LLMRepo,
	userRepo *repository.UserRepo,
	sessionRepo *repository.SessionRepo,
	messageRepo *repository.MessageRepo,
) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	llmHandler := handler.NewLLMHandler(chatSvc, llmRepo)
	messageHandler := handler.NewMessageHandler(registerSvc)
	userHandler := handler.NewUserHandler(registerSvc, userRepo, sessionRepo, messageRepo)

	api := s.engine.Group("/api")
	{
		api.POST("/llm/sessionname/v1", llmHandler.SessionName)
		api.POST("/llm/chat/v1", llmHandler.Chat)
		api.GET("/llm/params/v1", llmHandler.Params)

		api.POST("/messages/register/v1", messageHandler.Register)
		api.PATCH("/messages/preference/v1", messageHandler.Preference)

		api.POST("/users/register/v1", userHandler.Register)
		api.GET("/users/:email/chat_sessions/v1", userHandler.ChatSessions)
		api.GET("/chat_sessions/:sessionId/messages/v1", userHandler.SessionMessages)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 等在途的会话命名任务收尾
		s.namer.Wait()

		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
