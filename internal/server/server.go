package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/middleware"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/store"
)

// bridgeChannel is the Redis pub/sub channel room events travel on when
// multiple instances share a board.
const bridgeChannel = "taskflow:room-events"

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	hub    *realtime.Hub
	reaper *realtime.Reaper
	bridge *realtime.Bridge
}

func Init(cfg *config.Config) (*Server, error) {
	db, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Connected to database (%s)", cfg.StoreDriver)

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	boardShareRepo := repository.NewBoardShareRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Realtime core: hub, presence, reconciler, reaper, socket endpoint.
	hub := realtime.NewHub()
	presence := realtime.NewPresenceTracker(hub)
	reconciler := realtime.NewPositionReconciler(taskRepo, boardShareRepo, hub)
	reaper := realtime.NewReaper(hub, presence, cfg.ReaperInterval)
	resolver := auth.NewResolver(userRepo)
	socketHandler := realtime.NewSocketHandler(hub, presence, reconciler, resolver)

	var bridge *realtime.Bridge
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bridge = realtime.NewBridge(hub, rc, bridgeChannel)
		log.Printf("✅ Room event bridge enabled via %s", cfg.RedisAddr)
	}

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo)
	boardHandler := handler.NewBoardHandler(boardRepo, boardShareRepo, taskRepo)
	taskHandler := handler.NewTaskHandler(taskRepo, boardRepo, boardShareRepo, userRepo, reconciler, hub)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)

	// Websocket endpoint: authenticates its own bearer credential before
	// the upgrade, so it sits outside the middleware group.
	r.GET("/ws", socketHandler.Handle)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id", boardHandler.Delete)
		authorized.POST("/boards/:id/share", boardHandler.Share)
		authorized.DELETE("/boards/:id/share/:userId", boardHandler.Unshare)

		// Task routes
		authorized.POST("/boards/:id/tasks", taskHandler.Create)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/move", taskHandler.Move)
		authorized.POST("/tasks/:id/assign", taskHandler.Assign)
		authorized.DELETE("/tasks/:id/assign", taskHandler.Unassign)
		authorized.POST("/tasks/:id/comments", taskHandler.AddComment)
		authorized.GET("/tasks/:id/comments", taskHandler.ListComments)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
		hub:    hub,
		reaper: reaper,
		bridge: bridge,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if s.bridge != nil {
		s.bridge.Start(ctx)
	}
	s.reaper.Start()

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	s.reaper.Stop()
	if s.bridge != nil {
		s.bridge.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	log.Println("✅ Server exited properly")
}
