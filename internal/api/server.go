package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rag-chat/internal/config"
	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"
	"rag-chat/internal/parser"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Session is the question-answering core the HTTP layer adapts.
type Session interface {
	BuildIndex(ctx context.Context, docs []parser.Document) (int, error)
	Answer(ctx context.Context, question string, history models.History, forceWebSearch bool) (*models.PromptResponse, error)
	AnalyzeImage(ctx context.Context, image []byte, filename string) (string, error)
	IndexStats() models.IndexStats
}

type Server struct {
	cfg         *config.Config
	session     Session
	transcriber llmservice.Transcriber
	rdb         *redis.Client
	markdown    goldmark.Markdown
	router      *gin.Engine
}

// NewServer wires routes and middleware. transcriber and rdb may be nil.
func NewServer(cfg *config.Config, session Session, transcriber llmservice.Transcriber, rdb *redis.Client) *Server {
	s := &Server{
		cfg:         cfg,
		session:     session,
		transcriber: transcriber,
		rdb:         rdb,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadMB << 20

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.cfg.Telemetry.ServiceName))
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(cors.New(corsConfig(s.cfg.Server.CORSOrigins)))
	if s.rdb != nil {
		r.Use(RateLimit(s.rdb, s.cfg.Redis.RateLimitRequests, s.cfg.Redis.RateLimitWindow))
	}
	r.Use(BodyLimit(s.cfg.Server.MaxUploadMB << 20))

	r.GET("/", s.handleRoot)
	r.POST("/upload", s.handleUpload)
	r.POST("/chat", s.handleChat)
	r.POST("/chat_with_internet", s.handleChatWithInternet)
	r.POST("/analyze_image", s.handleAnalyzeImage)
	r.POST("/transcribe", s.handleTranscribe)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Server.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
