package http

import (
	"context"
	_ "embed"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"castenobar/internal/account"
	"castenobar/internal/config"
	"castenobar/internal/models"
	"castenobar/internal/storage"
	"castenobar/internal/store"
)

var (
	_ Accounts           = (*account.Service)(nil)
	_ Tables             = (*store.Store)(nil)
	_ Blobs              = (*storage.Disk)(nil)
	_ account.Identities = (*store.Store)(nil)
)

//go:embed schemas/profile.schema.json
var profileSchema []byte

// Accounts is the identity provider behind /v1/auth.
type Accounts interface {
	CreateAccount(ctx context.Context, loginID, secret string) (*models.Session, error)
	Authenticate(ctx context.Context, loginID, secret string) (*models.Session, error)
	Verify(ctx context.Context, token string) (*models.Session, error)
	Refresh(ctx context.Context, token string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	Hub() *account.Hub
}

// Tables is the profiles and settings storage.
type Tables interface {
	InsertProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, ownerID string, p *models.Profile) (*models.Profile, error)
	ProfileByOwner(ctx context.Context, ownerID string) (*models.Profile, error)
	ProfileExists(ctx context.Context, whatsappNumber string) (bool, error)
	ListExcept(ctx context.Context, ownerID string) ([]store.Listing, error)
	AllProfiles(ctx context.Context) ([]models.Profile, error)
	SettingsByOwner(ctx context.Context, ownerID string) (*models.Settings, error)
	UpsertSettings(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

// Blobs is the photo storage.
type Blobs interface {
	Upload(ctx context.Context, path string, body io.Reader, overwrite bool) (string, error)
	PublicURL(path string) string
}

type Deps struct {
	Accounts Accounts
	Tables   Tables
	Blobs    Blobs
	Limiter  RateLimiter
	Logger   *zap.Logger
}

type Server struct {
	cfg       *config.Config
	validator *gojsonschema.Schema
	accounts  Accounts
	tables    Tables
	blobs     Blobs
	limiter   RateLimiter
	logger    *zap.Logger
	metrics   *metrics
}

func NewServer(cfg *config.Config, deps Deps) *gin.Engine {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(profileSchema))
	if err != nil {
		panic(err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		validator: schema,
		accounts:  deps.Accounts,
		tables:    deps.Tables,
		blobs:     deps.Blobs,
		limiter:   deps.Limiter,
		logger:    logger,
		metrics:   newMetrics(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(s.logging())
	r.Use(s.metrics.middleware())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	// Auth
	r.POST("/v1/auth/signup", s.rateLimit(), s.authSignup)
	r.POST("/v1/auth/token", s.rateLimit(), s.authToken)
	r.GET("/v1/profiles/exists", s.profileExists)

	// Protected Routes (Session Token)
	authorized := r.Group("/v1")
	authorized.Use(AuthMiddleware(s.accounts))
	{
		authorized.GET("/auth/session", s.authSession)
		authorized.POST("/auth/refresh", s.authRefresh)
		authorized.POST("/auth/signout", s.authSignOut)
		authorized.GET("/auth/events", s.authEvents)

		authorized.POST("/profiles", s.createProfile)
		authorized.GET("/profiles", s.listProfiles)
		authorized.GET("/profiles/me", s.getOwnProfile)
		authorized.PUT("/profiles/me", s.updateOwnProfile)

		authorized.GET("/settings", s.getSettings)
		authorized.PUT("/settings", s.updateSettings)

		authorized.PUT("/storage/photos/:owner/:file", s.uploadPhoto)

		authorized.GET("/admin/overview", s.adminOverview)
	}

	r.Static("/uploads", cfg.UploadDir)
	return r
}

func cors(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(s.cfg.ReqTimeoutSec)*time.Second)
}
