package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/autocreateur/ticketd/internal/catalog"
	"github.com/autocreateur/ticketd/internal/chatproxy"
	"github.com/autocreateur/ticketd/internal/directory"
	"github.com/autocreateur/ticketd/pkg/ledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contextKeyActor   = "actor"
	contextKeyProfile = "profile"
)

// Deps bundles the services the HTTP facade fronts.
type Deps struct {
	Logger    *zap.Logger
	Ledger    *ledger.Service
	Catalog   *catalog.Service
	Directory *directory.Service
	Chat      *chatproxy.Client
}

// Run boots the HTTP API and blocks until ctx is cancelled or the server
// fails.
func Run(ctx context.Context, cfg Config, deps Deps) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	handler := newHandler(cfg, deps)
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("http api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			deps.Logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)
	api.GET("/catalog/tools", handler.handleListTools)
	api.GET("/catalog/packages", handler.handleListPackages)

	authed := api.Group("")
	authed.Use(handler.requireActor())
	authed.GET("/session", handler.handleSession)
	authed.GET("/wallet", handler.handleWallet)
	authed.POST("/purchases", handler.handlePurchase)
	authed.POST("/tools/:id/use", handler.handleUseTool)
	authed.POST("/chat", handler.handleChat)
	authed.GET("/events", handler.handleListEvents)

	admin := authed.Group("/admin")
	admin.GET("/users", handler.handleAdminListUsers)
	admin.POST("/users/:id/balance", handler.handleAdminAdjustBalance)
	admin.POST("/users/:id/ban", handler.handleAdminSetBanned)
	admin.POST("/users/:id/refund", handler.handleAdminRefund)
	admin.DELETE("/users/:id", handler.handleAdminAnonymize)
	admin.POST("/tools", handler.handleAdminAddTool)
	admin.PUT("/tools/:id", handler.handleAdminUpdateTool)
	admin.DELETE("/tools/:id", handler.handleAdminDeleteTool)
	admin.POST("/tools/:id/cost", handler.handleAdminUpdateToolCost)
	admin.PUT("/packages/:id", handler.handleAdminUpdatePackage)

	return router
}

type httpHandler struct {
	cfg       Config
	logger    *zap.Logger
	ledger    *ledger.Service
	catalog   *catalog.Service
	directory *directory.Service
	chat      *chatproxy.Client
}

func newHandler(cfg Config, deps Deps) *httpHandler {
	return &httpHandler{
		cfg:       cfg,
		logger:    deps.Logger,
		ledger:    deps.Ledger,
		catalog:   deps.Catalog,
		directory: deps.Directory,
		chat:      deps.Chat,
	}
}

// requireActor resolves the session token through the account directory.
// Admin-ness comes exclusively from that resolution; there is no second
// admin credential path.
func (handler *httpHandler) requireActor() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			if cookie, err := ctx.Cookie(handler.cfg.SessionCookieName); err == nil {
				token = cookie
			}
		}
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthenticated", "authentification requise"))
			return
		}
		actor, profile, err := handler.directory.ResolveActor(ctx.Request.Context(), token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthenticated", "session invalide ou expirée"))
			return
		}
		ctx.Set(contextKeyActor, actor)
		ctx.Set(contextKeyProfile, profile)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func getActor(ctx *gin.Context) (ledger.Actor, bool) {
	value, ok := ctx.Get(contextKeyActor)
	if !ok {
		return ledger.Actor{}, false
	}
	actor, ok := value.(ledger.Actor)
	return actor, ok
}

func getProfile(ctx *gin.Context) (directory.Profile, bool) {
	value, ok := ctx.Get(contextKeyProfile)
	if !ok {
		return directory.Profile{}, false
	}
	profile, ok := value.(directory.Profile)
	return profile, ok
}
