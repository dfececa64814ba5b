package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/admin"
	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/auth"
	"github.com/sudo-init-do/gighub/internal/config"
	"github.com/sudo-init-do/gighub/internal/logging"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	mware "github.com/sudo-init-do/gighub/internal/middleware"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
	"github.com/sudo-init-do/gighub/internal/validation"
)

// Store is everything the API needs from a persistence backend.
type Store interface {
	marketplace.Store
	user.Store
	alerts.Store
}

type Deps struct {
	Config  *config.Config
	Log     *logrus.Logger
	Store   Store
	Limiter middleware.RateLimiterStore
}

// New wires services and handlers and registers every route under /api/v1.
func New(d Deps) *echo.Echo {
	cfg, log := d.Config, d.Log

	v := validation.New()
	marketplace.RegisterRules(v.RegisterStructRule)

	emitter := alerts.NewEmitter(d.Store, log)
	users := user.NewService(d.Store, log)
	market := marketplace.NewService(d.Store, d.Store, emitter, log)

	authH := auth.NewHandler(d.Store, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.AdminBootstrapSecret, log)
	userH := user.NewHandler(users)
	marketH := marketplace.NewHandler(market)
	alertH := alerts.NewHandler(d.Store, log)
	adminH := admin.NewHandler(market, users, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = utils.ErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("10M"))
	if d.Limiter != nil {
		e.Use(mware.RateLimit(d.Limiter, log))
	}

	// Health and readiness
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "OK", "timestamp": time.Now().UTC()})
	})
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := market.Ping(ctx); err != nil {
			log.WithError(err).Warn("readiness check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	jwt := mware.JWTMiddleware([]byte(cfg.JWTSecret))
	clientOnly := mware.RequireRoles(user.RoleClient)
	freelancerOnly := mware.RequireRoles(user.RoleFreelancer)

	v1 := e.Group("/api/v1")

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", authH.Signup, mware.RateLimit(mware.NewMemoryLimiterStore(20), log))
	authGroup.POST("/login", authH.Login, mware.RateLimit(mware.NewMemoryLimiterStore(20), log))
	authGroup.POST("/bootstrap-admin", authH.BootstrapAdmin)
	authGroup.GET("/me", userH.Me, jwt)
	authGroup.PUT("/password", authH.ChangePassword, jwt)

	v1.GET("/users/:id", userH.GetPublicProfile)
	v1.GET("/users/:id/ratings", marketH.FreelancerRatings)
	v1.PATCH("/users/profile", userH.UpdateProfile, jwt)

	v1.GET("/jobs", marketH.ListJobs)
	v1.GET("/jobs/me", marketH.MyJobs, jwt)
	v1.GET("/jobs/:id", marketH.GetJob)
	v1.POST("/jobs", marketH.CreateJob, jwt, clientOnly)
	v1.PUT("/jobs/:id", marketH.UpdateJob, jwt, clientOnly)
	v1.DELETE("/jobs/:id", marketH.DeleteJob, jwt, clientOnly)
	v1.POST("/jobs/:id/claim", marketH.ClaimJob, jwt, freelancerOnly)
	v1.POST("/jobs/:id/complete", marketH.CompleteJob, jwt, clientOnly)
	v1.POST("/jobs/:id/cancel", marketH.CancelJob, jwt, clientOnly)

	v1.POST("/jobs/:id/bids", marketH.CreateBid, jwt, freelancerOnly)
	v1.GET("/jobs/:id/bids", marketH.JobBids, jwt, clientOnly)
	v1.GET("/bids/me", marketH.MyBids, jwt, freelancerOnly)
	v1.PUT("/bids/:id", marketH.UpdateBid, jwt, clientOnly)

	v1.POST("/jobs/:id/rating", marketH.CreateRating, jwt, clientOnly)
	v1.GET("/jobs/:id/rating", marketH.JobRating)

	notes := v1.Group("/notifications", jwt)
	notes.GET("", alertH.ListNotifications)
	notes.GET("/unread-count", alertH.UnreadCount)
	notes.PUT("/read-all", alertH.MarkAllRead)
	notes.PUT("/:id/read", alertH.MarkNotificationRead)

	adminGroup := v1.Group("/admin", jwt, mware.AdminGuard)
	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.GET("/users", adminH.ListUsers)

	return e
}
