package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/browser"
	"github.com/s3manager/s3manager/internal/config"
	"github.com/s3manager/s3manager/internal/handlers"
	custommw "github.com/s3manager/s3manager/internal/middleware"
	"github.com/s3manager/s3manager/internal/oidc"
	"github.com/s3manager/s3manager/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("S3MANAGER_CONFIG"))
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	setupLogging(cfg.LogLevel)

	var (
		store      storage.ObjectStore
		usage      storage.UsageReporter
		provider   oidc.Provider
		devSession *auth.Session
	)

	if cfg.DevMode {
		mem := storage.NewMemory()
		mem.CreateBucket("sandbox")
		store, usage = mem, mem
		devSession = newDevSession(cfg)
		logrus.Warn("dev mode: in-memory store and synthetic admin session, not for production")
	} else {
		m, err := storage.NewMinio(storage.MinioConfig{
			Endpoint:       cfg.S3.Endpoint,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			Region:         cfg.S3.Region,
			UseSSL:         cfg.S3.UseSSL,
			AdminAccessKey: cfg.S3.AdminAccessKey,
			AdminSecretKey: cfg.S3.AdminSecretKey,
		})
		if err != nil {
			logrus.WithError(err).Fatal("object store setup failed")
		}
		store = m
		if cfg.S3.AdminAccessKey != "" {
			usage = m
		}

		redirectURL := cfg.OIDC.RedirectURL
		if redirectURL == "" {
			redirectURL = cfg.BaseURL + "/auth/callback"
		}
		provider, err = oidc.New(oidc.Config{
			Provider:     cfg.OIDC.Provider,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       cfg.OIDC.Scopes,
			TenantID:     cfg.OIDC.TenantID,
			ServerURL:    cfg.OIDC.ServerURL,
			Realm:        cfg.OIDC.Realm,
		})
		if err != nil {
			logrus.WithError(err).Fatal("identity provider setup failed")
		}
	}

	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL)
	e := newServer(cfg, store, usage, provider, sessions, devSession)

	logrus.WithField("listen", cfg.Listen).Info("starting server")
	if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func setupLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// newDevSession builds the synthetic session dev mode injects into every
// request: the full admin permission set under the configured role map.
func newDevSession(cfg *config.Config) *auth.Session {
	roleMap := cfg.Auth.PermissionRoleMap()
	return &auth.Session{
		ID:    "dev",
		Name:  "Local Developer",
		Email: "dev@localhost",
		Roles: []string{"S3-Admin"},
		Permissions: auth.MapRolesToPermissions(
			[]string{"S3-Admin"}, roleMap, cfg.Auth.DefaultRole),
	}
}

func newServer(cfg *config.Config, store storage.ObjectStore, usage storage.UsageReporter, provider oidc.Provider, sessions *auth.SessionStore, devSession *auth.Session) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	svc := browser.New(store)
	authHandler := handlers.NewAuthHandler(provider, sessions,
		cfg.Auth.PermissionRoleMap(), cfg.Auth.DefaultRole, cfg.BaseURL, cfg.Auth.SecureCookies)
	browseHandler := handlers.NewBrowseHandler(svc, usage)
	opsHandler := handlers.NewOperationsHandler(svc)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(custommw.SecurityHeaders())

	// Public routes
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/auth/login", authHandler.Login)
	e.GET("/auth/callback", authHandler.Callback)
	e.GET("/auth/logout", authHandler.Logout)

	// Everything else needs a session
	session := custommw.Session(sessions, devSession)
	e.GET("/auth/user", authHandler.User, session)

	api := e.Group("/api/s3", session)
	api.GET("/browse", browseHandler.Browse)
	api.GET("/browse/*", browseHandler.Browse)
	api.GET("/object-info", browseHandler.ObjectInfo)
	api.GET("/usage", browseHandler.Usage)
	api.POST("/operations/upload", opsHandler.Upload)
	api.POST("/operations/create-folder", opsHandler.CreateFolder)
	api.POST("/operations/rename", opsHandler.Rename)
	api.DELETE("/operations/delete-folder", opsHandler.DeleteFolder)
	api.DELETE("/operations/delete-multiple", opsHandler.DeleteMultiple)

	return e
}

// errorHandler maps the error taxonomy to JSON responses. Upstream causes are
// logged here and never leak to clients.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindUpstream {
			logrus.WithError(err).WithField("uri", c.Request().RequestURI).Error("upstream failure")
		}
		_ = c.JSON(ae.Kind.HTTPStatus(), map[string]string{"error": ae.Message})
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, map[string]string{"error": fmt.Sprintf("%v", he.Message)})
		return
	}

	logrus.WithError(err).WithField("uri", c.Request().RequestURI).Error("unhandled error")
	_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
