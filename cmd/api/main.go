package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	authcleanup "github.com/AlibekovAA/examination-system/internal/auth/cleanup"
	authhttp "github.com/AlibekovAA/examination-system/internal/auth/http"
	authrepo "github.com/AlibekovAA/examination-system/internal/auth/repository"
	authservice "github.com/AlibekovAA/examination-system/internal/auth/service"
	"github.com/AlibekovAA/examination-system/internal/common/bootstrap"
	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/config"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	"github.com/AlibekovAA/examination-system/internal/common/db"
	commonhttp "github.com/AlibekovAA/examination-system/internal/common/http"
	"github.com/AlibekovAA/examination-system/internal/common/jwtverify"
	"github.com/AlibekovAA/examination-system/internal/common/resilience"
	srv "github.com/AlibekovAA/examination-system/internal/common/server"
	examhttp "github.com/AlibekovAA/examination-system/internal/exam/http"
	examrepo "github.com/AlibekovAA/examination-system/internal/exam/repository"
	examservice "github.com/AlibekovAA/examination-system/internal/exam/service"
	"github.com/AlibekovAA/examination-system/internal/notification"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

const serviceName = "exam-api"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewApp(ctx, serviceName)
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to start %s: %v\n", serviceName, err))
		os.Exit(1)
	}
	defer app.Close()
	log := app.Log
	cfg := app.Config

	clk := clock.NewRealClock()
	ids := commoncrypto.NewUUIDGenerator()
	txManager := db.NewPgTxManager(app.Pool)

	userBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCircuitBreakerThreshold,
		Timeout:    constants.DefaultCircuitBreakerTimeout,
		ResetAfter: constants.DefaultCircuitBreakerReset,
		Name:       "user_store",
		IsFailure:  authservice.IsRepositoryFailure,
		Logger:     log,
	})
	mailBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCircuitBreakerThreshold,
		Timeout:    constants.DefaultCircuitBreakerTimeout,
		ResetAfter: constants.DefaultCircuitBreakerReset,
		Name:       "email_" + cfg.Mail.Provider,
		Logger:     log,
	})

	userRepo := userrepo.NewPgRepository(app.Pool, txManager)
	confirmations := authrepo.NewRedisConfirmationStore(app.Redis)
	sender := notification.NewResilientSender(newSender(cfg.Mail), mailBreaker, log)

	issuer, err := authservice.NewTokenIssuer(authservice.TokenIssuerConfig{
		Secret:   cfg.JWT.Key,
		Issuer:   cfg.JWT.ValidIssuer,
		Audience: cfg.JWT.ValidAudience,
		Lifetime: cfg.JWT.Duration,
	}, ids, clk)
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}

	refreshTokens := authservice.NewRefreshTokenManager(
		userRepo,
		userBreaker,
		commoncrypto.StdBase64Source{},
		clk,
		authservice.RefreshTokenManagerConfig{
			TTL:       cfg.RefreshTokenTTL,
			Retention: cfg.RefreshTokenRetention,
		},
		log,
	)

	authService := authservice.NewAuthService(authservice.AuthServiceDeps{
		Users:              userRepo,
		Confirmations:      confirmations,
		Sender:             sender,
		Hasher:             commoncrypto.NewBcryptHasher(bcrypt.DefaultCost),
		IDs:                ids,
		ConfirmationTokens: commoncrypto.URLBase64Source{},
		Issuer:             issuer,
		RefreshTokens:      refreshTokens,
		Policy:             authservice.DefaultPasswordPolicy(),
		Clock:              clk,
		Log:                log,
	}, authservice.AuthServiceConfig{
		ConfirmationTTL: cfg.EmailConfirmationTTL,
	})

	examService := examservice.NewExamService(examrepo.NewPgRepository(app.Pool, txManager), ids, clk, log)

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	go authcleanup.StartRefreshTokenCleanup(cleanupCtx, userRepo, refreshTokens, clk, log, authcleanup.Config{
		Interval:  constants.RefreshTokenCleanupInterval,
		Retention: cfg.RefreshTokenRetention,
	})

	limiter := commonhttp.NewStrictRateLimiter()
	verifier := jwtverify.NewVerifier(cfg.JWT.Key, cfg.JWT.ValidIssuer, cfg.JWT.ValidAudience)

	router := chi.NewRouter()
	router.Use(authhttp.CaseInsensitivePaths(authhttp.AccountPrefix))
	router.Use(commonhttp.WithTimeout(cfg.RequestTimeout))

	router.Get("/health", commonhttp.HealthHandler(log,
		commonhttp.HealthCheck{Name: "postgres", Check: app.Pool.Ping},
		commonhttp.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}},
	))
	router.Handle("/metrics", promhttp.Handler())

	authHandler := authhttp.NewHandler(authService, log)
	examHandler := examhttp.NewHandler(examService, log)

	router.Group(func(r chi.Router) {
		r.Use(limiter.General())
		r.Mount(authhttp.AccountPrefix, authHandler.Routes(authhttp.RateLimits{
			Login:    limiter.Login(),
			Register: limiter.Register(),
			Refresh:  limiter.Refresh(),
		}))
		examHandler.Register(r, verifier.Middleware(log))
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteErrorEnvelope(w, http.StatusNotFound, commonhttp.CodeInvalidPath, "not found", nil, commonhttp.TraceIDFromContext(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, commonhttp.TraceIDFromContext(r.Context()))
	})

	server := srv.NewServer(srv.ConfigFromApp(cfg), commonhttp.BuildBaseHandler(serviceName, log, router))

	hooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("%s: stopping refresh token cleanup", serviceName)
			stopCleanup()
			limiter.Stop()
			return nil
		},
	}

	if err := srv.StartWithGracefulShutdown(server, log, serviceName, hooks...); err != nil {
		log.Fatalf("%s server failed: %v", serviceName, err)
	}
}

func newSender(cfg config.MailConfig) notification.Sender {
	if cfg.Provider == config.MailProviderSMTP {
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		})
	}
	return notification.NewSendGridSender(notification.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	})
}
