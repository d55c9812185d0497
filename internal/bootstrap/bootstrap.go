package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/hostelhub/internal/app/auth"
	appControllers "github.com/yigit/hostelhub/internal/app/controllers"
	appMigrations "github.com/yigit/hostelhub/internal/app/migrations"
	appRepos "github.com/yigit/hostelhub/internal/app/repositories"
	"github.com/yigit/hostelhub/internal/app/repositories/memory"
	appRoutes "github.com/yigit/hostelhub/internal/app/routes"
	appServices "github.com/yigit/hostelhub/internal/app/services"
	"github.com/yigit/hostelhub/internal/config"
	"github.com/yigit/hostelhub/internal/db"
	appMiddleware "github.com/yigit/hostelhub/internal/middleware"
	pkgAuth "github.com/yigit/hostelhub/internal/pkg/auth"
	"github.com/yigit/hostelhub/internal/pkg/cache"
	"github.com/yigit/hostelhub/internal/pkg/helpers"
	"github.com/yigit/hostelhub/internal/pkg/logger"
	"github.com/yigit/hostelhub/internal/seed"
)

type roomStorage interface {
	appServices.RoomStore
	appServices.CapacityStore
}

type studentStorage interface {
	appServices.StudentStore
	appServices.BedStore
	appServices.FeeStatusStore
}

// Storage is the persistence backend chosen by database.driver
type Storage struct {
	Hostels       appServices.HostelStore
	Rooms         roomStorage
	Students      studentStorage
	Payments      appServices.PaymentStore
	Accounts      appServices.AccountStore
	Subscriptions appServices.SubscriptionStore

	checks  map[string]appControllers.HealthCheck
	closers []func()
}

// Close releases every connection the storage opened
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Storage        *Storage
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(strings.ToLower(cfg.Logging.Level))
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.EqualFold(cfg.Logging.Format, "text"),
		Service: "hostelhub",
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured backend, migrating postgres before use
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		store := memory.New()
		return &Storage{
			Hostels:       store,
			Rooms:         store,
			Students:      store,
			Payments:      store,
			Accounts:      store,
			Subscriptions: store,
			checks:        map[string]appControllers.HealthCheck{},
		}, nil
	}

	lgr.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrator := appMigrations.NewMigrator(database, lgr)
	if err := migrator.MigrateFromDirectory(ctx, cfg.Database.MigrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations applied")

	repos := appRepos.NewRepositories(database.Pool)
	return &Storage{
		Hostels:       repos.HostelRepository,
		Rooms:         repos.RoomRepository,
		Students:      repos.StudentRepository,
		Payments:      repos.PaymentRepository,
		Accounts:      repos.UserRepository,
		Subscriptions: repos.SubscriptionRepository,
		checks: map[string]appControllers.HealthCheck{
			"postgres": database.Pool.Ping,
		},
		closers: []func(){database.Close},
	}, nil
}

// SetupRoomCache connects redis when configured. Without it, or when it is unreachable,
// room views are read straight from storage.
func SetupRoomCache(ctx context.Context, cfg *config.Config, storage *Storage, lgr zerolog.Logger) appServices.RoomViewCache {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, room view cache disabled")
		return cache.NoopRoomCache{}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rdb, err := cache.ConnectRedis(pingCtx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		lgr.Warn().Err(err).Msg("Redis unavailable, room view cache disabled")
		return cache.NoopRoomCache{}
	}

	storage.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	storage.closers = append(storage.closers, func() { _ = rdb.Close() })
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Room view cache connected")
	return cache.NewRedisRoomCache(rdb, cfg.Redis.RoomViewTTL, logger.Component("room-cache"))
}

// BuildDependencies initializes services, middleware and controllers over storage.
func BuildDependencies(cfg *config.Config, storage *Storage, roomCache appServices.RoomViewCache, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Storage: storage, Logger: lgr}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(storage.Hostels, storage.Rooms, storage.Students, storage.Payments)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	ledger := appServices.NewCapacityLedger(storage.Rooms, roomCache, logger.Component("capacity-ledger"))
	occupancy := appServices.NewOccupancyService(storage.Students, ledger, logger.Component("occupancy"))
	billing := appServices.NewBillingService(
		storage.Hostels,
		storage.Students,
		storage.Students,
		storage.Payments,
		appServices.NewReceiptIssuer(storage.Payments, cfg.Billing.ReceiptAttempts),
		logger.Component("billing"),
	)
	payments := appServices.NewPaymentService(storage.Payments, storage.Students, logger.Component("payments"))
	students := appServices.NewStudentService(
		storage.Accounts,
		storage.Students,
		storage.Hostels,
		occupancy,
		billing,
		pkgAuth.HashPassword,
		cfg.Billing.UsernameAttempts,
		logger.Component("students"),
	)
	hostels := appServices.NewHostelService(storage.Hostels, storage.Rooms, ledger, roomCache, logger.Component("hostels"))
	subscriptions := appServices.NewSubscriptionService(
		storage.Hostels,
		storage.Students,
		storage.Subscriptions,
		cfg.Billing.SubscriptionRatePerStudent,
		logger.Component("subscriptions"),
	)
	authService := appServices.NewAuthService(storage.Accounts, deps.JWTService, pkgAuth.CheckPassword, logger.Component("auth"))

	deps.Controllers = appRoutes.Controllers{
		Auth:    appControllers.NewAuthController(authService, lgr),
		Hostel:  appControllers.NewHostelController(hostels, deps.AuthzService),
		Student: appControllers.NewStudentController(students, payments, deps.AuthzService),
		Billing: appControllers.NewBillingController(billing, payments, subscriptions, deps.AuthzService, lgr),
		Health:  appControllers.NewHealthController(storage.checks),
	}
	return deps
}

// SeedDefaults creates the bootstrap admin account when configured
func SeedDefaults(ctx context.Context, cfg *config.Config, storage *Storage, lgr zerolog.Logger) error {
	admin := seed.Admin{Username: cfg.Seed.AdminUsername, Password: cfg.Seed.AdminPassword}
	return seed.CreateDefaultData(ctx, storage.Accounts, admin, pkgAuth.HashPassword, lgr)
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(cors.New(corsConfig(cfg)))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	lgr.Info().Str("mode", gin.Mode()).Msg("Router configured")
	return router, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	origins := cfg.Origins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}
	corsCfg.AllowOrigins = origins
	corsCfg.AllowCredentials = true
	return corsCfg
}
