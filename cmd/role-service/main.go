package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gameplatform/role-service/internal/config"
	"github.com/gameplatform/role-service/internal/events"
	"github.com/gameplatform/role-service/internal/events/kafka"
	"github.com/gameplatform/role-service/internal/infrastructure/cache"
	"github.com/gameplatform/role-service/internal/infrastructure/database"
	"github.com/gameplatform/role-service/internal/infrastructure/database/postgres"
	"github.com/gameplatform/role-service/internal/infrastructure/directory"
	handlerHTTP "github.com/gameplatform/role-service/internal/handler/http"
	"github.com/gameplatform/role-service/internal/service"
	"github.com/gameplatform/role-service/internal/utils/logger"
	"github.com/gameplatform/role-service/internal/utils/shutdown"
	"github.com/gameplatform/role-service/migrations"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting role service")

	if cfg.Database.AutoMigrate {
		migrationManager := migrations.NewManager(&cfg.Database, appLogger)
		if err := migrationManager.MigrateUp(); err != nil {
			appLogger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	dbPool, err := postgres.NewDBPool(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	directoryClient := directory.NewClient(cfg.Directory, appLogger)

	store := database.NewPgxRoleStore(
		dbPool,
		database.RoleStoreDeps{
			Audiences: database.NewPgxAudienceRegistry(dbPool),
			Users:     directoryClient.Users(),
			Groups:    directoryClient.Groups(),
			Scopes:    directoryClient,
			IdpGroups: directoryClient,
			Orgs:      directoryClient,
			Apps:      directoryClient,
			Tenants:   directoryClient,
			Cache:     cache.NewRedisInvalidator(redisClient, appLogger),
		},
		database.RoleStoreSettings{
			DefaultListLimit:   cfg.Roles.DefaultListLimit,
			MaxListLimit:       cfg.Roles.MaxListLimit,
			SystemRolesEnabled: cfg.Roles.SystemRolesEnabled,
			SystemRoles:        cfg.Roles.SystemRoles,
			AdminRoleName:      cfg.Roles.AdminRoleName,
			EveryoneRoleName:   cfg.Roles.EveryoneRoleName,
		},
		appLogger,
	)

	dispatcher := events.NewDispatcher(appLogger)
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, appLogger, "role-service")
		if err != nil {
			appLogger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		dispatcher.RegisterPublisher(events.NewKafkaPublisher(producer, cfg.Kafka.Producer.Topic))
	}

	auditRepo := database.NewPgxAuditLogRepository(dbPool)
	roleService := service.NewRoleDirectoryService(
		store,
		dispatcher,
		auditRepo,
		appLogger,
		service.RoleDirectorySettings{
			ReservedRolePrefix: cfg.Roles.ReservedRolePrefix,
			EveryoneRoleName:   cfg.Roles.EveryoneRoleName,
			MaskingEnabled:     cfg.Audit.MaskingEnabled,
		},
	)
	router := handlerHTTP.SetupRouter(roleService, auditRepo, dbPool, redisClient, cfg.Server.Environment, appLogger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdown.Wait(httpServer, timeout, appLogger)
}
