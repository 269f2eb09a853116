package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medtest-data/internal/config"
	"medtest-data/internal/db"
	"medtest-data/internal/domain"
	"medtest-data/internal/events"
	httpapi "medtest-data/internal/http"
	"medtest-data/internal/repository"
	"medtest-data/internal/service"
	"medtest-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	// KV：会话 + pincode 缓存。Redis 未启用时使用内存实现（联测够用）
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	} else {
		kv = store.NewMemoryKV()
	}

	var (
		usersRepo         repository.UsersRepository
		catalogRepo       repository.CatalogRepository
		ordersRepo        repository.OrdersRepository
		techniciansRepo   repository.TechniciansRepository
		pincodesRepo      repository.PincodesRepository
		reportsRepo       repository.ReportsRepository
		notificationsRepo repository.NotificationsRepository
	)

	// DB 未就绪时回退内存 repo，服务仍可启动联测
	var database *sql.DB
	if cfg.DBEnabled {
		if d, err := db.NewDB(cfg.Database.DSN(), "migrations"); err == nil {
			database = d
			logger.Info("DB enabled for medtest-data")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if database != nil {
		usersRepo = repository.NewPostgresUsersRepo(database)
		catalogRepo = repository.NewPostgresCatalogRepo(database)
		techniciansRepo = repository.NewPostgresTechniciansRepo(database)
		ordersRepo = repository.NewPostgresOrdersRepo(database)
		pincodesRepo = repository.NewPostgresPincodesRepo(database)
		reportsRepo = repository.NewPostgresReportsRepo(database)
		notificationsRepo = repository.NewPostgresNotificationsRepo(database)
	} else {
		usersRepo = repository.NewMemoryUsersRepo()
		memCatalog := repository.NewMemoryCatalogRepo()
		memTechs := repository.NewMemoryTechniciansRepo()
		memPincodes := repository.NewMemoryPincodesRepo()
		seedMemory(memCatalog, memPincodes)
		catalogRepo = memCatalog
		techniciansRepo = memTechs
		ordersRepo = repository.NewMemoryOrdersRepo(memTechs)
		pincodesRepo = memPincodes
		reportsRepo = repository.NewMemoryReportsRepo()
		notificationsRepo = repository.NewMemoryNotificationsRepo()
	}

	// Kafka 未启用时注入 NopPublisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		p, err := events.NewSaramaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Warn("kafka producer init failed, events disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		handler := events.NewNotificationHandler(notificationsRepo, logger)
		go func() {
			if err := events.StartConsumer(ctx, cfg.Kafka.Brokers, "medtest-notifications",
				cfg.Kafka.Topic, handler, logger); err != nil {
				logger.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	var lis service.LISFetcher
	if cfg.LIS.BaseURL != "" {
		lis = service.NewLISClient(cfg.LIS.BaseURL, cfg.LIS.APIKey,
			time.Duration(cfg.LIS.Timeout)*time.Second, logger)
	}

	authService := service.NewAuthService(usersRepo, kv, logger)
	testService := service.NewTestService(catalogRepo, logger)
	orderService := service.NewOrderService(ordersRepo, catalogRepo, techniciansRepo, testService, publisher, logger)
	reportService := service.NewReportService(reportsRepo, ordersRepo, lis, publisher, logger)
	pincodeService := service.NewPincodeService(pincodesRepo, kv, logger)
	technicianService := service.NewTechnicianService(techniciansRepo, logger)
	notificationService := service.NewNotificationService(notificationsRepo, logger)
	addressService := service.NewAddressService(usersRepo, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, logger))
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(testService, orderService, authService, logger))
	router.RegisterOrderRoutes(httpapi.NewOrderHandler(orderService, authService, logger))
	router.RegisterReportRoutes(httpapi.NewReportHandler(reportService, authService, logger))
	router.RegisterPincodeRoutes(httpapi.NewPincodeHandler(pincodeService, authService, logger))
	router.RegisterTechnicianRoutes(httpapi.NewTechnicianHandler(technicianService, authService, logger))
	router.RegisterNotificationRoutes(httpapi.NewNotificationHandler(notificationService, authService, logger))
	router.RegisterAddressRoutes(httpapi.NewAddressHandler(addressService, authService, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = publisher.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if database != nil {
		_ = database.Close()
	}
}

// seedMemory 内存模式下补齐固定时段和初始服务区域（与迁移脚本一致）
func seedMemory(catalog *repository.MemoryCatalogRepo, pincodes *repository.MemoryPincodesRepo) {
	slots := []domain.TimeSlot{
		{SlotID: "00000000-0000-0000-0000-000000000001", StartTime: "07:00", EndTime: "09:00", DisplayText: "07:00 - 09:00 AM", IsActive: true},
		{SlotID: "00000000-0000-0000-0000-000000000002", StartTime: "09:00", EndTime: "11:00", DisplayText: "09:00 - 11:00 AM", IsActive: true},
		{SlotID: "00000000-0000-0000-0000-000000000003", StartTime: "11:00", EndTime: "13:00", DisplayText: "11:00 - 01:00 PM", IsActive: true},
		{SlotID: "00000000-0000-0000-0000-000000000004", StartTime: "14:00", EndTime: "16:00", DisplayText: "02:00 - 04:00 PM", IsActive: true},
		{SlotID: "00000000-0000-0000-0000-000000000005", StartTime: "16:00", EndTime: "18:00", DisplayText: "04:00 - 06:00 PM", IsActive: true},
		{SlotID: "00000000-0000-0000-0000-000000000006", StartTime: "18:00", EndTime: "20:00", DisplayText: "06:00 - 08:00 PM", IsActive: true},
	}
	for _, s := range slots {
		catalog.SeedTimeSlot(s)
	}
	areas := []domain.PincodeInfo{
		{Pincode: "400001", City: "Mumbai", State: "Maharashtra", IsServiceable: true, EstimatedDelivery: 1},
		{Pincode: "110001", City: "New Delhi", State: "Delhi", IsServiceable: true, EstimatedDelivery: 1},
		{Pincode: "560001", City: "Bangalore", State: "Karnataka", IsServiceable: true, EstimatedDelivery: 2, CollectionCharges: 50},
		{Pincode: "999999", City: "Remote Area", State: "Unknown", IsServiceable: false},
	}
	for i := range areas {
		_ = pincodes.CreatePincode(context.Background(), &areas[i])
	}
}

// newLogger 按 LOG_LEVEL/LOG_FORMAT 构造 zap
func newLogger(level, format string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
