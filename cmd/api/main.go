package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lensstock/internal/config"
	"lensstock/internal/handler"
	"lensstock/internal/infra/db"
	"lensstock/internal/infra/lock"
	"lensstock/internal/infra/query"
	infraRepo "lensstock/internal/infra/repository"
	"lensstock/internal/obs"
	"lensstock/internal/server"
	"lensstock/internal/usecase"
	auth "lensstock/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := obs.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := db.Seed(ctx, gormDB, db.SeedOptions{
		AdminUsername: cfg.SeedAdminUsername,
		AdminPassword: cfg.SeedAdminPassword,
	}); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	sqlxDB, err := query.NewDB(gormDB, cfg.DBDriver)
	if err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.TxMaxRetries, log)

	//usecaseに渡す部品
	idGen := usecase.UUIDGenerator{}
	clock := usecase.SystemClock{}

	//Usecase生成
	movementUC := usecase.NewMovementUsecase(txm, locker, idGen, clock, log)
	catalogUC := usecase.NewCatalogUsecase(txm, query.NewStockReportSQLX(sqlxDB), log)
	loginUC := auth.NewLoginUsecase(userRepo, auth.NewBcryptPasswordVerifier(), auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL), clock)
	createUserUC := auth.NewCreateUserUsecase(userRepo, auth.NewBcryptPasswordHasher(12))

	//Handler生成
	e := server.New(cfg, log, server.Handlers{
		Auth:     handler.NewAuthHandler(loginUC, createUserUC, auth.NewListUsersUsecase(userRepo)),
		Movement: handler.NewMovementHandler(movementUC),
		Catalog:  handler.NewCatalogHandler(catalogUC),
		Users:    userRepo,
	})

	//Server起動
	return server.Run(ctx, e, cfg.Addr(), log)
}

// LOCK_BACKENDに応じたロック。redisは複数プロセス構成用
func newLocker(ctx context.Context, cfg config.Config, log *zap.Logger) (usecase.Locker, func(), error) {
	if cfg.LockBackend != "redis" {
		return lock.NewKeyedMutex(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("using redis locker", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedisLocker(client, cfg.LockTTL, log), func() { _ = client.Close() }, nil
}
