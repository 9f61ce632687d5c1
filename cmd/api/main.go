package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/idempotency"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/metrics"
	"app/internal/notification"
	"app/internal/payment"
	"app/internal/server"
	"app/internal/shipment"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const accessTokenTTL = 15 * time.Minute

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func main() {
	// optional in containers; env vars win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.GoEnv == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	gormDB, err := db.Connect()
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Product{},
		&model.VariantOption{},
		&model.InventoryRecord{},
		&model.Order{},
		&model.OrderItem{},
		&model.Dispute{},
		&model.AuditLog{},
	); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	txManager := infraRepo.NewTxManagerGorm(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	// idempotency backend: redis when configured, process-local otherwise
	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		idemStore = idempotency.NewRedisStore(client)
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency store is in-memory")
		idemStore = idempotency.NewMemoryStore()
	}
	guard := idempotency.NewGuard(idemStore)

	gateways := payment.NewRegistry(
		payment.NewStripeGateway(cfg.StripeSecretKey, cfg.Currency),
		payment.NewPayPalGateway(cfg.PayPalAPIURL, cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.Currency),
		payment.NewPrzelewy24Gateway(
			cfg.Przelewy24APIURL,
			cfg.Przelewy24MerchantID,
			cfg.Przelewy24CRC,
			cfg.Przelewy24APIKey,
			cfg.FrontendURL+"/payment/return",
			cfg.BackendURL+"/payments/callback/przelewy24",
		),
		payment.NewMockGateway(cfg.BackendURL),
	)
	carriers := shipment.NewRegistry(
		shipment.NewInPostCarrier(cfg.InPostAPIURL, cfg.InPostAPIKey, nil),
		shipment.NewDHLCarrier(cfg.DHLAPIURL, cfg.DHLAPIKey, cfg.DHLAccountNumber),
		shipment.NewMockCarrier(),
	)

	mailer := notification.NewLogMailer(logger)
	issuer := &jwtIssuer{secret: []byte(cfg.JWTSecret), accessTTL: accessTokenTTL}

	identityUC := usecase.NewIdentityUsecase(userRepo, issuer, logger)
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, orderItemRepo, userRepo, identityUC, carriers, mailer, logger)
	ownerUC := usecase.NewOwnerOrderUsecase(txManager, orderRepo, userRepo, addressRepo, auditRepo, gateways, carriers, mailer, logger)
	paymentUC := usecase.NewPaymentUsecase(orderRepo, userRepo, gateways, guard, logger)

	m := metrics.NewServerMetrics("api")
	e := server.New(cfg, server.Handlers{
		Auth:       handler.NewAuthHandler(identityUC),
		Order:      handler.NewOrderHandler(orderUC),
		OwnerOrder: handler.NewOwnerOrderHandler(ownerUC),
		Payment:    handler.NewPaymentHandler(paymentUC),
	}, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := server.Start(ctx, e, ":"+cfg.Port); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
