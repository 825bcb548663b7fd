package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"pololo/config"
	_ "pololo/docs"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/database"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/storage"
	"pololo/internal/pkg/token"

	"pololo/internal/api/catalog"
	"pololo/internal/api/home"
	"pololo/internal/api/product"
	"pololo/internal/api/router"
	"pololo/internal/api/size"
	"pololo/internal/api/user"
	"pololo/internal/repository/catalogrepo"
	"pololo/internal/repository/homerepo"
	"pololo/internal/repository/productrepo"
	"pololo/internal/repository/sizerepo"
	"pololo/internal/repository/userrepo"
	"pololo/internal/service/catalogservice"
	"pololo/internal/service/homeservice"
	"pololo/internal/service/productservice"
	"pololo/internal/service/userservice"
	"pololo/internal/service/variantservice"
)

// @title Pololo API
// @version 1.0
// @description Catálogo de produtos da loja Pololo.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// Preços saem como número no JSON ("price": 1500.5).
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Inicializando serviço Pololo.", map[string]interface{}{"env": cfg.Environment})

	// 1. Infraestrutura
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// Sem Redis a API continua funcionando: leituras vão direto ao DB e não há rate limit.
	var cacheClient cache.Client
	redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
	if err != nil {
		log.Warn("Redis indisponível; seguindo sem cache.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		redisClient.Close()
	} else {
		cacheClient = redisClient
		defer redisClient.Close()
		log.Info("Conexão Redis estabelecida.", nil)
	}

	images, err := storage.NewLocalDiskStore(cfg.UploadDir, cfg.PublicUploadPath, cfg.UploadMaxBytes, log)
	if err != nil {
		log.Fatal("Falha ao preparar diretório de uploads.", err)
	}

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)

	// 2. Injeção de dependências: Repository -> Service -> Handler
	sizeRepo := sizerepo.NewSizeRepository(db, cfg.DBTimeout, log)
	productRepo := productrepo.NewProductRepository(db, cfg.DBTimeout, log)
	catalogRepo := catalogrepo.NewCatalogRepository(db, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	homeRepo := homerepo.NewHomeRepository(db, cfg.DBTimeout, log)

	variantSvc := variantservice.NewService(sizeRepo, log)
	catalogSvc := catalogservice.NewService(catalogRepo, variantSvc, cacheClient, cfg.CacheTTL, log)
	productSvc := productservice.NewService(productRepo, variantSvc, images, catalogSvc, log, cfg.UploadMaxBytes)
	userSvc := userservice.NewService(userRepo, tokenSvc, log)
	homeSvc := homeservice.NewService(homeRepo, images, cacheClient, cfg.CacheTTL, log, cfg.UploadMaxBytes)
	log.Debug("Serviços inicializados.", nil)

	handlers := router.Handlers{
		Product: product.NewHandler(productSvc, log, cfg.UploadMaxBytes),
		Catalog: catalog.NewHandler(catalogSvc, log),
		Size:    size.NewHandler(catalogSvc, log),
		User:    user.NewHandler(userSvc, log),
		Home:    home.NewHandler(homeSvc, log, cfg.UploadMaxBytes),
	}

	r := router.NewRouter(handlers, router.Options{
		TokenSvc:         tokenSvc,
		Cache:            cacheClient,
		DB:               db,
		Logger:           log,
		CORSOrigin:       cfg.CORSOrigin,
		TrustProxy:       cfg.TrustProxy,
		UploadDir:        cfg.UploadDir,
		PublicUploadPath: cfg.PublicUploadPath,
		RateLimitMax:     cfg.RateLimitMaxRequests,
		RateLimitPeriod:  cfg.RateLimitPeriod,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second, // uploads multipart
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 3. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor Pololo ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
