package main

import (
	"context"
	"flag"
	"time"

	"pololo/config"
	"pololo/internal/pkg/database"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/token"
	"pololo/internal/repository/userrepo"
	"pololo/internal/service/userservice"
)

// seedadmin cria (ou redefine) o administrador a partir de ADMIN_EMAIL e ADMIN_PASSWORD.
func main() {
	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)

	email := flag.String("email", cfg.AdminEmail, "email do administrador")
	password := flag.String("password", cfg.AdminPassword, "senha do administrador")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()

	repo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	svc := userservice.NewService(repo, token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry), log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, created, err := svc.EnsureAdmin(ctx, *email, *password)
	if err != nil {
		log.Fatal("Falha ao criar administrador.", err)
	}

	log.Info("Administrador pronto.", map[string]interface{}{"user_id": user.ID, "email": user.Email, "created": created})
}
