package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/inkwell/config"
	"github.com/oksasatya/inkwell/internal/application"
	"github.com/oksasatya/inkwell/internal/domain/repository"
	pginfra "github.com/oksasatya/inkwell/internal/infrastructure/postgres"
	"github.com/oksasatya/inkwell/pkg/helpers"
)

const (
	demoEmail    = "demo@inkwell.local"
	demoPassword = "password123"
)

var demoPosts = []struct{ title, content string }{
	{"Welcome to Inkwell", "This post was created by the seeder. Log in as the demo user to edit it."},
	{"Ownership rules", "Only the author of a post can change or delete it. Everyone else can read it."},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
		AppName:         cfg.AppName + "-seed",
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	users := pginfra.NewUserRepository(pool)
	posts := pginfra.NewPostRepository(pool)
	jwt := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	auth := application.NewAuthService(users, jwt, helpers.NewPasswordHasher(cfg.BcryptCost), logger)
	postSvc := application.NewPostService(posts, nil, 0, nil, nil, logger)

	res, err := auth.Register(ctx, demoEmail, demoPassword)
	if errors.Is(err, application.ErrEmailTaken) {
		res, err = auth.Login(ctx, demoEmail, demoPassword)
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%d email=%s password=%s\n", res.User.ID, res.User.Email, demoPassword)

	existing, err := postSvc.List(ctx, repository.PostFilter{OwnerID: res.User.ID, Limit: 100})
	if err != nil {
		log.Fatalf("failed to list posts: %v", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.Title] = true
	}
	for _, d := range demoPosts {
		if have[d.title] {
			continue
		}
		p, err := postSvc.Create(ctx, res.User, d.title, d.content)
		if err != nil {
			log.Fatalf("failed to seed post %q: %v", d.title, err)
		}
		fmt.Printf("seeded post: id=%d title=%q\n", p.ID, p.Title)
	}
	fmt.Printf("demo token (expires %s):\n%s\n", res.ExpiresAt.Format("2006-01-02 15:04"), res.Token)
}
