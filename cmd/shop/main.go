package main

import (
	"database/sql"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniShop/internal/cart"
	"MiniShop/internal/catalog"
	"MiniShop/internal/session"
	"MiniShop/internal/shop"
	"MiniShop/pkg/kit"
)

const sessionTTL = 14 * 24 * time.Hour

func main() {
	service := "shop"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8080")
	secret := getenv("SESSION_SECRET", "dev-secret")

	var (
		catalogStore catalog.Store
		sessionStore session.Store
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			log.Fatal("open database failed", zap.Error(err))
		}
		catalogStore = catalog.NewPostgresStore(db)
		sessionStore = session.NewPostgresStore(db)
	} else {
		catalogStore = catalog.NewMemStore()
		sessionStore = session.NewMemStore()
	}

	sessions := &session.Manager{
		Store:      sessionStore,
		Tokens:     session.NewTokenMaker(secret),
		CookieName: getenv("SESSION_COOKIE", session.DefaultCookieName),
		TTL:        sessionTTL,
		Log:        log,
	}

	reg := prometheus.NewRegistry()
	h := shop.NewHandler(
		shop.Deps{
			Catalog:  catalogStore,
			Sessions: sessions,
			CartKey:  getenv("CART_SESSION_KEY", cart.DefaultSessionKey),
		},
		shop.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       reg,
			MetricsEnabled: getenv("METRICS_ENABLED", "true") == "true",
			MetricsToken:   os.Getenv("METRICS_TOKEN"),
		},
	)

	if err := kit.RunHTTPServer(":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
