// Package container holds the process-wide components built in main so the
// router can wire modules without threading every dependency by hand.
package container

import (
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/config"
	"github.com/oksasatya/inkwell/pkg/helpers"
)

type components struct {
	cfg    *config.Config
	logger *logrus.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	jwt    *helpers.JWTManager
	hasher *helpers.PasswordHasher
	events *helpers.RabbitPublisher
	es     *elasticsearch.Client
}

var (
	mu  sync.RWMutex
	app components
)

func set(fn func(*components)) {
	mu.Lock()
	defer mu.Unlock()
	fn(&app)
}

func snapshot() components {
	mu.RLock()
	defer mu.RUnlock()
	return app
}

// Reset drops every registered component.
func Reset() { set(func(c *components) { *c = components{} }) }

func SetConfig(v *config.Config)              { set(func(c *components) { c.cfg = v }) }
func SetLogger(v *logrus.Logger)              { set(func(c *components) { c.logger = v }) }
func SetPGPool(v *pgxpool.Pool)               { set(func(c *components) { c.pool = v }) }
func SetRedis(v *redis.Client)                { set(func(c *components) { c.redis = v }) }
func SetJWT(v *helpers.JWTManager)            { set(func(c *components) { c.jwt = v }) }
func SetHasher(v *helpers.PasswordHasher)     { set(func(c *components) { c.hasher = v }) }
func SetRabbitPub(v *helpers.RabbitPublisher) { set(func(c *components) { c.events = v }) }
func SetES(v *elasticsearch.Client)           { set(func(c *components) { c.es = v }) }

// GetConfig falls back to environment defaults when main never set one.
func GetConfig() *config.Config {
	if c := snapshot().cfg; c != nil {
		return c
	}
	return config.Load()
}

// GetLogger never returns nil.
func GetLogger() *logrus.Logger {
	if l := snapshot().logger; l != nil {
		return l
	}
	return helpers.NewDiscardLogger()
}

func GetPGPool() *pgxpool.Pool               { return snapshot().pool }
func GetRabbitPub() *helpers.RabbitPublisher { return snapshot().events }
func GetES() *elasticsearch.Client           { return snapshot().es }

func GetJWT() *helpers.JWTManager {
	if m := snapshot().jwt; m != nil {
		return m
	}
	return helpers.DefaultJWT()
}

func GetHasher() *helpers.PasswordHasher {
	if h := snapshot().hasher; h != nil {
		return h
	}
	return helpers.NewPasswordHasher(0)
}

// Cache returns the redis client as redis.Cmdable, or a nil interface when
// none is configured so callers can compare it against nil.
func Cache() redis.Cmdable {
	if rdb := snapshot().redis; rdb != nil {
		return rdb
	}
	return nil
}
