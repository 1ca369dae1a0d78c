package cache

import (
	"net"
	"strconv"
	"time"
)

// RedisOption configures RedisCache.
type RedisOption func(*RedisConfig)

// RedisConfig holds the connection settings for the shared pool registry.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, so several deployments can share a DB.
	Prefix      string
	PoolSize    int
	MinIdle     int
	PoolTimeout time.Duration
	// PingTimeout bounds the connectivity check in NewRedisCache.
	PingTimeout time.Duration
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		Prefix:      "shredpull",
		PoolSize:    10,
		MinIdle:     2,
		PoolTimeout: 30 * time.Second,
		PingTimeout: 5 * time.Second,
	}
}

// WithRedisAddr sets the server address.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithRedisAuth selects the database and the password used to reach it.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPrefix sets the key namespace. An empty prefix disables it.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig bounds the in-process cache.
type MemoryConfig struct {
	MaxEntries int
	SweepEvery time.Duration
}

func defaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{MaxEntries: 1000, SweepEvery: 5 * time.Minute}
}

// WithMaxEntries caps the number of keys; the least recently used key is
// evicted past the cap.
func WithMaxEntries(n int) MemoryOption {
	return func(c *MemoryConfig) {
		if n > 0 {
			c.MaxEntries = n
		}
	}
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig sizes the L1 kept in front of L2.
type LayeredConfig struct {
	L1Entries int
	L1TTL     time.Duration
}

// WithL1TTL bounds how long L1 serves a value before asking L2 again.
func WithL1TTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if ttl > 0 {
			c.L1TTL = ttl
		}
	}
}
