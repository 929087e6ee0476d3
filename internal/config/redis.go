package config

import (
	"context"
	"log"
	"os"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns the distributed lock client, or nil when redis is not
// configured. Callers that require mutual exclusion must treat nil as
// "service not ready".
func GetRedisLock() *redislock.Client {
	return locker
}

// InitRedis connects to REDIS_ADDR and sets up the lock client. A missing or
// unreachable redis leaves both clients nil; sync runs refuse to start in
// that state.
func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable at %s: %v", addr, err)
		return
	}

	rdb = client
	locker = redislock.New(client)
	log.Printf("connected to redis at %s", addr)
}
