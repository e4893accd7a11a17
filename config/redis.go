package config

import (
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/newsbrief/newsbrief/global"
)

func initRedis() {
	redisConf := AppConfig.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     redisConf.Addr,
		Password: redisConf.Password,
		DB:       redisConf.DB,
	})

	if _, err := client.Ping(client.Context()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	global.RedisDB = client
}
