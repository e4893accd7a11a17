package global

import (
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/newsbrief/newsbrief/ingest"
)

var (
	DB      *gorm.DB
	RedisDB *redis.Client
	Ingest  *ingest.Service
)
