package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/SeaStorm-Server/config"
	log "github.com/sirupsen/logrus"
)

// RedisClient 全局Redis客户端实例，未启用时为nil
var RedisClient *redis.Client

// redisDialTimeout 启动时连接检查的超时
const redisDialTimeout = 5 * time.Second

// OpenRedis 按配置创建客户端并Ping一次。未启用时返回nil客户端
func OpenRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	if !rc.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        rc.GetRedisAddr(),
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败(%s): %w", rc.GetRedisAddr(), err)
	}
	return client, nil
}

// InitRedis 连接全局配置中的Redis，结果保存在RedisClient
func InitRedis() error {
	client, err := OpenRedis(context.Background(), config.GlobalConfig.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		log.Info("Redis未启用，聊天记录和排行榜只使用数据库")
		return nil
	}
	RedisClient = client
	log.WithField("addr", config.GlobalConfig.Redis.GetRedisAddr()).Info("成功连接到Redis服务器")
	return nil
}

func closeRedis() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.WithError(err).Warn("关闭Redis连接失败")
	}
	RedisClient = nil
}
