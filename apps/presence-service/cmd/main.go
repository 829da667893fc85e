package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"gogame-presence/apps/presence-service/dao"
	"gogame-presence/apps/presence-service/handler"
	"gogame-presence/apps/presence-service/service"
	"gogame-presence/pkg/auth"
	"gogame-presence/pkg/cache"
	"gogame-presence/pkg/firebase"
	"gogame-presence/pkg/middleware"
	"gogame-presence/pkg/server"
	"gogame-presence/pkg/telemetry"
)

// initConfig 读取可选的配置文件，未找到时全部走默认值
func initConfig() (*viper.Viper, error) {
	cfg := viper.New()

	cfg.SetConfigName("config")
	cfg.SetConfigType("yaml")
	cfg.AddConfigPath(".")
	cfg.AddConfigPath("..")
	cfg.AddConfigPath("../..")

	cfg.AutomaticEnv()

	cfg.SetDefault("logger.level", "info")
	cfg.SetDefault("otel.debug", false)

	if err := cfg.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using default values")
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	return cfg, nil
}

func main() {
	serviceName := "presence-service"

	bootCfg, err := initConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化OpenTelemetry
	// 根据配置选择模式
	var otelConfig *telemetry.Config
	if bootCfg.GetBool("otel.debug") || bootCfg.GetString("OTEL_DEBUG") == "true" {
		// 调试模式：输出到控制台
		otelConfig = telemetry.DevelopmentConfig(serviceName)
		log.Printf("OpenTelemetry debug mode enabled - traces will be printed to console")
	} else {
		// 默认模式：不输出，只记录到日志
		otelConfig = telemetry.DefaultConfig(serviceName)
		log.Printf("OpenTelemetry quiet mode - traces recorded but not printed")
	}

	if err := telemetry.InitGlobal(otelConfig); err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	// 确保在程序退出时关闭OpenTelemetry
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.ShutdownGlobal(ctx); err != nil {
			log.Printf("Failed to shutdown OpenTelemetry: %v", err)
		}
	}()

	// 创建应用程序
	app := server.NewApplication(serviceName)
	cfg := app.GetConfig()

	// 启用HTTP服务器
	app.EnableHTTP()

	// 远程存储客户端池与DAO
	pool := firebase.NewClientPool(cfg.Store.Scopes, time.Duration(cfg.Store.TimeoutSeconds)*time.Second)
	storeDAO := dao.NewStoreDAO(cfg.Store.BaseURL, pool, app.GetLogger())

	// 推送下发客户端
	sender := firebase.NewMessagingClient(cfg.Push.Endpoint, cfg.Identity.ProjectID, pool)

	// 自定义令牌签发器，未配置私钥时关闭该能力
	var issuer *auth.TokenIssuer
	if cfg.Identity.PrivateKeyFile != "" {
		var err error
		issuer, err = auth.NewTokenIssuerFromFile(cfg.Identity.ClientEmail, cfg.Identity.Audience, cfg.Identity.PrivateKeyFile)
		if err != nil {
			log.Fatalf("Failed to load token issuer key: %v", err)
		}
	} else {
		log.Printf("No identity private key configured, custom token issuance disabled")
	}

	// 初始化Service层
	opts := service.DefaultOptions()
	opts.LocalCacheTTL = time.Duration(cfg.Presence.LocalCacheTTLMinutes) * time.Minute
	opts.SharedCacheTTL = time.Duration(cfg.Presence.SharedCacheTTLMinutes) * time.Minute
	opts.SessionCutoff = time.Duration(cfg.Push.SessionCutoffDays) * 24 * time.Hour
	opts.EnforceCutoff = cfg.Push.EnforceCutoff
	opts.PushTopic = cfg.Kafka.PushTopic

	var producer service.EventProducer
	if kafkaProducer := app.GetKafkaProducer(); kafkaProducer != nil {
		producer = kafkaProducer
	}

	svc := service.NewService(
		storeDAO,
		cache.NewRedisCache(app.GetRedisClient()),
		sender,
		producer,
		issuer,
		opts,
		app.GetLogger(),
	)

	// 创建OpenTelemetry中间件
	otelMW := middleware.NewOTelMiddleware(serviceName, app.GetLogger())

	// 注册HTTP路由
	app.RegisterHTTPRoutes(func(engine *gin.Engine) {
		engine.Use(otelMW.GinMiddleware())

		httpHandler := handler.NewHTTPHandler(svc, app.GetLogger())
		httpHandler.RegisterRoutes(engine)
	})

	// 运行应用程序
	if err := app.Run(); err != nil {
		panic(err)
	}
}
