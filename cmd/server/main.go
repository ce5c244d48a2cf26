// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/internal/handler"
	"github.com/CTpeJLok/ai-chat/internal/middleware"
	"github.com/CTpeJLok/ai-chat/internal/pipeline"
	"github.com/CTpeJLok/ai-chat/internal/repository"
	"github.com/CTpeJLok/ai-chat/internal/service"
	"github.com/CTpeJLok/ai-chat/pkg/database"
	"github.com/CTpeJLok/ai-chat/pkg/embedding"
	"github.com/CTpeJLok/ai-chat/pkg/es"
	"github.com/CTpeJLok/ai-chat/pkg/kafka"
	"github.com/CTpeJLok/ai-chat/pkg/llm"
	"github.com/CTpeJLok/ai-chat/pkg/log"
	"github.com/CTpeJLok/ai-chat/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与向量索引
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}

	// 4. 初始化 Repository
	orgRepo := repository.NewOrganizationRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	embRepo := repository.NewEmbeddingRepository(database.DB)
	chatRepo := repository.NewChatRepository(database.DB)

	// 5. 初始化外部客户端与存储句柄
	embeddingClient, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		log.Fatalf("初始化 Embedding 客户端失败: %v", err)
	}
	llmClient := llm.NewClient(cfg.LLM)
	index := es.NewIndex(cfg.Elasticsearch.IndexName)
	bucket := storage.NewBucket(cfg.MinIO.BucketName)

	// 6. 初始化入库管道 (Processor)
	guard := pipeline.NewRedisGuard(database.RDB)
	processor := pipeline.NewProcessor(
		embeddingClient,
		docRepo,
		embRepo,
		index,
		bucket,
		guard,
		cfg.Ingest,
	)

	// 7. 初始化 Service (依赖注入)
	orgService := service.NewOrganizationService(orgRepo)
	docService := service.NewDocumentService(docRepo, embRepo, processor, index, bucket, cfg.Ingest.Async)
	retrievalService := service.NewRetrievalService(embeddingClient, index, docRepo)
	chatService := service.NewChatService(chatRepo, retrievalService, llmClient)

	// 8. 异步入库开启时启动 Kafka 生产者和后台消费者
	if cfg.Ingest.Async {
		kafka.InitProducer(cfg.Kafka)
		go kafka.StartConsumer(cfg.Kafka, processor)
	}

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	orgHandler := handler.NewOrganizationHandler(orgService, docService, chatService)
	docHandler := handler.NewDocumentHandler(docService)
	chatHandler := handler.NewChatHandler(chatService)

	// 10. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		organizations := apiV1.Group("/organizations")
		{
			organizations.POST("", orgHandler.Create)
			organizations.GET("", orgHandler.List)
			organizations.GET("/:id", orgHandler.Get)
			organizations.DELETE("/:id", orgHandler.Delete)
			organizations.GET("/:id/documents", orgHandler.ListDocuments)
			organizations.GET("/:id/chats", orgHandler.ListChats)
		}

		documents := apiV1.Group("/documents")
		{
			documents.POST("", docHandler.Create)
			documents.GET("/:id", docHandler.Get)
			documents.GET("/:id/download", docHandler.Download)
			documents.DELETE("/:id", docHandler.Delete)
		}

		chats := apiV1.Group("/chats")
		{
			chats.POST("", chatHandler.Create)
			chats.GET("/:id", chatHandler.Get)
			chats.GET("/:id/messages", chatHandler.Messages)
			chats.POST("/:id/message", chatHandler.Message)
		}
	}

	// WebSocket 聊天入口
	r.GET("/ws/chat/:id", chatHandler.HandleWebSocket)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("监听失败: %s", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务器被强制关闭: %s", err)
	}

	log.Info("服务器已退出")
}
