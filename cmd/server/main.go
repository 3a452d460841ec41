// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/internal/handler"
	"pdf-qa-go/internal/index"
	"pdf-qa-go/internal/middleware"
	"pdf-qa-go/internal/model"
	"pdf-qa-go/internal/pipeline"
	"pdf-qa-go/internal/repository"
	"pdf-qa-go/internal/service"
	"pdf-qa-go/pkg/database"
	"pdf-qa-go/pkg/embedding"
	"pdf-qa-go/pkg/es"
	"pdf-qa-go/pkg/kafka"
	"pdf-qa-go/pkg/llm"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/ocr"
	"pdf-qa-go/pkg/pdf"
	"pdf-qa-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化可选的外部依赖
	var archive repository.QARepository
	if cfg.Database.MySQL.Enabled {
		if err := database.InitMySQL(cfg.Database.MySQL.DSN); err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		if err := repository.AutoMigrate(database.DB); err != nil {
			log.Fatal("问答归档表迁移失败", err)
		}
		archive = repository.NewQARepository(database.DB)
	}
	if cfg.Database.Redis.Enabled {
		if err := database.InitRedis(cfg.Database.Redis); err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
	}
	if cfg.MinIO.Enabled {
		storage.InitMinIO(cfg.MinIO)
	}

	// 4. 初始化模型客户端与向量索引
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	var builder index.Builder
	switch strings.ToLower(cfg.Index.Backend) {
	case "elasticsearch", "es":
		if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return
		}
		builder = index.NewElasticBuilder(es.ESClient, cfg.Elasticsearch.IndexName, embeddingClient)
	default:
		builder = index.NewChromemBuilder(embeddingClient)
	}
	log.Infof("向量索引后端: %s", cfg.Index.Backend)

	// 5. 初始化文件处理管道
	opener := pdf.NewOpener(cfg.PDF.RenderDPI)
	extractor := pipeline.NewExtractor(
		pipeline.PDFOpenerFunc(func(path string) (pipeline.PDFDocument, error) {
			doc, err := opener.Open(path)
			if err != nil {
				return nil, err
			}
			return doc, nil
		}),
		ocr.NewTesseract(cfg.OCR),
		cfg.OCR.ConfidenceThreshold,
	)
	chunker := pipeline.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	processor := pipeline.NewProcessor(extractor, chunker)

	// 6. 初始化 Service (依赖注入)
	store := repository.NewDocumentStore()
	documentService := service.NewDocumentService(processor, builder, store)
	searchService := service.NewSearchService(embeddingClient, store, cfg.Retrieval.TopK)
	chatService := service.NewChatService(searchService, llmClient, store, archive, cfg.Retrieval, cfg.LLM.Generation)
	exportService := service.NewExportService(store, documentService, cfg.Storage.TempFolder)

	// 7. 启用 Kafka 时上传走异步入库：MinIO 暂存文件，后台消费者完成入库
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var (
		objects service.ObjectStore
		queue   service.TaskQueue
	)
	if cfg.Kafka.Enabled {
		if !cfg.MinIO.Enabled {
			log.Fatal("启用 Kafka 异步入库需要同时启用 MinIO", errors.New("minio disabled"))
		}
		kafka.InitProducer(cfg.Kafka)
		objects = storage.ObjectStore{}
		queue = kafka.Producer{}

		var attempts kafka.AttemptCounter = kafka.NewMemoryAttempts()
		if cfg.Database.Redis.Enabled {
			attempts = kafka.NewRedisAttempts(database.RDB)
		}
		ingestProcessor := service.NewIngestProcessor(documentService, objects, cfg.Storage.TempFolder)
		go kafka.StartConsumer(rootCtx, cfg.Kafka, ingestProcessor, attempts)
	}
	uploadService := service.NewUploadService(documentService, cfg.Storage, cfg.MinIO.BucketName, objects, queue)

	// 7.1 导入 seed 目录中的 PDF
	if cfg.Server.SeedDir != "" {
		go initSeedFiles(rootCtx, cfg.Server.SeedDir, documentService)
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	handler.RegisterRoutes(r, handler.Handlers{
		Documents: handler.NewDocumentHandler(documentService),
		Upload:    handler.NewUploadHandler(uploadService),
		Chat:      handler.NewChatHandler(chatService, cfg.LLM.Model),
		Export:    handler.NewExportHandler(exportService),
		Health:    handler.NewHealthHandler(store),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止消费者与 seed 导入，再关闭生产者
	stopBackground()
	if err := kafka.CloseProducer(); err != nil {
		log.Warnf("关闭 Kafka 生产者失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// initSeedFiles 入库目录下的全部 PDF，目录不存在时跳过。
func initSeedFiles(ctx context.Context, dir string, documents service.DocumentService) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("initSeedFiles: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	batch, err := documents.IngestDir(ctx, dir)
	if err != nil {
		log.Warnf("initSeedFiles: 遍历目录发生错误: %v", err)
		return
	}
	for _, res := range batch.Results {
		if res.Status != model.StatusSuccess {
			log.Warnf("initSeedFiles: 导入失败: %s, err=%s", res.PDFPath, res.Error)
		}
	}
	log.Infof("initSeedFiles: 导入完成, 成功: %d, 失败: %d", batch.Successful, batch.Failed)
}
