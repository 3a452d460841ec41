// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Storage       StorageConfig       `mapstructure:"storage"`
	PDF           PDFConfig           `mapstructure:"pdf"`
	OCR           OCRConfig           `mapstructure:"ocr"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Index         IndexConfig         `mapstructure:"index"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SeedDir         string        `mapstructure:"seed_dir"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig 本地文件目录：上传文件与导出文件。
type StorageConfig struct {
	UploadFolder  string `mapstructure:"upload_folder"`
	TempFolder    string `mapstructure:"temp_folder"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// PDFConfig 控制页面渲染。
type PDFConfig struct {
	RenderDPI float64 `mapstructure:"render_dpi"`
}

// OCRConfig 配置 tesseract 命令行。
type OCRConfig struct {
	TesseractPath       string        `mapstructure:"tesseract_path"`
	Language            string        `mapstructure:"language"`
	PSM                 int           `mapstructure:"psm"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// ChunkingConfig 文本分块参数。
type ChunkingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// RetrievalConfig 检索数量参数。
type RetrievalConfig struct {
	TopK            int `mapstructure:"top_k"`
	PerDocumentTopK int `mapstructure:"per_document_top_k"`
	MaxContext      int `mapstructure:"max_context"`
}

// IndexConfig 选择向量索引后端：chromem（进程内）或 elasticsearch。
type IndexConfig struct {
	Backend string `mapstructure:"backend"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
// Provider 为 openai 时调用 OpenAI 兼容接口，为 hash 时使用本地特征哈希向量。
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DatabaseConfig 存储数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 问答归档库，Enabled 为 false 时不连接。
type MySQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 异步入库队列。
type KafkaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// setDefaults 设置配置缺省值，配置文件与环境变量均未提供时生效。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("storage.upload_folder", "./uploads")
	v.SetDefault("storage.temp_folder", "./temp")
	v.SetDefault("storage.max_file_size_mb", 50)
	v.SetDefault("pdf.render_dpi", 200)
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.timeout", 2*time.Minute)
	v.SetDefault("ocr.confidence_threshold", 50)
	v.SetDefault("chunking.chunk_size", 800)
	v.SetDefault("chunking.chunk_overlap", 200)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.per_document_top_k", 3)
	v.SetDefault("retrieval.max_context", 5)
	v.SetDefault("index.backend", "chromem")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("kafka.group_id", "pdf-qa-go-consumer")
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("elasticsearch.index_name", "pdf_chunks")
}

// Load 读取 .env 与 YAML 配置文件，环境变量（PDFQA_ 前缀，点号换成下划线）覆盖文件中的值。
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PDFQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 加载配置到全局 Conf，失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
