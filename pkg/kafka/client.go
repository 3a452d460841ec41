// Package kafka 提供了与 Kafka 消息队列交互的功能，上传的 PDF 通过它异步入库。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/pkg/log"
	"pdf-qa-go/pkg/tasks"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者，未初始化时什么都不做。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// Producer 把入库任务发送到 Kafka，满足 service.TaskQueue。
type Producer struct{}

// Enqueue 发送一个入库任务，以 DocumentID 作为消息 key。
func (Producer) Enqueue(ctx context.Context, task tasks.IngestTask) error {
	if producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.DocumentID),
		Value: taskBytes,
	})
}

// StartConsumer 启动一个 Kafka 消费者来处理入库任务，ctx 取消后退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	c := &consumer{processor: processor, attempts: attempts, maxAttempts: cfg.MaxAttempts}

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		if c.handle(ctx, m.Value) {
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}
}

type consumer struct {
	processor   TaskProcessor
	attempts    AttemptCounter
	maxAttempts int
	retryDelay  time.Duration
}

// handle 处理一条消息并返回是否应提交 offset。失败时在进程内重试，
// 失败次数记录在 AttemptCounter 中，进程重启后继续累计；放弃或成功后计数被清理。
// 只有 ctx 取消时返回 false。
func (c *consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.IngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	maxAttempts := c.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	key := fmt.Sprintf("kafka:attempts:%s", task.DocumentID)

	var tried int64
	for {
		log.Infof("开始处理入库任务: DocumentID=%s, FileName=%s", task.DocumentID, task.FileName)
		err := c.processor.Process(ctx, task)
		tried++
		if err == nil {
			log.Infof("入库任务处理成功: DocumentID=%s", task.DocumentID)
			c.resetAttempts(key)
			return true
		}

		log.Errorf("处理入库任务失败: DocumentID=%s, Error: %v", task.DocumentID, err)
		attempts, incErr := c.attempts.Incr(context.Background(), key)
		if incErr != nil {
			// 计数不可用时退回本次进程内的尝试次数
			log.Errorf("记录任务失败次数失败: %v", incErr)
			attempts = tried
		}
		if attempts >= int64(maxAttempts) {
			log.Errorf("入库任务多次失败(>=%d)，提交 offset 终止重试: DocumentID=%s", maxAttempts, task.DocumentID)
			c.resetAttempts(key)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff(attempts)):
		}
	}
}

func (c *consumer) resetAttempts(key string) {
	if err := c.attempts.Reset(context.Background(), key); err != nil {
		log.Warnf("清理任务失败计数失败: %v", err)
	}
}

func (c *consumer) backoff(attempts int64) time.Duration {
	if c.retryDelay > 0 {
		return c.retryDelay
	}
	return time.Duration(attempts) * time.Second
}
