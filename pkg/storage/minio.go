// Package storage 提供了与对象存储服务（MinIO）交互的功能，异步入库时上传的 PDF 暂存在这里。
package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pdf-qa-go/internal/config"
	"pdf-qa-go/pkg/log"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	// 1. 初始化 MinIO 客户端
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := MinioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := MinioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
}

// ObjectStore 通过全局 MinioClient 上传和下载 PDF 文件。
type ObjectStore struct{}

// PutFile 上传本地文件到 bucket/object。
func (ObjectStore) PutFile(ctx context.Context, bucket, object, path string) error {
	_, err := MinioClient.FPutObject(ctx, bucket, object, path, minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("上传对象 %s/%s 失败: %w", bucket, object, err)
	}
	return nil
}

// FetchFile 下载 bucket/object 到本地路径 dst。
func (ObjectStore) FetchFile(ctx context.Context, bucket, object, dst string) error {
	if err := MinioClient.FGetObject(ctx, bucket, object, dst, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("下载对象 %s/%s 失败: %w", bucket, object, err)
	}
	return nil
}

// Remove 删除已入库完成的对象。
func (ObjectStore) Remove(ctx context.Context, bucket, object string) error {
	return MinioClient.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
}
