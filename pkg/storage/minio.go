// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")

	// 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
}

// ObjectName 返回某文档原始内容在存储桶内的对象名。
func ObjectName(documentID uint) string {
	return fmt.Sprintf("documents/%d", documentID)
}

// PutDocument 保存文档解码后的原始字节。
func PutDocument(ctx context.Context, bucketName string, documentID uint, data []byte, contentType string) error {
	_, err := MinioClient.PutObject(ctx, bucketName, ObjectName(documentID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// GetDocument 读取文档的原始字节。
func GetDocument(ctx context.Context, bucketName string, documentID uint) ([]byte, error) {
	object, err := MinioClient.GetObject(ctx, bucketName, ObjectName(documentID), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()
	return io.ReadAll(object)
}

// RemoveDocument 删除文档的原始字节（文档删除时级联调用）。
func RemoveDocument(ctx context.Context, bucketName string, documentID uint) error {
	return MinioClient.RemoveObject(ctx, bucketName, ObjectName(documentID), minio.RemoveObjectOptions{})
}

// Bucket 绑定存储桶名，为上层提供可注入的对象存储句柄。
type Bucket struct {
	name string
}

// NewBucket 创建一个绑定到指定存储桶的句柄。
func NewBucket(name string) *Bucket {
	return &Bucket{name: name}
}

func (b *Bucket) PutDocument(ctx context.Context, documentID uint, data []byte, contentType string) error {
	return PutDocument(ctx, b.name, documentID, data, contentType)
}

func (b *Bucket) GetDocument(ctx context.Context, documentID uint) ([]byte, error) {
	return GetDocument(ctx, b.name, documentID)
}

func (b *Bucket) RemoveDocument(ctx context.Context, documentID uint) error {
	return RemoveDocument(ctx, b.name, documentID)
}
