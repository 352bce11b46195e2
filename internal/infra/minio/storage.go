// Package minio provides the object-store video source and transcript sink
// used for s3:// batch inputs.
package minio

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true,
}

type Storage struct {
	client           *miniogo.Client
	videoBucket      string
	transcriptBucket string
}

type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	UseSSL           bool
	VideoBucket      string
	TranscriptBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:           client,
		videoBucket:      cfg.VideoBucket,
		transcriptBucket: cfg.TranscriptBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.videoBucket, s.transcriptBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// ListVideos returns the object keys under prefix that look like video
// files, in listing order.
func (s *Storage) ListVideos(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.videoBucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if videoExtensions[strings.ToLower(filepath.Ext(obj.Key))] {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	return s.client.FGetObject(ctx, s.videoBucket, objectKey, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) UploadTranscript(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	contentType := "text/plain"
	if strings.HasSuffix(objectKey, ".json") {
		contentType = "application/json"
	}
	_, err := s.client.PutObject(ctx, s.transcriptBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}
	return nil
}
