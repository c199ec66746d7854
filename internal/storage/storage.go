// Package storage хранит вложения заявок во внешнем объектном хранилище.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"amcdesk/internal/logs"
)

// MaxAttachmentSize: предельный размер вложения, 50 МБ.
const MaxAttachmentSize = 50 << 20

var (
	ErrDisabled  = errors.New("file storage is not configured")
	ErrTooLarge  = errors.New("file is larger than 50 MB")
	ErrForbidden = errors.New("file type is not allowed")
)

// принимаются целые семейства image/* и video/*, остальное по точному списку
var allowedTypes = map[string]bool{
	"application/pdf":    true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Uploader кладёт объект и возвращает его публичный URL.
type Uploader interface {
	Enabled() bool
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error)
}

// ValidateAttachment проверяет размер и тип файла; пустой contentType выводится из расширения.
func ValidateAttachment(name, contentType string, size int64) (string, error) {
	if size > MaxAttachmentSize {
		return "", ErrTooLarge
	}
	ct := contentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	switch {
	case strings.HasPrefix(ct, "image/"), strings.HasPrefix(ct, "video/"), allowedTypes[ct]:
		return ct, nil
	}
	return "", fmt.Errorf("%w: %q", ErrForbidden, ct)
}

// ObjectKey: service-requests/{id}/{uuid}{ext}; исходное имя в ключ не попадает.
func ObjectKey(requestID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("service-requests", requestID, uuid.NewString()+ext)
}

type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // S3-совместимое хранилище; пусто: AWS
	PublicBaseURL string
	PathStyle     bool
}

type S3Uploader struct {
	Client  *s3.Client
	Bucket  string
	baseURL string
	log     *logrus.Entry
}

// NewS3Uploader: без бакета возвращает выключенный загрузчик, а не ошибку.
func NewS3Uploader(ctx context.Context, o S3Options) (*S3Uploader, error) {
	u := &S3Uploader{Bucket: o.Bucket, log: logs.Component("storage")}
	if o.Bucket == "" {
		return u, nil
	}
	region := o.Region
	if region == "" {
		region = "eu-central-1"
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	u.Client = s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.PathStyle
	})
	u.baseURL = PublicBaseURL(o)
	return u, nil
}

// PublicBaseURL собирает префикс публичных ссылок: явный, S3-совместимый endpoint или AWS.
func PublicBaseURL(o S3Options) string {
	switch {
	case o.PublicBaseURL != "":
		return strings.TrimRight(o.PublicBaseURL, "/")
	case o.Endpoint != "":
		return strings.TrimRight(o.Endpoint, "/") + "/" + o.Bucket
	case o.PathStyle:
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", o.Region, o.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, o.Region)
}

func (u *S3Uploader) Enabled() bool { return u != nil && u.Client != nil && u.Bucket != "" }

func (u *S3Uploader) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error) {
	if !u.Enabled() {
		return "", ErrDisabled
	}
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	u.log.WithFields(logrus.Fields{"key": key, "size": size}).Info("attachment uploaded")
	return u.baseURL + "/" + key, nil
}
