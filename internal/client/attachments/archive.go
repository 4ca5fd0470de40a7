// Package attachments archives images attached to chat messages in an
// S3-compatible bucket (AWS, MinIO or Supabase Storage's S3 endpoint).
package attachments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

// PresignExpiry is the lifetime of presigned upload and download URLs.
const PresignExpiry = 15 * time.Minute

var ErrNoImage = errors.New("no image data")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config locates the bucket. Endpoint may be empty for AWS itself.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Archive uploads images through presigned PUT URLs.
type Archive struct {
	cfg     Config
	presign *s3.PresignClient
	http    *http.Client
	logger  logging.Logger
	now     func() time.Time
}

// NewArchive builds the S3 presign client for cfg. Static credentials are
// used when both keys are set; otherwise the default AWS chain applies.
func NewArchive(ctx context.Context, cfg Config, hc *http.Client, logger logging.Logger) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Nop()
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// self-hosted endpoints rarely resolve bucket subdomains
			o.UsePathStyle = true
		}
	})

	return &Archive{
		cfg:     cfg,
		presign: s3.NewPresignClient(client),
		http:    hc,
		logger:  logger.With("component", "attachments"),
		now:     time.Now,
	}, nil
}

// StorageKey returns a fresh object key under chat-images/YYYY/MM/DD/.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("chat-images/%04d/%02d/%02d/%v", t.Year(), t.Month(), t.Day(), uuid.New())
}

// NewKey returns a fresh storage key dated today (UTC).
func (a *Archive) NewKey() string {
	return StorageKey(a.now().UTC())
}

// Put uploads img under key, normally one returned by NewKey.
func (a *Archive) Put(ctx context.Context, key string, img *models.Image) error {
	if img == nil || len(img.Data) == 0 {
		return ErrNoImage
	}

	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	req, err := presignPutObject(a.presign, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ct),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadPresigned(ctx, a.http, req.URL, ct, img.Data); err != nil {
		return err
	}

	a.logger.Debug(ctx, "image archived", "key", key, "bytes", len(img.Data))
	return nil
}

// PresignGet returns a time-limited download URL for key.
func (a *Archive) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(a.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
