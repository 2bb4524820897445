// Package archive stores the raw SES notifications received over SNS in S3
// so ledger decisions can be audited and replayed later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/skyspots/backend/internal/config"
	"github.com/skyspots/backend/internal/pkg/logger"
)

// S3API is the subset of the S3 client used by S3Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Archiver writes one object per notification.
type S3Archiver struct {
	api    S3API
	bucket string
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// New creates an archiver from configuration using the default AWS
// credential chain (or the configured shared profile).
func New(ctx context.Context, cfg appconfig.ArchiveConfig, log *logger.Logger) (*S3Archiver, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewWithAPI(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix, log), nil
}

// NewWithAPI wraps an existing S3 client.
func NewWithAPI(api S3API, bucket, prefix string, log *logger.Logger) *S3Archiver {
	if log == nil {
		log = logger.Default()
	}
	return &S3Archiver{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
		now:    time.Now,
	}
}

// Key returns the object key for a notification received at t.
func (a *S3Archiver) Key(notificationType, messageID string, t time.Time) string {
	kind := strings.ToLower(strings.TrimSpace(notificationType))
	if kind == "" {
		kind = "unknown"
	}
	return path.Join(a.prefix, kind, t.UTC().Format("2006/01/02"), messageID+".json")
}

// Archive stores payload under the notification's key.
func (a *S3Archiver) Archive(ctx context.Context, notificationType, messageID string, payload []byte) error {
	if messageID == "" {
		return fmt.Errorf("archive: empty message id")
	}
	key := a.Key(notificationType, messageID, a.now())
	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", a.bucket, key, err)
	}
	a.log.Debug("archive: stored notification", "bucket", a.bucket, "key", key)
	return nil
}

// Ping checks that the bucket is reachable.
func (a *S3Archiver) Ping(ctx context.Context) error {
	_, err := a.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	return err
}
