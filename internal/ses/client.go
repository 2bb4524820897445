package ses

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/skyspots/backend/internal/config"
	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/logger"
)

// SuppressionAPI is the subset of the SES v2 client used by Client.
type SuppressionAPI interface {
	PutSuppressedDestination(ctx context.Context, params *sesv2.PutSuppressedDestinationInput, optFns ...func(*sesv2.Options)) (*sesv2.PutSuppressedDestinationOutput, error)
}

// Client pushes suppressed addresses to the SES account-level suppression
// list so SES itself refuses further sends to them.
type Client struct {
	api     SuppressionAPI
	region  string
	timeout time.Duration
	log     *logger.Logger
}

// NewClient creates a new SES API client
func NewClient(ctx context.Context, cfg appconfig.SESConfig, log *logger.Logger) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// session token is empty for static creds
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewClientWithAPI(sesv2.NewFromConfig(awsCfg), cfg.Region, cfg.Timeout(), log), nil
}

// NewClientWithAPI wraps an existing SES v2 API implementation.
func NewClientWithAPI(api SuppressionAPI, region string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}
	return &Client{api: api, region: region, timeout: timeout, log: log}
}

// Suppress adds email to the SES account suppression list.
func (c *Client) Suppress(ctx context.Context, email string, reason domain.SuppressionReason) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.PutSuppressedDestination(ctx, &sesv2.PutSuppressedDestinationInput{
		EmailAddress: aws.String(email),
		Reason:       suppressionListReason(reason),
	})
	if err != nil {
		return fmt.Errorf("putting suppressed destination in %s: %w", c.region, err)
	}
	c.log.Debug("ses: mirrored suppression", "email", email, "reason", reason)
	return nil
}

func suppressionListReason(r domain.SuppressionReason) types.SuppressionListReason {
	if r == domain.ReasonComplaint {
		return types.SuppressionListReasonComplaint
	}
	return types.SuppressionListReasonBounce
}
