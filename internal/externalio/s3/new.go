// Uploads batches as objects to S3-compatible storage
package s3

import (
	"context"
	"fmt"
	"santasleigh/internal/global"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func New(ctx context.Context, cfg Config) (sink *Sink, err error) {
	if cfg.Region == "" {
		err = fmt.Errorf("aws region is required")
		return
	}
	if cfg.Bucket == "" {
		err = fmt.Errorf("aws bucket is required")
		return
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.NameRoot == "" {
		cfg.NameRoot = "telemetry"
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(creds))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		err = fmt.Errorf("load aws config: %w", err)
		return
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		// Retries belong to the uploader so failures are classified once
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	sink = &Sink{
		Namespace: []string{global.NSSink, "S3"},
		cfg:       cfg,
		uploader:  manager.NewUploader(client),
	}
	return
}

func (sink *Sink) Name() string {
	return "s3://" + sink.cfg.Bucket + "/" + sink.cfg.Prefix
}

func (sink *Sink) Close() (err error) {
	return
}
