package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zhukov-alex/s3facade/pkg/storage"

// Client is a facade over one S3 client. It is safe for concurrent use.
type Client struct {
	s3api     S3API
	presigner PresignAPI
	region    string

	transfer atomic.Pointer[TransferConfig]

	logger  *slog.Logger
	console io.Writer
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConsole sets where ListBuckets prints bucket names. Defaults to stdout.
func WithConsole(w io.Writer) Option {
	return func(c *Client) {
		c.console = w
	}
}

// WithTransferConfig sets the initial default transfer configuration.
func WithTransferConfig(tc TransferConfig) Option {
	return func(c *Client) {
		c.transfer.Store(&tc)
	}
}

// NewClient loads the AWS configuration and builds the S3 and presign clients.
func NewClient(ctx context.Context, cfg S3Config, opts ...Option) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newClient(client, s3.NewPresignClient(client), cfg.Region, opts...), nil
}

func newClient(api S3API, presigner PresignAPI, region string, opts ...Option) *Client {
	c := &Client{
		s3api:     api,
		presigner: presigner,
		region:    region,
		logger:    slog.Default(),
		console:   os.Stdout,
		tracer:    otel.Tracer(instrumentationName),
	}
	c.transfer.Store(&TransferConfig{})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Region is the region the client was configured with, possibly empty.
func (c *Client) Region() string {
	return c.region
}

func (c *Client) startSpan(ctx context.Context, op, bucket, key string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("bucket", bucket)}
	if key != "" {
		attrs = append(attrs, attribute.String("key", key))
	}
	return c.tracer.Start(ctx, "storage."+op, trace.WithAttributes(attrs...))
}

// fail classifies err, records it on the span and logs it once.
func (c *Client) fail(ctx context.Context, span trace.Span, op, bucket, key string, err error) error {
	se := newError(op, bucket, key, err)
	c.report(ctx, span, se)
	return se
}

func (c *Client) report(ctx context.Context, span trace.Span, se *Error) {
	span.RecordError(se)
	span.SetStatus(codes.Error, se.Kind.String())
	c.logger.ErrorContext(ctx, "S3 operation failed",
		slog.String("op", se.Op),
		slog.String("bucket", se.Bucket),
		slog.String("key", se.Key),
		slog.String("kind", se.Kind.String()),
		slog.String("code", se.Code),
		slog.Any("error", se.Err),
	)
}

// CreateBucket creates a bucket in the client's region. Without a region no
// location constraint is sent and the provider default applies.
func (c *Client) CreateBucket(ctx context.Context, name string) error {
	ctx, span := c.startSpan(ctx, "CreateBucket", name, "")
	defer span.End()

	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if c.region != "" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.s3api.CreateBucket(ctx, in); err != nil {
		return c.fail(ctx, span, "CreateBucket", name, "", err)
	}
	c.logger.DebugContext(ctx, "created bucket", slog.String("bucket", name))
	return nil
}

// ListBuckets returns existing buckets in provider order and prints their
// names to the console writer.
func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	ctx, span := c.startSpan(ctx, "ListBuckets", "", "")
	defer span.End()

	out, err := c.s3api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, c.fail(ctx, span, "ListBuckets", "", "", err)
	}

	buckets := make([]Bucket, 0, len(out.Buckets))
	fmt.Fprintln(c.console, "Existing buckets:")
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		fmt.Fprintf(c.console, "  %s\n", name)
		buckets = append(buckets, Bucket{Name: name, CreationDate: aws.ToTime(b.CreationDate)})
	}
	return buckets, nil
}

// DeleteBucket deletes an empty bucket.
func (c *Client) DeleteBucket(ctx context.Context, name string) error {
	ctx, span := c.startSpan(ctx, "DeleteBucket", name, "")
	defer span.End()

	if _, err := c.s3api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return c.fail(ctx, span, "DeleteBucket", name, "", err)
	}
	return nil
}
