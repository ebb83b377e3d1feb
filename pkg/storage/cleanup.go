package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-multierror"
)

// EmptyBucket deletes every object in bucket. Per-object failures do not stop
// the sweep; they are collected and returned together.
func (c *Client) EmptyBucket(ctx context.Context, bucket string) error {
	ctx, span := c.startSpan(ctx, "EmptyBucket", bucket, "")
	defer span.End()

	var result *multierror.Error
	paginator := s3.NewListObjectsV2Paginator(c.s3api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return c.fail(ctx, span, "EmptyBucket", bucket, "", fmt.Errorf("list objects: %w", err))
		}

		for _, obj := range page.Contents {
			_, err := c.s3api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("delete object %s: %w", aws.ToString(obj.Key), err))
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return c.fail(ctx, span, "EmptyBucket", bucket, "", err)
	}
	return nil
}
