package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const codeNoSuchCORSConfiguration = "NoSuchCORSConfiguration"

// GetBucketPolicy fetches and decodes the bucket policy.
func (c *Client) GetBucketPolicy(ctx context.Context, bucket string) (*PolicyDocument, error) {
	ctx, span := c.startSpan(ctx, "GetBucketPolicy", bucket, "")
	defer span.End()

	out, err := c.s3api.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, c.fail(ctx, span, "GetBucketPolicy", bucket, "", err)
	}

	var doc PolicyDocument
	if err := json.UnmarshalFromString(aws.ToString(out.Policy), &doc); err != nil {
		return nil, c.fail(ctx, span, "GetBucketPolicy", bucket, "", err)
	}
	return &doc, nil
}

// PutBucketPolicy JSON-encodes policy and installs it. A string or []byte is
// taken as an already encoded document.
func (c *Client) PutBucketPolicy(ctx context.Context, bucket string, policy any) error {
	ctx, span := c.startSpan(ctx, "PutBucketPolicy", bucket, "")
	defer span.End()

	var doc string
	switch p := policy.(type) {
	case string:
		doc = p
	case []byte:
		doc = string(p)
	default:
		encoded, err := json.MarshalToString(policy)
		if err != nil {
			se := invalidArgument("PutBucketPolicy", bucket, "", err)
			c.report(ctx, span, se)
			return se
		}
		doc = encoded
	}

	_, err := c.s3api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(doc),
	})
	if err != nil {
		return c.fail(ctx, span, "PutBucketPolicy", bucket, "", err)
	}
	return nil
}

func (c *Client) DeleteBucketPolicy(ctx context.Context, bucket string) error {
	ctx, span := c.startSpan(ctx, "DeleteBucketPolicy", bucket, "")
	defer span.End()

	if _, err := c.s3api.DeleteBucketPolicy(ctx, &s3.DeleteBucketPolicyInput{Bucket: aws.String(bucket)}); err != nil {
		return c.fail(ctx, span, "DeleteBucketPolicy", bucket, "", err)
	}
	return nil
}

func (c *Client) GetBucketACL(ctx context.Context, bucket string) (*BucketACL, error) {
	ctx, span := c.startSpan(ctx, "GetBucketACL", bucket, "")
	defer span.End()

	out, err := c.s3api.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, c.fail(ctx, span, "GetBucketACL", bucket, "", err)
	}
	return &BucketACL{Owner: out.Owner, Grants: out.Grants}, nil
}

func (c *Client) GetBucketWebsite(ctx context.Context, bucket string) (*types.WebsiteConfiguration, error) {
	ctx, span := c.startSpan(ctx, "GetBucketWebsite", bucket, "")
	defer span.End()

	out, err := c.s3api.GetBucketWebsite(ctx, &s3.GetBucketWebsiteInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, c.fail(ctx, span, "GetBucketWebsite", bucket, "", err)
	}
	return &types.WebsiteConfiguration{
		IndexDocument:         out.IndexDocument,
		ErrorDocument:         out.ErrorDocument,
		RedirectAllRequestsTo: out.RedirectAllRequestsTo,
		RoutingRules:          out.RoutingRules,
	}, nil
}

func (c *Client) PutBucketWebsite(ctx context.Context, bucket string, website *types.WebsiteConfiguration) error {
	ctx, span := c.startSpan(ctx, "PutBucketWebsite", bucket, "")
	defer span.End()

	_, err := c.s3api.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket:               aws.String(bucket),
		WebsiteConfiguration: website,
	})
	if err != nil {
		return c.fail(ctx, span, "PutBucketWebsite", bucket, "", err)
	}
	return nil
}

func (c *Client) DeleteBucketWebsite(ctx context.Context, bucket string) error {
	ctx, span := c.startSpan(ctx, "DeleteBucketWebsite", bucket, "")
	defer span.End()

	if _, err := c.s3api.DeleteBucketWebsite(ctx, &s3.DeleteBucketWebsiteInput{Bucket: aws.String(bucket)}); err != nil {
		return c.fail(ctx, span, "DeleteBucketWebsite", bucket, "", err)
	}
	return nil
}

// GetBucketCORS returns the bucket's CORS rules. A bucket with no CORS
// configuration yields an empty slice and no error.
func (c *Client) GetBucketCORS(ctx context.Context, bucket string) ([]types.CORSRule, error) {
	ctx, span := c.startSpan(ctx, "GetBucketCORS", bucket, "")
	defer span.End()

	out, err := c.s3api.GetBucketCors(ctx, &s3.GetBucketCorsInput{Bucket: aws.String(bucket)})
	if err != nil {
		if isErrorCode(err, codeNoSuchCORSConfiguration) {
			return []types.CORSRule{}, nil
		}
		return nil, c.fail(ctx, span, "GetBucketCORS", bucket, "", err)
	}
	if out.CORSRules == nil {
		return []types.CORSRule{}, nil
	}
	return out.CORSRules, nil
}

func (c *Client) PutBucketCORS(ctx context.Context, bucket string, rules []types.CORSRule) error {
	ctx, span := c.startSpan(ctx, "PutBucketCORS", bucket, "")
	defer span.End()

	_, err := c.s3api.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket:            aws.String(bucket),
		CORSConfiguration: &types.CORSConfiguration{CORSRules: rules},
	})
	if err != nil {
		return c.fail(ctx, span, "PutBucketCORS", bucket, "", err)
	}
	return nil
}

func (c *Client) DeleteBucketCORS(ctx context.Context, bucket string) error {
	ctx, span := c.startSpan(ctx, "DeleteBucketCORS", bucket, "")
	defer span.End()

	if _, err := c.s3api.DeleteBucketCors(ctx, &s3.DeleteBucketCorsInput{Bucket: aws.String(bucket)}); err != nil {
		return c.fail(ctx, span, "DeleteBucketCORS", bucket, "", err)
	}
	return nil
}
