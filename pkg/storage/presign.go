package storage

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignExpiry applies when a presign call is given no expiry.
const DefaultPresignExpiry = time.Hour

// PresignInput addresses an arbitrary presignable S3 operation. Method names
// the operation ("GetObject", "put_object", ...). Params holds its request
// parameters by API name: Bucket, Key, VersionId, ContentType, UploadId and
// PartNumber. HTTPMethod, when set, signs the request for that verb instead of
// the operation's own.
type PresignInput struct {
	Method     string
	Params     map[string]string
	Expires    time.Duration
	HTTPMethod string
}

// PresignPostInput describes a browser form upload. Fields are extra form
// fields handed back to the caller; they are not added to Conditions.
type PresignPostInput struct {
	Bucket     string
	Key        string
	Fields     map[string]string
	Conditions []any
	Expires    time.Duration
}

// PresignURL returns a time-limited GET URL for bucket/key.
func (c *Client) PresignURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	ctx, span := c.startSpan(ctx, "PresignURL", bucket, key)
	defer span.End()

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry(expires)))
	if err != nil {
		return "", c.fail(ctx, span, "PresignURL", bucket, key, err)
	}
	return req.URL, nil
}

// PresignRequest presigns the operation named by in.Method. Unknown method
// names fail with ErrInvalidArgument.
func (c *Client) PresignRequest(ctx context.Context, in PresignInput) (string, error) {
	bucket, key := in.Params["Bucket"], in.Params["Key"]
	ctx, span := c.startSpan(ctx, "PresignRequest", bucket, key)
	defer span.End()

	optFns := []func(*s3.PresignOptions){s3.WithPresignExpires(expiry(in.Expires))}
	if in.HTTPMethod != "" {
		optFns = append(optFns, withHTTPMethod(in.HTTPMethod))
	}

	req, err := c.presignByName(ctx, in.Method, in.Params, optFns)
	if err != nil {
		if se, ok := err.(*Error); ok {
			c.report(ctx, span, se)
			return "", se
		}
		return "", c.fail(ctx, span, "PresignRequest", bucket, key, err)
	}
	return req.URL, nil
}

func (c *Client) presignByName(ctx context.Context, method string, params map[string]string, optFns []func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	bucket := optString(params, "Bucket")
	key := optString(params, "Key")

	switch normalizeMethod(method) {
	case "getobject":
		return c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket:    bucket,
			Key:       key,
			VersionId: optString(params, "VersionId"),
		}, optFns...)
	case "putobject":
		return c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      bucket,
			Key:         key,
			ContentType: optString(params, "ContentType"),
		}, optFns...)
	case "deleteobject":
		return c.presigner.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket:    bucket,
			Key:       key,
			VersionId: optString(params, "VersionId"),
		}, optFns...)
	case "headobject":
		return c.presigner.PresignHeadObject(ctx, &s3.HeadObjectInput{
			Bucket:    bucket,
			Key:       key,
			VersionId: optString(params, "VersionId"),
		}, optFns...)
	case "headbucket":
		return c.presigner.PresignHeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: bucket,
		}, optFns...)
	case "uploadpart":
		in := &s3.UploadPartInput{
			Bucket:   bucket,
			Key:      key,
			UploadId: optString(params, "UploadId"),
		}
		if s, ok := params["PartNumber"]; ok {
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, invalidArgument("PresignRequest", aws.ToString(bucket), aws.ToString(key),
					fmt.Errorf("PartNumber %q: %w", s, err))
			}
			in.PartNumber = aws.Int32(int32(n))
		}
		return c.presigner.PresignUploadPart(ctx, in, optFns...)
	default:
		return nil, invalidArgument("PresignRequest", aws.ToString(bucket), aws.ToString(key),
			fmt.Errorf("unsupported presign method %q", method))
	}
}

// PresignPost returns the URL and form fields for a browser POST upload.
func (c *Client) PresignPost(ctx context.Context, in PresignPostInput) (*PresignedPost, error) {
	ctx, span := c.startSpan(ctx, "PresignPost", in.Bucket, in.Key)
	defer span.End()

	req, err := c.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.Key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = expiry(in.Expires)
		o.Conditions = append(o.Conditions, in.Conditions...)
	})
	if err != nil {
		return nil, c.fail(ctx, span, "PresignPost", in.Bucket, in.Key, err)
	}

	fields := maps.Clone(in.Fields)
	if fields == nil {
		fields = make(map[string]string, len(req.Values))
	}
	maps.Copy(fields, req.Values)
	return &PresignedPost{URL: req.URL, Fields: fields}, nil
}

func expiry(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPresignExpiry
	}
	return d
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.ReplaceAll(method, "_", ""))
}

func optString(params map[string]string, name string) *string {
	if v, ok := params[name]; ok {
		return aws.String(v)
	}
	return nil
}

// methodPresigner signs the request under a different HTTP verb.
type methodPresigner struct {
	method string
	next   s3.HTTPPresignerV4
}

func withHTTPMethod(method string) func(*s3.PresignOptions) {
	return func(o *s3.PresignOptions) {
		o.Presigner = &methodPresigner{method: strings.ToUpper(method), next: o.Presigner}
	}
}

func (p *methodPresigner) PresignHTTP(
	ctx context.Context, credentials aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	r.Method = p.method
	return p.next.PresignHTTP(ctx, credentials, r, payloadHash, service, region, signingTime, optFns...)
}
