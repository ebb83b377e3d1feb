package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

// mockS3API is an in-memory S3API. Errors set in errs are returned by the
// method of the same name.
type mockS3API struct {
	mu sync.Mutex

	objects map[string][]byte
	errs    map[string]error

	createBucketInput *s3.CreateBucketInput
	putObjectInputs   []*s3.PutObjectInput
	deletedKeys       []string
	buckets           []types.Bucket

	createMultipartUploadCalled bool
	uploadPartCalls             int
	completeMultipartCalled     bool

	policy   *string
	website  *s3.PutBucketWebsiteInput
	cors     []types.CORSRule
	acl      *s3.GetBucketAclOutput
	deletes  []string
	parts    map[int32][]byte
	partsKey string
}

func newMockS3API() *mockS3API {
	return &mockS3API{
		objects: map[string][]byte{},
		errs:    map[string]error{},
		parts:   map[int32][]byte{},
	}
}

func (m *mockS3API) err(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[op]
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " (mock)"}
}

func (m *mockS3API) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if err := m.err("CreateBucket"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createBucketInput = in
	return &s3.CreateBucketOutput{}, nil
}

func (m *mockS3API) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, _ ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	if err := m.err("DeleteBucket"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, "bucket:"+aws.ToString(in.Bucket))
	return &s3.DeleteBucketOutput{}, nil
}

func (m *mockS3API) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if err := m.err("ListBuckets"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &s3.ListBucketsOutput{Buckets: m.buckets}, nil
}

func (m *mockS3API) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := m.err("ListObjectsV2"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (m *mockS3API) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if err := m.err("HeadObject"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *mockS3API) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := aws.ToString(in.Key)
	if err := m.errs["DeleteObject:"+key]; err != nil {
		return nil, err
	}
	delete(m.objects, key)
	m.deletedKeys = append(m.deletedKeys, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3API) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := m.err("PutObject"); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putObjectInputs = append(m.putObjectInputs, in)
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3API) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := m.err("GetObject"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.objects[aws.ToString(in.Key)]
	m.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}

	start, end := int64(0), int64(len(data))-1
	if r := aws.ToString(in.Range); strings.HasPrefix(r, "bytes=") {
		bounds := strings.SplitN(strings.TrimPrefix(r, "bytes="), "-", 2)
		start, _ = strconv.ParseInt(bounds[0], 10, 64)
		if e, err := strconv.ParseInt(bounds[1], 10, 64); err == nil && e < end {
			end = e
		}
	}
	chunk := data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(chunk)),
		ContentLength: aws.Int64(int64(len(chunk))),
		ContentRange:  aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, len(data))),
	}, nil
}

func (m *mockS3API) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createMultipartUploadCalled = true
	m.partsKey = aws.ToString(in.Key)
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-id")}, nil
}

func (m *mockS3API) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if err := m.err("UploadPart"); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadPartCalls++
	m.parts[aws.ToInt32(in.PartNumber)] = data
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("etag-%d", aws.ToInt32(in.PartNumber)))}, nil
}

func (m *mockS3API) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeMultipartCalled = true
	var data []byte
	for i := int32(1); i <= int32(len(m.parts)); i++ {
		data = append(data, m.parts[i]...)
	}
	m.objects[m.partsKey] = data
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (m *mockS3API) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (m *mockS3API) GetBucketPolicy(ctx context.Context, in *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if err := m.err("GetBucketPolicy"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.policy == nil {
		return nil, apiError("NoSuchBucketPolicy")
	}
	return &s3.GetBucketPolicyOutput{Policy: m.policy}, nil
}

func (m *mockS3API) PutBucketPolicy(ctx context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	if err := m.err("PutBucketPolicy"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = in.Policy
	return &s3.PutBucketPolicyOutput{}, nil
}

func (m *mockS3API) DeleteBucketPolicy(ctx context.Context, in *s3.DeleteBucketPolicyInput, _ ...func(*s3.Options)) (*s3.DeleteBucketPolicyOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = nil
	m.deletes = append(m.deletes, "policy")
	return &s3.DeleteBucketPolicyOutput{}, nil
}

func (m *mockS3API) GetBucketAcl(ctx context.Context, in *s3.GetBucketAclInput, _ ...func(*s3.Options)) (*s3.GetBucketAclOutput, error) {
	if err := m.err("GetBucketAcl"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acl, nil
}

func (m *mockS3API) GetBucketWebsite(ctx context.Context, in *s3.GetBucketWebsiteInput, _ ...func(*s3.Options)) (*s3.GetBucketWebsiteOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.website == nil {
		return nil, apiError("NoSuchWebsiteConfiguration")
	}
	cfg := m.website.WebsiteConfiguration
	return &s3.GetBucketWebsiteOutput{IndexDocument: cfg.IndexDocument, ErrorDocument: cfg.ErrorDocument}, nil
}

func (m *mockS3API) PutBucketWebsite(ctx context.Context, in *s3.PutBucketWebsiteInput, _ ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.website = in
	return &s3.PutBucketWebsiteOutput{}, nil
}

func (m *mockS3API) DeleteBucketWebsite(ctx context.Context, in *s3.DeleteBucketWebsiteInput, _ ...func(*s3.Options)) (*s3.DeleteBucketWebsiteOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.website = nil
	m.deletes = append(m.deletes, "website")
	return &s3.DeleteBucketWebsiteOutput{}, nil
}

func (m *mockS3API) GetBucketCors(ctx context.Context, in *s3.GetBucketCorsInput, _ ...func(*s3.Options)) (*s3.GetBucketCorsOutput, error) {
	if err := m.err("GetBucketCors"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cors == nil {
		return nil, apiError("NoSuchCORSConfiguration")
	}
	return &s3.GetBucketCorsOutput{CORSRules: m.cors}, nil
}

func (m *mockS3API) PutBucketCors(ctx context.Context, in *s3.PutBucketCorsInput, _ ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error) {
	if err := m.err("PutBucketCors"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cors = in.CORSConfiguration.CORSRules
	return &s3.PutBucketCorsOutput{}, nil
}

func (m *mockS3API) DeleteBucketCors(ctx context.Context, in *s3.DeleteBucketCorsInput, _ ...func(*s3.Options)) (*s3.DeleteBucketCorsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cors = nil
	m.deletes = append(m.deletes, "cors")
	return &s3.DeleteBucketCorsOutput{}, nil
}

// mockPresigner records the last request and the options it was given.
type mockPresigner struct {
	err      error
	postResp *s3.PresignedPostRequest

	lastOp      string
	lastBucket  string
	lastKey     string
	lastOptions s3.PresignOptions
	lastPost    s3.PresignPostOptions
	partNumber  *int32
}

func (p *mockPresigner) presign(op string, bucket, key *string, optFns []func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	p.lastOp = op
	p.lastBucket = aws.ToString(bucket)
	p.lastKey = aws.ToString(key)
	p.lastOptions = s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&p.lastOptions)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &v4.PresignedHTTPRequest{
		URL:    fmt.Sprintf("https://%s.s3.amazonaws.com/%s?X-Amz-Expires=%d&op=%s", p.lastBucket, p.lastKey, int(p.lastOptions.Expires.Seconds()), op),
		Method: "GET",
	}, nil
}

func (p *mockPresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return p.presign("GetObject", in.Bucket, in.Key, optFns)
}

func (p *mockPresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return p.presign("PutObject", in.Bucket, in.Key, optFns)
}

func (p *mockPresigner) PresignDeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return p.presign("DeleteObject", in.Bucket, in.Key, optFns)
}

func (p *mockPresigner) PresignHeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return p.presign("HeadObject", in.Bucket, in.Key, optFns)
}

func (p *mockPresigner) PresignHeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return p.presign("HeadBucket", in.Bucket, nil, optFns)
}

func (p *mockPresigner) PresignUploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	p.partNumber = in.PartNumber
	return p.presign("UploadPart", in.Bucket, in.Key, optFns)
}

func (p *mockPresigner) PresignPostObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error) {
	p.lastOp = "PostObject"
	p.lastBucket = aws.ToString(in.Bucket)
	p.lastKey = aws.ToString(in.Key)
	p.lastPost = s3.PresignPostOptions{}
	for _, fn := range optFns {
		fn(&p.lastPost)
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.postResp, nil
}

// logBuffer captures JSON log records from a Client.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Count(l.buf.String(), `"msg":"`+msg+`"`)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

type testClient struct {
	*Client
	api       *mockS3API
	presigner *mockPresigner
	logs      *logBuffer
	console   *bytes.Buffer
}

func newTestClient(t *testing.T, region string, opts ...Option) *testClient {
	t.Helper()
	tc := &testClient{
		api:       newMockS3API(),
		presigner: &mockPresigner{},
		logs:      &logBuffer{},
		console:   &bytes.Buffer{},
	}
	opts = append([]Option{
		WithLogger(slog.New(slog.NewJSONHandler(tc.logs, nil))),
		WithConsole(tc.console),
	}, opts...)
	tc.Client = newClient(tc.api, tc.presigner, region, opts...)
	return tc
}

const failureMsg = "S3 operation failed"

// createTempFile creates a temporary file of a specified size
func createTempFile(t *testing.T, size int64) string {
	t.Helper()
	dir := t.TempDir()
	filePath := filepath.Join(dir, "testfile.bin")

	f, err := os.Create(filePath)
	require.NoError(t, err)
	defer f.Close()

	data := bytes.Repeat([]byte("A"), 1024)
	var written int64

	for written < size {
		toWrite := size - written
		if toWrite > int64(len(data)) {
			toWrite = int64(len(data))
		}
		_, err := f.Write(data[:toWrite])
		require.NoError(t, err)
		written += toWrite
	}
	return filePath
}

func fixedTime() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}
