package storage

import (
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds connection settings for NewClient. Every field is optional;
// empty credentials fall back to the SDK's default resolution chain.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Endpoint     string
	UsePathStyle bool
}

// Bucket describes one bucket returned by ListBuckets.
type Bucket struct {
	Name         string
	CreationDate time.Time
}

// ProgressFunc receives the number of bytes read from the upload source
// since the previous call.
type ProgressFunc func(n int64)

// UploadRequest uploads a local file. Key defaults to FilePath.
type UploadRequest struct {
	Bucket   string
	FilePath string
	Key      string
	Extra    *ExtraArgs
	Progress ProgressFunc
	Transfer *TransferConfig

	// Wait, when positive, blocks until the object is visible or the
	// duration elapses.
	Wait time.Duration
}

// UploadStreamRequest uploads from a reader. Key defaults to Body's Name()
// when Body has one.
type UploadStreamRequest struct {
	Bucket   string
	Body     io.Reader
	Key      string
	Extra    *ExtraArgs
	Progress ProgressFunc
	Transfer *TransferConfig
}

// DownloadRequest downloads an object to a local file. Destination
// defaults to Key.
type DownloadRequest struct {
	Bucket      string
	Key         string
	Destination string
	Transfer    *TransferConfig
}

// DownloadStreamRequest downloads an object into an io.WriterAt, such as
// manager.WriteAtBuffer or an open *os.File.
type DownloadStreamRequest struct {
	Bucket      string
	Key         string
	Destination io.WriterAt
	Transfer    *TransferConfig
}

// PresignedPost is the form a browser submits to upload an object directly.
// Fields must be sent as multipart form fields before the file part.
type PresignedPost struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// PolicyDocument is a bucket policy. Principal, Action and Resource accept
// either a string or a list, as the vendor does.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	ID        string            `json:"Id,omitempty"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal any            `json:"Principal,omitempty"`
	Action    any            `json:"Action"`
	Resource  any            `json:"Resource"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// BucketACL is the owner and grant list of a bucket.
type BucketACL struct {
	Owner  *types.Owner
	Grants []types.Grant
}
