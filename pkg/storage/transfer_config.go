package storage

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
)

// TransferConfig controls how the transfer manager splits and parallelises
// uploads and downloads. Zero fields leave the manager's defaults in place.
type TransferConfig struct {
	// MultipartThreshold is the size above which transfers are split into
	// parts. Used as the part size when MultipartChunkSize is unset. Part
	// sizes below manager.MinUploadPartSize are raised to it.
	MultipartThreshold int64
	MultipartChunkSize int64
	MaxConcurrency     int

	// UseThreads set to false forces single-part-at-a-time transfers.
	UseThreads *bool
}

// TransferOption sets one TransferConfig field.
type TransferOption func(*TransferConfig)

func WithMultipartThreshold(n int64) TransferOption {
	return func(tc *TransferConfig) {
		tc.MultipartThreshold = n
	}
}

func WithMultipartChunkSize(n int64) TransferOption {
	return func(tc *TransferConfig) {
		tc.MultipartChunkSize = n
	}
}

func WithMaxConcurrency(n int) TransferOption {
	return func(tc *TransferConfig) {
		tc.MaxConcurrency = n
	}
}

func WithUseThreads(b bool) TransferOption {
	return func(tc *TransferConfig) {
		tc.UseThreads = &b
	}
}

// NewTransferConfig builds a configuration from opts starting from provider
// defaults. It does not touch any Client.
func NewTransferConfig(opts ...TransferOption) TransferConfig {
	var tc TransferConfig
	for _, opt := range opts {
		opt(&tc)
	}
	return tc
}

// PutTransferConfig replaces the client's default transfer configuration.
// Fields not set by opts revert to provider defaults; nothing is carried over
// from the previous configuration. It returns the installed value.
func (c *Client) PutTransferConfig(opts ...TransferOption) TransferConfig {
	tc := NewTransferConfig(opts...)
	c.transfer.Store(&tc)
	return tc
}

// DefaultTransferConfig returns a copy of the current default.
func (c *Client) DefaultTransferConfig() TransferConfig {
	return *c.transfer.Load()
}

func (c *Client) resolveTransfer(tc *TransferConfig) TransferConfig {
	if tc != nil {
		return *tc
	}
	return c.DefaultTransferConfig()
}

// partSize is never below manager.MinUploadPartSize, which the manager
// rejects outright.
func (tc TransferConfig) partSize() int64 {
	n := tc.MultipartThreshold
	if tc.MultipartChunkSize > 0 {
		n = tc.MultipartChunkSize
	}
	if n > 0 && n < manager.MinUploadPartSize {
		n = manager.MinUploadPartSize
	}
	return n
}

func (tc TransferConfig) concurrency() int {
	if tc.UseThreads != nil && !*tc.UseThreads {
		return 1
	}
	return tc.MaxConcurrency
}

func (tc TransferConfig) uploaderOptions(u *manager.Uploader) {
	if n := tc.partSize(); n > 0 {
		u.PartSize = n
	}
	if n := tc.concurrency(); n > 0 {
		u.Concurrency = n
	}
}

func (tc TransferConfig) downloaderOptions(d *manager.Downloader) {
	if n := tc.partSize(); n > 0 {
		d.PartSize = n
	}
	if n := tc.concurrency(); n > 0 {
		d.Concurrency = n
	}
}
