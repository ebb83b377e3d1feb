package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	errNoSource      = errors.New("no upload source")
	errNoKey         = errors.New("object key required for unnamed stream")
	errNoDestination = errors.New("no download destination")
)

// Upload uploads a local file through the transfer manager, which switches to
// multipart above the configured part size.
func (c *Client) Upload(ctx context.Context, req UploadRequest) error {
	key := req.Key
	if key == "" {
		key = req.FilePath
	}
	ctx, span := c.startSpan(ctx, "Upload", req.Bucket, key)
	defer span.End()

	if req.FilePath == "" {
		se := invalidArgument("Upload", req.Bucket, key, errNoSource)
		c.report(ctx, span, se)
		return se
	}

	file, err := os.Open(req.FilePath)
	if err != nil {
		return c.fail(ctx, span, "Upload", req.Bucket, key, err)
	}
	defer file.Close()

	n, err := c.put(ctx, req.Bucket, key, withProgress(file, req.Progress), req.Extra, c.resolveTransfer(req.Transfer))
	if err != nil {
		return c.fail(ctx, span, "Upload", req.Bucket, key, err)
	}
	c.recordUpload(ctx, req.Bucket, n)

	if req.Wait > 0 {
		err = s3.NewObjectExistsWaiter(c.s3api).Wait(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(req.Bucket),
			Key:    aws.String(key),
		}, req.Wait)
		if err != nil {
			return c.fail(ctx, span, "Upload", req.Bucket, key, err)
		}
	}
	return nil
}

// UploadStream uploads everything read from req.Body.
func (c *Client) UploadStream(ctx context.Context, req UploadStreamRequest) error {
	key := req.Key
	if named, ok := req.Body.(interface{ Name() string }); ok && key == "" {
		key = named.Name()
	}
	ctx, span := c.startSpan(ctx, "UploadStream", req.Bucket, key)
	defer span.End()

	var argErr error
	switch {
	case req.Body == nil:
		argErr = errNoSource
	case key == "":
		argErr = errNoKey
	}
	if argErr != nil {
		se := invalidArgument("UploadStream", req.Bucket, key, argErr)
		c.report(ctx, span, se)
		return se
	}

	n, err := c.put(ctx, req.Bucket, key, withProgress(req.Body, req.Progress), req.Extra, c.resolveTransfer(req.Transfer))
	if err != nil {
		return c.fail(ctx, span, "UploadStream", req.Bucket, key, err)
	}
	c.recordUpload(ctx, req.Bucket, n)
	return nil
}

// put hands seekable bodies to the manager unwrapped so it can size the
// upload and read parts in place. Other bodies are counted as they stream.
func (c *Client) put(ctx context.Context, bucket, key string, body io.Reader, extra *ExtraArgs, tc TransferConfig) (int64, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	extra.apply(in)

	size := int64(-1)
	if s, ok := body.(io.Seeker); ok {
		n, err := aws.SeekerLen(s)
		if err != nil {
			return 0, err
		}
		size = n
	}
	var counter *countingReader
	if size < 0 {
		counter = &countingReader{r: body}
		in.Body = counter
	}

	uploader := manager.NewUploader(c.s3api, tc.uploaderOptions)
	if _, err := uploader.Upload(ctx, in); err != nil {
		return 0, err
	}
	if counter != nil {
		return counter.n, nil
	}
	return size, nil
}

// Download writes an object to a local file. The file is written under a
// temporary name next to the destination and renamed once complete.
func (c *Client) Download(ctx context.Context, req DownloadRequest) (int64, error) {
	dest := req.Destination
	if dest == "" {
		dest = req.Key
	}
	ctx, span := c.startSpan(ctx, "Download", req.Bucket, req.Key)
	defer span.End()
	span.SetAttributes(attribute.String("destination", dest))

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, c.fail(ctx, span, "Download", req.Bucket, req.Key, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, c.fail(ctx, span, "Download", req.Bucket, req.Key, err)
	}

	n, err := c.get(ctx, req.Bucket, req.Key, tmp, c.resolveTransfer(req.Transfer))
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, c.fail(ctx, span, "Download", req.Bucket, req.Key, err)
	}

	c.recordDownload(ctx, req.Bucket, n)
	return n, nil
}

// DownloadStream writes an object into req.Destination.
func (c *Client) DownloadStream(ctx context.Context, req DownloadStreamRequest) (int64, error) {
	ctx, span := c.startSpan(ctx, "DownloadStream", req.Bucket, req.Key)
	defer span.End()

	if req.Destination == nil {
		se := invalidArgument("DownloadStream", req.Bucket, req.Key, errNoDestination)
		c.report(ctx, span, se)
		return 0, se
	}

	n, err := c.get(ctx, req.Bucket, req.Key, req.Destination, c.resolveTransfer(req.Transfer))
	if err != nil {
		return 0, c.fail(ctx, span, "DownloadStream", req.Bucket, req.Key, err)
	}
	c.recordDownload(ctx, req.Bucket, n)
	return n, nil
}

func (c *Client) get(ctx context.Context, bucket, key string, w io.WriterAt, tc TransferConfig) (int64, error) {
	downloader := manager.NewDownloader(c.s3api, tc.downloaderOptions)
	return downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
}

func (c *Client) recordUpload(ctx context.Context, bucket string, n int64) {
	attrs := metric.WithAttributes(attribute.String("bucket", bucket))
	uploadCount.Add(ctx, 1, attrs)
	uploadBytes.Add(ctx, n, attrs)
}

func (c *Client) recordDownload(ctx context.Context, bucket string, n int64) {
	attrs := metric.WithAttributes(attribute.String("bucket", bucket))
	downloadCount.Add(ctx, 1, attrs)
	downloadBytes.Add(ctx, n, attrs)
}

type readerAtSeeker interface {
	io.ReaderAt
	io.ReadSeeker
}

// withProgress reports bytes read from r to fn. A source the manager can
// read in place keeps ReadAt and Seek.
func withProgress(r io.Reader, fn ProgressFunc) io.Reader {
	if fn == nil || r == nil {
		return r
	}
	if ras, ok := r.(readerAtSeeker); ok {
		return &progressReaderAt{progressReader: progressReader{r: ras, fn: fn}, ras: ras}
	}
	return &progressReader{r: r, fn: fn}
}

type progressReader struct {
	r  io.Reader
	fn ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(int64(n))
	}
	return n, err
}

type progressReaderAt struct {
	progressReader
	ras readerAtSeeker
}

func (p *progressReaderAt) ReadAt(b []byte, off int64) (int, error) {
	n, err := p.ras.ReadAt(b, off)
	if n > 0 {
		p.fn(int64(n))
	}
	return n, err
}

func (p *progressReaderAt) Seek(offset int64, whence int) (int64, error) {
	return p.ras.Seek(offset, whence)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
