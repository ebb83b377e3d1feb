package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zhukov-alex/s3facade/internal/config"
	"github.com/zhukov-alex/s3facade/pkg/storage"
)

var postDemoCmd = &cobra.Command{
	Use:   "post-demo",
	Short: "Presign a POST and upload the local file named like the object",
	Long: `Generates a presigned POST for demo.object in demo.bucket, then uploads the
local file of the same name through it, as a browser would. Prints the HTTP
status code of the upload; S3 answers 204 on success.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return runPostDemo(cmd.Context(), cfg, http.DefaultClient)
	},
}

func runPostDemo(ctx context.Context, cfg *config.Config, httpClient *http.Client) error {
	client, err := storage.NewClient(ctx, cfg.S3(), storage.WithTransferConfig(cfg.TransferOptions()))
	if err != nil {
		return err
	}

	post, err := client.PresignPost(ctx, storage.PresignPostInput{
		Bucket: cfg.Demo.Bucket,
		Key:    cfg.Demo.Object,
	})
	if err != nil {
		// already logged by the client
		return err
	}

	status, err := postFile(ctx, httpClient, post, cfg.Demo.Object)
	if err != nil {
		slog.ErrorContext(ctx, "File upload failed", slog.Any("error", err))
		return err
	}
	slog.InfoContext(ctx, "File upload HTTP status code", slog.Int("status", status))
	return nil
}

// postFile submits path to a presigned POST as multipart form data. The
// signed fields precede the file part, which S3 requires.
func postFile(ctx context.Context, httpClient *http.Client, post *storage.PresignedPost, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	names := make([]string, 0, len(post.Fields))
	for name := range post.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, post.Fields[name]); err != nil {
			return 0, err
		}
	}

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, post.URL, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
