// Package netx uploads export archives to presigned object storage URLs.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anbuneel/zenote-sub001/internal/common"
)

// UploadToPresignedURL PUTs body to url. Transport failures become
// NetworkError and non-2xx answers ClientError or ServerError so the
// caller can retry them with the shared policy.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url string, body []byte) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return &common.ValidationError{Field: "url", Reason: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return &common.NetworkError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := fmt.Sprintf("upload failed: %s; body: %s", resp.Status, string(b))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &common.RateLimitError{Message: msg}
	}
	if resp.StatusCode >= 500 {
		return &common.ServerError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &common.ClientError{StatusCode: resp.StatusCode, Message: msg}
}
