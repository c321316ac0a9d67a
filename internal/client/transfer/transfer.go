// Package transfer streams a local file to a pre-signed object storage URL.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/pontos/internal/client/models"
	"github.com/dmitrijs2005/pontos/internal/common"
)

// Progress receives the number of bytes sent so far and the total.
type Progress func(sent, total int64)

type Client struct {
	http     *http.Client
	maxBytes int64
}

func New() *Client {
	return &Client{http: &http.Client{}, maxBytes: common.MaxAudioSizeBytes}
}

// UploadBytes sends the file at path as the body of the signed request.
// A file over the size ceiling fails with ErrPayloadTooLarge before any
// network I/O; every other failure wraps ErrTransferFailed.
func (c *Client) UploadBytes(ctx context.Context, up models.SignedUpload, path, mimeType string, onProgress Progress) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	size := st.Size()
	if size > c.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", common.ErrPayloadTooLarge, size, c.maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	defer f.Close()

	method := up.Method
	if method == "" {
		method = http.MethodPut
	}

	var body io.Reader = io.LimitReader(f, size)
	if onProgress != nil {
		onProgress(0, size)
		body = &progressReader{r: body, total: size, report: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, method, up.URL, body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	req.ContentLength = size
	for k, v := range up.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out", common.ErrTransferFailed)
		}
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: upload failed: %s; body: %s", common.ErrTransferFailed, resp.Status, string(b))
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent, p.total)
	}
	return n, err
}
