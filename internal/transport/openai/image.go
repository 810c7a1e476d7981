package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
)

const defaultMaxImageBytes = 10 << 20

// imageFetcher downloads an image and encodes it as a base64 data URL.
type imageFetcher struct {
	client   *http.Client
	maxBytes int64
}

func (f *imageFetcher) dataURL(ctx context.Context, imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: unsupported image url %q", domain.ErrInvalidImage, imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidImage, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download: %w", domain.ErrInvalidImage, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: download status %d", domain.ErrInvalidImage, resp.StatusCode)
	}

	limit := f.maxBytes
	if limit <= 0 {
		limit = defaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("%w: read: %w", domain.ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty body", domain.ErrInvalidImage)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: larger than %d bytes", domain.ErrInvalidImage, limit)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		// Some CDNs serve images as octet-stream; trust a declared image type.
		declared := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(declared, "image/") {
			return "", fmt.Errorf("%w: content type %q", domain.ErrInvalidImage, contentType)
		}
		contentType = declared
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
