package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
)

// maxRemoteResponse bounds the analysis document read from a remote service
const maxRemoteResponse = 8 << 20

// Remote implements the Analyzer interface by uploading the photo to an
// external analysis service
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates an Analyzer for the service at baseURL
func NewRemote(baseURL string) (*Remote, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote analysis url is required")
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// AnalyzeFood posts the photo as multipart field "file" to <base>/analyze and
// returns the response body unchanged
func (r *Remote) AnalyzeFood(ctx context.Context, imageData []byte, contentType string) ([]byte, error) {
	img, err := prepareImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="food.%s"`, img.format()))
	header.Set("Content-Type", img.mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(img.data); err != nil {
		return nil, fmt.Errorf("writing form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("calling analysis service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, errorDetail(data))
	}

	return data, nil
}

// errorDetail pulls a readable message from an error body, preferring the
// "detail" or "error" field of a JSON object
func errorDetail(body []byte) string {
	if obj, err := jason.NewObjectFromBytes(body); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if s, err := obj.GetString(key); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}

// Close is a no-op for the HTTP client
func (r *Remote) Close() error {
	return nil
}
