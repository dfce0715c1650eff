// Package media uploads profile images to an external hosting service.
// Uploads are best-effort from signup's point of view: a failure is reported
// on its own error channel and must never abort account creation.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Uploader struct {
	client    *resty.Client
	uploadURL string
	preset    string
	apiKey    string
}

type uploadResult struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// NewUploader returns nil when no upload endpoint is configured; callers
// treat a nil uploader as "no image hosting available".
func NewUploader(uploadURL, preset, apiKey string) *Uploader {
	if uploadURL == "" {
		return nil
	}
	return &Uploader{
		client:    resty.New().SetTimeout(15 * time.Second),
		uploadURL: uploadURL,
		preset:    preset,
		apiKey:    apiKey,
	}
}

// Upload posts the image bytes and returns the hosted URL.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	var result uploadResult
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetFormData(map[string]string{
			"upload_preset": u.preset,
			"api_key":       u.apiKey,
		}).
		SetResult(&result).
		Post(u.uploadURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload rejected: %s", resp.Status())
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	if result.URL != "" {
		return result.URL, nil
	}
	return "", errors.New("upload response missing url")
}
