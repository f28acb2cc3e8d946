package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"
)

const (
	relayFilesPath      = "/v1/files"
	defaultRelayTimeout = 60 * time.Second
)

// RelayUploader sends files through the relay's upload endpoint, so clients
// never hold bucket credentials.
type RelayUploader struct {
	endpoint string
	token    string
	client   *http.Client
}

var _ Uploader = (*RelayUploader)(nil)

// NewRelayUploader returns an uploader for the relay at serverURL that
// authenticates with token.
func NewRelayUploader(serverURL, token string) (*RelayUploader, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, fmt.Errorf("relay url is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("relay token is required")
	}
	return &RelayUploader{
		endpoint: serverURL + relayFilesPath,
		token:    token,
		client:   &http.Client{Timeout: defaultRelayTimeout},
	}, nil
}

// Upload implements Uploader. key must come from ObjectKey.
func (u *RelayUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	topic, _, name, ok := ParseObjectKey(key)
	if !ok {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("topic", topic); err != nil {
		return "", err
	}
	if err := mw.WriteField("key", key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(name)))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return "", fmt.Errorf("upload %s: %s", key, failure.Error)
		}
		return "", fmt.Errorf("upload %s: unexpected status %d", key, resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload %s: response has no url", key)
	}
	return out.URL, nil
}
