// Package drive uploads finished artifacts to a shareable-link file store.
// The default backend speaks the Google Drive v3 REST surface; an FTP
// backend is available for self-hosted drops.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/rotisserie/eris"
)

// Uploader stores a byte stream under a filename and returns a public,
// shareable URL for it.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// Option configures the Drive client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token    string
	folderID string
	baseURL  string
	http     *http.Client
}

// NewClient creates a Drive uploader. Uploaded files land in folderID and are
// made world-readable before the share link is returned.
func NewClient(token, folderID string, opts ...Option) Uploader {
	c := &httpClient{
		token:    token,
		folderID: folderID,
		baseURL:  "https://www.googleapis.com",
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fileMetadata struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents,omitempty"`
}

type createdFile struct {
	ID string `json:"id"`
}

func (c *httpClient) Upload(ctx context.Context, r io.Reader, fileName string) (string, error) {
	id, err := c.createFile(ctx, r, fileName)
	if err != nil {
		return "", err
	}

	if err := c.shareFile(ctx, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", id), nil
}

// createFile performs a multipart upload (metadata part + media part) and
// returns the new file ID.
func (c *httpClient) createFile(ctx context.Context, r io.Reader, fileName string) (string, error) {
	meta := fileMetadata{Name: fileName}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", eris.Wrap(err, "drive: marshal metadata")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", eris.Wrap(err, "drive: create metadata part")
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return "", eris.Wrap(err, "drive: write metadata part")
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "text/csv")
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return "", eris.Wrap(err, "drive: create media part")
	}
	if _, err := io.Copy(mediaPart, r); err != nil {
		return "", eris.Wrap(err, "drive: write media part")
	}
	if err := mw.Close(); err != nil {
		return "", eris.Wrap(err, "drive: close multipart body")
	}

	reqURL := c.baseURL + "/upload/drive/v3/files?uploadType=multipart&fields=id"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return "", eris.Wrap(err, "drive: create upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "drive: upload request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "drive: read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("drive: upload status %d: %s", resp.StatusCode, string(body))
	}

	var created createdFile
	if err := json.Unmarshal(body, &created); err != nil {
		return "", eris.Wrap(err, "drive: unmarshal upload response")
	}
	if created.ID == "" {
		return "", eris.New("drive: upload response missing file id")
	}
	return created.ID, nil
}

// shareFile grants anyone-with-the-link read access.
func (c *httpClient) shareFile(ctx context.Context, fileID string) error {
	perm := map[string]string{"type": "anyone", "role": "reader"}
	permJSON, err := json.Marshal(perm)
	if err != nil {
		return eris.Wrap(err, "drive: marshal permission")
	}

	reqURL := fmt.Sprintf("%s/drive/v3/files/%s/permissions", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(permJSON))
	if err != nil {
		return eris.Wrap(err, "drive: create permission request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "drive: permission request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return eris.Errorf("drive: permission status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
