package images

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Downloaded is a remote image fetched into memory.
type Downloaded struct {
	Data        []byte
	ContentType string
	FileName    string
}

const maxDownloadBytes = 20 << 20

// Download fetches rawURL with client, or http.DefaultClient when nil.
func Download(ctx context.Context, client *http.Client, rawURL string) (Downloaded, error) {
	if client == nil {
		client = http.DefaultClient
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Downloaded{}, fmt.Errorf("parse image url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Downloaded{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Downloaded{}, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Downloaded{}, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return Downloaded{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(data) > maxDownloadBytes {
		return Downloaded{}, fmt.Errorf("download %s: image larger than %d bytes", rawURL, maxDownloadBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileName := path.Base(parsed.Path)
	if fileName == "" || fileName == "/" || fileName == "." {
		fileName = "image.jpg"
	}
	if path.Ext(fileName) == "" {
		if exts, _ := mime.ExtensionsByType(strings.Split(contentType, ";")[0]); len(exts) > 0 {
			fileName += exts[0]
		}
	}
	return Downloaded{Data: data, ContentType: contentType, FileName: fileName}, nil
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// ContentType maps an image file extension to its MIME type.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
