package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"rsc.io/pdf"
)

// Download is a file fetched through the resume webhook.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
	// Pages is set for PDF payloads.
	Pages int
}

var filenamePattern = regexp.MustCompile(`filename\*?=(?:UTF-8'')?"?([^";]+)"?`)

// DownloadResume fetches the resume file. Like the contact call it has no client-side timeout.
func (c *Client) DownloadResume(ctx context.Context) (*Download, error) {
	if !c.ResumeConfigured() {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ResumeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.do(ctx, req, maxDownloadBytes)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, &ResponseFormatError{Err: errors.New("empty file")}
	}

	d := &Download{
		FileName:    FileNameFromDisposition(resp.Header.Get("Content-Disposition"), c.cfg.ResumeFileName),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
	}
	if d.ContentType == "" {
		d.ContentType = http.DetectContentType(d.Data)
	}

	if isPDF(d) {
		r, err := pdf.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
		if err != nil {
			return nil, &ResponseFormatError{Err: fmt.Errorf("unreadable pdf: %w", err)}
		}
		d.Pages = r.NumPage()
		d.ContentType = "application/pdf"
	}

	c.logger.Info("resume downloaded", "file", d.FileName, "bytes", len(d.Data), "pages", d.Pages)
	return d, nil
}

// FileNameFromDisposition returns the filename parameter of a Content-Disposition
// header, or fallback when there is none.
func FileNameFromDisposition(header, fallback string) string {
	if header == "" {
		return fallback
	}
	name := ""
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	}
	if name == "" {
		if m := filenamePattern.FindStringSubmatch(header); len(m) > 1 {
			name = m[1]
		}
	}
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}

func isPDF(d *Download) bool {
	return strings.Contains(strings.ToLower(d.ContentType), "pdf") ||
		strings.HasSuffix(strings.ToLower(d.FileName), ".pdf") ||
		bytes.HasPrefix(d.Data, []byte("%PDF-"))
}
