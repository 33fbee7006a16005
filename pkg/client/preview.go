package client

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// PreviewKind is how a client should present a document
type PreviewKind string

const (
	PreviewImage    PreviewKind = "image"
	PreviewPDF      PreviewKind = "pdf"
	PreviewDownload PreviewKind = "download"
)

// Preview is an open document response. The caller closes Body.
type Preview struct {
	Kind        PreviewKind
	ContentType string
	FileName    string
	Size        int64
	Body        io.ReadCloser
}

func (p *Preview) Close() error {
	return p.Body.Close()
}

// Preview fetches a stored document. width > 0 asks for a resized image.
func (c *Client) Preview(ctx context.Context, s *Session, fileName string, width int) (*Preview, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/preview/"+url.PathEscape(fileName), widthQuery(width), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req, s)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	disposition, name := parseDisposition(resp.Header.Get("Content-Disposition"))

	return &Preview{
		Kind:        previewKind(contentType, disposition),
		ContentType: contentType,
		FileName:    name,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func previewKind(contentType, disposition string) PreviewKind {
	if disposition == "attachment" {
		return PreviewDownload
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return PreviewImage
	case mediaType == "application/pdf":
		return PreviewPDF
	default:
		return PreviewDownload
	}
}

func parseDisposition(header string) (string, string) {
	if header == "" {
		return "", ""
	}
	disposition, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", ""
	}
	return disposition, params["filename"]
}
