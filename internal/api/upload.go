package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

// UploadResult is the server's answer to an import upload: a handle for the
// stored file and the column headers it detected.
type UploadResult struct {
	FileID  string   `json:"fileId"`
	Headers []string `json:"headers"`
}

// ProcessRequest asks the server to import a previously uploaded file.
// Mapping goes from logical field name to detected header.
type ProcessRequest struct {
	FileID  string            `json:"fileId"`
	Mapping map[string]string `json:"mapping"`
}

// Upload sends the raw file for header detection. The client does not parse
// the file.
func (c *Client) Upload(ctx context.Context, entity, filename string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, filepath.Base(filename))
	if err != nil {
		return UploadResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	path := entityPath(entity, "upload")
	raw, err := c.do(ctx, http.MethodPost, path, nil, mw.FormDataContentType(), &buf)
	if err != nil {
		return UploadResult{}, err
	}

	var out UploadResult
	if err := decode(path, raw, &out); err != nil {
		return UploadResult{}, err
	}
	if out.FileID == "" {
		return UploadResult{}, &DecodeError{Path: path, Body: excerpt(raw), Err: fmt.Errorf("%w: fileId", errMissingField)}
	}
	if out.Headers == nil {
		out.Headers = []string{}
	}
	return out, nil
}

// Process imports an uploaded file with the given column mapping. The
// response body is returned as-is.
func (c *Client) Process(ctx context.Context, entity string, req ProcessRequest) (json.RawMessage, error) {
	raw, err := c.doJSON(ctx, http.MethodPost, entityPath(entity, "process"), nil, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
