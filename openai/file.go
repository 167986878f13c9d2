// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/ktong/lpassistant/openai/httpclient"
)

// UploadFile uploads content under the given name to [files] storage for use by assistants.
//
// [files]: https://platform.openai.com/docs/api-reference/files
func (c Client) UploadFile(ctx context.Context, name string, content io.Reader) (File, error) {
	buf, contentType, err := createMultiPartForm(name, content)
	if err != nil {
		return File{}, fmt.Errorf("create multipart form: %w", err)
	}

	resp, err := httpclient.Post[File](ctx, "/files", buf, c.with(httpclient.WithHeader("Content-Type", contentType))...)
	if err != nil {
		return File{}, fmt.Errorf("upload file: %w", err)
	}

	return resp, nil
}

func createMultiPartForm(name string, content io.Reader) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)

	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return nil, "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("copy content to form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return buf, writer.FormDataContentType(), nil
}

// DeleteFile deletes an uploaded file. A file that no longer exists is not an error.
func (c Client) DeleteFile(ctx context.Context, id string) error {
	if err := httpclient.Delete(ctx, "/files/"+id, c.options...); err != nil && !httpclient.IsNotFound(err) {
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}
