// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package httpclient provides generic JSON helpers over net/http for the OpenAI REST API.
//
//nolint:ireturn,wrapcheck
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

func Get[R any](ctx context.Context, path string, opts ...Option) (R, error) {
	var response R
	options := apply(opts)

	req, err := newRequest(ctx, http.MethodGet, path, options)
	if err != nil {
		return response, err
	}

	if err = do(req, options, &response); err != nil {
		return response, err
	}

	return response, nil
}

func Post[R any](ctx context.Context, path string, request any, opts ...Option) (R, error) {
	var response R
	options := apply(opts)

	req, err := newRequest(ctx, http.MethodPost, path, options)
	if err != nil {
		return response, err
	}
	if err = marshalRequest(req, request); err != nil {
		return response, err
	}
	// Headers from options win over the default JSON content type, e.g. for multipart bodies.
	for k, v := range options.headers {
		req.Header.Set(k, v)
	}

	if err = do(req, options, &response); err != nil {
		return response, err
	}

	return response, nil
}

func Delete(ctx context.Context, path string, opts ...Option) error {
	options := apply(opts)

	req, err := newRequest(ctx, http.MethodDelete, path, options)
	if err != nil {
		return err
	}

	var discard []byte

	return do(req, options, &discard)
}

func newRequest(ctx context.Context, method, path string, options options) (*http.Request, error) {
	path, err := url.JoinPath(options.baseURL, path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}
	if len(options.query) > 0 {
		query := req.URL.Query()
		for k, v := range options.query {
			query.Set(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}
	for k, v := range options.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func do(req *http.Request, options options, response any) error {
	resp, err := options.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err = checkStatus(resp); err != nil {
		return err
	}

	return unmarshalResponse(resp, response)
}

func marshalRequest(req *http.Request, request any) error {
	switch value := request.(type) {
	case nil:
		return nil
	case io.Reader:
		req.Body = io.NopCloser(value)
	case string:
		req.Body = io.NopCloser(strings.NewReader(value))
	case []byte:
		req.Body = io.NopCloser(bytes.NewReader(value))
	default:
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(value); err != nil {
			return err
		}
		req.Body = io.NopCloser(buf)
		req.Header.Set("Content-Type", "application/json")
	}

	return nil
}

func unmarshalResponse(resp *http.Response, response any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch value := response.(type) {
	case *io.Reader:
		*value = bytes.NewReader(body)
	case *[]byte:
		*value = body
	case *string:
		*value = string(body)
	default:
		if err := json.Unmarshal(body, value); err != nil {
			return err
		}
	}

	return nil
}

type StatusError struct {
	Code    int
	Message string
}

func (s *StatusError) Error() string {
	if s.Message == "" {
		s.Message = http.StatusText(s.Code)
	}

	return fmt.Sprintf("[%d] %s", s.Code, s.Message)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)

	return &StatusError{Code: resp.StatusCode, Message: string(body)}
}

// IsTransient reports whether a request failed in a way that may succeed when retried:
// transport failures, rate limiting and server errors.
// Context cancellation and other client errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= http.StatusInternalServerError
	}

	var urlErr *url.Error

	return errors.As(err, &urlErr)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var status *StatusError

	return errors.As(err, &status) && status.Code == http.StatusNotFound
}
