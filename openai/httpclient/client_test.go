// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package httpclient_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/ktong/lpassistant/internal/assert"
	"github.com/ktong/lpassistant/openai/httpclient"
)

func TestGet(t *testing.T) {
	type run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	testcases := []struct {
		description string
		httpClient  *http.Client
		expected    run
		error       string
	}{
		{
			description: "success",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
					assert.Equal(t, "GET", req.Method)
					assert.Equal(t, "/v1/threads/thread_1/runs/run_1", req.URL.Path)
					assert.Equal(t, "desc", req.URL.Query().Get("order"))
					assert.Equal(t, "assistants=v2", req.Header.Get("OpenAI-Beta"))

					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(`{"id": "run_1", "status": "queued"}`)),
					}, nil
				}),
			},
			expected: run{ID: "run_1", Status: "queued"},
		},
		{
			description: "error",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{}, errors.New("get error")
				}),
			},
			error: `Get "https://api.openai.com/v1/threads/thread_1/runs/run_1?order=desc": get error`,
		},
		{
			description: "error status code",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusNotFound,
						Body:       io.NopCloser(bytes.NewBufferString(`Run Not Found`)),
					}, nil
				}),
			},
			error: "[404] Run Not Found",
		},
		{
			description: "error unmarshal",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(`run_1`)),
					}, nil
				}),
			},
			error: "invalid character 'r' looking for beginning of value",
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.description, func(t *testing.T) {
			actual, err := httpclient.Get[run](
				context.Background(),
				"/threads/thread_1/runs/run_1",
				httpclient.WithHTTPClient(testcase.httpClient),
				httpclient.WithBaseURL("https://api.openai.com/v1"),
				httpclient.WithHeader("OpenAI-Beta", "assistants=v2"),
				httpclient.WithQuery("order", "desc"),
				httpclient.WithQuery("after", ""),
			)
			if testcase.error != "" {
				assert.EqualError(t, err, testcase.error)

				return
			}
			assert.NoError(t, err)
			assert.Equal(t, testcase.expected, actual)
		})
	}
}

func TestPost(t *testing.T) {
	type toolOutput struct {
		ToolCallID string `json:"tool_call_id"`
		Output     string `json:"output"`
	}
	type request struct {
		ToolOutputs []toolOutput `json:"tool_outputs"`
	}
	type run struct {
		ID string `json:"id"`
	}

	testcases := []struct {
		description string
		request     any
		headers     []httpclient.Option
		httpClient  *http.Client
		expected    run
		error       string
	}{
		{
			description: "json body",
			request:     request{ToolOutputs: []toolOutput{{ToolCallID: "call_1", Output: "ok"}}},
			httpClient: &http.Client{
				Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
					assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
					assert.Equal(t, "POST", req.Method)
					assert.Equal(t, "/v1/threads/thread_1/runs/run_1/submit_tool_outputs", req.URL.Path)
					body, err := io.ReadAll(req.Body)
					assert.NoError(t, err)
					assert.Equal(t, `{"tool_outputs":[{"tool_call_id":"call_1","output":"ok"}]}`+"\n", string(body))

					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(`{"id": "run_1"}`)),
					}, nil
				}),
			},
			expected: run{ID: "run_1"},
		},
		{
			description: "reader body keeps content type option",
			request:     bytes.NewBufferString("--boundary--"),
			headers:     []httpclient.Option{httpclient.WithHeader("Content-Type", "multipart/form-data; boundary=boundary")},
			httpClient: &http.Client{
				Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
					assert.Equal(t, "multipart/form-data; boundary=boundary", req.Header.Get("Content-Type"))
					body, err := io.ReadAll(req.Body)
					assert.NoError(t, err)
					assert.Equal(t, "--boundary--", string(body))

					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(`{"id": "run_2"}`)),
					}, nil
				}),
			},
			expected: run{ID: "run_2"},
		},
		{
			description: "error",
			request:     request{},
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{}, errors.New("post error")
				}),
			},
			error: `Post "https://api.openai.com/v1/threads/thread_1/runs/run_1/submit_tool_outputs": post error`,
		},
		{
			description: "error status code",
			request:     request{},
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusBadRequest,
						Body:       io.NopCloser(bytes.NewBufferString(`Run is not waiting for tool outputs`)),
					}, nil
				}),
			},
			error: "[400] Run is not waiting for tool outputs",
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.description, func(t *testing.T) {
			opts := append([]httpclient.Option{
				httpclient.WithHTTPClient(testcase.httpClient),
				httpclient.WithBaseURL("https://api.openai.com/v1"),
			}, testcase.headers...)
			actual, err := httpclient.Post[run](
				context.Background(),
				"/threads/thread_1/runs/run_1/submit_tool_outputs",
				testcase.request,
				opts...,
			)
			if testcase.error != "" {
				assert.EqualError(t, err, testcase.error)

				return
			}
			assert.NoError(t, err)
			assert.Equal(t, testcase.expected, actual)
		})
	}
}

func TestDelete(t *testing.T) {
	testcases := []struct {
		description string
		httpClient  *http.Client
		error       string
	}{
		{
			description: "success",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
					assert.Equal(t, "DELETE", req.Method)
					assert.Equal(t, "/v1/vector_stores/vs_1/files/file_1", req.URL.Path)

					return &http.Response{
						StatusCode: http.StatusOK,
						Body:       io.NopCloser(bytes.NewBufferString(`{"id": "file_1", "deleted": true}`)),
					}, nil
				}),
			},
		},
		{
			description: "error",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{}, errors.New("delete error")
				}),
			},
			error: `Delete "https://api.openai.com/v1/vector_stores/vs_1/files/file_1": delete error`,
		},
		{
			description: "error status code",
			httpClient: &http.Client{
				Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return &http.Response{
						StatusCode: http.StatusNotFound,
						Body:       io.NopCloser(bytes.NewBufferString(`File Not Found`)),
					}, nil
				}),
			},
			error: "[404] File Not Found",
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.description, func(t *testing.T) {
			err := httpclient.Delete(
				context.Background(),
				"/vector_stores/vs_1/files/file_1",
				httpclient.WithHTTPClient(testcase.httpClient),
				httpclient.WithBaseURL("https://api.openai.com/v1"),
			)
			if testcase.error != "" {
				assert.EqualError(t, err, testcase.error)
				assert.Equal(t, testcase.description == "error status code", httpclient.IsNotFound(err))

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsTransient(t *testing.T) {
	testcases := []struct {
		err      error
		expected bool
	}{
		{err: nil, expected: false},
		{err: &httpclient.StatusError{Code: http.StatusTooManyRequests}, expected: true},
		{err: &httpclient.StatusError{Code: http.StatusBadGateway}, expected: true},
		{err: &httpclient.StatusError{Code: http.StatusUnauthorized}, expected: false},
		{err: fmt.Errorf("retrieve run: %w", &httpclient.StatusError{Code: http.StatusServiceUnavailable}), expected: true},
		{err: &url.Error{Op: "Get", URL: "https://api.openai.com", Err: errors.New("connection reset")}, expected: true},
		{err: &url.Error{Op: "Get", URL: "https://api.openai.com", Err: context.Canceled}, expected: false},
		{err: errors.New("decode"), expected: false},
	}

	for _, testcase := range testcases {
		assert.Equal(t, testcase.expected, httpclient.IsTransient(testcase.err))
	}
}

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
