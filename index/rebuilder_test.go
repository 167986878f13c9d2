// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktong/lpassistant/index"
	"github.com/ktong/lpassistant/internal/assert"
	"github.com/ktong/lpassistant/internal/poll"
	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
)

// fakeClient records every call in order.
type fakeClient struct {
	existing []openai.VectorStoreFile
	batches  []openai.FileBatch
	calls    []string
	uploaded map[string]string
	polled   int
}

func (f *fakeClient) ListVectorStoreFiles(_ context.Context, storeID string) ([]openai.VectorStoreFile, error) {
	f.calls = append(f.calls, "list "+storeID)

	return f.existing, nil
}

func (f *fakeClient) DeleteVectorStoreFile(_ context.Context, storeID, fileID string) error {
	f.calls = append(f.calls, "detach "+fileID+" from "+storeID)

	return nil
}

func (f *fakeClient) DeleteFile(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete "+id)

	return nil
}

func (f *fakeClient) UploadFile(_ context.Context, name string, content io.Reader) (openai.File, error) {
	f.calls = append(f.calls, "upload "+name)
	body, err := io.ReadAll(content)
	if err != nil {
		return openai.File{}, err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[name] = string(body)

	return openai.File{ID: "file_" + name, Filename: name}, nil
}

func (f *fakeClient) CreateFileBatch(_ context.Context, storeID string, fileIDs []string) (openai.FileBatch, error) {
	f.calls = append(f.calls, "batch "+storeID)

	return openai.FileBatch{ID: "batch_1", Status: openai.BatchStatusInProgress, FileCounts: openai.FileCounts{
		InProgress: len(fileIDs), Total: len(fileIDs),
	}}, nil
}

func (f *fakeClient) RetrieveFileBatch(context.Context, string, string) (openai.FileBatch, error) {
	batch := f.batches[min(f.polled, len(f.batches)-1)]
	f.polled++
	if batch.ID == "" {
		return batch, &httpclient.StatusError{Code: http.StatusBadGateway}
	}

	return batch, nil
}

func fastPolicy() poll.Policy {
	return poll.Policy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1, Timeout: time.Second}
}

func TestRebuilder_Replace(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.txt")}
	assert.NoError(t, os.WriteFile(paths[0], []byte(`{"a":1}`), 0o600))
	assert.NoError(t, os.WriteFile(paths[1], []byte("b\n"), 0o600))

	client := &fakeClient{
		existing: []openai.VectorStoreFile{{ID: "file_old1"}, {ID: "file_old2"}},
		batches: []openai.FileBatch{
			{},
			{ID: "batch_1", Status: openai.BatchStatusInProgress},
			{ID: "batch_1", Status: openai.BatchStatusCompleted, FileCounts: openai.FileCounts{Completed: 2, Total: 2}},
		},
	}
	rebuilder := index.New(nil, client, "vs_1", index.WithPollPolicy(fastPolicy()))

	report, err := rebuilder.Replace(context.Background(), paths)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"list vs_1",
		"detach file_old1 from vs_1",
		"delete file_old1",
		"detach file_old2 from vs_1",
		"delete file_old2",
		"upload a.json",
		"upload b.txt",
		"batch vs_1",
	}, client.calls)
	assert.Equal(t, map[string]string{"a.json": `{"a":1}`, "b.txt": "b\n"}, client.uploaded)
	assert.Equal(t, 3, client.polled)

	assert.Equal(t, "vs_1", report.VectorStoreID)
	assert.Equal(t, 2, report.Removed)
	assert.Equal(t, []string{"a.json", "b.txt"}, report.Files)
	assert.Equal(t, "batch_1", report.BatchID)
	assert.Equal(t, openai.BatchStatusCompleted, report.Status)
	assert.Equal(t, openai.FileCounts{Completed: 2, Total: 2}, report.FileCounts)
}

func TestRebuilder_Replace_BatchFailed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	client := &fakeClient{batches: []openai.FileBatch{
		{ID: "batch_1", Status: openai.BatchStatusFailed, FileCounts: openai.FileCounts{Failed: 1, Total: 1}},
	}}
	rebuilder := index.New(nil, client, "vs_1", index.WithPollPolicy(fastPolicy()))

	report, err := rebuilder.Replace(context.Background(), []string{path})
	assert.ErrorIs(t, err, index.ErrBatchFailed)
	assert.Equal(t, openai.BatchStatusFailed, report.Status)
	assert.Equal(t, 1, report.FileCounts.Failed)
}

func TestRebuilder_Run(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{batches: []openai.FileBatch{
		{ID: "batch_1", Status: openai.BatchStatusCompleted, FileCounts: openai.FileCounts{Completed: 6, Total: 6}},
	}}
	notifier := &fakeNotifier{}
	rebuilder := index.New(fixture(), client, "vs_1",
		index.WithOutputDir(dir),
		index.WithPollPolicy(fastPolicy()),
		index.WithNotifier(notifier),
	)

	report, err := rebuilder.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, report.Locations)
	assert.Equal(t, 2, report.Positions)
	assert.Equal(t, []string{
		index.FileAvailable, index.FileDetails, index.FileAvailableText,
		index.FileDetailsText, index.FileByCityText, index.FileByStateText,
	}, report.Files)
	assert.Equal(t, []index.Report{report}, notifier.reports)
}

func TestRebuilder_Run_StoreError(t *testing.T) {
	dir := t.TempDir()
	source := fixture()
	source.err = errors.New("connection refused")
	source.errAt = 2
	client := &fakeClient{}

	_, err := index.New(source, client, "vs_1", index.WithOutputDir(dir)).Run(context.Background())
	assert.EqualError(t, err, "build snapshot: connection refused")
	assert.Equal(t, 0, len(client.calls))

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(entries))
}

type fakeNotifier struct {
	reports []index.Report
}

func (f *fakeNotifier) Notify(_ context.Context, report index.Report) error {
	f.reports = append(f.reports, report)

	return errors.New("redis is down")
}
