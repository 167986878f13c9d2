// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package openai

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ktong/lpassistant/openai/httpclient"
)

// File batch statuses reported by the API.
const (
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusCancelled  = "cancelled"
	BatchStatusFailed     = "failed"
)

const listPageSize = 100

func (c Client) RetrieveVectorStore(ctx context.Context, id string) (VectorStore, error) {
	resp, err := httpclient.Get[VectorStore](ctx, "/vector_stores/"+id, c.options...)
	if err != nil {
		return VectorStore{}, fmt.Errorf("retrieve vector store: %w", err)
	}

	return resp, nil
}

// ListVectorStoreFiles returns every file attached to the vector store, following pagination.
func (c Client) ListVectorStoreFiles(ctx context.Context, storeID string) ([]VectorStoreFile, error) {
	var (
		files []VectorStoreFile
		after string
	)
	for {
		resp, err := httpclient.Get[list[VectorStoreFile]](ctx, "/vector_stores/"+storeID+"/files",
			c.with(
				httpclient.WithQuery("limit", strconv.Itoa(listPageSize)),
				httpclient.WithQuery("after", after),
			)...,
		)
		if err != nil {
			return nil, fmt.Errorf("list vector store files: %w", err)
		}
		files = append(files, resp.Data...)

		if !resp.HasMore || resp.LastID == "" {
			return files, nil
		}
		after = resp.LastID
	}
}

// DeleteVectorStoreFile detaches a file from the vector store. The file itself is kept.
func (c Client) DeleteVectorStoreFile(ctx context.Context, storeID, fileID string) error {
	err := httpclient.Delete(ctx, "/vector_stores/"+storeID+"/files/"+fileID, c.options...)
	if err != nil && !httpclient.IsNotFound(err) {
		return fmt.Errorf("delete vector store file: %w", err)
	}

	return nil
}

func (c Client) CreateFileBatch(ctx context.Context, storeID string, fileIDs []string) (FileBatch, error) {
	request := struct {
		FileIDs []string `json:"file_ids"`
	}{FileIDs: fileIDs}

	resp, err := httpclient.Post[FileBatch](ctx, "/vector_stores/"+storeID+"/file_batches", request, c.options...)
	if err != nil {
		return FileBatch{}, fmt.Errorf("create file batch: %w", err)
	}

	return resp, nil
}

func (c Client) RetrieveFileBatch(ctx context.Context, storeID, batchID string) (FileBatch, error) {
	resp, err := httpclient.Get[FileBatch](ctx, "/vector_stores/"+storeID+"/file_batches/"+batchID, c.options...)
	if err != nil {
		return FileBatch{}, fmt.Errorf("retrieve file batch: %w", err)
	}

	return resp, nil
}
