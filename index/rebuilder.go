// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/internal/poll"
	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
)

// ErrBatchFailed is returned with the Report when the upload batch ends failed or cancelled.
var ErrBatchFailed = errors.New("file batch did not complete")

// Client is the part of the Assistants API used to replace the vector store files.
// It is implemented by openai.Client.
type Client interface {
	ListVectorStoreFiles(ctx context.Context, storeID string) ([]openai.VectorStoreFile, error)
	DeleteVectorStoreFile(ctx context.Context, storeID, fileID string) error
	DeleteFile(ctx context.Context, id string) error
	UploadFile(ctx context.Context, name string, content io.Reader) (openai.File, error)
	CreateFileBatch(ctx context.Context, storeID string, fileIDs []string) (openai.FileBatch, error)
	RetrieveFileBatch(ctx context.Context, storeID, batchID string) (openai.FileBatch, error)
}

// Report is the outcome of a rebuild.
type Report struct {
	VectorStoreID string            `json:"vector_store_id"`
	Locations     int               `json:"locations"`
	Positions     int               `json:"positions"`
	Files         []string          `json:"files"`
	Removed       int               `json:"removed"`
	BatchID       string            `json:"batch_id"`
	Status        string            `json:"status"`
	FileCounts    openai.FileCounts `json:"file_counts"`
	FinishedAt    time.Time         `json:"finished_at"`
}

// Rebuilder replaces the files of one vector store with a fresh snapshot of the store.
type Rebuilder struct {
	source   Source
	client   Client
	storeID  string
	dir      string
	policy   poll.Policy
	notifier Notifier
	logger   zerolog.Logger
}

func New(source Source, client Client, storeID string, opts ...Option) *Rebuilder {
	rebuilder := &Rebuilder{
		source:  source,
		client:  client,
		storeID: storeID,
		dir:     ".",
		policy:  poll.DefaultPolicy(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(rebuilder)
	}

	return rebuilder
}

// Run builds a snapshot, writes it and replaces the vector store files with it.
// Nothing is written or replaced when the store cannot be read.
func (r *Rebuilder) Run(ctx context.Context) (Report, error) {
	snapshot, err := Build(ctx, r.source)
	if err != nil {
		return Report{}, err
	}
	r.logger.Info().
		Int("locations", len(snapshot.Details)).
		Int("positions", len(snapshot.Positions)).
		Msg("snapshot built")

	paths, err := Write(r.dir, snapshot)
	if err != nil {
		return Report{}, err
	}

	report, err := r.Replace(ctx, paths)
	report.Locations = len(snapshot.Details)
	report.Positions = len(snapshot.Positions)
	if err != nil {
		return report, err
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, report); err != nil {
			r.logger.Warn().Err(err).Msg("notify rebuild failed")
		}
	}

	return report, nil
}

// Replace removes every file of the vector store, uploads the files at paths
// and waits until the vector store has indexed them.
//
// The old files are gone before the new ones are indexed;
// if Replace fails in between, the vector store stays empty until the next run.
func (r *Rebuilder) Replace(ctx context.Context, paths []string) (Report, error) {
	report := Report{VectorStoreID: r.storeID}
	if len(paths) == 0 {
		return report, errors.New("replace vector store files: no files") //nolint:err113
	}

	existing, err := r.client.ListVectorStoreFiles(ctx, r.storeID)
	if err != nil {
		return report, fmt.Errorf("replace vector store files: %w", err)
	}
	for _, file := range existing {
		if err := r.client.DeleteVectorStoreFile(ctx, r.storeID, file.ID); err != nil {
			return report, fmt.Errorf("replace vector store files: %w", err)
		}
		if err := r.client.DeleteFile(ctx, file.ID); err != nil {
			return report, fmt.Errorf("replace vector store files: %w", err)
		}
		report.Removed++
		r.logger.Debug().Str("file", file.ID).Msg("file removed")
	}

	fileIDs := make([]string, 0, len(paths))
	for _, path := range paths {
		file, err := r.upload(ctx, path)
		if err != nil {
			return report, fmt.Errorf("replace vector store files: %w", err)
		}
		fileIDs = append(fileIDs, file.ID)
		report.Files = append(report.Files, file.Filename)
		r.logger.Debug().Str("file", file.ID).Str("name", file.Filename).Msg("file uploaded")
	}

	batch, err := r.client.CreateFileBatch(ctx, r.storeID, fileIDs)
	if err != nil {
		return report, fmt.Errorf("replace vector store files: %w", err)
	}
	batch, err = r.waitForBatch(ctx, batch)
	report.BatchID = batch.ID
	report.Status = batch.Status
	report.FileCounts = batch.FileCounts
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		return report, fmt.Errorf("replace vector store files: %w", err)
	}

	r.logger.Info().
		Str("vector_store_id", r.storeID).
		Str("status", batch.Status).
		Int("completed", batch.FileCounts.Completed).
		Int("failed", batch.FileCounts.Failed).
		Int("removed", report.Removed).
		Msg("vector store files replaced")

	return report, nil
}

func (r *Rebuilder) upload(ctx context.Context, path string) (openai.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return openai.File{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	uploaded, err := r.client.UploadFile(ctx, filepath.Base(path), file)
	if err != nil {
		return openai.File{}, fmt.Errorf("upload %s: %w", path, err)
	}
	if uploaded.Filename == "" {
		uploaded.Filename = filepath.Base(path)
	}

	return uploaded, nil
}

func (r *Rebuilder) waitForBatch(ctx context.Context, batch openai.FileBatch) (openai.FileBatch, error) {
	waiter := r.policy.Start()
	for {
		switch batch.Status {
		case openai.BatchStatusCompleted:
			return batch, nil
		case openai.BatchStatusFailed, openai.BatchStatusCancelled:
			return batch, fmt.Errorf("%w: batch %s %s", ErrBatchFailed, batch.ID, batch.Status)
		}

		if err := waiter.Wait(ctx); err != nil {
			return batch, fmt.Errorf("wait for batch %s: %w", batch.ID, err)
		}
		next, err := r.client.RetrieveFileBatch(ctx, r.storeID, batch.ID)
		if err != nil {
			if httpclient.IsTransient(err) {
				r.logger.Warn().Err(err).Str("batch_id", batch.ID).Msg("poll file batch failed, retrying")

				continue
			}

			return batch, fmt.Errorf("poll file batch: %w", err)
		}
		batch = next
		r.logger.Debug().Str("batch_id", batch.ID).Str("status", batch.Status).Msg("file batch polled")
	}
}
