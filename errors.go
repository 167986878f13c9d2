// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"errors"
	"fmt"

	"github.com/ktong/lpassistant/internal/poll"
)

var (
	// ErrUnknownTool means the model called a tool this module does not define.
	// The assistant definition and the code disagree, so the run is not continued.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments means the arguments of a known tool could not be decoded.
	ErrInvalidArguments = errors.New("invalid tool arguments")
	// ErrRunFailed matches every *RunError.
	ErrRunFailed = errors.New("run failed")
	// ErrTimeout is returned when a run does not finish within the poll policy timeout.
	ErrTimeout = poll.ErrTimeout
	// ErrNoAnswer is returned when a completed run left no message on the thread.
	ErrNoAnswer = errors.New("run completed without a message")
)

// RunError is a run that ended in any status other than completed.
type RunError struct {
	RunID   string
	Status  string
	Code    string
	Message string
}

func (e *RunError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("run %s %s: %s: %s", e.RunID, e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("run %s %s: %s", e.RunID, e.Status, e.Message)
	default:
		return fmt.Sprintf("run %s %s", e.RunID, e.Status)
	}
}

func (e *RunError) Is(target error) bool {
	return target == ErrRunFailed
}
