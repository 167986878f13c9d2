// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package assert provides the minimal assertions used by the tests in this module.
package assert

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func Equal[T any](tb testing.TB, expected, actual T) {
	tb.Helper()

	if !reflect.DeepEqual(expected, actual) {
		tb.Errorf("\n  expected: %#v\n    actual: %#v", expected, actual)
	}
}

func NoError(tb testing.TB, err error) {
	tb.Helper()

	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
}

func EqualError(tb testing.TB, err error, message string) {
	tb.Helper()

	switch {
	case err == nil:
		tb.Fatalf("expected error %q, got nil", message)
	case err.Error() != message:
		tb.Fatalf("\n  expected error: %q\n    actual error: %q", message, err.Error())
	}
}

// ErrorIs asserts errors.Is(err, target).
func ErrorIs(tb testing.TB, err, target error) {
	tb.Helper()

	if !errors.Is(err, target) {
		tb.Fatalf("expected error matching %v, got %v", target, err)
	}
}

func True(tb testing.TB, value bool) {
	tb.Helper()

	if !value {
		tb.Error("expected true, got false")
	}
}

func Contains(tb testing.TB, s, substr string) {
	tb.Helper()

	if !strings.Contains(s, substr) {
		tb.Errorf("expected %q to contain %q", s, substr)
	}
}
