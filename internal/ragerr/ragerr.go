// Copyright 2024 The RAGmatic Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ragerr classifies job-processing failures into the taxonomy of
// spec.md §7: retryable, permanent, and superseded. The pattern mirrors
// the teacher's types.LeaseBusyError / types.IsLeaseBusy pair.
package ragerr

import (
	"context"
	as_errors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// ErrSuperseded indicates a job was preempted by a newer clock for the
// same doc_id; not a failure, reported as status=skipped.
var ErrSuperseded = errors.New("ragmatic: job superseded by a newer vector clock")

// ErrDocumentDeleted indicates the source row backing a job no longer
// exists; reported as status=skipped.
var ErrDocumentDeleted = errors.New("ragmatic: source document was deleted")

// PermanentError wraps a cause that must not be retried: invalid
// configuration, a missing schema, or an embedding that fails validation.
type PermanentError struct {
	Cause error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Cause.Error() }
func (e *PermanentError) Unwrap() error { return e.Cause }

// Permanent wraps cause as a PermanentError. A nil cause returns nil.
func Permanent(cause error) error {
	if cause == nil {
		return nil
	}
	return &PermanentError{Cause: cause}
}

// Permanentf builds a PermanentError from a format string.
func Permanentf(format string, args ...any) error {
	return &PermanentError{Cause: errors.Errorf(format, args...)}
}

// RetryableError wraps a cause that should return the job to pending and
// increment its retry_count, per spec.md §7.
type RetryableError struct {
	Cause error
}

func (e *RetryableError) Error() string { return "retryable: " + e.Cause.Error() }
func (e *RetryableError) Unwrap() error { return e.Cause }

// Retryable wraps cause as a RetryableError. A nil cause returns nil.
func Retryable(cause error) error {
	if cause == nil {
		return nil
	}
	return &RetryableError{Cause: cause}
}

// IsPermanent reports whether err (or something it wraps) is a
// PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return as_errors.As(err, &pe)
}

// IsRetryable classifies err per spec.md §7: explicit RetryableError
// wrappers, connection-class pgx/pgconn failures, and context deadline
// exceeded are retryable; anything explicitly marked permanent is not, and
// neither are the skip sentinels ErrSuperseded and ErrDocumentDeleted;
// everything else -- a plain error from a user callback that does not
// announce itself permanent -- defaults to retryable, matching the
// "generic user-callback exceptions that don't announce themselves
// permanent" bullet of spec.md §7.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	if as_errors.Is(err, ErrSuperseded) || as_errors.Is(err, ErrDocumentDeleted) {
		return false
	}
	var re *RetryableError
	if as_errors.As(err, &re) {
		return true
	}
	if as_errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if as_errors.Is(err, pgx.ErrTxClosed) {
		return true
	}
	var pgErr *pgconn.PgError
	if as_errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
	}
	var connErr *pgconn.ConnectError
	if as_errors.As(err, &connErr) {
		return true
	}
	return true
}
