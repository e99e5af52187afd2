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

// Package shadowtbl is the one caller, besides the trigger and the
// reconciliation pass installed by internal/schema, allowed to write the
// shadow table: the administrative reprocess-all path of spec.md §4.2 and
// §4.6.
package shadowtbl

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// ReprocessAll implements spec.md §4.6 reprocess-all: in a single
// transaction, bump the clock of every shadow row and insert clock=1
// shadow rows for any source row still missing one. Workers will enqueue
// fresh jobs for every row on their next enqueue tick.
func ReprocessAll(ctx context.Context, db types.Begin, ns ident.Namespace, shadowTable, sourceFullName string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "could not begin reprocess-all transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	bump := fmt.Sprintf(`UPDATE %s SET vector_clock = vector_clock + 1`, ns.Qualified(shadowTable))
	if _, err := tx.Exec(ctx, bump); err != nil {
		return errors.Wrap(err, "could not bump shadow clocks")
	}

	backfill := fmt.Sprintf(`
INSERT INTO %s (doc_id, vector_clock)
SELECT id, 1 FROM %s src
WHERE NOT EXISTS (SELECT 1 FROM %s sh WHERE sh.doc_id = src.id)`,
		ns.Qualified(shadowTable), sourceFullName, ns.Qualified(shadowTable))
	if _, err := tx.Exec(ctx, backfill); err != nil {
		return errors.Wrap(err, "could not backfill missing shadow rows")
	}

	return errors.Wrap(tx.Commit(ctx), "could not commit reprocess-all transaction")
}

// CountOutdated returns the number of doc_ids whose shadow clock exceeds
// their current chunk clock, the same "outdated set" predicate the
// enqueuer uses (spec.md §4.3 step 3). Nothing in this module calls it;
// the enqueuer computes and consumes the set directly in its own SQL.
func CountOutdated(ctx context.Context, q types.StagingQuerier, ns ident.Namespace, shadowTable, chunksTable string) (int64, error) {
	stmt := fmt.Sprintf(`
SELECT count(*) FROM %s sh
WHERE sh.vector_clock > COALESCE(
	(SELECT max(c.vector_clock) FROM %s c WHERE c.doc_id = sh.doc_id), 0)`,
		ns.Qualified(shadowTable), ns.Qualified(chunksTable))
	var n int64
	err := q.QueryRow(ctx, stmt).Scan(&n)
	return n, errors.Wrap(err, "could not count outdated shadow rows")
}
