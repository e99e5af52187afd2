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

package schema

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/ident"
)

// GetConfig returns the persisted config record for ns, per spec.md §4.6
// get-config. It is the authoritative manifest; callers outside this
// module may read it directly from the table too.
func (in *Installer) GetConfig(ctx context.Context, ns ident.Namespace) (map[string]string, error) {
	rows, err := in.Pool.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s`, ns.Qualified(ident.DefaultConfigTable)))
	if err != nil {
		return nil, errors.Wrap(err, "could not read config table")
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "could not scan config row")
		}
		out[k] = v
	}
	return out, errors.Wrap(rows.Err(), "could not iterate config rows")
}

// Destroy implements spec.md §4.6 destroy: it drops the source trigger
// and then the pipeline namespace, cascading to every table and index it
// owns.
func (in *Installer) Destroy(ctx context.Context, ns ident.Namespace, sourceFullName string) error {
	tx, err := in.Pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "could not begin destroy transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	trigger := ns.Raw() + "_shadow_bump_trigger"
	dropTrigger := fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, ident.Quote(trigger), sourceFullName)
	if _, err := tx.Exec(ctx, dropTrigger); err != nil {
		return errors.Wrap(err, "could not drop source trigger")
	}

	fn := ns.Raw() + "_shadow_bump"
	dropFn := fmt.Sprintf(`DROP FUNCTION IF EXISTS %s()`, ident.Quote(fn))
	if _, err := tx.Exec(ctx, dropFn); err != nil {
		return errors.Wrap(err, "could not drop trigger function")
	}

	dropSchema := fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, ident.Quote(ns.Raw()))
	if _, err := tx.Exec(ctx, dropSchema); err != nil {
		return errors.Wrap(err, "could not drop pipeline namespace")
	}

	return errors.Wrap(tx.Commit(ctx), "could not commit destroy transaction")
}
