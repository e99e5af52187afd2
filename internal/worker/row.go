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

package worker

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/BarnacleLabs/RAGmatic/internal/types"
)

// loadRow implements spec.md §4.5 step 2: SELECT the source row by id.
// Because the source table's column set is arbitrary and user-owned, the
// row is fetched with a plain SELECT * and decoded into a column map
// using the query's own field descriptions, rather than requiring the
// caller to declare a schema up front.
func (w *Worker) loadRow(ctx context.Context, docID any) (types.Row, bool, error) {
	stmt := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, w.sourceFullName)
	rows, err := w.Pool.Query(ctx, stmt, docID)
	if err != nil {
		return types.Row{}, false, errors.Wrap(err, "could not query source row")
	}
	defer rows.Close()

	if !rows.Next() {
		return types.Row{}, false, errors.Wrap(rows.Err(), "could not read source row")
	}

	values, err := rows.Values()
	if err != nil {
		return types.Row{}, false, errors.Wrap(err, "could not decode source row")
	}

	columns := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		columns[string(fd.Name)] = values[i]
	}

	return types.Row{DocID: docID, Columns: columns}, true, nil
}
