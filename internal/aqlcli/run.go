/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package aqlcli

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/service"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "run <query.json>",
		Short:        "Compile an AQL query and run it against PostgreSQL",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(opts)
			if err != nil {
				return err
			}
			q, err := readQuery(args[0])
			if err != nil {
				return err
			}
			cq, err := env.service.Compile(q)
			if err != nil {
				return err
			}

			log.Printf("🗄️  Connecting to Postgres at %s:%d/%s", env.cfg.Postgres.Host, env.cfg.Postgres.Port, env.cfg.Postgres.DBName)
			db, err := common.InitializeDatabase(env.cfg.Postgres)
			if err != nil {
				log.Printf("❌ DB connect failed: %v", err)
				return err
			}
			defer func() {
				_ = db.Close()
			}()
			log.Println("✅ Postgres connection established")

			result, err := env.service.Execute(cmd.Context(), db, cq)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), opts.Format, result)
		},
	}
}

func writeResult(w io.Writer, format string, result *service.ResultSet) error {
	if format == "json" {
		return writeJSON(w, result)
	}
	if _, err := fmt.Fprintln(w, strings.Join(result.Columns, "\t")); err != nil {
		return err
	}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			switch v.(type) {
			case map[string]any, []any:
				var sb strings.Builder
				if err := writeJSONCompact(&sb, v); err != nil {
					return err
				}
				cells[i] = sb.String()
			default:
				cells[i] = fmt.Sprint(v)
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}
