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

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/service"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <query.json>...",
		Short: "Compile AQL queries to SQL",
		Long: `Compile JSON encoded AQL queries to PostgreSQL.

The queries are compiled concurrently; text output prints the SQL of every
query, json output the SQL, arguments and result column layout.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(opts)
			if err != nil {
				return err
			}
			queries := make([]*ast.Query, 0, len(args))
			for _, path := range args {
				q, err := readQuery(path)
				if err != nil {
					return err
				}
				queries = append(queries, q)
			}
			compiled, err := env.service.CompileAll(cmd.Context(), queries)
			if err != nil {
				return err
			}
			return writeCompiled(cmd.OutOrStdout(), opts.Format, compiled)
		},
	}
}

func writeCompiled(w io.Writer, format string, compiled []*service.CompiledQuery) error {
	if format == "json" {
		return writeJSON(w, compiled)
	}
	for _, cq := range compiled {
		if _, err := fmt.Fprintf(w, "-- %s\n%s;\n", cq.AQL, cq.SQL); err != nil {
			return err
		}
		for i, arg := range cq.Args {
			if _, err := fmt.Fprintf(w, "-- $%d = %v\n", i+1, arg); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := jsoniter.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.NewErrInternal(err, "encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// checkResult is the json output of the check command for one file.
type checkResult struct {
	Path  string               `json:"path"`
	OK    bool                 `json:"ok"`
	Error *common.ErrorHandler `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "check <query.json>...",
		Short:        "Check that AQL queries are supported",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(opts)
			if err != nil {
				return err
			}
			results := make([]checkResult, 0, len(args))
			failed := 0
			for _, path := range args {
				q, err := readQuery(path)
				if err == nil {
					err = env.service.Check(q)
				}
				if err != nil {
					failed++
					results = append(results, checkResult{Path: path, Error: common.ErrorReport(err)})
					continue
				}
				results = append(results, checkResult{Path: path, OK: true})
			}
			if err := writeCheckResults(cmd.OutOrStdout(), opts.Format, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d queries are not supported", failed, len(args))
			}
			return nil
		},
	}
}

func writeCheckResults(w io.Writer, format string, results []checkResult) error {
	if format == "json" {
		return writeJSON(w, results)
	}
	for _, r := range results {
		var err error
		if r.OK {
			_, err = fmt.Fprintf(w, "OK   %s\n", r.Path)
		} else {
			_, err = fmt.Fprintf(w, "FAIL %s: %s\n", r.Path, r.Error.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSONCompact(w io.Writer, v any) error {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		return common.NewErrInternal(err, "encode output")
	}
	_, err = w.Write(data)
	return err
}
