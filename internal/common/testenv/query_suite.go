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

//nolint:all
package testenv

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// QuerySuiteStep is one entry of a JSON query suite. Query and ShouldMatch
// are file paths relative to the test package.
type QuerySuiteStep struct {
	Context        string   `json:"context,omitempty"`
	Query          string   `json:"query"`
	ShouldContain  []string `json:"shouldContain,omitempty"`
	ShouldMatch    string   `json:"shouldMatch,omitempty"`
	ExpectedStatus int      `json:"expectedStatus,omitempty"`
	Action         string   `json:"action,omitempty"`
}

type QueryStepAction func(t *testing.T, runner *QuerySuiteRunner, step QuerySuiteStep, stepNumber int)

// CompileFunc compiles a decoded query to SQL.
type CompileFunc func(q *ast.Query) (string, error)

type QuerySuiteOptions struct {
	ConfigPath string
	// LogsDir receives mismatch logs; a temporary directory when empty.
	LogsDir string

	Compile CompileFunc

	StepName       func(step QuerySuiteStep, stepNumber int) string
	ShouldSkipStep func(step QuerySuiteStep) bool
	ActionHandlers map[string]QueryStepAction
}

type QuerySuiteRunner struct {
	options QuerySuiteOptions
}

func DefaultQueryStepName(step QuerySuiteStep, stepNumber int) string {
	if step.Context != "" {
		return fmt.Sprintf("%d_%s", stepNumber, step.Context)
	}
	if step.Action != "" {
		return fmt.Sprintf("%d_%s", stepNumber, step.Action)
	}
	return fmt.Sprintf("%d_%s", stepNumber, filepath.Base(step.Query))
}

// RunQuerySuite compiles every query of the suite and checks the resulting
// status and SQL. Rejected queries report the HTTP status of their error kind.
func RunQuerySuite(t *testing.T, options QuerySuiteOptions) {
	t.Helper()

	normalized := normalizeQuerySuiteOptions(t, options)
	require.NotNil(t, normalized.Compile, "TESTENV-QUERYSUITE-MISSING-COMPILE")
	steps, err := loadQuerySuiteConfig(normalized.ConfigPath)
	require.NoError(t, err, "Failed to load suite config")

	err = os.MkdirAll(normalized.LogsDir, 0o755)
	require.NoError(t, err, "Failed to create logs directory")

	runner := &QuerySuiteRunner{options: normalized}

	for idx, rawStep := range steps {
		stepNumber := idx + 1
		step := rawStep
		name := normalized.StepName(step, stepNumber)

		t.Run(name, func(t *testing.T) {
			if normalized.ShouldSkipStep != nil && normalized.ShouldSkipStep(step) {
				return
			}

			if step.Action != "" {
				handler, ok := normalized.ActionHandlers[step.Action]
				if !ok {
					t.Fatalf("unknown action: %s", step.Action)
				}
				handler(t, runner, step, stepNumber)
				return
			}

			sql, runErr := runner.RunStep(step, stepNumber)
			require.NoError(t, runErr)
			if sql == "" {
				return
			}
			for _, fragment := range step.ShouldContain {
				require.Contains(t, sql, fragment)
			}
			if step.ShouldMatch != "" {
				runner.compareSQL(t, step, stepNumber, sql)
			}
		})
	}
}

// RunStep compiles the step's query and checks the expected status. The SQL
// is empty for rejected queries.
func (r *QuerySuiteRunner) RunStep(step QuerySuiteStep, stepNumber int) (string, error) {
	data, err := os.ReadFile(step.Query)
	if err != nil {
		return "", fmt.Errorf("failed to read query file: %w", err)
	}
	q, err := ast.DecodeQuery(data)
	if err != nil {
		return "", err
	}

	expectedStatus := step.ExpectedStatus
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	sql, compileErr := r.options.Compile(q)
	status := http.StatusOK
	if compileErr != nil {
		status = common.StatusCodeOf(compileErr)
	}
	if status != expectedStatus {
		r.writeStatusMismatchLog(stepNumber, q, expectedStatus, status, compileErr)
		return "", fmt.Errorf("expected status %d but got %d: %v", expectedStatus, status, compileErr)
	}
	return sql, nil
}

func (r *QuerySuiteRunner) compareSQL(t *testing.T, step QuerySuiteStep, stepNumber int, actual string) {
	t.Helper()

	expectedRaw, err := os.ReadFile(step.ShouldMatch)
	require.NoError(t, err, "Failed to read expected SQL file")

	expected := normalizeSQL(string(expectedRaw))
	actual = normalizeSQL(actual)
	if expected != actual {
		r.writeSQLMismatchLog(stepNumber, expected, actual)
	}

	require.Equal(t, expected, actual, "SQL does not match expected")
}

func normalizeQuerySuiteOptions(t *testing.T, options QuerySuiteOptions) QuerySuiteOptions {
	if options.ConfigPath == "" {
		options.ConfigPath = "testdata/query_suite.json"
	}
	if options.LogsDir == "" {
		options.LogsDir = t.TempDir()
	}
	if options.StepName == nil {
		options.StepName = DefaultQueryStepName
	}
	if options.ActionHandlers == nil {
		options.ActionHandlers = map[string]QueryStepAction{}
	}
	return options
}

func loadQuerySuiteConfig(path string) ([]QuerySuiteStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []QuerySuiteStep
	if err := jsoniter.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// normalizeSQL collapses whitespace and drops a trailing semicolon.
func normalizeSQL(sql string) string {
	return strings.TrimSuffix(strings.Join(strings.Fields(sql), " "), ";")
}

func (r *QuerySuiteRunner) writeStatusMismatchLog(stepNumber int, q *ast.Query, expected int, actual int, err error) {
	var b strings.Builder
	b.WriteString(q.String() + "\n")
	b.WriteString(fmt.Sprintf("Expected status %d but got %d\n", expected, actual))
	if err != nil {
		b.WriteString("Error: " + err.Error() + "\n")
	}
	_ = os.WriteFile(filepath.Join(r.options.LogsDir, fmt.Sprintf("STEP_%d.log", stepNumber)), []byte(b.String()), 0o644)
}

func (r *QuerySuiteRunner) writeSQLMismatchLog(stepNumber int, expected string, actual string) {
	var b strings.Builder
	b.WriteString("SQL mismatch:\nExpected: ")
	b.WriteString(expected)
	b.WriteString("\nActual: ")
	b.WriteString(actual)
	b.WriteString("\n")
	_ = os.WriteFile(filepath.Join(r.options.LogsDir, fmt.Sprintf("STEP_%d.log", stepNumber)), []byte(b.String()), 0o644)
}
