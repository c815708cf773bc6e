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

package service

import (
	"context"
	"testing"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	. "github.com/ehrbase/ehrbase-go-components/internal/common/testenv"
)

func benchQueries() []*ast.Query {
	return []*ast.Query{
		Select("c/uid/value").From(Class("COMPOSITION", "c", "")).Limit(10).Build(),
		Select("e/ehr_id/value", "c/name/value").
			From(Class("EHR", "e", "", Class("COMPOSITION", "c", "[openEHR-EHR-COMPOSITION.report.v1]"))).
			Build(),
		Select("c/content", "o").
			From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).
			Build(),
		Select("o/name/value").
			From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).
			Where(Like("o/archetype_node_id", "openEHR-EHR-OBSERVATION.%")).
			Build(),
	}
}

var benchConfig = common.AQLConfig{SystemID: "local.ehrbase.org", Prepared: true, MaxConcurrentCompilations: 4}

func BenchmarkCompile(b *testing.B) {
	s := NewAqlQueryService(benchConfig, rm.MustDefaultMetadata(), nil)
	queries := benchQueries()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Compile(queries[i%len(queries)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileAll(b *testing.B) {
	s := NewAqlQueryService(benchConfig, rm.MustDefaultMetadata(), nil)
	queries := benchQueries()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.CompileAll(context.Background(), queries); err != nil {
			b.Fatal(err)
		}
	}
}
