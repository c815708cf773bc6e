//go:build integration

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
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	. "github.com/ehrbase/ehrbase-go-components/internal/common/testenv"
)

var integrationDB = common.PostgresConfig{
	Host:                   "127.0.0.1",
	Port:                   15432,
	User:                   "ehrbase",
	Password:               "ehrbase",
	DBName:                 "ehrbase",
	MaxOpenConnections:     4,
	MaxIdleConnections:     4,
	ConnMaxLifetimeMinutes: 5,
}

func seedComposition(t *testing.T, db *sql.DB) (ehrID, voID uuid.UUID) {
	t.Helper()
	ehrID, voID, auditID := uuid.New(), uuid.New(), uuid.New()
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO ehr.ehr (id, creation_date) VALUES ($1, now())`, []any{ehrID}},
		{`INSERT INTO ehr.audit_details (id, committer, change_type) VALUES ($1, '{"_type":"PARTY_SELF"}', 'creation')`, []any{auditID}},
		{`INSERT INTO ehr.comp_version (vo_id, ehr_id, sys_version, audit_id, contribution_id, sys_period_lower, template_id, root_concept)
			VALUES ($1, $2, 1, $3, $4, now(), $5, '.report.v1')`, []any{voID, ehrID, auditID, uuid.New(), uuid.New()}},
		{`INSERT INTO ehr.comp_data (vo_id, num, num_cap, rm_entity, entity_concept, entity_name, data)
			VALUES ($1, 0, 0, 'COMPOSITION', '.report.v1', 'Report', '{"language": {"code_string": "en"}}')`, []any{voID}},
	}
	for _, s := range stmts {
		_, err := db.Exec(s.query, s.args...)
		require.NoError(t, err)
	}
	return ehrID, voID
}

func TestIntegrationExecute(t *testing.T) {
	db, err := common.InitializeDatabase(integrationDB)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ehrID, voID := seedComposition(t, db)

	s := newService(t)
	cq, err := s.Compile(Select("e/ehr_id/value", "c/uid/value", "c/name/value").
		From(Class("EHR", "e", "", Class("COMPOSITION", "c", "[openEHR-EHR-COMPOSITION.report.v1]"))).
		Where(Cmp("e/ehr_id/value", ast.OpEq, ast.StringValue(ehrID.String()))).
		Build())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := s.Execute(ctx, db, cq)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, []any{ehrID.String(), voID.String() + "::local.ehrbase.org::1", "Report"}, result.Rows[0])
}

func TestMain(m *testing.M) {
	os.Exit(RunComposeTestMain(m, ComposeTestMainOptions{
		ComposeFile:  "docker_compose/docker_compose.yml",
		PostgresDSN:  integrationDB.DSN(),
		ReadyTimeout: 2 * time.Minute,
	}))
}
