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

// Package extractedcolumn maps well known RM paths onto physical storage columns.
//
// A path is extracted when its target is stored in a dedicated column of a data,
// version, EHR or audit table instead of inside the JSON data of a structure row.
// The table is static; NewRegistry only binds it to the RM metadata used to check
// which containment types a column applies to.
package extractedcolumn

import (
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
)

// Column identifies an extracted column.
type Column int

const (
	NameValue Column = iota
	ArchetypeNodeID
	TemplateID
	RootConcept
	VoID
	EhrID
	EhrTimeCreatedDV
	EhrTimeCreated
	EhrSystemIDDV
	EhrSystemID
	OvContributionID
	OvTimeCommittedDV
	OvTimeCommitted
	AdSystemID
	AdDescriptionDV
	AdDescriptionValue
	AdChangeTypeDV
	AdChangeTypeValue
	AdChangeTypeCodeString
	AdChangeTypePreferredTerm
	AdChangeTypeTerminologyIDValue
	AdCommitter
)

// Source is the relation an extracted column is read from.
type Source int

const (
	DataTable Source = iota
	VersionTable
	EhrTable
	AuditDetailsTable
	// Constant columns are not stored: the configured system id, or the
	// "openehr" terminology for change types.
	Constant
)

// Spec describes one extracted column.
type Spec struct {
	Column    Column
	Name      string
	Path      string   // canonical path, attributes joined with "/"
	Columns   []string // physical columns in reconstruction order
	Source    Source
	ValueType string // RM type of the path target
	// Complex columns need a derived expression or reconstruction (several
	// columns, id mapping, constant or a data value object).
	Complex                  bool
	RequiresVersionTableJoin bool
	RequiresAuditDetailsJoin bool
	// AllowedRmTypes are matched with rm.Metadata.IsSubtypeOf.
	AllowedRmTypes []string
}

var versionedRoots = []string{rm.Composition, rm.EhrStatus, rm.Folder, rm.OriginalVersion}

var specs = []Spec{
	{Column: NameValue, Name: "NAME_VALUE", Path: "name/value", Columns: []string{"entity_name"},
		Source: DataTable, ValueType: "String", AllowedRmTypes: []string{"LOCATABLE"}},
	{Column: ArchetypeNodeID, Name: "ARCHETYPE_NODE_ID", Path: "archetype_node_id", Columns: []string{"rm_entity", "entity_concept"},
		Source: DataTable, ValueType: "String", Complex: true, AllowedRmTypes: []string{"LOCATABLE"}},
	{Column: TemplateID, Name: "TEMPLATE_ID", Path: "archetype_details/template_id/value", Columns: []string{"template_id"},
		Source: VersionTable, ValueType: "String", Complex: true, RequiresVersionTableJoin: true, AllowedRmTypes: []string{rm.Composition}},
	{Column: RootConcept, Name: "ROOT_CONCEPT", Path: "archetype_details/archetype_id/value", Columns: []string{"root_concept"},
		Source: VersionTable, ValueType: "String", Complex: true, RequiresVersionTableJoin: true, AllowedRmTypes: []string{rm.Composition}},
	{Column: VoID, Name: "VO_ID", Path: "uid/value", Columns: []string{"vo_id", "sys_version"},
		Source: VersionTable, ValueType: "String", Complex: true, RequiresVersionTableJoin: true, AllowedRmTypes: versionedRoots},
	{Column: EhrID, Name: "EHR_ID", Path: "ehr_id/value", Columns: []string{"id"},
		Source: EhrTable, ValueType: "String", AllowedRmTypes: []string{rm.Ehr}},
	{Column: EhrTimeCreatedDV, Name: "EHR_TIME_CREATED_DV", Path: "time_created", Columns: []string{"creation_date"},
		Source: EhrTable, ValueType: "DV_DATE_TIME", Complex: true, AllowedRmTypes: []string{rm.Ehr}},
	{Column: EhrTimeCreated, Name: "EHR_TIME_CREATED", Path: "time_created/value", Columns: []string{"creation_date"},
		Source: EhrTable, ValueType: "String", AllowedRmTypes: []string{rm.Ehr}},
	{Column: EhrSystemIDDV, Name: "EHR_SYSTEM_ID_DV", Path: "system_id",
		Source: Constant, ValueType: "HIER_OBJECT_ID", Complex: true, AllowedRmTypes: []string{rm.Ehr}},
	{Column: EhrSystemID, Name: "EHR_SYSTEM_ID", Path: "system_id/value",
		Source: Constant, ValueType: "String", Complex: true, AllowedRmTypes: []string{rm.Ehr}},
	{Column: OvContributionID, Name: "OV_CONTRIBUTION_ID", Path: "contribution/id/value", Columns: []string{"contribution_id"},
		Source: VersionTable, ValueType: "String", RequiresVersionTableJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: OvTimeCommittedDV, Name: "OV_TIME_COMMITTED_DV", Path: "commit_audit/time_committed", Columns: []string{"sys_period_lower"},
		Source: VersionTable, ValueType: "DV_DATE_TIME", Complex: true, RequiresVersionTableJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: OvTimeCommitted, Name: "OV_TIME_COMMITTED", Path: "commit_audit/time_committed/value", Columns: []string{"sys_period_lower"},
		Source: VersionTable, ValueType: "String", RequiresVersionTableJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdSystemID, Name: "AD_SYSTEM_ID", Path: "commit_audit/system_id",
		Source: Constant, ValueType: "String", Complex: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdDescriptionDV, Name: "AD_DESCRIPTION_DV", Path: "commit_audit/description", Columns: []string{"description"},
		Source: AuditDetailsTable, ValueType: "DV_TEXT", Complex: true, RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdDescriptionValue, Name: "AD_DESCRIPTION_VALUE", Path: "commit_audit/description/value", Columns: []string{"description"},
		Source: AuditDetailsTable, ValueType: "String", RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdChangeTypeDV, Name: "AD_CHANGE_TYPE_DV", Path: "commit_audit/change_type", Columns: []string{"change_type"},
		Source: AuditDetailsTable, ValueType: "DV_CODED_TEXT", Complex: true, RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdChangeTypeValue, Name: "AD_CHANGE_TYPE_VALUE", Path: "commit_audit/change_type/value", Columns: []string{"change_type"},
		Source: AuditDetailsTable, ValueType: "String", RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdChangeTypeCodeString, Name: "AD_CHANGE_TYPE_CODE_STRING", Path: "commit_audit/change_type/defining_code/code_string", Columns: []string{"change_type"},
		Source: AuditDetailsTable, ValueType: "String", Complex: true, RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdChangeTypePreferredTerm, Name: "AD_CHANGE_TYPE_PREFERRED_TERM", Path: "commit_audit/change_type/defining_code/preferred_term", Columns: []string{"change_type"},
		Source: AuditDetailsTable, ValueType: "String", RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdChangeTypeTerminologyIDValue, Name: "AD_CHANGE_TYPE_TERMINOLOGY_ID_VALUE", Path: "commit_audit/change_type/defining_code/terminology_id/value",
		Source: Constant, ValueType: "String", Complex: true, AllowedRmTypes: []string{rm.OriginalVersion}},
	{Column: AdCommitter, Name: "AD_COMMITTER", Path: "commit_audit/committer", Columns: []string{"committer"},
		Source: AuditDetailsTable, ValueType: "PARTY_PROXY", Complex: true, RequiresVersionTableJoin: true, RequiresAuditDetailsJoin: true, AllowedRmTypes: []string{rm.OriginalVersion}},
}

func (c Column) String() string {
	if int(c) >= 0 && int(c) < len(specs) {
		return specs[c].Name
	}
	return "UNKNOWN"
}

// IsTimeColumn reports whether c is a commit or creation time column. Those
// are only allowed as COUNT arguments and cannot be compared.
func (c Column) IsTimeColumn() bool {
	switch c {
	case EhrTimeCreated, EhrTimeCreatedDV, OvTimeCommitted, OvTimeCommittedDV:
		return true
	}
	return false
}

// IsChangeType reports whether c is one of the commit_audit/change_type columns.
func (c Column) IsChangeType() bool {
	switch c {
	case AdChangeTypeDV, AdChangeTypeValue, AdChangeTypeCodeString, AdChangeTypePreferredTerm, AdChangeTypeTerminologyIDValue:
		return true
	}
	return false
}

// Registry resolves paths to extracted columns.
type Registry struct {
	md     *rm.Metadata
	byPath map[string][]Column
}

// NewRegistry builds the immutable registry; it is safe for concurrent use.
func NewRegistry(md *rm.Metadata) *Registry {
	r := &Registry{md: md, byPath: make(map[string][]Column, len(specs))}
	for _, s := range specs {
		r.byPath[s.Path] = append(r.byPath[s.Path], s.Column)
	}
	return r
}

// Spec returns the description of c.
func (r *Registry) Spec(c Column) Spec {
	return specs[c]
}

// All lists every extracted column in declaration order.
func (r *Registry) All() []Spec {
	return append([]Spec{}, specs...)
}

// AppliesTo reports whether c may be read from a node of rmType.
func (r *Registry) AppliesTo(c Column, rmType string) bool {
	for _, allowed := range specs[c].AllowedRmTypes {
		if r.md.IsSubtypeOf(rmType, allowed) {
			return true
		}
	}
	return false
}

// Find resolves path, relative to a node whose possible types are rmTypes, to an
// extracted column. Paths carrying predicates never match. Every type in rmTypes
// must allow the column.
func (r *Registry) Find(rmTypes []string, path *ast.ObjectPath) (Column, bool) {
	if path == nil || len(path.Nodes) == 0 || len(rmTypes) == 0 {
		return 0, false
	}
	attrs := make([]string, len(path.Nodes))
	for i, n := range path.Nodes {
		if len(n.Predicates) > 0 {
			return 0, false
		}
		attrs[i] = n.Attribute
	}
	return r.FindCanonical(rmTypes, strings.Join(attrs, "/"))
}

// FindCanonical is Find for a predicate free path given as "a/b/c".
func (r *Registry) FindCanonical(rmTypes []string, path string) (Column, bool) {
	if len(rmTypes) == 0 {
		return 0, false
	}
candidates:
	for _, c := range r.byPath[path] {
		for _, t := range rmTypes {
			if !r.AppliesTo(c, t) {
				continue candidates
			}
		}
		return c, true
	}
	return 0, false
}
