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

package rm

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// KnowledgeCache maps operational template ids to the uuids stored in the
// version tables and back.
type KnowledgeCache interface {
	TemplateIDForUUID(id uuid.UUID) (string, bool)
	UUIDForTemplateID(templateID string) (uuid.UUID, bool)
}

// StaticKnowledgeCache is an in-memory template table.
type StaticKnowledgeCache struct {
	byUUID     map[uuid.UUID]string
	byTemplate map[string]uuid.UUID
}

// NewStaticKnowledgeCache builds a cache from template id -> uuid pairs.
func NewStaticKnowledgeCache(templates map[string]uuid.UUID) *StaticKnowledgeCache {
	c := &StaticKnowledgeCache{
		byUUID:     make(map[uuid.UUID]string, len(templates)),
		byTemplate: make(map[string]uuid.UUID, len(templates)),
	}
	for templateID, id := range templates {
		c.byUUID[id] = templateID
		c.byTemplate[templateID] = id
	}
	return c
}

// LoadTemplates reads a YAML document of the form
//
//	templates:
//	  ehrbase_blood_pressure_simple.de.v0: 5d1d1b2e-5a8c-4b4e-9a3e-0c0a5e3b7f41
func LoadTemplates(r io.Reader) (*StaticKnowledgeCache, error) {
	var doc struct {
		Templates map[string]string `yaml:"templates"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	templates := make(map[string]uuid.UUID, len(doc.Templates))
	for templateID, raw := range doc.Templates {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", templateID, err)
		}
		templates[templateID] = id
	}
	return NewStaticKnowledgeCache(templates), nil
}

func (c *StaticKnowledgeCache) TemplateIDForUUID(id uuid.UUID) (string, bool) {
	t, ok := c.byUUID[id]
	return t, ok
}

func (c *StaticKnowledgeCache) UUIDForTemplateID(templateID string) (uuid.UUID, bool) {
	id, ok := c.byTemplate[templateID]
	return id, ok
}

// CachingKnowledgeCache keeps recently used lookups of a slower KnowledgeCache
// (typically backed by a template store) in bounded LRU caches. Misses are not cached.
type CachingKnowledgeCache struct {
	delegate   KnowledgeCache
	byUUID     *lru.Cache[uuid.UUID, string]
	byTemplate *lru.Cache[string, uuid.UUID]
}

// NewCachingKnowledgeCache wraps delegate with LRU caches of the given size.
func NewCachingKnowledgeCache(delegate KnowledgeCache, size int) (*CachingKnowledgeCache, error) {
	byUUID, err := lru.New[uuid.UUID, string](size)
	if err != nil {
		return nil, fmt.Errorf("create template uuid cache: %w", err)
	}
	byTemplate, err := lru.New[string, uuid.UUID](size)
	if err != nil {
		return nil, fmt.Errorf("create template id cache: %w", err)
	}
	return &CachingKnowledgeCache{delegate: delegate, byUUID: byUUID, byTemplate: byTemplate}, nil
}

func (c *CachingKnowledgeCache) TemplateIDForUUID(id uuid.UUID) (string, bool) {
	if t, ok := c.byUUID.Get(id); ok {
		return t, true
	}
	t, ok := c.delegate.TemplateIDForUUID(id)
	if ok {
		c.byUUID.Add(id, t)
		c.byTemplate.Add(t, id)
	}
	return t, ok
}

func (c *CachingKnowledgeCache) UUIDForTemplateID(templateID string) (uuid.UUID, bool) {
	if id, ok := c.byTemplate.Get(templateID); ok {
		return id, true
	}
	id, ok := c.delegate.UUIDForTemplateID(templateID)
	if ok {
		c.byTemplate.Add(templateID, id)
		c.byUUID.Add(id, templateID)
	}
	return id, ok
}
