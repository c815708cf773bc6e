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

// Package aqlcli implements the aqlc command line tool.
package aqlcli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/service"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	"github.com/ehrbase/ehrbase-go-components/internal/common/logger"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath    string
	MetadataPath  string
	TemplatesPath string
	Format        string // "text" | "json"
	Verbose       bool
}

// ValidFormats are the accepted values of --format.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the aqlc root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aqlc",
		Short: "aqlc - AQL to SQL compiler",
		Long:  "Compiles openEHR AQL queries (JSON encoded syntax trees) to PostgreSQL and runs them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.MetadataPath, "metadata", "", "RM metadata file, overrides aql.metadataPath")
	cmd.PersistentFlags().StringVar(&opts.TemplatesPath, "templates", "", "template id to uuid mapping (YAML)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every compilation stage")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// environment is what every command needs to compile queries.
type environment struct {
	cfg     *common.Config
	md      *rm.Metadata
	service *service.AqlQueryService
}

func loadEnvironment(opts *RootOptions) (*environment, error) {
	cfg, err := common.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.SetDebug(cfg.AQL.Debug || opts.Verbose)

	md, err := loadMetadata(firstNonEmpty(opts.MetadataPath, cfg.AQL.MetadataPath))
	if err != nil {
		return nil, err
	}

	var templates rm.KnowledgeCache = rm.NewStaticKnowledgeCache(nil)
	if opts.TemplatesPath != "" {
		f, err := os.Open(opts.TemplatesPath)
		if err != nil {
			return nil, fmt.Errorf("open templates: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		static, err := rm.LoadTemplates(f)
		if err != nil {
			return nil, err
		}
		templates = static
	}
	knowledge, err := rm.NewCachingKnowledgeCache(templates, cfg.AQL.TemplateCacheSize)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, md: md, service: service.NewAqlQueryService(cfg.AQL, md, knowledge)}, nil
}

func loadMetadata(path string) (*rm.Metadata, error) {
	if path == "" {
		return rm.DefaultMetadata()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return rm.LoadMetadata(f)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readQuery validates and decodes a JSON query document.
func readQuery(path string) (*ast.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := ast.ValidateQueryDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	q, err := ast.DecodeQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}
