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

// Package common contains the configuration, database and error handling shared by the
// AQL compiler packages and the command line tool.
package common

import (
	"fmt"
	"log"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

// Config represents the complete configuration of the AQL compiler.
// It combines the compiler settings and the PostgreSQL connection used to execute queries.
type Config struct {
	AQL      AQLConfig      `mapstructure:"aql" json:"aql"`           // Query compilation settings
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"` // PostgreSQL database settings
}

// AQLConfig contains the query compilation settings.
type AQLConfig struct {
	SystemID                  string `mapstructure:"systemId" json:"systemId"`                                   // System id used in version uids
	MetadataPath              string `mapstructure:"metadataPath" json:"metadataPath"`                           // RM metadata YAML, empty for the embedded one
	Prepared                  bool   `mapstructure:"prepared" json:"prepared"`                                   // Render placeholders instead of inlined literals
	MaxConcurrentCompilations int    `mapstructure:"maxConcurrentCompilations" json:"maxConcurrentCompilations"` // Parallelism of batch compilation
	TemplateCacheSize         int    `mapstructure:"templateCacheSize" json:"templateCacheSize"`                 // Entries of the template id LRU
	Debug                     bool   `mapstructure:"debug" json:"debug"`                                         // Enable per-stage debug logging
}

// PostgresConfig contains PostgreSQL database connection parameters.
type PostgresConfig struct {
	Host                   string `mapstructure:"host" json:"host"`                                     // Database host address
	Port                   int    `mapstructure:"port" json:"port"`                                     // Database port (default: 5432)
	User                   string `mapstructure:"user" json:"user"`                                     // Database username
	Password               string `mapstructure:"password" json:"password"`                             // Database password
	DBName                 string `mapstructure:"dbname" json:"dbname"`                                 // Database name
	MaxOpenConnections     int    `mapstructure:"maxOpenConnections" json:"maxOpenConnections"`         // Maximum open connections
	MaxIdleConnections     int    `mapstructure:"maxIdleConnections" json:"maxIdleConnections"`         // Maximum idle connections
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes" json:"connMaxLifetimeMinutes"` // Connection lifetime in minutes
}

// DSN builds the lib/pq connection string for the configured database.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DBName)
}

// LoadConfig loads the configuration from a YAML file and environment variables.
//
// The function supports multiple configuration sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (if provided)
// 3. Default values (lowest priority)
//
// Environment variables use underscore notation (e.g., AQL_SYSTEMID for aql.systemId).
//
// Parameters:
//   - configPath: Path to the YAML configuration file. If empty, only environment
//     variables and defaults will be used.
//
// Returns:
//   - *Config: Loaded configuration structure
//   - error: Error if configuration loading fails
//
// Example:
//
//	config, err := LoadConfig("config/aql.yaml")
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.AQL.MaxConcurrentCompilations < 1 {
		return nil, fmt.Errorf("aql.maxConcurrentCompilations must be positive, got %d", cfg.AQL.MaxConcurrentCompilations)
	}

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

// setDefaults configures default values for all configuration options.
//
// Parameters:
//   - v: Viper instance to configure with default values
//
// Default values include:
//   - AQL: system id "local.ehrbase.org", embedded RM metadata, prepared statements
//   - Database: Local PostgreSQL on port 5432 with test credentials
func setDefaults(v *viper.Viper) {
	v.SetDefault("aql.systemId", "local.ehrbase.org")
	v.SetDefault("aql.metadataPath", "")
	v.SetDefault("aql.prepared", true)
	v.SetDefault("aql.maxConcurrentCompilations", 4)
	v.SetDefault("aql.templateCacheSize", 256)
	v.SetDefault("aql.debug", false)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "ehrbase")
	v.SetDefault("postgres.password", "ehrbase")
	v.SetDefault("postgres.dbname", "ehrbase")
	v.SetDefault("postgres.maxOpenConnections", 50)
	v.SetDefault("postgres.maxIdleConnections", 50)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)
}

// PrintConfiguration prints the current configuration with database credentials redacted.
//
// Parameters:
//   - cfg: Configuration structure to print
func PrintConfiguration(cfg *Config) {
	cfgCopy := *cfg

	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}

	configJSON, err := jsoniter.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}
