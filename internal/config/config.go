// Package config loads pipeline configuration from file and environment.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Match MatchConfig `yaml:"match" mapstructure:"match"`
	Merge MergeConfig `yaml:"merge" mapstructure:"merge"`

	// Sources describes the external tables the adapter reads from.
	Sources []SourceTable `yaml:"sources" mapstructure:"sources"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatchConfig configures the match tier engine.
type MatchConfig struct {
	// FuzzyFloor is the minimum trigram similarity for any fuzzy edge.
	FuzzyFloor float64 `yaml:"fuzzy_floor" mapstructure:"fuzzy_floor"`
	// FuzzyMedium is the similarity at which a fuzzy edge is banded MEDIUM
	// instead of LOW.
	FuzzyMedium float64 `yaml:"fuzzy_medium" mapstructure:"fuzzy_medium"`
	// Workers bounds concurrent state shards.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// SourceTable describes one external source table the adapter reads.
// Column fields name columns in that table; empty optional columns are
// simply absent from the resulting records.
type SourceTable struct {
	System           string `yaml:"system" mapstructure:"system"`
	Table            string `yaml:"table" mapstructure:"table"`
	IDColumn         string `yaml:"id_column" mapstructure:"id_column"`
	NameColumn       string `yaml:"name_column" mapstructure:"name_column"`
	StateColumn      string `yaml:"state_column" mapstructure:"state_column"`
	CityColumn       string `yaml:"city_column" mapstructure:"city_column"`
	StreetColumn     string `yaml:"street_column" mapstructure:"street_column"`
	ZipColumn        string `yaml:"zip_column" mapstructure:"zip_column"`
	IdentifierColumn string `yaml:"identifier_column" mapstructure:"identifier_column"`
}

// MergeConfig configures the merge executor. Dependent tables are a
// configuration input, not hard-coded logic: the list changes as new
// downstream consumers are added, and an omitted table is a silent data-loss
// bug, so the executor validates the whole list before any writes.
type MergeConfig struct {
	// DependentTablesFile optionally points at a standalone YAML descriptor
	// file; entries there are appended to the inline lists.
	DependentTablesFile string `yaml:"dependent_tables_file" mapstructure:"dependent_tables_file"`

	DependentTables  []DependentTable  `yaml:"dependent_tables" mapstructure:"dependent_tables"`
	EnrichmentTables []EnrichmentTable `yaml:"enrichment_tables" mapstructure:"enrichment_tables"`
}

// DependentTable describes one downstream table holding foreign keys to
// canonical employers that the merge executor must migrate.
type DependentTable struct {
	Table  string `yaml:"table" mapstructure:"table"`
	Column string `yaml:"column" mapstructure:"column"`
	// UniqueWith names the downstream-entity column that, together with
	// Column, forms a uniqueness constraint. When set, loser rows that would
	// collide with an existing keeper row are deleted and counted as
	// conflicts instead of updated.
	UniqueWith string `yaml:"unique_with" mapstructure:"unique_with"`
}

// EnrichmentTable describes a 1:1 external-identifier crosswalk keyed by
// employer. During a merge, missing keeper fields are filled from the loser
// row (first non-null wins) and the loser row is deleted.
type EnrichmentTable struct {
	Table       string   `yaml:"table" mapstructure:"table"`
	Column      string   `yaml:"column" mapstructure:"column"`
	FillColumns []string `yaml:"fill_columns" mapstructure:"fill_columns"`
}

// descriptorFile is the shape of a standalone dependent-table YAML file.
type descriptorFile struct {
	DependentTables  []DependentTable  `yaml:"dependent_tables"`
	EnrichmentTables []EnrichmentTable `yaml:"enrichment_tables"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("UNIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("match.fuzzy_floor", 0.55)
	v.SetDefault("match.fuzzy_medium", 0.70)
	v.SetDefault("match.workers", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Merge.DependentTablesFile != "" {
		if err := cfg.Merge.loadDescriptorFile(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// loadDescriptorFile appends descriptors from the standalone YAML file.
func (m *MergeConfig) loadDescriptorFile() error {
	data, err := os.ReadFile(m.DependentTablesFile)
	if err != nil {
		return eris.Wrapf(err, "config: read dependent tables file %s", m.DependentTablesFile)
	}

	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return eris.Wrapf(err, "config: parse dependent tables file %s", m.DependentTablesFile)
	}

	m.DependentTables = append(m.DependentTables, f.DependentTables...)
	m.EnrichmentTables = append(m.EnrichmentTables, f.EnrichmentTables...)
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
