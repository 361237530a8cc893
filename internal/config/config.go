// Package config loads the CLI settings from the config file, the environment
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

// Setting keys.
const (
	KeyAPI             = "api"
	KeyOutput          = "output"
	KeyVerbose         = "verbose"
	KeyNoColor         = "no_color"
	KeyPageSize        = "page_size"
	KeyPagination      = "pagination"
	KeyTimeout         = "timeout"
	KeyRetries         = "retries"
	KeyUserAgent       = "user_agent"
	KeyCacheType       = "cache.type"
	KeyCachePath       = "cache.path"
	KeyCacheNATSURL    = "cache.nats_url"
	KeyCacheNATSBucket = "cache.nats_bucket"
	KeyLookupTTL       = "cache.lookup_ttl"
)

// DirName is the settings directory under the user's home.
const DirName = ".travio"

// Settings is the decoded CLI configuration.
type Settings struct {
	API        string        `json:"api"        mapstructure:"api"        yaml:"api"`
	Output     string        `json:"output"     mapstructure:"output"     yaml:"output"`
	Verbose    bool          `json:"verbose"    mapstructure:"verbose"    yaml:"verbose"`
	NoColor    bool          `json:"no_color"   mapstructure:"no_color"   yaml:"no_color"`
	PageSize   int           `json:"page_size"  mapstructure:"page_size"  yaml:"page_size"`
	Pagination string        `json:"pagination" mapstructure:"pagination" yaml:"pagination"`
	Timeout    time.Duration `json:"timeout"    mapstructure:"timeout"    yaml:"timeout"`
	Retries    int           `json:"retries"    mapstructure:"retries"    yaml:"retries"`
	UserAgent  string        `json:"user_agent" mapstructure:"user_agent" yaml:"user_agent,omitempty"`
	Cache      CacheSettings `json:"cache"      mapstructure:"cache"      yaml:"cache"`
}

// CacheSettings selects where credentials and looked-up stations are kept.
type CacheSettings struct {
	Type       string        `json:"type"        mapstructure:"type"        yaml:"type"`
	Path       string        `json:"path"        mapstructure:"path"        yaml:"path,omitempty"`
	NATSURL    string        `json:"nats_url"    mapstructure:"nats_url"    yaml:"nats_url,omitempty"`
	NATSBucket string        `json:"nats_bucket" mapstructure:"nats_bucket" yaml:"nats_bucket,omitempty"`
	LookupTTL  time.Duration `json:"lookup_ttl"  mapstructure:"lookup_ttl"  yaml:"lookup_ttl"`
}

// DefaultDir returns ~/.travio.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}

	return filepath.Join(home, DirName), nil
}

// SetDefaults registers the default of every setting on v. dir holds the
// SQLite database.
func SetDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyOutput, constants.FormatTable)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyPageSize, constants.StandardPageSize)
	v.SetDefault(KeyPagination, string(travio.PaginationCursor))
	v.SetDefault(KeyTimeout, constants.DefaultHTTPTimeout)
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyCacheType, string(travio.CacheTypeSQLite))
	v.SetDefault(KeyCachePath, filepath.Join(dir, "travio.db"))
	v.SetDefault(KeyCacheNATSBucket, "travio")
	v.SetDefault(KeyLookupTTL, 24*time.Hour)
}

// Keys lists every setting that `config set` accepts.
func Keys() []string {
	keys := []string{
		KeyAPI, KeyOutput, KeyVerbose, KeyNoColor, KeyPageSize, KeyPagination,
		KeyTimeout, KeyRetries, KeyUserAgent, KeyCacheType, KeyCachePath,
		KeyCacheNATSURL, KeyCacheNATSBucket, KeyLookupTTL,
	}
	sort.Strings(keys)

	return keys
}

// IsKey reports whether key is a known setting.
func IsKey(key string) bool {
	for _, known := range Keys() {
		if known == key {
			return true
		}
	}

	return false
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var settings Settings

	err := v.Unmarshal(&settings)
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	err = settings.Validate()
	if err != nil {
		return nil, err
	}

	return &settings, nil
}

// Validate checks the enumerations and ranges of s.
func (s *Settings) Validate() error {
	switch s.Output {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
	default:
		return fmt.Errorf("%w: %q", constants.ErrInvalidOutput, s.Output)
	}

	if s.PageSize < 1 || s.PageSize > constants.MaxPageSize {
		return fmt.Errorf("%w: %d", constants.ErrInvalidPageSize, s.PageSize)
	}

	switch travio.PaginationMode(s.Pagination) {
	case travio.PaginationCursor, travio.PaginationOffset:
	default:
		return fmt.Errorf("%w: %q", constants.ErrInvalidPagination, s.Pagination)
	}

	switch travio.CacheType(s.Cache.Type) {
	case travio.CacheTypeMemory, travio.CacheTypeSQLite, travio.CacheTypeNATS:
	default:
		return fmt.Errorf("%w: %q", travio.ErrUnsupportedCacheType, s.Cache.Type)
	}

	if s.Retries < 0 {
		return fmt.Errorf("%w: retries %d", constants.ErrNegativeValue, s.Retries)
	}

	return nil
}

// ClientConfig translates the settings into a travio.Config.
func (s *Settings) ClientConfig(logger travio.Logger) (*travio.Config, error) {
	if s.API == "" {
		return nil, constants.ErrNoAPIEndpoint
	}

	config := &travio.Config{
		APIEndpoint:    s.API,
		HTTPTimeout:    s.Timeout,
		RetryMax:       s.Retries,
		Debug:          s.Verbose,
		Logger:         logger,
		UserAgent:      s.UserAgent,
		PageSize:       s.PageSize,
		PaginationMode: travio.PaginationMode(s.Pagination),
		PointLookupTTL: s.Cache.LookupTTL,
		Cache:          &travio.CacheConfig{Type: travio.CacheType(s.Cache.Type)},
	}

	if s.Retries > 0 {
		config.RetryWaitMin = constants.DefaultRetryWaitMin
		config.RetryWaitMax = constants.ExtendedRetryWaitMax
	}

	switch config.Cache.Type {
	case travio.CacheTypeSQLite:
		config.Cache.SQLite = &travio.SQLiteCacheConfig{Path: s.Cache.Path}
	case travio.CacheTypeNATS:
		config.Cache.NATS = &travio.NATSKVConfig{URL: s.Cache.NATSURL, Bucket: s.Cache.NATSBucket}
	case travio.CacheTypeMemory, travio.CacheTypeNone:
	}

	return config, nil
}
