package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "LICENSURE"

// newViper builds a pre-configured Viper instance: YAML file type,
// LICENSURE_ env prefix, automatic env binding, and a key replacer that maps
// "." to "_" so nested keys like "database.host" resolve to
// "LICENSURE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every config key to viper.  AutomaticEnv only
// resolves keys viper already knows about, so without this an env-only
// deployment would unmarshal an empty Config.
func registerKeys(v *viper.Viper) {
	for key, def := range map[string]interface{}{
		"server.port":             0,
		"server.mode":             "",
		"server.read_timeout":     0,
		"server.write_timeout":    0,
		"server.max_body_size":    0,
		"server.shutdown_timeout": 0,

		"database.host":               "",
		"database.port":               0,
		"database.user":               "",
		"database.password":           "",
		"database.db_name":            "",
		"database.ssl_mode":           "",
		"database.max_conns":          0,
		"database.min_conns":          0,
		"database.conn_max_lifetime":  0,
		"database.conn_max_idle_time": 0,
		"database.migration_path":     "",

		"redis.addr":           "",
		"redis.password":       "",
		"redis.db":             0,
		"redis.pool_size":      0,
		"redis.min_idle_conns": 0,
		"redis.dial_timeout":   0,
		"redis.read_timeout":   0,
		"redis.write_timeout":  0,
		"redis.default_ttl":    0,
		"redis.key_prefix":     "",

		"kafka.brokers":            []string(nil),
		"kafka.group_id":           "",
		"kafka.auto_offset_reset":  "",
		"kafka.timeout_ms":         0,
		"kafka.producer_retries":   0,
		"kafka.batch_size":         0,
		"kafka.auto_create_topics": false,
		"kafka.replication_factor": 0,
		"kafka.num_partitions":     0,

		"opensearch.addresses":            []string(nil),
		"opensearch.user":                 "",
		"opensearch.password":             "",
		"opensearch.insecure_skip_verify": false,
		"opensearch.bulk_batch_size":      0,
		"opensearch.index_prefix":         "",

		"worker.concurrency":     0,
		"worker.max_retries":     0,
		"worker.retry_backoff":   0,
		"worker.commit_interval": 0,

		"compact.name":          "",
		"compact.jurisdictions": map[string]string(nil),
		"compact.license_types": map[string]string(nil),

		"log.level":              "",
		"log.format":             "",
		"log.output_paths":       []string(nil),
		"log.error_output_paths": []string(nil),
	} {
		v.SetDefault(key, def)
	}
}

// Load reads the YAML file at configPath, merges LICENSURE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from LICENSURE_* environment
// variables, no config file required.  Preferred for containerised
// deployments.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes on disk.  Intended for hot-reloading
// non-critical settings such as log level; callers apply only the safe
// subset of changes at runtime.
//
// Watch is non-blocking; viper manages the background goroutine.  A changed
// file that fails to parse or validate does not trigger onChange.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error.  For use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
