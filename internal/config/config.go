package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the SAR workbench service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Encryption    EncryptionConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Workflow      WorkflowConfig
	Reference     ReferenceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL configuration for the audit ledger mirror
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Brokers          []string `mapstructure:"brokers"`
	AuditTopic       string   `mapstructure:"audit_topic"`
	EnableIdempotent bool     `mapstructure:"enable_idempotent"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	LedgerConsumer   bool     `mapstructure:"ledger_consumer"` // drain the audit topic into Postgres
}

// S3Config holds AWS S3 configuration for archival storage
type S3Config struct {
	Enabled       bool   `mapstructure:"enabled"`
	Region        string `mapstructure:"region"`
	ArchiveBucket string `mapstructure:"archive_bucket"`
	ReportsBucket string `mapstructure:"reports_bucket"`
	Endpoint      string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
}

// EncryptionConfig holds encryption settings
type EncryptionConfig struct {
	EncryptionKeysBase64 []string `mapstructure:"keys"`
	CurrentKeyVersion    int      `mapstructure:"current_key_version"`
	AuditHMACSecret      string   `mapstructure:"audit_hmac_secret"`
}

// Enabled reports whether keys were supplied.
func (c EncryptionConfig) Enabled() bool {
	return len(c.EncryptionKeysBase64) > 0 && c.AuditHMACSecret != ""
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	OutputPath    string `mapstructure:"output_path"`
	EnablePIIMask bool   `mapstructure:"enable_pii_mask"`
}

// WorkflowConfig holds session defaults
type WorkflowConfig struct {
	DefaultAlertID  string `mapstructure:"default_alert_id"`
	AnalystUser     string `mapstructure:"analyst_user"`
	ReviewerUser    string `mapstructure:"reviewer_user"`
	DefaultRole     string `mapstructure:"default_role"`
	DefaultTemplate string `mapstructure:"default_template"`
}

// ReferenceConfig points at an alternate reference dataset. Empty uses the embedded seed.
type ReferenceConfig struct {
	DatasetPath string `mapstructure:"dataset_path"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile loads configuration from an explicit YAML file plus environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Read from environment variables, e.g. SARWB_KAFKA_ENABLED
	v.SetEnvPrefix("SARWB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to AutomaticEnv until bound.
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that every enabled integration is fully configured.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be positive"))
	}
	if c.Workflow.AnalystUser == "" || c.Workflow.ReviewerUser == "" {
		errs = append(errs, errors.New("workflow.analyst_user and workflow.reviewer_user are required"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.AuditTopic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.audit_topic are required when kafka is enabled"))
	}
	if c.Kafka.LedgerConsumer && !(c.Kafka.Enabled && c.Database.Enabled) {
		errs = append(errs, errors.New("kafka.ledger_consumer requires kafka and database to be enabled"))
	}
	if c.Elasticsearch.Enabled && (len(c.Elasticsearch.Addresses) == 0 || c.Elasticsearch.Index == "") {
		errs = append(errs, errors.New("elasticsearch.addresses and elasticsearch.index are required when elasticsearch is enabled"))
	}
	if c.S3.Enabled && c.S3.ArchiveBucket == "" {
		errs = append(errs, errors.New("s3.archive_bucket is required when s3 is enabled"))
	}
	if c.S3.Enabled && !c.Encryption.Enabled() {
		errs = append(errs, errors.New("encryption keys are required when s3 archiving is enabled"))
	}
	if c.Auth.Enabled && c.Auth.JWTPublicKeyPath == "" {
		errs = append(errs, errors.New("auth.jwt_public_key_path is required when auth is enabled"))
	}
	return errors.Join(errs...)
}

// envOnlyKeys have no default. List values are comma separated.
var envOnlyKeys = []string{
	"encryption.keys",
	"encryption.audit_hmac_secret",
	"s3.endpoint",
	"s3.access_key",
	"s3.secret_key",
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sar_workbench")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.ensure_schema", true)

	// Elasticsearch
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "sar-audit-events")

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.audit_topic", "banking.sar.audit")
	v.SetDefault("kafka.enable_idempotent", true)
	v.SetDefault("kafka.consumer_group", "sar-workbench-ledger")
	v.SetDefault("kafka.ledger_consumer", false)

	// S3
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.archive_bucket", "banking-sar-archive")
	v.SetDefault("s3.reports_bucket", "banking-sar-reports")

	// Encryption
	v.SetDefault("encryption.current_key_version", 1)

	// Auth
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.enable_pii_mask", true)

	// Workflow
	v.SetDefault("workflow.default_alert_id", "ALT-1024")
	v.SetDefault("workflow.analyst_user", "a.patel")
	v.SetDefault("workflow.reviewer_user", "m.khan")
	v.SetDefault("workflow.default_role", "Analyst")
	v.SetDefault("workflow.default_template", "Standard")

	// Reference data
	v.SetDefault("reference.dataset_path", "")
}
