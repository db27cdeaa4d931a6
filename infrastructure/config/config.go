package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "github.com/aokaito/annotune-sub000/domain/config"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	PersistenceDynamoDB = "dynamodb"
	PersistenceMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	TableName        string `yaml:"table_name"`
	OwnerIndexName   string `yaml:"owner_index_name"`  // GSI1, owner listing
	PublicIndexName  string `yaml:"public_index_name"` // GSI2, sparse public listing
	EventBusName     string `yaml:"event_bus_name"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`

	// Persistence is dynamodb or memory. Empty resolves to dynamodb when a
	// table is configured.
	Persistence string `yaml:"persistence"`

	// Lambda configuration
	IsLambda           bool   `yaml:"-"`
	LambdaFunctionName string `yaml:"-"`

	// Authentication
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTIssuer   string   `yaml:"jwt_issuer"`
	JWTAudience []string `yaml:"jwt_audience"`

	// Annotation behavior
	StrictAnnotationLocking    bool          `yaml:"strict_annotation_locking"`
	LegacyOwnerlessAnnotations bool          `yaml:"legacy_ownerless_annotations"`
	AnnotationLockTTL          time.Duration `yaml:"annotation_lock_ttl"`
	AnnotationLockWait         time.Duration `yaml:"annotation_lock_wait"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics      bool     `yaml:"enable_metrics"`
	MetricsNamespace   string   `yaml:"metrics_namespace"`
	EnableTracing      bool     `yaml:"enable_tracing"`
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerAddress:              ":8080",
		Environment:                "development",
		AWSRegion:                  "ap-northeast-1",
		OwnerIndexName:             "GSI1",
		PublicIndexName:            "GSI2",
		JWTIssuer:                  "annotune",
		LegacyOwnerlessAnnotations: true,
		AnnotationLockTTL:          10 * time.Second,
		AnnotationLockWait:         3 * time.Second,
		LogLevel:                   "info",
		MetricsNamespace:           "Annotune",
		EnableCORS:                 true,
		CORSAllowedOrigins:         []string{"*"},
	}
}

// LoadConfig loads configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.ServerAddress, "SERVER_ADDRESS")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.AWSRegion, "AWS_REGION")
	setString(&c.TableName, "TABLE_NAME")
	setString(&c.OwnerIndexName, "OWNER_INDEX_NAME")
	setString(&c.PublicIndexName, "PUBLIC_INDEX_NAME")
	setString(&c.EventBusName, "EVENT_BUS_NAME")
	setString(&c.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	setString(&c.Persistence, "PERSISTENCE")
	setString(&c.LambdaFunctionName, "AWS_LAMBDA_FUNCTION_NAME")

	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.JWTIssuer, "JWT_ISSUER")
	setList(&c.JWTAudience, "JWT_AUDIENCE")

	setBool(&c.StrictAnnotationLocking, "STRICT_ANNOTATION_LOCKING")
	setBool(&c.LegacyOwnerlessAnnotations, "LEGACY_OWNERLESS_ANNOTATIONS")
	setDuration(&c.AnnotationLockTTL, "ANNOTATION_LOCK_TTL")
	setDuration(&c.AnnotationLockWait, "ANNOTATION_LOCK_WAIT")

	setString(&c.LogLevel, "LOG_LEVEL")
	setBool(&c.EnableMetrics, "ENABLE_METRICS")
	setString(&c.MetricsNamespace, "METRICS_NAMESPACE")
	setBool(&c.EnableTracing, "ENABLE_TRACING")
	setBool(&c.EnableCORS, "ENABLE_CORS")
	setList(&c.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
}

func (c *Config) resolve() {
	c.IsLambda = c.LambdaFunctionName != ""
	c.Persistence = strings.ToLower(strings.TrimSpace(c.Persistence))
	if c.Persistence == "" {
		if c.TableName != "" {
			c.Persistence = PersistenceDynamoDB
		} else {
			c.Persistence = PersistenceMemory
		}
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Persistence {
	case PersistenceDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for dynamodb persistence")
		}
	case PersistenceMemory:
	default:
		return fmt.Errorf("PERSISTENCE must be %q or %q, got %q", PersistenceDynamoDB, PersistenceMemory, c.Persistence)
	}

	if c.IsProduction() {
		// On Lambda the API Gateway authorizer can be the only identity source.
		if c.JWTSecret == "" && !c.IsLambda {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required in production")
		}
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if c.StrictAnnotationLocking && (c.AnnotationLockTTL <= 0 || c.AnnotationLockWait <= 0) {
		return fmt.Errorf("annotation lock TTL and wait must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DomainConfig derives the domain rules from deployment settings
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	dc := domainconfig.DefaultDomainConfig()
	dc.AllowOwnerlessAnnotations = c.LegacyOwnerlessAnnotations
	dc.StrictAnnotationLocking = c.StrictAnnotationLocking
	dc.AnnotationLockTTL = c.AnnotationLockTTL
	dc.AnnotationLockWait = c.AnnotationLockWait
	return dc
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	if b, err := strconv.ParseBool(value); err == nil {
		*dst = b
		return
	}
	*dst = value == "yes"
}

func setDuration(dst *time.Duration, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = d
		}
	}
}

func setList(dst *[]string, key string) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
