package di

import (
	"context"
	"fmt"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/application/services"
	domainconfig "github.com/aokaito/annotune-sub000/domain/config"
	"github.com/aokaito/annotune-sub000/infrastructure/config"
	"github.com/aokaito/annotune-sub000/infrastructure/messaging/eventbridge"
	"github.com/aokaito/annotune-sub000/infrastructure/persistence/dynamodb"
	"github.com/aokaito/annotune-sub000/infrastructure/persistence/memory"
	"github.com/aokaito/annotune-sub000/interfaces/http/rest"
	"github.com/aokaito/annotune-sub000/interfaces/http/rest/middleware"
	"github.com/aokaito/annotune-sub000/pkg/auth"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName = "annotune-api"

	// Only used outside production when JWT_SECRET is unset.
	developmentJWTSecret = "development-secret-change-in-production"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() || cfg.IsLambda {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName), zap.String("environment", cfg.Environment)), nil
}

// ProvideAWSConfig creates AWS configuration. With tracing on, every SDK
// call is recorded as an X-Ray subsegment.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at
// DYNAMODB_ENDPOINT when one is configured (DynamoDB Local)
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// Stores bundles the persistence ports for the configured backend
type Stores struct {
	Lyrics      ports.LyricRepository
	Annotations ports.AnnotationRepository
	Versions    ports.VersionRepository
	Locker      ports.DocumentLocker
	Readiness   rest.ReadinessCheck
}

// ProvideStores selects the DynamoDB or in-memory stores
func ProvideStores(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *Stores {
	if cfg.Persistence == config.PersistenceMemory {
		logger.Warn("Using in-memory persistence; data is lost on restart")
		store := memory.NewStore(cfg.LegacyOwnerlessAnnotations)
		return &Stores{
			Lyrics:      store.Lyrics(),
			Annotations: store.Annotations(),
			Versions:    store.Versions(),
			Locker:      memory.NewDocumentLocker(cfg.AnnotationLockWait),
		}
	}

	return &Stores{
		Lyrics:      dynamodb.NewLyricRepository(client, cfg.TableName, cfg.OwnerIndexName, cfg.PublicIndexName, logger),
		Annotations: dynamodb.NewAnnotationRepository(client, cfg.TableName, cfg.LegacyOwnerlessAnnotations, logger),
		Versions:    dynamodb.NewVersionRepository(client, cfg.TableName, logger),
		Locker:      dynamodb.NewDistributedLock(client, cfg.TableName, cfg.AnnotationLockTTL, cfg.AnnotationLockWait, logger),
		Readiness: func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(cfg.TableName)})
			return err
		},
	}
}

// ProvideEventPublisher publishes to EventBridge, or only logs when no bus
// is configured
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		logger.Info("EVENT_BUS_NAME not set; domain events are logged only")
		return eventbridge.NewLoggingPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, eventbridge.DefaultBreakerConfig(), logger)
}

// ProvideCollector creates the Prometheus collector served on /metrics
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("annotune")
}

// ProvideMetrics fans business counters out to Prometheus and, when
// enabled, CloudWatch
func ProvideMetrics(client *awscloudwatch.Client, collector *observability.Collector, cfg *config.Config, logger *zap.Logger) ports.Metrics {
	sinks := observability.FanOut{collector}
	if cfg.EnableMetrics {
		namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
		sinks = append(sinks, observability.NewMetrics(namespace, client, logger))
	}
	return sinks
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideDomainConfig maps the runtime config onto business rules
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideLyricService creates the lyric service
func ProvideLyricService(
	stores *Stores,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.LyricService {
	return services.NewLyricService(
		stores.Lyrics,
		stores.Annotations,
		stores.Versions,
		publisher,
		stores.Locker,
		metrics,
		domainCfg,
		logger,
	)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the bearer token validator. On Lambda without
// a secret the gateway authorizer is the only identity source and nil is
// returned.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsLambda {
			return nil, nil
		}
		logger.Warn("JWT_SECRET not set; using the development secret")
		secret = developmentJWTSecret
	}

	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
	})
}

// ProvideAuthenticator creates the authentication middleware
func ProvideAuthenticator(validator *auth.JWTValidator, cfg *config.Config, errorHandler *errors.ErrorHandler, logger *zap.Logger) *middleware.Authenticator {
	return middleware.NewAuthenticator(validator, cfg.IsLambda, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	service *services.LyricService,
	authenticator *middleware.Authenticator,
	errorHandler *errors.ErrorHandler,
	collector *observability.Collector,
	stores *Stores,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(service, authenticator, errorHandler, collector, rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Readiness:      stores.Readiness,
	}, logger)
}
