// Package main implements the Lambda that purges the annotations and version
// snapshots of deleted lyrics. It consumes lyric.deleted events from
// EventBridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aokaito/annotune-sub000/application/services"
	domainevents "github.com/aokaito/annotune-sub000/domain/events"
	"github.com/aokaito/annotune-sub000/infrastructure/config"
	"github.com/aokaito/annotune-sub000/infrastructure/di"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/observability"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Purger removes what a deleted document left behind
type Purger interface {
	PurgeOrphans(ctx context.Context, docID string) (*services.PurgeResult, error)
}

// CleanupHandler handles lyric.deleted events
type CleanupHandler struct {
	purger Purger
	tracer *observability.Tracer
	logger *zap.Logger
}

// NewCleanupHandler creates a cleanup handler
func NewCleanupHandler(purger Purger, tracer *observability.Tracer, logger *zap.Logger) *CleanupHandler {
	return &CleanupHandler{purger: purger, tracer: tracer, logger: logger}
}

type deletedDetail struct {
	AggregateID string `json:"aggregate_id"`
	OwnerID     string `json:"owner_id"`
}

// Handle purges one document. Returning an error lets EventBridge retry the
// delivery; malformed or irrelevant events are dropped.
func (h *CleanupHandler) Handle(ctx context.Context, event awsevents.CloudWatchEvent) error {
	if event.DetailType != domainevents.TypeLyricDeleted {
		h.logger.Debug("Ignoring event", zap.String("detail_type", event.DetailType))
		return nil
	}

	var detail deletedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil || detail.AggregateID == "" {
		h.logger.Error("Dropping malformed lyric.deleted event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return nil
	}

	return h.tracer.TraceFunction(ctx, "purge-orphans", func(ctx context.Context) error {
		h.tracer.AddAnnotation(ctx, "docId", detail.AggregateID)

		result, err := h.purger.PurgeOrphans(ctx, detail.AggregateID)
		if err != nil {
			if de := errors.GetDomainError(err); de != nil && de.Code == errors.CodeDocumentStillExists {
				h.logger.Warn("Document still exists, skipping purge",
					zap.String("docID", detail.AggregateID),
				)
				return nil
			}
			return fmt.Errorf("purge %s: %w", detail.AggregateID, err)
		}

		h.logger.Info("Cleanup completed",
			zap.String("docID", result.DocID),
			zap.String("ownerID", detail.OwnerID),
			zap.Int("annotations", result.AnnotationsDeleted),
			zap.Int("snapshots", result.SnapshotsDeleted),
		)
		return nil
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	handler := NewCleanupHandler(container.Service, container.Tracer, container.Logger)
	container.Logger.Info("Cleanup handler initialized")

	lambda.Start(handler.Handle)
}
