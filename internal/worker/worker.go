package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-calculator/internal/calculator"
	"github.com/aescanero/dago-node-calculator/internal/config"
	"github.com/aescanero/dago-node-calculator/internal/numeric"
	"github.com/aescanero/dago-node-calculator/internal/plot"
)

// Operations accepted in work requests
const (
	OperationCalculate = "calculate"
	OperationPlot      = "plot"
)

// StreamClient is the subset of the Redis client the worker uses
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Worker represents the calculator stream worker
type Worker struct {
	id            string
	config        *config.Config
	redisClient   StreamClient
	calculator    *calculator.Calculator
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	done          chan struct{}
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient StreamClient,
	calc *calculator.Calculator,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		calculator:    calc,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting calculator worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	// Create consumer group if it doesn't exist
	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	// Start processing work
	go w.processWork()

	w.logger.Info("calculator worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the message in flight, if any
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("stopping calculator worker", zap.String("worker_id", w.id))

	// Cancel context to stop work processing
	w.cancel()

	select {
	case <-w.done:
	case <-ctx.Done():
		return fmt.Errorf("worker did not stop: %w", ctx.Err())
	}

	w.logger.Info("calculator worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	// Try to create the group
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP error means the group already exists, which is fine
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream
func (w *Worker) processWork() {
	defer close(w.done)
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
			// Read from stream
			streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
				Group:    w.consumerGroup,
				Consumer: w.id,
				Streams:  []string{w.streamKey, ">"},
				Count:    1,
				Block:    w.config.BlockTime,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
					continue
				}
				w.logger.Error("failed to read from stream",
					zap.Error(err),
				)
				select {
				case <-time.After(time.Second):
				case <-w.ctx.Done():
				}
				continue
			}

			// Process each message
			for _, stream := range streams {
				for _, message := range stream.Messages {
					w.handleMessage(message)
				}
			}
		}
	}
}

// handleMessage handles a single calculator request message
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	w.logger.Info("processing calculator request",
		zap.String("message_id", messageID),
	)

	// Parse the work request
	workRequest, err := parseWorkRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse work request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.acknowledgeMessage(messageID)
		return
	}

	result, err := w.process(workRequest)
	if err != nil {
		w.logger.Warn("calculator request failed",
			zap.String("message_id", messageID),
			zap.String("request_id", workRequest.RequestID),
			zap.String("operation", workRequest.Operation),
			zap.Error(err),
		)
		w.publishError(workRequest, err)
	} else if err := w.publish(w.resultStream, result); err != nil {
		w.logger.Error("failed to publish result",
			zap.String("request_id", workRequest.RequestID),
			zap.Error(err),
		)
	} else {
		w.logger.Info("published result",
			zap.String("request_id", workRequest.RequestID),
			zap.String("operation", workRequest.Operation),
		)
	}

	// Acknowledge the message
	w.acknowledgeMessage(messageID)
}

// WorkRequest represents a calculate or plot request
type WorkRequest struct {
	RequestID  string   `json:"request_id"`
	Operation  string   `json:"operation"`
	Expression string   `json:"expression"`
	XMin       *float64 `json:"x_min,omitempty"`
	XMax       *float64 `json:"x_max,omitempty"`
	Format     string   `json:"format,omitempty"`
}

// Range returns the requested range, with defaults for missing bounds
func (r *WorkRequest) Range() numeric.Range {
	rng := numeric.DefaultRange
	if r.XMin != nil {
		rng.Min = *r.XMin
	}
	if r.XMax != nil {
		rng.Max = *r.XMax
	}
	return rng
}

// parseWorkRequest parses a work request from Redis message
func parseWorkRequest(values map[string]interface{}) (*WorkRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request WorkRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work request: %w", err)
	}

	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}
	if request.Operation == "" {
		request.Operation = OperationCalculate
	}

	return &request, nil
}

// process runs the requested operation and builds the result event
func (w *Worker) process(request *WorkRequest) (map[string]interface{}, error) {
	if n := len(request.Expression); n > w.config.MaxExpressionLength {
		return nil, fmt.Errorf("expression is %d bytes long, limit is %d", n, w.config.MaxExpressionLength)
	}

	event := map[string]interface{}{
		"request_id": request.RequestID,
		"operation":  request.Operation,
		"expression": request.Expression,
		"worker_id":  w.id,
		"timestamp":  time.Now().UTC(),
	}

	switch request.Operation {
	case OperationCalculate:
		calc, err := w.calculator.Evaluate(w.ctx, request.Expression)
		if err != nil {
			return nil, err
		}
		event["result"] = calc.Result
		event["banner"] = w.calculator.ResultBanner(calc)

	case OperationPlot:
		rp, err := w.calculator.Plot(w.ctx, request.Expression, request.Range(), plot.Format(request.Format))
		if err != nil {
			return nil, err
		}
		event["title"] = rp.Title
		event["legend"] = rp.Legend
		event["x"] = rp.Samples.X
		event["y"] = rp.NullableY()
		event["fallback"] = rp.Samples.Fallback
		event["content_type"] = rp.Image.ContentType
		event["image"] = rp.Image.Data

	default:
		return nil, fmt.Errorf("unknown operation %q", request.Operation)
	}

	return event, nil
}

// publish writes an event to a stream
func (w *Worker) publish(stream string, event map[string]interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = w.redisClient.XAdd(w.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(request *WorkRequest, err error) {
	kind := calculator.KindOf(err)
	if kind == "" {
		kind = "invalid_request"
	}
	errorEvent := map[string]interface{}{
		"request_id": request.RequestID,
		"operation":  request.Operation,
		"expression": request.Expression,
		"kind":       kind,
		"error":      err.Error(),
		"banner":     w.calculator.ErrorBanner(err),
		"worker_id":  w.id,
		"timestamp":  time.Now().UTC(),
	}

	// Publish error to a separate stream
	if publishErr := w.publish(w.resultStream+".errors", errorEvent); publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	err := w.redisClient.XAck(w.ctx, w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
