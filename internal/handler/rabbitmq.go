package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MichalMitros/evend-publisher/internal/platform/rabbitmq"
	"github.com/MichalMitros/evend-publisher/pkg/v1/commander"
	"github.com/rs/zerolog"
)

// ErrInvalidMessage is returned for messages which are not publish commands.
var ErrInvalidMessage = errors.New("invalid publish command message")

// Consumer consumes queue messages.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler rabbitmq.HandlerFunc) (<-chan error, error)
}

// RMQHandler handles RMQ messages.
type RMQHandler struct {
	consumer Consumer
	launcher Launcher
	logger   *zerolog.Logger
}

// NewHandler returns new RMQHandler.
func NewHandler(consumer Consumer, launcher Launcher, logger *zerolog.Logger) *RMQHandler {
	return &RMQHandler{
		consumer: consumer,
		launcher: launcher,
		logger:   logger,
	}
}

// Start starts consuming publish commands from RMQ.
// Commands are acknowledged once their job has started or has been rejected.
func (h *RMQHandler) Start(ctx context.Context, queue string) error {
	errorsChan, err := h.consumer.Consume(ctx, queue, h.handle)
	if err != nil {
		return err
	}

	go func() {
		for err := range errorsChan {
			h.logger.Error().
				Err(err).
				Msg("can't handle message")
		}
	}()

	return nil
}

func (h *RMQHandler) handle(ctx context.Context, message []byte) error {
	cmd, err := decodeMessage(message)
	if err != nil {
		return err
	}

	handle, err := h.launcher.Launch(ctx, toJob(*cmd))
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("tenantId", cmd.TenantID).
			Msg("publish command rejected")
		return nil
	}

	h.logger.Debug().
		Str("tenantId", cmd.TenantID).
		Int("listings", handle.Listings).
		Msg("publishing started")

	return nil
}

func decodeMessage(msg []byte) (*commander.PublishCommand, error) {
	var cmd commander.PublishCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return nil, fmt.Errorf("can't decode publish command: %w", err)
	}

	if cmd.TenantID == "" || cmd.FilePath == "" {
		return nil, fmt.Errorf("%w: tenant ID and file path are required", ErrInvalidMessage)
	}

	return &cmd, nil
}
