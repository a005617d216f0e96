package commander

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

//go:generate mockery --name Sender --filename sender.go

// ErrInvalidCommand is returned for commands the publisher would reject right away.
var ErrInvalidCommand = errors.New("invalid publish command")

// Sender sends messages.
type Sender interface {
	Send(context.Context, []byte) error
}

// PublishCommander sends publish commands.
type PublishCommander struct {
	sender Sender
}

// NewPublishCommander returns new PublishCommander using provided sender for sending messages.
func NewPublishCommander(sender Sender) PublishCommander {
	return PublishCommander{
		sender: sender,
	}
}

// SendPublishCommand sends publish command.
func (c PublishCommander) SendPublishCommand(ctx context.Context, cmd PublishCommand) error {
	if cmd.TenantID == "" || cmd.FilePath == "" {
		return fmt.Errorf("%w: tenant ID and file path are required", ErrInvalidCommand)
	}

	cmdMsg, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("can't marshal publish command: %w", err)
	}

	return c.sender.Send(ctx, cmdMsg)
}
