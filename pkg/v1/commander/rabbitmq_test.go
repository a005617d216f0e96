package commander_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MichalMitros/evend-publisher/pkg/v1/commander"
	"github.com/MichalMitros/evend-publisher/pkg/v1/commander/mocks"
	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnitRabbitMQSenderSend(t *testing.T) {
	body, err := json.Marshal(commander.PublishCommand{
		TenantID: faker.Username(),
		FilePath: "/data/uploads/listings.csv",
	})
	require.NoError(t, err, "should marshal command")
	routingKey := "evend-publisher." + faker.Word()

	tests := map[string]struct {
		publisherError error
		wantErr        error
		wantMessage    string
	}{
		"command is published to routing key": {},
		"publisher error is wrapped": {
			publisherError: assert.AnError,
			wantErr:        assert.AnError,
			wantMessage:    "can't publish command: " + assert.AnError.Error(),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			publisher := mocks.NewRabbitMQPublisher(t)
			publisher.On("Publish", mock.Anything, routingKey, body).Return(tt.publisherError).Once()

			sender := commander.NewRabbitMQSender(publisher, routingKey)
			err := sender.Send(context.Background(), body)

			if tt.wantErr == nil {
				require.NoError(t, err, "shouldn't return error")
				return
			}
			require.ErrorIs(t, err, tt.wantErr, "should return correct error")
			assert.EqualError(t, err, tt.wantMessage, "should describe failed operation")
		})
	}
}
