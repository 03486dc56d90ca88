package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSMSGateway(t *testing.T) {
	gateway := NewMockSMSGateway()
	ctx := context.Background()

	providerID, err := gateway.Send(ctx, "+15551234567", "Test message")
	require.NoError(t, err)
	assert.NotEmpty(t, providerID)

	require.Len(t, gateway.SentMessages, 1)
	assert.Equal(t, "+15551234567", gateway.SentMessages[0].Recipient)
	assert.Equal(t, "Test message", gateway.SentMessages[0].Body)

	messages := gateway.MessagesTo("+15551234567")
	assert.Len(t, messages, 1)
	assert.Empty(t, gateway.MessagesTo("+15559999999"))

	gateway.ClearSentMessages()
	assert.Empty(t, gateway.SentMessages)
}

func TestMockSMSGatewayFailureInjection(t *testing.T) {
	gateway := NewMockSMSGateway()
	ctx := context.Background()

	gateway.FailFor["+15551234567"] = 1
	_, err := gateway.Send(ctx, "+15551234567", "first")
	assert.Error(t, err)

	// The configured failure is consumed; the next send goes through
	_, err = gateway.Send(ctx, "+15551234567", "second")
	assert.NoError(t, err)

	gateway.FailAll = true
	_, err = gateway.Send(ctx, "+15550000000", "never")
	assert.Error(t, err)
}

func TestMockObjectStorage(t *testing.T) {
	storage := NewMockObjectStorage()
	ctx := context.Background()

	url, err := storage.Put(ctx, "abc123.jpg", []byte{0xFF, 0xD8}, "image/jpeg", map[string]string{"display-name": "photo.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/abc123.jpg", url)

	stored, ok := storage.Objects["abc123.jpg"]
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", stored.ContentType)
	assert.Equal(t, "photo.jpg", stored.Metadata["display-name"])

	storage.FailAll = true
	_, err = storage.Put(ctx, "other", nil, "", nil)
	assert.Error(t, err)
}
