package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtonx/notifier/storage/memstore"
)

func TestCarrier_DispatcherSharesRegistry(t *testing.T) {
	ctx := context.Background()
	carrier, err := NewCarrier(memstore.NewDedupStore(), memstore.NewDeadLetterStore(), NewNopTransport())
	require.NoError(t, err)

	dispatcher := carrier.Dispatcher()

	_, err = dispatcher.Handle(ctx, orderEvent("order-42"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, carrier.Registry().Snapshot().Sent,
		"the carrier and its dispatchers report into one registry")
	assert.Same(t, carrier.Registry(), dispatcher.Registry())
}

func TestCarrier_DispatcherOptionsOverrideDefaults(t *testing.T) {
	carrier, err := NewCarrier(memstore.NewDedupStore(), memstore.NewDeadLetterStore(), NewNopTransport())
	require.NoError(t, err)

	registry := NewRegistry()
	dispatcher := carrier.Dispatcher(
		WithDispatcherRegistry(registry),
		WithDedupTTL(time.Minute),
	)

	assert.Same(t, registry, dispatcher.Registry())
	assert.Equal(t, time.Minute, dispatcher.dedupTTL)
}

func TestCarrier_WithOptions(t *testing.T) {
	registry := NewRegistry()
	renderer := RendererFunc(func(event Event) (Message, error) {
		return Message{To: event.Recipient, Subject: "custom"}, nil
	})

	carrier, err := NewCarrier(
		memstore.NewDedupStore(),
		memstore.NewDeadLetterStore(),
		NewNopTransport(),
		WithRegistry(registry),
		WithRenderer(renderer),
	)
	require.NoError(t, err)
	assert.Same(t, registry, carrier.Registry())

	message, err := carrier.renderer.Render(orderEvent("order-42"))
	require.NoError(t, err)
	assert.Equal(t, "custom", message.Subject)
}
