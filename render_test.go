package notifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer_Default(t *testing.T) {
	renderer := NewDefaultRenderer()

	message, err := renderer.Render(orderEvent("order-42"))

	require.NoError(t, err)
	assert.Equal(t, "customer@example.com", message.To)
	assert.Equal(t, "Order confirmation", message.Subject)
	assert.Contains(t, message.Body, "item: Widget")
	assert.Contains(t, message.Body, "quantity: 3")
}

func TestTemplateRenderer_CustomTemplate(t *testing.T) {
	renderer, err := NewTemplateRenderer("Shipped!", "Your {{ .item }} is on its way.")
	require.NoError(t, err)

	message, err := renderer.Render(orderEvent("order-42"))

	require.NoError(t, err)
	assert.Equal(t, "Shipped!", message.Subject)
	assert.Equal(t, "Your Widget is on its way.", message.Body)
}

func TestTemplateRenderer_InvalidTemplate(t *testing.T) {
	_, err := NewTemplateRenderer("subject", "{{ .unclosed")
	assert.Error(t, err)
}

func TestTemplateRenderer_MalformedPayload(t *testing.T) {
	renderer := NewDefaultRenderer()
	event := orderEvent("order-42")
	event.Payload = json.RawMessage(`not json`)

	_, err := renderer.Render(event)
	assert.ErrorContains(t, err, "decode payload")
}

func TestRendererFunc(t *testing.T) {
	sentinel := errors.New("no template")
	renderer := RendererFunc(func(event Event) (Message, error) {
		return Message{}, sentinel
	})

	_, err := renderer.Render(orderEvent("order-42"))
	assert.ErrorIs(t, err, sentinel)
}
