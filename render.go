package notifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Renderer builds a transport-ready message from an event. It must be a pure
// function of the event: no I/O, no side effects. A render error rejects the
// event before the transport is called.
type Renderer interface {
	Render(event Event) (Message, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(event Event) (Message, error)

// Render implements the Renderer interface.
func (f RendererFunc) Render(event Event) (Message, error) {
	return f(event)
}

const (
	defaultSubjectTemplate = "Order confirmation"
	defaultBodyTemplate    = `Hello,

Your order has been received.
{{- range $key, $value := . }}
  {{ $key }}: {{ $value }}
{{- end }}

Thank you.
`
)

// TemplateRenderer renders the event payload through text/template. The
// payload is decoded into a generic map, so the renderer stays independent of
// any particular event schema.
type TemplateRenderer struct {
	subject string
	body    *template.Template
}

// NewTemplateRenderer creates a renderer with the given subject line and
// body template. The template executes against the decoded payload map.
func NewTemplateRenderer(subject, body string) (*TemplateRenderer, error) {
	tmpl, err := template.New("body").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse body template: %w", err)
	}
	return &TemplateRenderer{
		subject: subject,
		body:    tmpl,
	}, nil
}

// NewDefaultRenderer creates a renderer with a plain order-confirmation
// template that lists the payload fields.
func NewDefaultRenderer() *TemplateRenderer {
	r, err := NewTemplateRenderer(defaultSubjectTemplate, defaultBodyTemplate)
	if err != nil {
		// The default template is a constant; failing to parse it is a bug.
		panic(err)
	}
	return r
}

// Render implements the Renderer interface.
func (r *TemplateRenderer) Render(event Event) (Message, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		return Message{}, fmt.Errorf("failed to decode payload: %w", err)
	}

	var body strings.Builder
	if err := r.body.Execute(&body, fields); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}

	return Message{
		To:      event.Recipient,
		Subject: r.subject,
		Body:    body.String(),
	}, nil
}
