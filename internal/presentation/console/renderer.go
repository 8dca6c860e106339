// Package console renders resolved views on an interactive terminal. It is
// the reference presentation collaborator: message components are rendered
// as markdown, buttons and cards as styled text blocks.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/personakit/persona/pkg/domain"
)

// Renderer implements ports.Presenter for a terminal.
type Renderer struct {
	out      *termenv.Output
	markdown func(string) (string, error)
}

// NewRenderer creates a terminal renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	md, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	render := func(s string) (string, error) {
		if err != nil {
			return s, nil
		}
		return md.Render(s)
	}
	return &Renderer{
		out:      termenv.NewOutput(w),
		markdown: render,
	}
}

// Present renders every component of the view in order.
func (r *Renderer) Present(ctx context.Context, channelConversationID string, view *domain.ResolvedView) error {
	for _, comp := range view.Components {
		switch comp.Type {
		case domain.ComponentMessage:
			if err := r.renderMessage(comp); err != nil {
				return err
			}
		case domain.ComponentButton:
			r.renderButton(comp)
		case domain.ComponentCard, domain.ComponentProductCard:
			r.renderCard(comp)
		default:
			r.renderRaw(comp)
		}
	}
	return nil
}

func (r *Renderer) renderMessage(comp domain.ComponentDescriptor) error {
	text := stringProp(comp, "text")
	rendered, err := r.markdown(text)
	if err != nil {
		// Glamour failures degrade to plain text, never block the chat.
		rendered = text + "\n"
	}
	fmt.Fprint(r.out, rendered)
	return nil
}

func (r *Renderer) renderButton(comp domain.ComponentDescriptor) {
	label := stringProp(comp, "label")
	if label == "" {
		label = stringProp(comp, "text")
	}
	value := stringProp(comp, "value")

	styled := r.out.String("[" + label + "]").Bold().Foreground(r.out.Color("6"))
	if value != "" && value != label {
		fmt.Fprintf(r.out, "  %s (%s)\n", styled, value)
		return
	}
	fmt.Fprintf(r.out, "  %s\n", styled)
}

func (r *Renderer) renderCard(comp domain.ComponentDescriptor) {
	title := r.out.String(stringProp(comp, "title")).Bold()
	fmt.Fprintf(r.out, "  %s\n", title)
	for _, key := range []string{"subtitle", "description", "price"} {
		if v := stringProp(comp, key); v != "" {
			fmt.Fprintf(r.out, "    %s\n", r.out.String(v).Faint())
		}
	}
}

func (r *Renderer) renderRaw(comp domain.ComponentDescriptor) {
	data, err := json.Marshal(comp.Properties)
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.out.String(comp.Type+":").Faint(), data)
}

func stringProp(comp domain.ComponentDescriptor, key string) string {
	if comp.Properties == nil {
		return ""
	}
	v, ok := comp.Properties[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
