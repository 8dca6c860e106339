// Package cli implements the interactive chat loop used by the run command.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/personakit/persona"
	"github.com/personakit/persona/pkg/domain"
)

// Chat drives one conversation over a line-based terminal session.
//
// Input protocol: the first token of a line is the event name; the remainder
// is either a JSON object (used as the payload verbatim) or free text
// (wrapped as {"text": ...}). "exit" and "quit" cancel the conversation.
type Chat struct {
	Engine *persona.Engine
	In     io.Reader
	Out    io.Writer
}

// Run starts a conversation for personaID on channelID and processes input
// lines until the conversation finishes or the user exits.
func (c *Chat) Run(ctx context.Context, personaID, channelID string) error {
	interactive := c.isInteractive()

	if _, err := c.Engine.StartConversation(ctx, personaID, channelID); err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		if interactive {
			fmt.Fprint(c.Out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			if err := c.Engine.CancelConversation(ctx, channelID); err != nil && !errors.Is(err, domain.ErrConversationNotFound) {
				return err
			}
			fmt.Fprintln(c.Out, "conversation cancelled")
			return nil
		}

		event, payload, err := parseLine(line)
		if err != nil {
			fmt.Fprintf(c.Out, "could not read that: %v\n", err)
			continue
		}

		result, err := c.Engine.ProcessEvent(ctx, channelID, event, payload)
		if err != nil {
			if domain.IsRecoverable(err) {
				fmt.Fprintln(c.Out, "sorry, that does not work here, try again")
				continue
			}
			return err
		}
		if result.Finished {
			fmt.Fprintln(c.Out, "conversation finished")
			return nil
		}
	}
}

func (c *Chat) isInteractive() bool {
	f, ok := c.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func parseLine(line string) (string, map[string]any, error) {
	event, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return event, nil, nil
	}
	if strings.HasPrefix(rest, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			return "", nil, fmt.Errorf("invalid JSON payload: %w", err)
		}
		return event, payload, nil
	}
	return event, map[string]any{"text": rest}, nil
}
