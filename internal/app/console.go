package app

import (
	"fmt"
	"io"

	"github.com/dshills/weakbus/internal/event"
)

// consoleID sorts the console before every drawn handler id.
const consoleID = 0

// consoleHandler prints every event it receives.
type consoleHandler struct {
	out io.Writer
}

func newConsoleHandler(out io.Writer) *consoleHandler {
	return &consoleHandler{out: out}
}

func (c *consoleHandler) Update(e event.Event) error {
	if m, ok := e.(*event.Message); ok {
		_, err := fmt.Fprintf(c.out, "[%s] %s: %v\n", m.Kind, m.Source, m.Payload)
		return err
	}
	_, err := fmt.Fprintf(c.out, "[%s]\n", e.Flags())
	return err
}

func (c *consoleHandler) InterestFlags() event.Flags { return event.FlagAll }
func (c *consoleHandler) ID() int                    { return consoleID }
