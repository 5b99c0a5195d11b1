package surface

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
)

// Console is a Headless surface that also writes one line per frame change,
// prefixed with the offset since the last Render. Piloting a session from a
// terminal shows exactly what a participant would have seen, and when.
type Console struct {
	*Headless

	mu    sync.Mutex
	w     io.Writer
	now   func() time.Time
	since time.Time
}

// NewConsole writes frame lines to w. now supplies the clock; pass the
// engine scheduler's Now so offsets line up with trial timing.
func NewConsole(w io.Writer, now func() time.Time) *Console {
	if now == nil {
		now = time.Now
	}
	return &Console{Headless: NewHeadless(), w: w, now: now, since: now()}
}

func (c *Console) Render(view surface.View) {
	c.Headless.Render(view)
	c.mu.Lock()
	c.since = c.now()
	c.mu.Unlock()
	parts := make([]string, 0, len(view.Elements))
	for _, el := range view.Elements {
		parts = append(parts, describe(el))
	}
	c.printf("render %s", strings.Join(parts, " "))
}

func (c *Console) SetText(id, text string) {
	c.Headless.SetText(id, text)
	c.printf("text   %s=%q", id, text)
}

func (c *Console) SetStyle(id, property, value string) {
	c.Headless.SetStyle(id, property, value)
	c.printf("style  %s.%s=%s", id, property, value)
}

func (c *Console) AddElement(el surface.Element) {
	c.Headless.AddElement(el)
	c.printf("add    %s", describe(el))
}

func (c *Console) RemoveElement(id string) {
	if _, ok := c.Headless.Element(id); !ok {
		c.Headless.RemoveElement(id)
		return
	}
	c.Headless.RemoveElement(id)
	c.printf("remove %s", id)
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	offset := c.now().Sub(c.since)
	fmt.Fprintf(c.w, "[+%7.1fms] %s\n", float64(offset)/float64(time.Millisecond), fmt.Sprintf(format, args...))
}

func describe(el surface.Element) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(el.ID)
	if el.Text != "" {
		fmt.Fprintf(&b, " %q", el.Text)
	}
	if len(el.Style) > 0 {
		props := make([]string, 0, len(el.Style))
		for k, v := range el.Style {
			props = append(props, k+":"+v)
		}
		sort.Strings(props)
		b.WriteString(" {")
		b.WriteString(strings.Join(props, ";"))
		b.WriteString("}")
	}
	b.WriteString("]")
	return b.String()
}

var _ surface.Surface = (*Console)(nil)
