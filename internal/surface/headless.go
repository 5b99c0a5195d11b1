// Package surface provides presentation surfaces that need no browser: an
// in-memory Headless surface with input injection, and a Console surface
// that also writes every frame change to a writer.
package surface

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
)

// Headless keeps the current view in memory. Press and Click deliver input
// to registered listeners. It is safe for concurrent use; listeners are
// invoked without the lock held.
type Headless struct {
	mu        sync.Mutex
	elements  []surface.Element
	keySubs   map[uint64]*keySub
	clickSubs map[uint64]*clickSub
	nextID    uint64
	renders   int
}

type keySub struct {
	keys   map[string]struct{} // nil means every key
	fn     func(surface.KeyEvent)
	active atomic.Bool
}

type clickSub struct {
	target string
	fn     func()
	active atomic.Bool
}

// NewHeadless returns an empty surface.
func NewHeadless() *Headless {
	return &Headless{
		keySubs:   make(map[uint64]*keySub),
		clickSubs: make(map[uint64]*clickSub),
	}
}

func (h *Headless) Render(view surface.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.elements = make([]surface.Element, 0, len(view.Elements))
	for _, el := range view.Elements {
		h.elements = append(h.elements, cloneElement(el))
	}
	h.renders++
}

func (h *Headless) SetText(id, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexOf(id); i >= 0 {
		h.elements[i].Text = text
	}
}

func (h *Headless) SetStyle(id, property, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexOf(id); i >= 0 {
		if h.elements[i].Style == nil {
			h.elements[i].Style = make(map[string]string)
		}
		h.elements[i].Style[property] = value
	}
}

// AddElement appends el, replacing an existing element with the same id.
func (h *Headless) AddElement(el surface.Element) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexOf(el.ID); i >= 0 {
		h.elements[i] = cloneElement(el)
		return
	}
	h.elements = append(h.elements, cloneElement(el))
}

func (h *Headless) RemoveElement(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexOf(id); i >= 0 {
		h.elements = slices.Delete(h.elements, i, i+1)
	}
}

func (h *Headless) ListenKeys(keys []string, fn func(surface.KeyEvent)) surface.Subscription {
	sub := &keySub{fn: fn}
	if keys != nil {
		sub.keys = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			sub.keys[k] = struct{}{}
		}
	}
	sub.active.Store(true)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.keySubs[id] = sub
	h.mu.Unlock()

	return subscription(func() {
		sub.active.Store(false)
		h.mu.Lock()
		delete(h.keySubs, id)
		h.mu.Unlock()
	})
}

func (h *Headless) ListenClick(target string, fn func()) surface.Subscription {
	sub := &clickSub{target: target, fn: fn}
	sub.active.Store(true)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.clickSubs[id] = sub
	h.mu.Unlock()

	return subscription(func() {
		sub.active.Store(false)
		h.mu.Lock()
		delete(h.clickSubs, id)
		h.mu.Unlock()
	})
}

// Press delivers a raw key identifier to every matching listener and
// returns how many received it.
func (h *Headless) Press(key string) int {
	h.mu.Lock()
	var matched []*keySub
	for _, id := range sortedKeys(h.keySubs) {
		sub := h.keySubs[id]
		if sub.keys == nil {
			matched = append(matched, sub)
			continue
		}
		if _, ok := sub.keys[key]; ok {
			matched = append(matched, sub)
		}
	}
	h.mu.Unlock()

	n := 0
	for _, sub := range matched {
		if sub.active.Load() {
			sub.fn(surface.KeyEvent{Key: key})
			n++
		}
	}
	return n
}

// Click delivers a click on target and returns how many listeners received it.
// Clicks on elements that are not currently shown are ignored.
func (h *Headless) Click(target string) int {
	h.mu.Lock()
	if h.indexOf(target) < 0 {
		h.mu.Unlock()
		return 0
	}
	var matched []*clickSub
	for _, id := range sortedKeys(h.clickSubs) {
		if sub := h.clickSubs[id]; sub.target == target {
			matched = append(matched, sub)
		}
	}
	h.mu.Unlock()

	n := 0
	for _, sub := range matched {
		if sub.active.Load() {
			sub.fn()
			n++
		}
	}
	return n
}

// Element returns a copy of the element with the given id.
func (h *Headless) Element(id string) (surface.Element, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexOf(id); i >= 0 {
		return cloneElement(h.elements[i]), true
	}
	return surface.Element{}, false
}

// Text returns the text of an element, "" if it does not exist.
func (h *Headless) Text(id string) string {
	el, _ := h.Element(id)
	return el.Text
}

// Style returns one style property of an element.
func (h *Headless) Style(id, property string) string {
	el, _ := h.Element(id)
	return el.Style[property]
}

// View returns a copy of the current view.
func (h *Headless) View() surface.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := surface.View{Elements: make([]surface.Element, len(h.elements))}
	for i, el := range h.elements {
		v.Elements[i] = cloneElement(el)
	}
	return v
}

// ListenerCount returns the number of live key and click subscriptions.
func (h *Headless) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.keySubs) + len(h.clickSubs)
}

// Renders returns how many times Render was called.
func (h *Headless) Renders() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renders
}

func (h *Headless) indexOf(id string) int {
	return slices.IndexFunc(h.elements, func(el surface.Element) bool { return el.ID == id })
}

func cloneElement(el surface.Element) surface.Element {
	el.Style = maps.Clone(el.Style)
	return el
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	return slices.Sorted(maps.Keys(m))
}

type subscription func()

func (s subscription) Cancel() {
	s()
}

var _ surface.Surface = (*Headless)(nil)
