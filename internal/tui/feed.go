package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

// EventMsg carries one routed event into the program.
type EventMsg struct{ Event events.Event }

// StateMsg carries a connection state change into the program.
type StateMsg struct{ Change stream.StateChange }

// Feed turns listener callbacks into Bubble Tea messages. Listeners run on
// the stream goroutine, so messages are queued and read back by Next.
type Feed struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once

	sub      sarralscan.Subscriber
	listener events.Listener
	types    []events.Type
}

func newFeed(size int) *Feed {
	return &Feed{
		msgs: make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
}

// Attach subscribes a Feed to types on c and follows its state changes.
func Attach(c sarralscan.Client, types ...events.Type) (*Feed, error) {
	f := newFeed(constants.ChannelBufferSize)
	f.sub = c
	f.listener = events.Func(func(e events.Event) { f.push(EventMsg{Event: e}) })
	for _, t := range types {
		if err := c.Subscribe(t, f.listener); err != nil {
			f.Close()
			return nil, err
		}
		f.types = append(f.types, t)
	}
	c.OnStateChange(func(sc stream.StateChange) { f.push(StateMsg{Change: sc}) })
	return f, nil
}

// push blocks until the program reads the message or the feed closes.
func (f *Feed) push(msg tea.Msg) {
	select {
	case f.msgs <- msg:
	case <-f.done:
	}
}

// Next returns a command that waits for the next message.
func (f *Feed) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.msgs:
			return msg
		case <-f.done:
			return nil
		}
	}
}

// Close unsubscribes the feed's listener and releases waiting senders.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)
		if f.sub != nil {
			for _, t := range f.types {
				f.sub.Unsubscribe(t, f.listener)
			}
		}
	})
}
