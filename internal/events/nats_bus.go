package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes transition events on a NATS core subject.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

type NATSConfig struct {
	URL     string
	Subject string
}

func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("mplm"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "mplm.transitions"
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

func (b *NATSBus) Publish(ctx context.Context, evt Event) error {
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

// Subscribe delivers decoded events until ctx is done. Malformed messages are
// skipped.
func (b *NATSBus) Subscribe(ctx context.Context, handler func(Event)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		if evt, err := Decode(msg.Data); err == nil {
			handler(evt)
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

// Close flushes pending publishes and closes the connection.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

func Encode(evt Event) ([]byte, error) {
	if !evt.MinimalValidate() {
		return nil, fmt.Errorf("invalid event: missing required fields")
	}
	return json.Marshal(evt)
}

func Decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, err
	}
	if !evt.MinimalValidate() {
		return Event{}, fmt.Errorf("invalid event: missing required fields")
	}
	return evt, nil
}
