package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// channelPrefix names the NOTIFY channels: database triggers on each
// observed table emit `changes_<table>` with a JSON body of
// {"kind": "...", "old": {...}, "new": {...}}.
const channelPrefix = "changes_"

// ChangeHandler consumes one change event for a stream.
type ChangeHandler func(ctx context.Context, evt ChangeEvent)

// Listener subscribes to Postgres NOTIFY channels, one per entity stream,
// and fans deliveries out to the registered handlers. Within one stream
// delivery order follows commit order; no ordering holds across streams.
// Cancelling the Run context is the unsubscribe primitive; handlers already
// invoked are not cancelled and may still complete afterwards.
type Listener struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	handlers map[string][]ChangeHandler
}

// NewListener constructs a Listener.
func NewListener(pool *pgxpool.Pool, logger *slog.Logger) *Listener {
	return &Listener{pool: pool, logger: logger, handlers: make(map[string][]ChangeHandler)}
}

// Subscribe registers a handler for one entity stream. Must be called
// before Run.
func (l *Listener) Subscribe(stream string, fn ChangeHandler) {
	l.handlers[stream] = append(l.handlers[stream], fn)
}

// Run listens until the context is cancelled, re-establishing the
// connection with a small backoff when the feed drops.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.logger.Warn("change feed dropped, reconnecting", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for stream := range l.handlers {
		if _, err := conn.Exec(ctx, "LISTEN "+channelPrefix+stream); err != nil {
			return err
		}
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		stream, ok := l.streamFor(notification.Channel)
		if !ok {
			continue
		}
		evt, err := decodeEvent(stream, notification.Payload)
		if err != nil {
			l.logger.Warn("malformed change event",
				slog.String("channel", notification.Channel), slog.Any("error", err))
			continue
		}
		for _, fn := range l.handlers[stream] {
			fn(ctx, evt)
		}
	}
}

func (l *Listener) streamFor(channel string) (string, bool) {
	if len(channel) <= len(channelPrefix) || channel[:len(channelPrefix)] != channelPrefix {
		return "", false
	}
	stream := channel[len(channelPrefix):]
	_, ok := l.handlers[stream]
	return stream, ok
}

func decodeEvent(stream, payload string) (ChangeEvent, error) {
	var evt ChangeEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return ChangeEvent{}, err
	}
	evt.Table = stream
	if evt.Kind != KindInsert && evt.Kind != KindUpdate {
		return ChangeEvent{}, errors.New("unsupported change kind " + evt.Kind)
	}
	return evt, nil
}
