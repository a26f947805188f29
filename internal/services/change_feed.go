package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"alfredoptarigan/resume-registry/internal/models"
)

const (
	reconnectDelay    = time.Second
	maxReconnectDelay = 30 * time.Second
)

// ChangeFeed carries change notifications between writers and the snapshot
// broadcaster. Events may be coalesced; receivers only learn that something
// changed and reload the whole collection.
type ChangeFeed interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
	Changes() <-chan models.ChangeEvent
	Close() error
}

// localChangeFeed only sees writes made through this process.
type localChangeFeed struct {
	changes chan models.ChangeEvent
}

func NewLocalChangeFeed() ChangeFeed {
	return &localChangeFeed{
		changes: make(chan models.ChangeEvent, 1),
	}
}

func (l *localChangeFeed) Publish(ctx context.Context, event models.ChangeEvent) error {
	signal(l.changes, event)
	return nil
}

func (l *localChangeFeed) Changes() <-chan models.ChangeEvent {
	return l.changes
}

func (l *localChangeFeed) Close() error {
	return nil
}

// signal delivers event without blocking. If a notification is already
// pending the new one is folded into it.
func signal(ch chan models.ChangeEvent, event models.ChangeEvent) {
	select {
	case ch <- event:
	default:
	}
}

func encodeChangeEvent(event models.ChangeEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change event: %w", err)
	}
	return body, nil
}

func decodeChangeEvent(body []byte) (models.ChangeEvent, error) {
	var event models.ChangeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("invalid change event: %w", err)
	}
	return event, nil
}

// remoteReceiver is shared by the feeds that receive events from another
// process. Undecodable payloads still count as a change.
type remoteReceiver struct {
	changes   chan models.ChangeEvent
	closeOnce sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func newRemoteReceiver() *remoteReceiver {
	return &remoteReceiver{
		changes:  make(chan models.ChangeEvent, 1),
		stopChan: make(chan struct{}),
	}
}

func (r *remoteReceiver) receive(source string, body []byte) {
	event, err := decodeChangeEvent(body)
	if err != nil {
		log.Printf("⚠️  %s: %v\n", source, err)
	}
	signal(r.changes, event)
}

// reconnected forces a refresh: events may have been missed while the
// feed was down.
func (r *remoteReceiver) reconnected(source string) {
	log.Printf("🔄 %s reconnected\n", source)
	signal(r.changes, models.ChangeEvent{})
}

// retryUntilStopped calls attempt until it succeeds or stop is closed,
// doubling the wait between attempts up to maxDelay. It reports whether
// attempt succeeded.
func retryUntilStopped(stop <-chan struct{}, delay, maxDelay time.Duration, source string, attempt func() error) bool {
	for {
		select {
		case <-stop:
			return false
		default:
		}

		select {
		case <-stop:
			return false
		case <-time.After(delay):
		}

		err := attempt()
		if err == nil {
			return true
		}
		log.Printf("⚠️  %s: failed to reconnect: %v\n", source, err)
		delay = min(delay*2, maxDelay)
	}
}
