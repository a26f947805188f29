package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alfredoptarigan/resume-registry/internal/models"
)

const postgresFeedSource = "postgres change feed"

// postgresChangeFeed uses LISTEN/NOTIFY so that every process attached to
// the same database sees every write.
type postgresChangeFeed struct {
	*remoteReceiver
	pool    *pgxpool.Pool
	channel string
	cancel  context.CancelFunc
}

func NewPostgresChangeFeed(ctx context.Context, dsn, channel string) (ChangeFeed, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create change feed pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach change feed database: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	f := &postgresChangeFeed{
		remoteReceiver: newRemoteReceiver(),
		pool:           pool,
		channel:        channel,
		cancel:         cancel,
	}

	conn, err := f.subscribe(ctx)
	if err != nil {
		cancel()
		pool.Close()
		return nil, err
	}

	f.wg.Add(1)
	go f.listen(listenCtx, conn)

	log.Printf("✅ Listening for resume changes on channel '%s'\n", channel)
	return f, nil
}

func (f *postgresChangeFeed) subscribe(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}
	return conn, nil
}

// listen owns conn. When the connection breaks it is dropped and a new
// one is subscribed; a forced refresh covers anything missed in between.
func (f *postgresChangeFeed) listen(ctx context.Context, conn *pgxpool.Conn) {
	defer f.wg.Done()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err == nil {
			f.receive(postgresFeedSource, []byte(notification.Payload))
			continue
		}

		conn.Hijack().Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		log.Printf("⚠️  Change feed listener failed: %v\n", err)

		subscribed := retryUntilStopped(f.stopChan, reconnectDelay, maxReconnectDelay, postgresFeedSource, func() error {
			var err error
			conn, err = f.subscribe(ctx)
			return err
		})
		if !subscribed {
			return
		}
		f.reconnected(postgresFeedSource)
	}
}

func (f *postgresChangeFeed) Publish(ctx context.Context, event models.ChangeEvent) error {
	payload, err := encodeChangeEvent(event)
	if err != nil {
		return err
	}

	if _, err := f.pool.Exec(ctx, "SELECT pg_notify($1, $2)", f.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", f.channel, err)
	}
	return nil
}

func (f *postgresChangeFeed) Changes() <-chan models.ChangeEvent {
	return f.changes
}

func (f *postgresChangeFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.stopChan)
		f.cancel()
		f.wg.Wait()
		f.pool.Close()
	})
	return nil
}
