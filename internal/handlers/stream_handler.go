package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"alfredoptarigan/resume-registry/internal/services"
)

type StreamHandler struct {
	store     services.DocumentStore
	keepAlive time.Duration
}

func NewStreamHandler(store services.DocumentStore, keepAlive time.Duration) *StreamHandler {
	return &StreamHandler{
		store:     store,
		keepAlive: keepAlive,
	}
}

// HandleStream handles GET /resumes/stream. Every snapshot is sent as one
// "snapshot" server-sent event carrying the full resume list.
func (h *StreamHandler) HandleStream(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := h.store.Subscribe(ctx)
	if err != nil {
		cancel()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Failed to subscribe to resumes",
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	remote := c.IP()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Close()

		log.Printf("📡 Stream opened for %s\n", remote)
		if err := h.stream(w, sub); err != nil {
			log.Printf("📴 Stream closed for %s: %v\n", remote, err)
		}
	}))

	return nil
}

func (h *StreamHandler) stream(w *bufio.Writer, sub services.Subscription) error {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return fmt.Errorf("subscription ended")
			}
			data, err := json.Marshal(listResponse(snapshot))
			if err != nil {
				return fmt.Errorf("failed to encode snapshot: %w", err)
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
		case <-ticker.C:
			// A write to a gone client is how the disconnect is noticed.
			fmt.Fprint(w, ": keep-alive\n\n")
		}

		if err := w.Flush(); err != nil {
			return err
		}
	}
}
