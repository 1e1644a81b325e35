// Package api exposes the sync backend over HTTP for browser clients: a
// snapshot read, a whole-document write, the presence slot, and an SSE
// stream that pushes the list on every change.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// ListStore is the shared list document.
type ListStore interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// PresenceSlot is the shared drag-presence record.
type PresenceSlot interface {
	Load(ctx context.Context) (*domain.DragPresence, error)
	Publish(ctx context.Context, rec domain.DragPresence) error
	Clear(ctx context.Context) error
}

// History receives one revision event per accepted write. May be nil when
// no durable archive is configured.
type History interface {
	Enqueue(ctx context.Context, ev domain.RevisionEvent) error
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store ListStore, pres PresenceSlot, hist History, broker *UpdateBroker, listKey string, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, logger))
	e.PUT("/api/tasks", putTasks(store, hist, listKey, logger))
	e.PUT("/api/presence", putPresence(pres))
	e.DELETE("/api/presence", deletePresence(pres))
	e.GET("/stream", streamUpdates(store, pres, broker))
	e.GET("/healthz", healthz())
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(store ListStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		snap, fetchErr := store.Load(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		tasks := snap.Sorted()
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func putTasks(store ListStore, hist History, listKey string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		body, err := io.ReadAll(io.LimitReader(c.Request().Body, putTasksMaxSize))
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		snap, err := decodeTasksBody(body)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		for _, t := range snap {
			if t.ID == "" {
				return c.String(http.StatusBadRequest, "task without id")
			}
		}

		if err := store.Save(ctx, snap); err != nil {
			c.Logger().Errorf("save snapshot: %v", err)
			return c.String(http.StatusInternalServerError, "failed to store list")
		}

		if hist != nil {
			ev := domain.RevisionEvent{
				ListKey:   listKey,
				UpdatedBy: latestWriter(snap),
				At:        time.Now().UnixMilli(),
				Snapshot:  snap,
			}
			// History is best effort; a full queue must not fail the write.
			if err := hist.Enqueue(ctx, ev); err != nil {
				logger.Errorf("enqueue revision event: %v", err)
			}
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func latestWriter(snap domain.Snapshot) string {
	var by string
	var at int64
	for _, t := range snap {
		if t.UpdatedAt >= at {
			at = t.UpdatedAt
			by = t.UpdatedBy
		}
	}
	return by
}

func putPresence(pres PresenceSlot) echo.HandlerFunc {
	return func(c echo.Context) error {
		var rec domain.DragPresence
		if err := c.Bind(&rec); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if rec.ItemID == "" || rec.SessionID == "" {
			return c.String(http.StatusBadRequest, "itemId and sessionId required")
		}
		if err := pres.Publish(c.Request().Context(), rec); err != nil {
			c.Logger().Errorf("publish presence: %v", err)
			return c.String(http.StatusInternalServerError, "failed to store presence")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deletePresence(pres PresenceSlot) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := pres.Clear(c.Request().Context()); err != nil {
			c.Logger().Errorf("clear presence: %v", err)
			return c.String(http.StatusInternalServerError, "failed to clear presence")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func streamUpdates(store ListStore, pres PresenceSlot, broker *UpdateBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)

		if err := emitTasks(c, store, flusher); err != nil {
			return err
		}
		if err := emitPresence(c, pres, flusher); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case kind := <-ch:
				var err error
				switch kind {
				case KindTasks:
					err = emitTasks(c, store, flusher)
				case KindPresence:
					err = emitPresence(c, pres, flusher)
				}
				if err != nil {
					return err
				}
			}
		}
	}
}

func emitTasks(c echo.Context, store ListStore, flusher http.Flusher) error {
	snap, err := store.Load(c.Request().Context())
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	data, err := json.Marshal(snap.Sorted())
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	return writeEvent(c, flusher, "tasks", data)
}

func emitPresence(c echo.Context, pres PresenceSlot, flusher http.Flusher) error {
	rec, err := pres.Load(c.Request().Context())
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	return writeEvent(c, flusher, "presence", data)
}

func writeEvent(c echo.Context, flusher http.Flusher, event string, data []byte) error {
	if _, err := c.Response().Write([]byte("event: " + event + "\ndata: ")); err != nil {
		c.Logger().Error(err)
		return err
	}
	if _, err := c.Response().Write(data); err != nil {
		c.Logger().Error(err)
		return err
	}
	if _, err := c.Response().Write([]byte("\n\n")); err != nil {
		c.Logger().Error(err)
		return err
	}
	flusher.Flush()
	return nil
}
