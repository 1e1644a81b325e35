package main

import (
	"context"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/store"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("revision archiver starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	historyQueue := os.Getenv("HISTORY_QUEUE")
	archiveTable := os.Getenv("ARCHIVE_TABLE")
	if connStr == "" || historyQueue == "" || archiveTable == "" {
		log.Fatal("missing storage config")
	}

	queue, err := store.NewHistoryQueue(connStr, historyQueue)
	if err != nil {
		log.Fatalf("history queue: %v", err)
	}
	archive, err := store.NewArchive(connStr, archiveTable)
	if err != nil {
		log.Fatalf("archive: %v", err)
	}

	ctx := context.Background()
	for {
		msg, err := queue.Next(ctx)
		if err != nil {
			log.Errorf("receive: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			time.Sleep(time.Second)
			continue
		}
		if err := archive.SaveRevision(ctx, msg.Event); err != nil {
			// Leave the message in the queue; visibility timeout will
			// redeliver it.
			log.Errorf("archive revision at %d: %v", msg.Event.At, err)
			continue
		}
		if err := queue.Delete(ctx, msg); err != nil {
			log.Errorf("ack message %s: %v", msg.ID, err)
		}
	}
}
