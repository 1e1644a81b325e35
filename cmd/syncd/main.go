package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/api"
	"github.com/AnnaOlkh/todolist/internal/domain"
	"github.com/AnnaOlkh/todolist/internal/store"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(parseRedisOptions(redisConn))

	listKey := os.Getenv("LIST_KEY")
	if listKey == "" {
		listKey = "list:shared"
	}
	presenceKey := os.Getenv("PRESENCE_KEY")
	if presenceKey == "" {
		presenceKey = listKey + ":presence"
	}

	logger := log.New()
	lists := store.NewListStore(rc, listKey, logger)
	pres := store.NewPresenceStore(rc, presenceKey, logger)

	ctx := context.Background()

	var hist api.History
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr != "" {
		archiveTable := os.Getenv("ARCHIVE_TABLE")
		historyQueue := os.Getenv("HISTORY_QUEUE")
		if archiveTable == "" || historyQueue == "" {
			log.Fatal("STORAGE_CONNECTION_STRING set but ARCHIVE_TABLE or HISTORY_QUEUE missing")
		}
		queue, err := store.NewHistoryQueue(connStr, historyQueue)
		if err != nil {
			log.Fatalf("history queue: %v", err)
		}
		hist = queue

		archive, err := store.NewArchive(connStr, archiveTable)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		bootstrap(ctx, lists, archive, listKey, logger)
	}

	broker := api.NewUpdateBroker()
	go lists.Subscribe(ctx, func(domain.Snapshot) { broker.Notify(api.KindTasks) })
	go pres.Subscribe(ctx, func(*domain.DragPresence) { broker.Notify(api.KindPresence) })

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequestMiddleware())

	api.Register(e, lists, pres, hist, broker, listKey, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("SYNCD_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// bootstrap seeds the Redis document from the newest archived revision
// when the key is missing, so a fresh Redis instance does not present an
// empty list to the first client.
func bootstrap(ctx context.Context, lists *store.ListStore, archive *store.Archive, listKey string, logger *log.Logger) {
	snap, err := lists.Load(ctx)
	if err != nil {
		logger.Errorf("bootstrap load: %v", err)
		return
	}
	if len(snap) > 0 {
		return
	}
	rev, ok, err := archive.LatestRevision(ctx, listKey)
	if err != nil {
		logger.Errorf("bootstrap archive fetch: %v", err)
		return
	}
	if !ok || len(rev.Snapshot) == 0 {
		return
	}
	if err := lists.Save(ctx, rev.Snapshot); err != nil {
		logger.Errorf("bootstrap save: %v", err)
		return
	}
	logger.Infof("seeded %s from archive revision at %d (%d tasks)", listKey, rev.At, len(rev.Snapshot))
}

// parseRedisOptions accepts a redis URL or the comma-separated
// host,password=...,ssl=true form some hosted providers hand out.
func parseRedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
