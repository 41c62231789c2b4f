package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/account"
	"github.com/Aashay2112/chat-app/pkg/auth"
	"github.com/Aashay2112/chat-app/pkg/chat"
	"github.com/Aashay2112/chat-app/pkg/config"
	"github.com/Aashay2112/chat-app/pkg/db"
	"github.com/Aashay2112/chat-app/pkg/media"
	"github.com/Aashay2112/chat-app/pkg/presence"
	"github.com/Aashay2112/chat-app/pkg/realtime"
	"github.com/Aashay2112/chat-app/pkg/snowflake"
	"github.com/Aashay2112/chat-app/pkg/store"
	"github.com/Aashay2112/chat-app/pkg/store/mongostore"
	"github.com/Aashay2112/chat-app/pkg/store/scyllastore"
)

// app holds the wired components and the background loops main must run.
type app struct {
	server  *server
	hub     *realtime.Hub
	relay   *realtime.KafkaRelay
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i](ctx))
	}
	return err
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	var (
		st    store.Store
		mongo *mongostore.Store
	)
	switch cfg.Store.Backend {
	case "mongo":
		mongo, err = mongostore.Connect(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		st = mongo
	case "scylla":
		if err := db.EnsureSchema(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, log); err != nil {
			return nil, err
		}
		session, err := db.NewSession(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, log)
		if err != nil {
			return nil, err
		}
		st = scyllastore.New(session, log)
	default:
		st = store.NewMemory()
	}
	a.closers = append(a.closers, st.Close)

	var objects media.Store = media.NewMemory()
	if cfg.Media.Backend == "gridfs" {
		if mongo == nil {
			mongo, err = mongostore.Connect(ctx, cfg.Mongo, log)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, mongo.Close)
		}
		if objects, err = media.NewGridFS(mongo.Database()); err != nil {
			return nil, err
		}
	}
	uploader := media.NewUploader(objects, cfg.Media.BaseURL, cfg.Media.MaxBytes)

	var lastSeen presence.LastSeen = presence.NewMemoryLastSeen()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		lastSeen = presence.NewRedisLastSeen(rdb)
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	ids, err := snowflake.NewNode(cfg.Snowflake.Node)
	if err != nil {
		return nil, err
	}

	registry := presence.NewRegistry()
	a.hub = realtime.NewHub(registry, lastSeen, log)

	var notifier realtime.Notifier = a.hub
	if len(cfg.Kafka.Brokers) > 0 {
		a.relay = realtime.NewKafkaRelay(a.hub, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		a.closers = append(a.closers, func(context.Context) error { return a.relay.Close() })
		notifier = a.relay
		log.Info("fan-out through kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	a.server = &server{
		accounts: account.NewService(st, tokens, uploader, log),
		chat: chat.NewService(chat.Deps{
			Messages: st,
			Users:    st,
			Registry: registry,
			LastSeen: lastSeen,
			Notifier: notifier,
			Media:    uploader,
			IDs:      ids,
			Log:      log,
		}),
		hub:    a.hub,
		tokens: tokens,
		media:  uploader,
		log:    log,
	}
	return a, nil
}
