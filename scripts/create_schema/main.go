package main

import (
	"flag"
	"strings"

	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/db"
	"github.com/Aashay2112/chat-app/pkg/logger"
)

func main() {
	hosts := flag.String("hosts", "localhost:9042", "comma separated scylla hosts")
	keyspace := flag.String("keyspace", "chat", "keyspace to create")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	if err := db.EnsureSchema(strings.Split(*hosts, ","), *keyspace, log); err != nil {
		log.Fatal("create schema", zap.Error(err))
	}
	log.Info("tables created", zap.Int("count", len(db.Tables)))
}
