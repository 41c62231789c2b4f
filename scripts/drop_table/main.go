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
	keyspace := flag.String("keyspace", "chat", "keyspace holding the chat tables")
	only := flag.String("table", "", "drop only this table")
	flag.Parse()

	log := logger.New("info", "console")
	defer log.Sync()

	session, err := db.NewSession(strings.Split(*hosts, ","), *keyspace, log)
	if err != nil {
		log.Fatal("failed to connect to scylla", zap.Error(err))
	}
	defer session.Close()

	for _, stmt := range db.Tables {
		name := db.TableName(stmt)
		if *only != "" && name != *only {
			continue
		}
		log.Info("dropping table", zap.String("table", name))
		if err := session.Query("DROP TABLE IF EXISTS " + name).Exec(); err != nil {
			log.Fatal("failed to drop table", zap.String("table", name), zap.Error(err))
		}
	}
	log.Info("tables dropped")
}
