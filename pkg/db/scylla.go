package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/model"
)

type Session struct {
	*gocql.Session
}

func NewSession(hosts []string, keyspace string, log *zap.Logger) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	// Retry policy
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, model.Dependency(err, "scylla connect "+keyspace)
	}

	log.Info("connected to scylla", zap.Strings("hosts", hosts), zap.String("keyspace", keyspace))
	return &Session{Session: session}, nil
}

// Tables lists the chat schema in creation order.
var Tables = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		conversation_id text,
		created_at timestamp,
		id bigint,
		sender_id text,
		recipient_id text,
		text text,
		image text,
		seen boolean,
		PRIMARY KEY (conversation_id, created_at, id)
	) WITH CLUSTERING ORDER BY (created_at ASC, id ASC)`,
	`CREATE TABLE IF NOT EXISTS messages_by_id (
		id bigint PRIMARY KEY,
		conversation_id text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS user_conversations (
		user_id text,
		other_user_id text,
		last_updated timestamp,
		PRIMARY KEY (user_id, other_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_counters (
		user_id text,
		other_user_id text,
		unread_count counter,
		PRIMARY KEY (user_id, other_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id text PRIMARY KEY,
		email text,
		full_name text,
		bio text,
		profile_pic text,
		password_hash text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS users_by_email (
		email text PRIMARY KEY,
		user_id text
	)`,
}

// EnsureSchema creates the keyspace through the system keyspace, then every
// table. Production deployments should run scripts/create_schema instead.
func EnsureSchema(hosts []string, keyspace string, log *zap.Logger) error {
	sys, err := NewSession(hosts, "system", log)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`, keyspace)
	err = sys.Query(stmt).Exec()
	sys.Close()
	if err != nil {
		return model.Dependency(err, "scylla create keyspace")
	}

	session, err := NewSession(hosts, keyspace, log)
	if err != nil {
		return err
	}
	defer session.Close()
	for _, table := range Tables {
		if err := session.Query(table).Exec(); err != nil {
			return model.Dependency(err, "scylla create table")
		}
	}
	log.Info("scylla schema ready", zap.String("keyspace", keyspace))
	return nil
}

// TableName extracts the table name from one of the Tables statements.
func TableName(stmt string) string {
	_, rest, ok := strings.Cut(stmt, "IF NOT EXISTS")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return strings.TrimSuffix(name, "(")
}
