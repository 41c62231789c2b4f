// Package mongostore keeps users and messages in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/config"
	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/store"
)

const (
	messagesCollection = "messages"
	usersCollection    = "users"
)

type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	messages *mongo.Collection
	users    *mongo.Collection
	log      *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB, retrying up to cfg.MaxRetry times, and makes sure
// the indexes exist.
func Connect(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Timeout > 0 {
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	attempts := cfg.MaxRetry
	if attempts < 1 {
		attempts = 1
	}
	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < attempts; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		log.Warn("mongo connect failed", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, model.Dependency(ctx.Err(), "mongo connect")
		case <-time.After(time.Second / 2):
		}
	}
	if err != nil {
		return nil, model.Dependency(err, "mongo connect")
	}

	s := New(cli, cli.Database(cfg.Database), log)
	if err := s.EnsureIndexes(ctx); err != nil {
		cli.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to mongo", zap.String("database", cfg.Database))
	return s, nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

func New(cli *mongo.Client, db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		client:   cli,
		db:       db,
		messages: db.Collection(messagesCollection),
		users:    db.Collection(usersCollection),
		log:      log.Named("mongo"),
	}
}

// Database is shared with the GridFS media bucket.
func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "seen", Value: 1}}},
	})
	if err != nil {
		return model.Dependency(err, "mongo create message indexes")
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return model.Dependency(err, "mongo create user indexes")
}

func (s *Store) Create(ctx context.Context, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Conflict("message %s already exists", msg.ID)
		}
		return model.Dependency(err, "mongo insert message")
	}
	return nil
}

func (s *Store) ListConversation(ctx context.Context, a, b string) ([]model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "recipient_id": b},
		bson.M{"sender_id": b, "recipient_id": a},
	}}
	cur, err := s.messages.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, model.Dependency(err, "mongo find conversation")
	}
	out := make([]model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, model.Dependency(err, "mongo decode conversation")
	}
	// ids are decimal strings; numeric tie-break happens here
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func (s *Store) MarkSeen(ctx context.Context, id string) error {
	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"seen": true}})
	if err != nil {
		return model.Dependency(err, "mongo mark seen")
	}
	if res.MatchedCount == 0 {
		return model.NotFound("message %s not found", id)
	}
	return nil
}

func (s *Store) MarkConversationSeen(ctx context.Context, from, to string) (int64, error) {
	res, err := s.messages.UpdateMany(ctx,
		bson.M{"sender_id": from, "recipient_id": to, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, model.Dependency(err, "mongo mark conversation seen")
	}
	return res.ModifiedCount, nil
}

func (s *Store) UnseenCounts(ctx context.Context, recipient string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipient_id": recipient, "seen": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$sender_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, model.Dependency(err, "mongo aggregate unseen")
	}
	var rows []struct {
		Sender string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, model.Dependency(err, "mongo decode unseen")
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Sender] = r.N
	}
	return out, nil
}

func (s *Store) LastMessageTimes(ctx context.Context, userID string) (map[string]time.Time, error) {
	peer := bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$sender_id", userID}}, "$recipient_id", "$sender_id"}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"sender_id": userID}, bson.M{"recipient_id": userID}}}}},
		{{Key: "$group", Value: bson.M{"_id": peer, "last": bson.M{"$max": "$created_at"}}}},
	}
	cur, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, model.Dependency(err, "mongo aggregate last message")
	}
	var rows []struct {
		Peer string    `bson:"_id"`
		Last time.Time `bson:"last"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, model.Dependency(err, "mongo decode last message")
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.Peer] = r.Last.UTC()
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	cp := *u
	cp.Email = model.NormalizeEmail(u.Email)
	if _, err := s.users.InsertOne(ctx, &cp); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Conflict("account already exists")
		}
		return model.Dependency(err, "mongo insert user")
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.NotFound("user not found")
		}
		return nil, model.Dependency(err, "mongo find user")
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"full_name":   u.FullName,
		"bio":         u.Bio,
		"profile_pic": u.ProfilePic,
	}})
	if err != nil {
		return model.Dependency(err, "mongo update user")
	}
	if res.MatchedCount == 0 {
		return model.NotFound("user not found")
	}
	return nil
}

func (s *Store) ListUsersExcept(ctx context.Context, id string) ([]model.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$ne": id}}, opts)
	if err != nil {
		return nil, model.Dependency(err, "mongo list users")
	}
	out := make([]model.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, model.Dependency(err, "mongo decode users")
	}
	return out, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
