package wiring

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/go-pg/pg/v10"
	grpcactor "github.com/rbroggi/racketbuddy/internal/actors/grpc"
	jwtactor "github.com/rbroggi/racketbuddy/internal/actors/jwt"
	kafkaactor "github.com/rbroggi/racketbuddy/internal/actors/kafka"
	mongoactor "github.com/rbroggi/racketbuddy/internal/actors/mongo"
	"github.com/rbroggi/racketbuddy/internal/actors/postgres"
	produceractor "github.com/rbroggi/racketbuddy/internal/actors/pubsub/producer"
	redisactor "github.com/rbroggi/racketbuddy/internal/actors/redis"
	"github.com/rbroggi/racketbuddy/internal/actors/sqlite"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Factory builds the actors selected by the configuration. It keeps track of what has to be
// checked for health and closed on shutdown.
type Factory struct {
	conf    Config
	closers []func() error
	checks  map[string]grpcactor.DependencyCheck
	pubsub  *pubsub.Client
}

// NewFactory creates a new Factory.
func NewFactory(conf Config) *Factory {
	return &Factory{conf: conf, checks: make(map[string]grpcactor.DependencyCheck)}
}

// Repository opens the configured store.
func (f *Factory) Repository(ctx context.Context) (ports.Repository, error) {
	switch f.conf.Store {
	case StoreSQLite:
		db, err := sqlite.NewSQLiteDB(ctx, sqlite.SQLiteDBArgs{DSN: f.conf.SQLiteDSN})
		if err != nil {
			return nil, err
		}
		f.track("sqlite", db.Ping, db.Close)
		return db, nil
	case StorePostgres:
		opts, err := pg.ParseURL(f.conf.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("error parsing postgres url: %w", err)
		}
		db := pg.Connect(opts)
		if err := db.Ping(ctx); err != nil {
			db.Close()
			log.WithError(err).Error("db does not appear to be reachable")
			return nil, err
		}
		repo, err := postgres.NewPostgresDB(postgres.PostgresDBArgs{DB: db})
		if err != nil {
			db.Close()
			return nil, err
		}
		f.track("postgres", repo.Ping, db.Close)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store %q", f.conf.Store)
}

// Sender builds the configured activity publisher. It returns a nil Sender for the none notifier.
func (f *Factory) Sender(ctx context.Context) (ports.Sender, error) {
	switch f.conf.Notifier {
	case NotifierNone:
		return nil, nil
	case NotifierKafka:
		producer, err := kafkaactor.NewProducer(kafkaactor.ProducerArgs{
			Writer: kafkaactor.NewWriter(f.conf.KafkaBrokers, f.conf.KafkaTopic),
		})
		if err != nil {
			return nil, err
		}
		f.track("", nil, producer.Close)
		return producer, nil
	case NotifierPubSub:
		client, err := f.pubsubClient(ctx)
		if err != nil {
			return nil, err
		}
		topic := client.Topic(f.conf.PubSubActivityTopic)
		producer, err := produceractor.NewProducer(topic)
		if err != nil {
			return nil, err
		}
		f.track("", nil, func() error {
			topic.Stop()
			return nil
		})
		return producer, nil
	}
	return nil, fmt.Errorf("unknown notifier %q", f.conf.Notifier)
}

// AuditSubscription returns the Pub/Sub subscription carrying audit requests.
func (f *Factory) AuditSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	client, err := f.pubsubClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Subscription(f.conf.PubSubAuditSubscriptionID), nil
}

// AvatarStore connects to MongoDB and returns the GridFS profile image store.
func (f *Factory) AvatarStore(ctx context.Context) (ports.BlobStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(f.conf.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	store, err := mongoactor.NewAvatarStore(mongoactor.AvatarStoreArgs{Database: client.Database(f.conf.MongoDatabase)})
	if err != nil {
		return nil, err
	}
	f.track("mongo", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}, func() error {
		return client.Disconnect(context.Background())
	})
	return store, nil
}

// Identity returns the bearer token provider.
func (f *Factory) Identity() (ports.IdentityProvider, error) {
	if f.conf.JWTSecret == devJWTSecret {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}
	return jwtactor.NewProvider(jwtactor.ProviderArgs{Secret: []byte(f.conf.JWTSecret), TTL: f.conf.TokenTTL})
}

// JoinQuota returns the daily join quota, or nil when REDIS_URL is not set.
func (f *Factory) JoinQuota() (*redisactor.JoinQuota, error) {
	if f.conf.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(f.conf.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	quota, err := redisactor.NewJoinQuota(redisactor.JoinQuotaArgs{Client: rdb, Limit: f.conf.JoinQuota})
	if err != nil {
		rdb.Close()
		return nil, err
	}
	f.track("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}, rdb.Close)
	return quota, nil
}

// HealthChecks returns the health checks of every dependency built so far.
func (f *Factory) HealthChecks() map[string]grpcactor.DependencyCheck {
	checks := make(map[string]grpcactor.DependencyCheck, len(f.checks))
	for name, check := range f.checks {
		checks[name] = check
	}
	return checks
}

// Close releases the built dependencies in reverse order.
func (f *Factory) Close() {
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			log.WithError(err).Warn("error releasing dependency")
		}
	}
	f.closers = nil
}

func (f *Factory) pubsubClient(ctx context.Context) (*pubsub.Client, error) {
	if f.pubsub != nil {
		return f.pubsub, nil
	}
	client, err := pubsub.NewClient(ctx, f.conf.PubSubProjectID)
	if err != nil {
		return nil, fmt.Errorf("error creating pubsub client: %w", err)
	}
	f.pubsub = client
	f.track("", nil, client.Close)
	return client, nil
}

func (f *Factory) track(name string, check grpcactor.DependencyCheck, closer func() error) {
	if check != nil {
		f.checks[name] = check
	}
	f.closers = append(f.closers, closer)
}
