package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// MongoLockoutRepository keeps one brute-force counter document per
// normalized email in the login_locks collection.
type MongoLockoutRepository struct {
	coll *mongo.Collection
}

func NewLockoutRepository(db *mongo.Database) *MongoLockoutRepository {
	return &MongoLockoutRepository{coll: db.Collection(locksCollection)}
}

type mongoLock struct {
	Email          string     `bson:"email"`
	FailedAttempts int        `bson:"failed_attempts"`
	LastFailureAt  time.Time  `bson:"last_failure_at"`
	Locked         bool       `bson:"locked"`
	LockedUntil    *time.Time `bson:"locked_until,omitempty"`
}

func (r *MongoLockoutRepository) Find(ctx context.Context, email string) (*domain.LoginLock, error) {
	var ml mongoLock
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&ml); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("find login lock: %w", err)
	}
	return &domain.LoginLock{
		Email:          ml.Email,
		FailedAttempts: ml.FailedAttempts,
		LastFailureAt:  ml.LastFailureAt,
		Locked:         ml.Locked,
		LockedUntil:    ml.LockedUntil,
	}, nil
}

func (r *MongoLockoutRepository) Upsert(ctx context.Context, lock *domain.LoginLock) error {
	doc := mongoLock{
		Email:          lock.Email,
		FailedAttempts: lock.FailedAttempts,
		LastFailureAt:  lock.LastFailureAt,
		Locked:         lock.Locked,
		LockedUntil:    lock.LockedUntil,
	}

	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"email": lock.Email},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert login lock: %w", err)
	}
	return nil
}

func (r *MongoLockoutRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"email": email}); err != nil {
		return fmt.Errorf("delete login lock: %w", err)
	}
	return nil
}
