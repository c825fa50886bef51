package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// MongoAttemptRepository appends login-attempt audit rows. Rows age out via
// the TTL index created at startup.
type MongoAttemptRepository struct {
	coll *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) *MongoAttemptRepository {
	return &MongoAttemptRepository{coll: db.Collection(attemptsCollection)}
}

type mongoAttempt struct {
	ID        string    `bson:"attempt_id"`
	Email     string    `bson:"email"`
	IPAddress string    `bson:"ip_address,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty"`
	Success   bool      `bson:"success"`
	Reason    string    `bson:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *MongoAttemptRepository) Insert(ctx context.Context, attempt *domain.LoginAttempt) error {
	_, err := r.coll.InsertOne(ctx, mongoAttempt{
		ID:        attempt.ID,
		Email:     attempt.Email,
		IPAddress: attempt.IPAddress,
		UserAgent: attempt.UserAgent,
		Success:   attempt.Success,
		Reason:    attempt.Reason,
		CreatedAt: attempt.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}
