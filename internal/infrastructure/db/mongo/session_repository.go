package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gutwise/diet-api/internal/core/domain"
)

// MongoSessionRepository is the refresh-credential ledger backed by the
// refresh_sessions collection.
type MongoSessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{coll: db.Collection(sessionsCollection)}
}

type mongoSession struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"user_id"`
	TokenHash     string             `bson:"token_hash"`
	UserAgent     string             `bson:"user_agent,omitempty"`
	IPAddress     string             `bson:"ip_address,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	ExpiresAt     time.Time          `bson:"expires_at"`
	Revoked       bool               `bson:"revoked"`
	RevokedAt     *time.Time         `bson:"revoked_at,omitempty"`
	RevokedReason string             `bson:"revoked_reason,omitempty"`
}

func (ms *mongoSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:            ms.ID.Hex(),
		UserID:        ms.UserID,
		TokenHash:     ms.TokenHash,
		UserAgent:     ms.UserAgent,
		IPAddress:     ms.IPAddress,
		CreatedAt:     ms.CreatedAt,
		ExpiresAt:     ms.ExpiresAt,
		Revoked:       ms.Revoked,
		RevokedAt:     ms.RevokedAt,
		RevokedReason: ms.RevokedReason,
	}
}

func (r *MongoSessionRepository) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	doc := mongoSession{
		UserID:    session.UserID,
		TokenHash: session.TokenHash,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	created := *session
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *MongoSessionRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var ms mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&ms); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session by hash: %w", err)
	}
	return ms.toDomain(), nil
}

func (r *MongoSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	var ms mongoSession
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&ms); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return ms.toDomain(), nil
}

// FindAndRevoke claims a live session by hash in one FindOneAndUpdate, so
// two rotations racing on the same token cannot both succeed: the loser
// sees no matching document and gets ErrSessionNotFound. The filter only
// matches unexpired sessions; an expired token never flips to revoked
// here, so replaying it stays a plain rejection instead of reading as
// reuse of a rotated credential.
func (r *MongoSessionRepository) FindAndRevoke(ctx context.Context, tokenHash, reason string) (*domain.Session, error) {
	now := time.Now().UTC()

	var ms mongoSession
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"token_hash": tokenHash,
			"revoked":    false,
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		}},
	).Decode(&ms)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find and revoke session: %w", err)
	}
	// ReturnDocument defaults to the pre-update state, which is what the
	// rotation protocol wants to inspect.
	return ms.toDomain(), nil
}

func (r *MongoSessionRepository) Revoke(ctx context.Context, id, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrSessionNotFound
	}

	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "revoked": false},
		bson.M{"$set": bson.M{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		}},
	)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	// MatchedCount == 0 means either unknown id or already revoked; both
	// are a no-op success for idempotency.
	_ = res
	return nil
}

func (r *MongoSessionRepository) RevokeAllForUser(ctx context.Context, userID, reason string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked": false},
		bson.M{"$set": bson.M{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoSessionRepository) ListActiveForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	cursor, err := r.coll.Find(ctx, bson.M{
		"user_id":    userID,
		"revoked":    false,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	for cursor.Next(ctx) {
		var ms mongoSession
		if err := cursor.Decode(&ms); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, ms.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list sessions cursor: %w", err)
	}
	return sessions, nil
}

func (r *MongoSessionRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
