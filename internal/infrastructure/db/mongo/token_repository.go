package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forumhub/auth-service/internal/core/domain"
)

const tokensCollection = "refresh_tokens"

// RefreshTokenRepository implements ports.RefreshTokenStore over the
// refresh_tokens collection, keyed by the opaque token string.
type RefreshTokenRepository struct {
	coll *mongo.Collection
	ttl  time.Duration
}

// NewRefreshTokenRepository returns a store creating tokens that expire
// after ttl.
func NewRefreshTokenRepository(db *mongo.Database, ttl time.Duration) *RefreshTokenRepository {
	return &RefreshTokenRepository{coll: db.Collection(tokensCollection), ttl: ttl}
}

type tokenDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    string             `bson:"user_id"`
	ExpiresAt int64              `bson:"expires_at_ms"`
	CreatedAt int64              `bson:"created_at_ms"`
}

func (d *tokenDoc) toDomain() *domain.RefreshToken {
	return &domain.RefreshToken{
		ID:        d.ID.Hex(),
		Token:     d.Token,
		UserID:    d.UserID,
		ExpiresAt: time.UnixMilli(d.ExpiresAt).UTC(),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID string) (*domain.RefreshToken, error) {
	now := time.Now().UTC()
	doc := tokenDoc{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(r.ttl).UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The token is a fresh UUID; a duplicate means the unique
			// index caught an integrity violation, not a retryable race.
			return nil, fmt.Errorf("refresh token collision: %w", err)
		}
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}

	out := doc.toDomain()
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		out.ID = oid.Hex()
	}
	return out, nil
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var doc tokenDoc
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens by user: %w", err)
	}
	return res.DeletedCount, nil
}
