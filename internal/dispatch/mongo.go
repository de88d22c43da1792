package dispatch

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

// MongoStore keeps one document per submission in the responses collection,
// keyed by submission id.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("responses")}
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Deliver(ctx context.Context, sub *models.Submission) error {
	doc := bson.M{"_id": sub.ID.String(), "createdAt": sub.SubmittedAt}
	for k, v := range RecordFields(sub) {
		doc[k] = v
	}

	_, err := s.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		// a retry after a lost acknowledgement
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}
