package store

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/model"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/component/mongodb"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

// mongoConversationStore implements ConversationStore on a MongoDB
// collection.
type mongoConversationStore struct {
	collection *mongo.Collection
}

// NewConversationStore creates a ConversationStore backed by the given
// client and collection.
func NewConversationStore(client *mongodb.Client, collection string) ConversationStore {
	return &mongoConversationStore{
		collection: client.Collection(collection),
	}
}

// parseID converts a caller supplied id into an ObjectID.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.ErrInvalidConversationID.WithMessage("invalid conversation id %q", id)
	}
	return oid, nil
}

func (s *mongoConversationStore) Create(ctx context.Context, conv *model.Conversation) (string, error) {
	conv.ID = primitive.NilObjectID
	if conv.Timestamp == 0 {
		conv.Timestamp = model.PosixNow()
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}

	result, err := s.collection.InsertOne(ctx, conv)
	if err != nil {
		return "", errors.ErrDatabase.WithCause(err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.ErrDatabase.WithMessage("unexpected inserted id type %T", result.InsertedID)
	}
	conv.ID = oid
	return oid.Hex(), nil
}

func (s *mongoConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var conv model.Conversation
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&conv); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &conv, nil
}

// buildFindFilter translates a ConversationQuery into a Mongo filter
// document. Empty query fields are left out entirely.
func buildFindFilter(query ConversationQuery) bson.M {
	filter := bson.M{"user": query.UserID}
	if query.CourseID != "" {
		filter["context.courseId"] = query.CourseID
	}
	if query.FileID != "" {
		// Matches conversations whose fileIds array contains the id.
		filter["context.fileIds"] = query.FileID
	}
	if query.Scope != "" {
		filter["context.scope"] = query.Scope
	}
	return filter
}

func (s *mongoConversationStore) Find(ctx context.Context, query ConversationQuery) ([]model.Conversation, error) {
	return s.runQuery(ctx, buildFindFilter(query))
}

func (s *mongoConversationStore) FindByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.runQuery(ctx, bson.M{"user": userID})
}

func (s *mongoConversationStore) runQuery(ctx context.Context, filter bson.M) ([]model.Conversation, error) {
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	defer cursor.Close(ctx)

	conversations := []model.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return conversations, nil
}

func (s *mongoConversationStore) Update(ctx context.Context, id string, conv *model.Conversation) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"user":      conv.User,
		"messages":  conv.Messages,
		"context":   conv.Context,
		"timestamp": conv.Timestamp,
		"summary":   conv.Summary,
	}}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
	}
	return nil
}

func (s *mongoConversationStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if result.DeletedCount == 0 {
		return errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
	}
	return nil
}

func (s *mongoConversationStore) AppendMessages(ctx context.Context, id string, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	oid, err := parseID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$push": bson.M{
		"messages": bson.M{"$each": messages},
	}}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
	}
	return nil
}

func (s *mongoConversationStore) SetCourseContext(ctx context.Context, id, courseID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"context.courseId": courseID}},
	)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrConversationNotFound.WithMessage("conversation %s not found", id)
	}
	return nil
}
