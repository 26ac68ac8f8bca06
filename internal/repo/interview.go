package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intervia/internal/utils/sort"
)

type IInterview interface {
	Create(ctx context.Context, interview *Interview) error
	Get(ctx context.Context, id string) (*Interview, error)
	GetByExternalCallID(ctx context.Context, callID string) (*Interview, error)
	List(ctx context.Context, userID string, page, limit int32, status Status, sortExpr string) ([]*Interview, int32, int32, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetStarted(ctx context.Context, id string, at time.Time, questionIDs []string) error
	AppendAnswer(ctx context.Context, id string, answer Answer) error
	PatchAnswerFeedback(ctx context.Context, id, questionID string, score int32, feedback string, strengths, improvements []string, at time.Time) error
	SetCompleted(ctx context.Context, id string, overallScore int32, feedback string, at time.Time) error
	SetReport(ctx context.Context, id string, report *Report, feedback string, at time.Time) error
	SetStatus(ctx context.Context, id string, status Status) error
	AppendTranscript(ctx context.Context, id string, entry TranscriptEntry) error
	Stats(ctx context.Context, userID string) (*Stats, error)
}

var listSortFields = []string{"createdAt", "completedAt", "overallScore", "field", "difficulty", "status"}

type MongoInterview struct {
	coll *mongo.Collection
}

func NewInterviewRepository(db *mongo.Database) IInterview {
	return &MongoInterview{coll: db.Collection("interviews")}
}

// Create inserts a new interview document.
func (r *MongoInterview) Create(ctx context.Context, interview *Interview) error {
	_, err := r.coll.InsertOne(ctx, interview)
	return err
}

// Get retrieves an interview by ID.
func (r *MongoInterview) Get(ctx context.Context, id string) (*Interview, error) {
	var interview Interview
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

// GetByExternalCallID re-associates a voice callback with its interview.
func (r *MongoInterview) GetByExternalCallID(ctx context.Context, callID string) (*Interview, error) {
	var interview Interview
	if err := r.coll.FindOne(ctx, bson.M{"externalCallId": callID}).Decode(&interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

// List retrieves a page of a user's interviews with optional status filter
// and sort expression.
func (r *MongoInterview) List(ctx context.Context, userID string, page, limit int32, status Status, sortExpr string) ([]*Interview, int32, int32, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 10
	}

	filter := bson.M{"userId": userID}
	if status != "" {
		filter["status"] = status
	}

	sorts, err := sort.GetSort(listSortFields, sortExpr)
	if err != nil {
		return nil, 0, 0, err
	}

	totalCount, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	if totalCount == 0 {
		return nil, 0, 0, nil
	}
	totalPages := (int32(totalCount)-1)/limit + 1

	cursor, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(sorts).
		SetSkip(int64(page-1)*int64(limit)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, 0, err
	}
	defer cursor.Close(ctx)

	var interviews []*Interview
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, 0, 0, err
	}

	return interviews, int32(totalCount), totalPages, nil
}

// Exists checks if an interview exists.
func (r *MongoInterview) Exists(ctx context.Context, id string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetStarted transitions to in_progress and records the question ids picked
// for the session when the caller sourced them after creation.
func (r *MongoInterview) SetStarted(ctx context.Context, id string, at time.Time, questionIDs []string) error {
	set := bson.M{"status": StatusInProgress, "startedAt": at}
	if len(questionIDs) > 0 {
		set["questionIds"] = questionIDs
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// AppendAnswer relies on the store's atomic list push: two concurrent appends
// for the same interview never lose an entry.
func (r *MongoInterview) AppendAnswer(ctx context.Context, id string, answer Answer) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"answers": answer},
	})
	return err
}

// PatchAnswerFeedback patches the first answer matching questionID in place.
func (r *MongoInterview) PatchAnswerFeedback(ctx context.Context, id, questionID string, score int32, feedback string, strengths, improvements []string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "answers.questionId": questionID},
		bson.M{"$set": bson.M{
			"answers.$.score":        score,
			"answers.$.feedback":     feedback,
			"answers.$.strengths":    strengths,
			"answers.$.improvements": improvements,
			"answers.$.evaluatedAt":  at,
		}})
	return err
}

func (r *MongoInterview) SetCompleted(ctx context.Context, id string, overallScore int32, feedback string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusCompleted,
			"overallScore": overallScore,
			"feedback":     feedback,
			"completedAt":  at,
		},
	})
	return err
}

// SetReport overwrites the report unconditionally. There is no status guard
// on this path.
func (r *MongoInterview) SetReport(ctx context.Context, id string, report *Report, feedback string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       StatusCompleted,
			"report":       report,
			"overallScore": report.OverallScore,
			"feedback":     feedback,
			"completedAt":  at,
		},
	})
	return err
}

func (r *MongoInterview) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status},
	})
	return err
}

func (r *MongoInterview) AppendTranscript(ctx context.Context, id string, entry TranscriptEntry) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"transcript": entry},
	})
	return err
}

// Stats aggregates per-status counts and the average overall score of the
// user's completed interviews.
func (r *MongoInterview) Stats(ctx context.Context, userID string) (*Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"completed": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", StatusCompleted}}, 1, 0},
			}},
			"inProgress": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", StatusInProgress}}, 1, 0},
			}},
			"cancelled": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", StatusCancelled}}, 1, 0},
			}},
			"averageScore": bson.M{"$avg": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", StatusCompleted}}, "$overallScore", nil},
			}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total        int32    `bson:"total"`
		Completed    int32    `bson:"completed"`
		InProgress   int32    `bson:"inProgress"`
		Cancelled    int32    `bson:"cancelled"`
		AverageScore *float64 `bson:"averageScore"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Stats{}, nil
	}

	stats := &Stats{
		Total:      results[0].Total,
		Completed:  results[0].Completed,
		InProgress: results[0].InProgress,
		Cancelled:  results[0].Cancelled,
	}
	if results[0].AverageScore != nil {
		stats.AverageScore = int32(*results[0].AverageScore)
	}
	return stats, nil
}
