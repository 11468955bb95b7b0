// Package mongo stores reports in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection  = "reports"
	countersCollection = "counters"
)

// MongoStorage: MongoDB реализация ReportsStorage.
// Порядок перечисления: created_at, затем монотонный seq из коллекции counters.
type MongoStorage struct {
	client   *mongo.Client
	reports  *mongo.Collection
	counters *mongo.Collection
}

type reportDoc struct {
	ID          string         `bson:"_id"`
	Seq         int64          `bson:"seq"`
	Type        string         `bson:"type"`
	Description string         `bson:"description"`
	Latitude    float64        `bson:"latitude"`
	Longitude   float64        `bson:"longitude"`
	Address     *string        `bson:"address,omitempty"`
	Images      []string       `bson:"images"`
	Priority    string         `bson:"priority"`
	Status      string         `bson:"status"`
	Emergency   bool           `bson:"emergency"`
	AIAnalysis  *aiAnalysisDoc `bson:"ai_analysis,omitempty"`
	UserID      *string        `bson:"user_id,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

type aiAnalysisDoc struct {
	SuggestedType     *string `bson:"suggested_type,omitempty"`
	SuggestedPriority *string `bson:"suggested_priority,omitempty"`
	Confidence        float64 `bson:"confidence"`
	Description       *string `bson:"description,omitempty"`
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы
func New(ctx context.Context, uri, dbName string) (*MongoStorage, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}

	start := time.Now()
	log.Printf("mongo: connecting uri=%s db=%s", redactURI(uri), dbName)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := c.Database(dbName)
	s := &MongoStorage{
		client:   c,
		reports:  db.Collection(reportsCollection),
		counters: db.Collection(countersCollection),
	}

	if err := s.createIndexes(ctx); err != nil {
		log.Printf("mongo: index creation warnings: %v", err)
	}

	log.Printf("mongo: connected ok in %s", time.Since(start).Round(time.Millisecond))
	return s, nil
}

func (s *MongoStorage) createIndexes(ctx context.Context) error {
	ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []string
	if _, err := s.reports.Indexes().CreateOne(ctxIdx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}},
	}); err != nil {
		errs = append(errs, "created_at,seq: "+err.Error())
	}
	if _, err := s.reports.Indexes().CreateOne(ctxIdx, mongo.IndexModel{
		Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}},
	}); err != nil {
		errs = append(errs, "type,status: "+err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// FindReports возвращает отчёты по query
func (s *MongoStorage) FindReports(ctx context.Context, query storage.ReportQuery) ([]storage.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}})

	cur, err := s.reports.Find(ctx, buildFilter(query), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	reports := []storage.Report{}
	for cur.Next(ctx) {
		var doc reportDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		r, err := doc.toReport()
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}

	return reports, cur.Err()
}

// GetReport возвращает отчёт по ID
func (s *MongoStorage) GetReport(ctx context.Context, id uuid.UUID) (*storage.Report, error) {
	var doc reportDoc
	err := s.reports.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return doc.toReport()
}

// InsertReport сохраняет отчёт одним InsertOne
func (s *MongoStorage) InsertReport(ctx context.Context, report *storage.Report) (uuid.UUID, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	doc := fromReport(report)
	doc.Seq = seq
	if _, err := s.reports.InsertOne(ctx, doc); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return report.ID, nil
}

// UpdateReport применяет patch и возвращает обновлённый отчёт
func (s *MongoStorage) UpdateReport(ctx context.Context, id uuid.UUID, patch storage.ReportPatch) (*storage.Report, error) {
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.UpdatedAt != nil {
		set["updated_at"] = patch.UpdatedAt.UTC()
	}
	if len(set) == 0 {
		return s.GetReport(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reportDoc
	err := s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	return doc.toReport()
}

// DeleteReport удаляет отчёт
func (s *MongoStorage) DeleteReport(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// CountReports возвращает количество отчётов
func (s *MongoStorage) CountReports(ctx context.Context) (int, error) {
	n, err := s.reports.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return int(n), nil
}

func (s *MongoStorage) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": reportsCollection},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate report sequence: %w", err)
	}
	return counter.Value, nil
}

func buildFilter(query storage.ReportQuery) bson.M {
	filter := bson.M{}

	status := bson.M{}
	if query.Status != nil {
		status["$eq"] = *query.Status
	}
	if query.ExcludeStatus != nil {
		status["$ne"] = *query.ExcludeStatus
	}
	if len(status) > 0 {
		filter["status"] = status
	}
	if query.Priority != nil {
		filter["priority"] = *query.Priority
	}
	if query.Type != nil {
		filter["type"] = *query.Type
	}

	return filter
}

func fromReport(r *storage.Report) reportDoc {
	c := r.Clone()
	images := c.Images
	if images == nil {
		images = []string{}
	}

	doc := reportDoc{
		ID:          c.ID.String(),
		Type:        c.Type,
		Description: c.Description,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Address:     c.Address,
		Images:      images,
		Priority:    c.Priority,
		Status:      c.Status,
		Emergency:   c.Emergency,
		UserID:      c.UserID,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if c.AIAnalysis != nil {
		doc.AIAnalysis = &aiAnalysisDoc{
			SuggestedType:     c.AIAnalysis.SuggestedType,
			SuggestedPriority: c.AIAnalysis.SuggestedPriority,
			Confidence:        c.AIAnalysis.Confidence,
			Description:       c.AIAnalysis.Description,
		}
	}
	return doc
}

func (d reportDoc) toReport() (*storage.Report, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", d.ID, err)
	}

	r := &storage.Report{
		ID:          id,
		Type:        d.Type,
		Description: d.Description,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Address:     d.Address,
		Images:      d.Images,
		Priority:    d.Priority,
		Status:      d.Status,
		Emergency:   d.Emergency,
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if d.AIAnalysis != nil {
		r.AIAnalysis = &storage.AIAnalysis{
			SuggestedType:     d.AIAnalysis.SuggestedType,
			SuggestedPriority: d.AIAnalysis.SuggestedPriority,
			Confidence:        d.AIAnalysis.Confidence,
			Description:       d.AIAnalysis.Description,
		}
	}
	return r, nil
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
