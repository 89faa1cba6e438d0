package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/models"
)

const (
	videosCollection    = "videos"
	listingsCollection  = "video_listings"
	analyticsCollection = "video_analytics"
)

type videoDoc struct {
	ID                primitive.ObjectID `bson:"_id"`
	Title             string             `bson:"title"`
	Category          string             `bson:"category"`
	Subcategory       string             `bson:"subcategory"`
	Duration          string             `bson:"duration"`
	Views             string             `bson:"views"`
	Highlights        []string           `bson:"highlights"`
	TranscriptSummary string             `bson:"transcript_summary"`
	KeyFeatures       []string           `bson:"key_features"`
	PriceRange        string             `bson:"price_range"`
	CreatedAt         time.Time          `bson:"created_at"`
}

func (d *videoDoc) model() *models.Video {
	return &models.Video{
		ID:                d.ID.Hex(),
		Title:             d.Title,
		Category:          d.Category,
		Subcategory:       d.Subcategory,
		Duration:          d.Duration,
		Views:             d.Views,
		Highlights:        d.Highlights,
		TranscriptSummary: d.TranscriptSummary,
		KeyFeatures:       d.KeyFeatures,
		PriceRange:        d.PriceRange,
	}
}

type listingDoc struct {
	ID            primitive.ObjectID   `bson:"_id"`
	VideoID       string               `bson:"video_id"`
	ProductID     string               `bson:"product_id"`
	Platform      string               `bson:"platform"`
	Title         string               `bson:"title"`
	Views         string               `bson:"views"`
	Rating        float64              `bson:"rating"`
	KeyTimestamps map[string]string    `bson:"key_timestamps"`
	ProductLinks  []models.ProductLink `bson:"product_links"`
	CreatedAt     string               `bson:"created_at"`
	UpdatedAt     string               `bson:"updated_at"`
}

type analyticsDoc struct {
	ID          primitive.ObjectID      `bson:"_id"`
	ProductID   string                  `bson:"product_id"`
	Engagement  models.VideoEngagement  `bson:"engagement"`
	Audience    models.VideoAudience    `bson:"audience"`
	Performance models.VideoPerformance `bson:"performance"`
	CreatedAt   string                  `bson:"created_at"`
	UpdatedAt   string                  `bson:"updated_at"`
}

// MongoStorage implements Storage on MongoDB. Record ids are the hex form of the document _id.
type MongoStorage struct {
	client    *mongo.Client
	videos    *mongo.Collection
	listings  *mongo.Collection
	analytics *mongo.Collection
}

// NewMongoStorage connects to uri and uses the named database.
func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	db := client.Database(database)
	return &MongoStorage{
		client:    client,
		videos:    db.Collection(videosCollection),
		listings:  db.Collection(listingsCollection),
		analytics: db.Collection(analyticsCollection),
	}, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NewObjectID(), nil
	}
	return ident.Parse(id)
}

func upsertByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStorage) findVideos(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*models.Video, error) {
	cursor, err := s.videos.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []videoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	videos := make([]*models.Video, 0, len(docs))
	for i := range docs {
		videos = append(videos, docs[i].model())
	}
	return videos, nil
}

// UpsertVideo inserts or replaces a video by id.
func (s *MongoStorage) UpsertVideo(ctx context.Context, v *models.Video) error {
	oid, err := objectID(v.ID)
	if err != nil {
		return err
	}
	v.ID = oid.Hex()
	doc := videoDoc{
		ID:                oid,
		Title:             v.Title,
		Category:          v.Category,
		Subcategory:       v.Subcategory,
		Duration:          v.Duration,
		Views:             v.Views,
		Highlights:        v.Highlights,
		TranscriptSummary: v.TranscriptSummary,
		KeyFeatures:       v.KeyFeatures,
		PriceRange:        v.PriceRange,
		CreatedAt:         time.Now(),
	}
	return upsertByID(ctx, s.videos, oid, doc)
}

// GetVideo returns a video by id.
func (s *MongoStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	oid, err := ident.Parse(id)
	if err != nil {
		return nil, err
	}
	var doc videoDoc
	err = s.videos.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.model(), nil
}

// SearchVideosByTitle runs a case-insensitive $regex query on title.
func (s *MongoStorage) SearchVideosByTitle(ctx context.Context, pattern string) ([]*models.Video, error) {
	return s.findVideos(ctx, bson.M{
		"title": bson.M{"$regex": TitlePattern(pattern), "$options": "i"},
	})
}

// FindComparableVideos excludes ref by _id and matches any of its non-empty attributes.
func (s *MongoStorage) FindComparableVideos(ctx context.Context, ref *models.Video, limit int) ([]*models.Video, error) {
	oid, err := ident.Parse(ref.ID)
	if err != nil {
		return nil, err
	}
	var or []bson.M
	if ref.Title != "" {
		or = append(or, bson.M{"title": bson.M{"$regex": TitlePattern(ref.Title), "$options": "i"}})
	}
	for field, value := range map[string]string{
		"category":    ref.Category,
		"subcategory": ref.Subcategory,
		"duration":    ref.Duration,
		"price_range": ref.PriceRange,
	} {
		if value != "" {
			or = append(or, bson.M{field: value})
		}
	}
	if len(ref.Highlights) > 0 {
		or = append(or, bson.M{"highlights": bson.M{"$in": ref.Highlights}})
	}
	if len(ref.KeyFeatures) > 0 {
		or = append(or, bson.M{"key_features": bson.M{"$in": ref.KeyFeatures}})
	}
	if len(or) == 0 {
		return nil, nil
	}
	filter := bson.M{"_id": bson.M{"$ne": oid}, "$or": or}
	return s.findVideos(ctx, filter, options.Find().SetLimit(int64(limit)))
}

// UpsertListing inserts or replaces a listing by id.
func (s *MongoStorage) UpsertListing(ctx context.Context, l *models.VideoListing) error {
	oid, err := objectID(l.ID)
	if err != nil {
		return err
	}
	l.ID = oid.Hex()
	doc := listingDoc{
		ID:            oid,
		VideoID:       l.VideoID,
		ProductID:     l.ProductID,
		Platform:      l.Platform,
		Title:         l.Title,
		Views:         l.Views,
		Rating:        l.Rating,
		KeyTimestamps: l.KeyTimestamps,
		ProductLinks:  l.ProductLinks,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	return upsertByID(ctx, s.listings, oid, doc)
}

// ListingsByVideoID returns the listings whose video_id equals videoID.
func (s *MongoStorage) ListingsByVideoID(ctx context.Context, videoID string) ([]*models.VideoListing, error) {
	cursor, err := s.listings.Find(ctx, bson.M{"video_id": videoID})
	if err != nil {
		return nil, err
	}
	var docs []listingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	listings := make([]*models.VideoListing, 0, len(docs))
	for _, d := range docs {
		listings = append(listings, &models.VideoListing{
			ID:            d.ID.Hex(),
			VideoID:       d.VideoID,
			ProductID:     d.ProductID,
			Platform:      d.Platform,
			Title:         d.Title,
			Views:         d.Views,
			Rating:        d.Rating,
			KeyTimestamps: d.KeyTimestamps,
			ProductLinks:  d.ProductLinks,
			CreatedAt:     d.CreatedAt,
			UpdatedAt:     d.UpdatedAt,
		})
	}
	return listings, nil
}

// UpsertAnalytics stores analytics under the _id of the video they describe.
func (s *MongoStorage) UpsertAnalytics(ctx context.Context, a *models.VideoAnalytics) error {
	oid, err := ident.Parse(a.ID)
	if err != nil {
		return err
	}
	doc := analyticsDoc{
		ID:          oid,
		ProductID:   a.ProductID,
		Engagement:  a.Engagement,
		Audience:    a.Audience,
		Performance: a.Performance,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	return upsertByID(ctx, s.analytics, oid, doc)
}

// GetAnalytics returns the analytics stored for videoID.
func (s *MongoStorage) GetAnalytics(ctx context.Context, videoID string) (*models.VideoAnalytics, error) {
	oid, err := ident.Parse(videoID)
	if err != nil {
		return nil, err
	}
	var doc analyticsDoc
	err = s.analytics.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("analytics %s: %w", videoID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &models.VideoAnalytics{
		ID:          doc.ID.Hex(),
		ProductID:   doc.ProductID,
		Engagement:  doc.Engagement,
		Audience:    doc.Audience,
		Performance: doc.Performance,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

// CountVideos returns the number of documents in the videos collection.
func (s *MongoStorage) CountVideos(ctx context.Context) (int64, error) {
	return s.videos.CountDocuments(ctx, bson.M{})
}

// Close disconnects the client.
func (s *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
