package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rbroggi/racketbuddy/internal/core/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultBucket     = "avatars"
	contentTypeField  = "content_type"
	defaultMIME       = "application/octet-stream"
	defaultOpDuration = 30 * time.Second
)

// AvatarStore keeps profile images in a GridFS bucket.
type AvatarStore struct {
	db         *mongo.Database
	bucketName string
}

// AvatarStoreArgs are the mandatory arguments for the creation of an AvatarStore
type AvatarStoreArgs struct {
	// Database holds the GridFS collections.
	Database *mongo.Database
}

// AvatarStoreOptArgs are the optional arguments for building an AvatarStore
type AvatarStoreOptArgs = func(*AvatarStore)

// WithBucketName overrides the GridFS bucket name.
func WithBucketName(name string) AvatarStoreOptArgs {
	return func(s *AvatarStore) {
		s.bucketName = name
	}
}

// NewAvatarStore creates a new AvatarStore.
func NewAvatarStore(args AvatarStoreArgs, optArgs ...AvatarStoreOptArgs) (*AvatarStore, error) {
	if args.Database == nil {
		return nil, errors.New("nil mongo database")
	}
	s := &AvatarStore{db: args.Database, bucketName: defaultBucket}
	for _, opt := range optArgs {
		opt(s)
	}
	return s, nil
}

// bucket returns a bucket whose deadlines follow ctx. A Bucket carries its deadlines as state,
// so each operation gets its own.
func (s *AvatarStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucketName))
	if err != nil {
		return nil, fmt.Errorf("error opening gridfs bucket: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultOpDuration)
	}
	if err := b.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := b.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return b, nil
}

// Put stores the image and returns its reference.
func (s *AvatarStore) Put(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = defaultMIME
	}
	id := primitive.NewObjectID()
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: contentTypeField, Value: contentType}})
	if err := b.UploadFromStreamWithID(id, filename, content, opts); err != nil {
		return "", fmt.Errorf("%w: error uploading [%s]: %w", model.ErrStorage, filename, err)
	}
	return id.Hex(), nil
}

// Get opens the image. The caller must close Avatar.Content.
func (s *AvatarStore) Get(ctx context.Context, ref string) (*model.Avatar, error) {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid avatar reference [%s]: %w", ref, model.ErrNotFound)
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := b.OpenDownloadStream(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: error opening [%s]: %w", model.ErrStorage, ref, err)
	}

	file := stream.GetFile()
	contentType := defaultMIME
	if v, ok := file.Metadata.Lookup(contentTypeField).StringValueOK(); ok {
		contentType = v
	}
	return &model.Avatar{ContentType: contentType, Size: file.Length, Content: stream}, nil
}

// Delete removes the image. Deleting a missing image is not an error.
func (s *AvatarStore) Delete(ctx context.Context, ref string) error {
	id, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if err := b.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("%w: error deleting [%s]: %w", model.ErrStorage, ref, err)
	}
	return nil
}
