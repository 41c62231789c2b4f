package media

import (
	"bytes"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Aashay2112/chat-app/pkg/model"
)

const bucketName = "media"

// GridFS keeps images in a MongoDB GridFS bucket next to the chat data.
// The bucket API of this driver version takes no context.
type GridFS struct {
	bucket *gridfs.Bucket
}

func NewGridFS(db *mongo.Database) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, model.Dependency(err, "gridfs bucket")
	}
	return &GridFS{bucket: bucket}, nil
}

func (g *GridFS) Put(_ context.Context, obj Object) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": obj.ContentType})
	oid, err := g.bucket.UploadFromStream(primitive.NewObjectID().Hex(), bytes.NewReader(obj.Data), opts)
	if err != nil {
		return "", model.Dependency(err, "gridfs upload")
	}
	return oid.Hex(), nil
}

func (g *GridFS) Open(_ context.Context, id string) (*Object, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.NotFound("media %s not found", id)
	}

	stream, err := g.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, model.NotFound("media %s not found", id)
		}
		return nil, model.Dependency(err, "gridfs open")
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return nil, model.Dependency(err, "gridfs read")
	}
	obj := &Object{Data: buf.Bytes(), ContentType: "application/octet-stream"}
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok {
			obj.ContentType = ct
		}
	}
	return obj, nil
}
