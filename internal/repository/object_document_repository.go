package repository

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"litqa/internal/model"
)

// ObjectDocumentRepository stores documents as objects under
// "<user>/documents/<name>.txt" in one bucket.
type ObjectDocumentRepository struct {
	client *minio.Client
	bucket string
}

func NewObjectDocumentRepository(client *minio.Client, bucket string) *ObjectDocumentRepository {
	return &ObjectDocumentRepository{client: client, bucket: bucket}
}

func (r *ObjectDocumentRepository) prefix(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10) + "/" + documentsDirName + "/"
}

func (r *ObjectDocumentRepository) objectKey(userID uint, name string) string {
	return r.prefix(userID) + name + documentExt
}

func (r *ObjectDocumentRepository) List(ctx context.Context, userID uint) ([]model.Document, error) {
	prefix := r.prefix(userID)
	docs := make([]model.Document, 0)
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list document objects failed: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, documentExt) {
			continue
		}
		docs = append(docs, model.Document{
			Name:       strings.TrimSuffix(name, documentExt),
			Size:       obj.Size,
			ModifiedAt: obj.LastModified,
		})
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (r *ObjectDocumentRepository) Get(ctx context.Context, userID uint, name string) (*model.Document, error) {
	if err := ValidateDocumentName(name); err != nil {
		return nil, nil
	}
	obj, err := r.client.GetObject(ctx, r.bucket, r.objectKey(userID, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get document object failed: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat document object failed: %w", err)
	}
	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read document object failed: %w", err)
	}
	return &model.Document{
		Name:       name,
		Size:       info.Size,
		ModifiedAt: info.LastModified,
		Content:    string(raw),
	}, nil
}

func (r *ObjectDocumentRepository) Save(ctx context.Context, userID uint, name, content string) (*model.Document, error) {
	if err := ValidateDocumentName(name); err != nil {
		return nil, err
	}
	info, err := r.client.PutObject(
		ctx,
		r.bucket,
		r.objectKey(userID, name),
		strings.NewReader(content),
		int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return nil, fmt.Errorf("put document object failed: %w", err)
	}
	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}
	return &model.Document{Name: name, Size: info.Size, ModifiedAt: modified}, nil
}

func (r *ObjectDocumentRepository) Delete(ctx context.Context, userID uint, name string) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, nil
	}
	key := r.objectKey(userID, name)
	if _, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat document object failed: %w", err)
	}
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove document object failed: %w", err)
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
