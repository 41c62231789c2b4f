// Package media stores uploaded images and hands back stable references.
package media

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Aashay2112/chat-app/pkg/model"
)

// Object is a stored image.
type Object struct {
	ContentType string
	Data        []byte
}

type Store interface {
	Put(ctx context.Context, obj Object) (id string, err error)
	Open(ctx context.Context, id string) (*Object, error)
}

// Uploader turns client supplied image values into references under baseURL.
type Uploader struct {
	store    Store
	baseURL  string
	maxBytes int
}

func NewUploader(store Store, baseURL string, maxBytes int) *Uploader {
	return &Uploader{store: store, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}
}

// Resolve uploads a data URL and returns its reference. Values that already
// point at http(s) resources are returned unchanged.
func (u *Uploader) Resolve(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return value, nil
	case strings.HasPrefix(value, "/media/"):
		return value, nil
	case strings.HasPrefix(value, "data:"):
	default:
		return "", model.Validation("image must be a data URL or an http(s) link")
	}

	obj, err := ParseDataURL(value)
	if err != nil {
		return "", err
	}
	if u.maxBytes > 0 && len(obj.Data) > u.maxBytes {
		return "", model.Validation("image exceeds %d bytes", u.maxBytes)
	}
	id, err := u.store.Put(ctx, *obj)
	if err != nil {
		return "", err
	}
	return u.Ref(id), nil
}

// Ref is the public location of a stored object.
func (u *Uploader) Ref(id string) string {
	return u.baseURL + "/media/" + id
}

func (u *Uploader) Open(ctx context.Context, id string) (*Object, error) {
	return u.store.Open(ctx, id)
}

// rasterTypes are the image types served back inline. Scriptable formats
// such as image/svg+xml are refused.
var rasterTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Allowed reports whether contentType may be uploaded and served inline.
func Allowed(contentType string) bool {
	return rasterTypes[contentType]
}

// ParseDataURL decodes data:image/<type>;base64,<payload>.
func ParseDataURL(s string) (*Object, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, model.Validation("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, model.Validation("malformed data URL")
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !Allowed(contentType) {
		return nil, model.Validation("only png, jpeg, gif or webp images can be uploaded")
	}
	if encoding != "base64" {
		return nil, model.Validation("data URL must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, model.Validation("invalid base64 image data")
	}
	if len(data) == 0 {
		return nil, model.Validation("empty image")
	}
	return &Object{ContentType: contentType, Data: data}, nil
}

type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, obj Object) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.objects[id] = obj
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Open(_ context.Context, id string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, model.NotFound("media %s not found", id)
	}
	return &obj, nil
}
