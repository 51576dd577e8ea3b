package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/restmach/restmach/internal/endpoint"
	"github.com/restmach/restmach/internal/params"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/server"
	"github.com/restmach/restmach/internal/store"
)

// Documents serves one stored document per URL id. Routes mounting this
// endpoint must carry an {id} parameter. GET and HEAD read the stored
// body, PUT replaces it and DELETE removes it; If-Match preconditions
// compare against the stored entity tag.
func Documents(st store.Store, logger *slog.Logger, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	res := &resource.Resource{
		Fetch: func(ctx context.Context, req *resource.Request) (any, error) {
			doc, err := st.Get(ctx, docID(req))
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return doc, nil
		},
		Exists: func(ctx context.Context, req *resource.Request) (bool, error) {
			return storedDoc(req) != nil, nil
		},
		LastModified: func(ctx context.Context, req *resource.Request) (time.Time, error) {
			if doc := storedDoc(req); doc != nil {
				return doc.UpdatedAt, nil
			}
			return time.Time{}, nil
		},
		ETag: func(ctx context.Context, req *resource.Request) (string, error) {
			if doc := storedDoc(req); doc != nil {
				return doc.ETag, nil
			}
			return "", nil
		},
		ContentLength: func(ctx context.Context, req *resource.Request) (int64, error) {
			if doc := storedDoc(req); doc != nil {
				return int64(len(doc.Body)), nil
			}
			return 0, nil
		},
		ContentTypes: func() []string { return []string{"application/json"} },
		Get: func(ctx context.Context, req *resource.Request, mediaType string) ([]byte, error) {
			if doc := storedDoc(req); doc != nil {
				return doc.Body, nil
			}
			return nil, nil
		},
		Put: func(ctx context.Context, req *resource.Request) (resource.Receipt, error) {
			body, err := io.ReadAll(req.HTTP.Body)
			if err != nil {
				return resource.Receipt{}, fmt.Errorf("read request body: %w", err)
			}
			doc := &store.Document{
				ID:          docID(req),
				ContentType: req.HTTP.Header.Get("Content-Type"),
				Body:        body,
			}
			if _, err := st.Put(ctx, doc); err != nil {
				return resource.Receipt{}, err
			}
			server.AddLogField(ctx, "document_id", doc.ID)
			return resource.Receipt{}, nil
		},
		Delete: func(ctx context.Context, req *resource.Request) (resource.Receipt, error) {
			err := st.Delete(ctx, docID(req))
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return resource.Receipt{}, err
			}
			return resource.Receipt{}, nil
		},
	}

	options := append([]endpoint.Option{endpoint.WithLogger(logger)}, opts...)

	return endpoint.New(res, options...)
}

type listArgs struct {
	Limit  int `json:"limit,omitempty" schema:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `json:"offset,omitempty" schema:"offset" validate:"omitempty,min=0"`
}

type indexEntry struct {
	ID        string    `json:"id"`
	ETag      string    `json:"etag"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createdView struct {
	ID string `json:"id"`
}

// DocumentIndex lists stored documents and creates new ones under
// server-assigned IDs. POST answers 201 with a Location header pointing
// at the created document.
func DocumentIndex(st store.Store, logger *slog.Logger, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	res := &resource.Resource{
		ContentTypes: func() []string { return []string{"application/json"} },
		Get: func(ctx context.Context, req *resource.Request, mediaType string) ([]byte, error) {
			docs, err := st.List(ctx, intParam(req, "limit"), intParam(req, "offset"))
			if err != nil {
				return nil, err
			}
			entries := make([]indexEntry, 0, len(docs))
			for _, doc := range docs {
				entries = append(entries, indexEntry{
					ID:        doc.ID,
					ETag:      doc.ETag,
					UpdatedAt: doc.UpdatedAt,
				})
			}
			return json.Marshal(entries)
		},
	}

	options := append([]endpoint.Option{
		endpoint.WithLogger(logger),
		endpoint.WithParams(http.MethodGet, params.Query, params.Struct[listArgs]()),
		endpoint.WithPostHandler(func(ctx context.Context, req *resource.Request) (any, error) {
			body, err := io.ReadAll(req.HTTP.Body)
			if err != nil {
				return nil, fmt.Errorf("read request body: %w", err)
			}
			doc := &store.Document{
				ID:          uuid.NewString(),
				ContentType: req.HTTP.Header.Get("Content-Type"),
				Body:        body,
			}
			if _, err := st.Put(ctx, doc); err != nil {
				return nil, err
			}
			server.AddLogField(ctx, "document_id", doc.ID)
			return doc, nil
		}),
		endpoint.WithPostInterpreter(func(ctx context.Context, rc *endpoint.Context) error {
			doc := rc.PostResult.(*store.Document)
			body, err := json.Marshal(createdView{ID: doc.ID})
			if err != nil {
				return fmt.Errorf("render created document: %w", err)
			}
			rc.Response.Status = http.StatusCreated
			rc.Response.Header.Set("Location", "/documents/"+doc.ID)
			rc.Response.Header.Set("Content-Type", "application/json")
			rc.Response.Body = body
			return nil
		}),
	}, opts...)

	return endpoint.New(res, options...)
}

func docID(req *resource.Request) string {
	return chi.URLParam(req.HTTP, "id")
}

func storedDoc(req *resource.Request) *store.Document {
	doc, _ := req.Snapshot.(*store.Document)
	return doc
}

// intParam reads a coerced numeric parameter, zero when absent.
func intParam(req *resource.Request, name string) int {
	if req.Params == nil {
		return 0
	}
	n, _ := req.Params[name].(float64)
	return int(n)
}
