package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/restmach/restmach/internal/endpoint"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/server"
)

type remoteDoc struct {
	body         []byte
	lastModified time.Time
}

// Remote serves a read-only view of an upstream URL. Every request
// fetches the target once; the snapshot feeds existence, freshness and
// the GET body. An upstream 404 reads as a missing resource.
func Remote(client *http.Client, target string, logger *slog.Logger, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	if client == nil {
		client = http.DefaultClient
	}

	res := &resource.Resource{
		Fetch: func(ctx context.Context, req *resource.Request) (any, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return nil, fmt.Errorf("build upstream request: %w", err)
			}
			resp, err := client.Do(httpReq)
			if err != nil {
				server.AddError(ctx, err)
				return nil, fmt.Errorf("fetch upstream: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return nil, nil
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read upstream body: %w", err)
			}

			doc := &remoteDoc{body: body}
			if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
				doc.lastModified = t
			}
			return doc, nil
		},
		Exists: func(ctx context.Context, req *resource.Request) (bool, error) {
			return remoteSnapshot(req) != nil, nil
		},
		LastModified: func(ctx context.Context, req *resource.Request) (time.Time, error) {
			if doc := remoteSnapshot(req); doc != nil {
				return doc.lastModified, nil
			}
			return time.Time{}, nil
		},
		ContentLength: func(ctx context.Context, req *resource.Request) (int64, error) {
			if doc := remoteSnapshot(req); doc != nil {
				return int64(len(doc.body)), nil
			}
			return 0, nil
		},
		ContentTypes: func() []string { return []string{"application/json"} },
		Get: func(ctx context.Context, req *resource.Request, mediaType string) ([]byte, error) {
			if doc := remoteSnapshot(req); doc != nil {
				return doc.body, nil
			}
			return nil, nil
		},
	}

	options := append([]endpoint.Option{endpoint.WithLogger(logger)}, opts...)

	return endpoint.New(res, options...)
}

func remoteSnapshot(req *resource.Request) *remoteDoc {
	doc, _ := req.Snapshot.(*remoteDoc)
	return doc
}
