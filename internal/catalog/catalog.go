// Package catalog defines the resources served by the demo server.
//
// Each constructor wires a resource definition and its endpoint options
// into a ready-to-mount handler. The definitions double as worked
// examples of the pipeline surface: a static body, a stateful counter,
// store-backed documents and a proxied upstream.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/restmach/restmach/internal/endpoint"
	"github.com/restmach/restmach/internal/resource"
)

// Greeting serves a fixed text greeting on GET and HEAD.
func Greeting(message string, logger *slog.Logger, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	res := &resource.Resource{
		ContentTypes: func() []string { return []string{"text/plain"} },
		Charsets:     func() []string { return []string{"utf-8"} },
	}

	options := append([]endpoint.Option{
		endpoint.WithStaticBody([]byte(message)),
		endpoint.WithLogger(logger),
	}, opts...)

	return endpoint.New(res, options...)
}

type counterView struct {
	Count int64 `json:"count"`
}

// Counter serves a process-local counter. GET reads the current value,
// POST increments it and DELETE resets it to zero.
func Counter(logger *slog.Logger, opts ...endpoint.Option) (*endpoint.Endpoint, error) {
	var count atomic.Int64

	render := func(n int64) ([]byte, error) {
		body, err := json.Marshal(counterView{Count: n})
		if err != nil {
			return nil, fmt.Errorf("render counter: %w", err)
		}
		return body, nil
	}

	res := &resource.Resource{
		ContentTypes: func() []string { return []string{"application/json"} },
		Get: func(ctx context.Context, req *resource.Request, mediaType string) ([]byte, error) {
			return render(count.Load())
		},
	}

	options := append([]endpoint.Option{
		endpoint.WithLogger(logger),
		endpoint.WithPostHandler(func(ctx context.Context, req *resource.Request) (any, error) {
			return count.Add(1), nil
		}),
		endpoint.WithPostInterpreter(func(ctx context.Context, rc *endpoint.Context) error {
			body, err := render(rc.PostResult.(int64))
			if err != nil {
				return err
			}
			rc.Response.Header.Set("Content-Type", "application/json")
			rc.Response.Body = body
			return nil
		}),
		endpoint.WithDeleteHandler(func(ctx context.Context, req *resource.Request) (resource.Receipt, error) {
			count.Store(0)
			return resource.Receipt{}, nil
		}),
	}, opts...)

	return endpoint.New(res, options...)
}
