package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/restmach/restmach/internal/halt"
	"github.com/restmach/restmach/internal/params"
	"github.com/restmach/restmach/internal/security"
)

func (e *Endpoint) runAvailable(ctx context.Context, rc *Context) error {
	if e.res.ServiceAvailable == nil {
		return nil
	}

	av, err := e.res.ServiceAvailable(ctx)
	if err != nil {
		return fmt.Errorf("service availability: %w", err)
	}
	if av.Available {
		return nil
	}

	sig := halt.ServiceUnavailable()
	if av.RetryAfter > 0 {
		// Round up so a positive duration never renders as zero seconds.
		sig = sig.WithHeader("Retry-After", strconv.Itoa(int(math.Ceil(av.RetryAfter.Seconds()))))
	}
	return sig
}

func (e *Endpoint) runKnownMethod(ctx context.Context, rc *Context) error {
	method := rc.Request.Method
	if knownMethods[method] {
		return nil
	}
	if e.res.KnownMethod != nil && e.res.KnownMethod(method) {
		return nil
	}
	return halt.NotImplemented().WithDebug(fmt.Sprintf("unknown method %q", method))
}

func (e *Endpoint) runURILength(ctx context.Context, rc *Context) error {
	if e.res.URITooLong != nil && e.res.URITooLong(rc.Request.URL) {
		return halt.URITooLong()
	}
	return nil
}

func (e *Endpoint) runAllowedMethods(ctx context.Context, rc *Context) error {
	if slices.Contains(e.allowed, rc.Request.Method) {
		return nil
	}
	return halt.MethodNotAllowed().WithDebug(fmt.Sprintf("method %q not allowed", rc.Request.Method))
}

// valueLocations are the locations coerced from key-value pairs, in
// merge order. Later locations overwrite earlier keys; body values are
// nested instead of merged.
var valueLocations = []params.Location{params.Path, params.Query, params.Form, params.Header}

func (e *Endpoint) runParams(ctx context.Context, rc *Context) error {
	byLoc := e.schemas[rc.Request.Method]
	if len(byLoc) == 0 {
		return nil
	}

	merged := make(map[string]any)
	var failures params.ValidationErrors

	for _, loc := range valueLocations {
		schema, ok := byLoc[loc]
		if !ok {
			continue
		}

		values, verr, err := e.locationValues(rc, loc)
		if err != nil {
			return err
		}
		if verr != nil {
			failures = append(failures, verr.WithLocation(loc)...)
			continue
		}

		coerced, err := schema.Coerce(params.Source{Values: values})
		if err != nil {
			var ve params.ValidationErrors
			if errors.As(err, &ve) {
				failures = append(failures, ve.WithLocation(loc)...)
				continue
			}
			return fmt.Errorf("coerce %s parameters: %w", loc, err)
		}
		for k, v := range coerced {
			merged[k] = v
		}
	}

	if schema, ok := byLoc[params.Body]; ok {
		body, err := rc.RequestBody()
		if err != nil {
			return fmt.Errorf("read request body: %w", err)
		}

		coerced, err := schema.Coerce(params.Source{Body: bytes.NewReader(body)})
		switch {
		case err == nil:
			if len(coerced) > 0 {
				merged["body"] = coerced
			}
		default:
			var ve params.ValidationErrors
			if !errors.As(err, &ve) {
				return fmt.Errorf("coerce body parameters: %w", err)
			}
			failures = append(failures, ve.WithLocation(params.Body)...)
		}
	}

	if len(failures) > 0 {
		raw, err := json.Marshal(failures)
		if err != nil {
			return fmt.Errorf("encode validation failures: %w", err)
		}
		return halt.BadRequest().
			WithHeader("Content-Type", "application/json; charset=utf-8").
			WithBody(raw).
			WithDebug(failures)
	}

	if len(merged) > 0 {
		rc.Params = merged
	}
	return nil
}

// locationValues extracts the raw key-value pairs for one location. A
// client-caused extraction problem comes back as validation errors, an
// infrastructure problem as a plain error.
func (e *Endpoint) locationValues(rc *Context, loc params.Location) (url.Values, params.ValidationErrors, error) {
	switch loc {
	case params.Path:
		return pathValues(rc.Request), nil, nil
	case params.Query:
		return rc.Request.URL.Query(), nil, nil
	case params.Form:
		body, err := rc.RequestBody()
		if err != nil {
			return nil, nil, fmt.Errorf("read request body: %w", err)
		}
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, params.ValidationErrors{{
				Field: "form",
				Got:   "malformed form body",
				Rule:  err.Error(),
			}}, nil
		}
		return values, nil, nil
	case params.Header:
		return url.Values(rc.Request.Header), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown parameter location %q", loc)
}

// pathValues lifts router-bound path parameters into url.Values so they
// coerce like any other location.
func pathValues(r *http.Request) url.Values {
	values := make(url.Values)
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return values
	}
	for i, key := range routeCtx.URLParams.Keys {
		if key == "*" {
			continue
		}
		values.Add(key, routeCtx.URLParams.Values[i])
	}
	return values
}

func (e *Endpoint) runAuthenticate(ctx context.Context, rc *Context) error {
	for _, s := range e.schemes {
		if creds, ok := s.Extract(rc.Request); ok {
			rc.Creds = creds
			return nil
		}
	}
	return nil
}

func (e *Endpoint) runAuthorize(ctx context.Context, rc *Context) error {
	if e.authorizer == nil {
		return nil
	}

	dec, err := e.authorizer(ctx, rc.resourceRequest())
	if err != nil {
		if errors.Is(err, security.ErrNotAuthorized) {
			sig := halt.Unauthorized().WithDebug(err.Error())
			if e.basicRealm != "" {
				sig = sig.WithHeader("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", e.basicRealm))
			}
			return sig
		}
		return fmt.Errorf("authorize: %w", err)
	}

	if !dec.Allow {
		return halt.Forbidden().WithDebug("authorization denied")
	}
	rc.Grant = dec.Data
	return nil
}
