package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/restmach/restmach/internal/halt"
	"github.com/restmach/restmach/internal/resource"
)

// allowMethodsValue is the fixed Access-Control-Allow-Methods set
// attached to OPTIONS responses.
const allowMethodsValue = "GET, POST, PUT, DELETE"

func (e *Endpoint) runExecute(ctx context.Context, rc *Context) error {
	switch rc.Request.Method {
	case http.MethodGet, http.MethodHead:
		return e.execGetHead(ctx, rc)
	case http.MethodPut:
		return e.execPut(ctx, rc)
	case http.MethodPost:
		return e.execPost(ctx, rc)
	case http.MethodDelete:
		return e.execDelete(ctx, rc)
	case http.MethodOptions:
		return e.execOptions(ctx, rc)
	}
	return halt.NotImplemented().WithDebug(fmt.Sprintf("no execution for method %q", rc.Request.Method))
}

func (e *Endpoint) execGetHead(ctx context.Context, rc *Context) error {
	ok, err := e.exists(ctx, rc)
	if err != nil {
		return err
	}
	if !ok {
		return halt.NotFound()
	}

	if e.res.LastModified != nil {
		lm, err := e.res.LastModified(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("last modified: %w", err)
		}
		if !lm.IsZero() {
			// HTTP dates carry second precision, so the comparison does too.
			lm = lm.Truncate(time.Second)
			if since, ok := parseHTTPDate(rc.Request.Header.Get("If-Modified-Since")); ok && !lm.After(since) {
				return halt.NotModified()
			}
			rc.Response.Header.Set("Last-Modified", lm.UTC().Format(http.TimeFormat))
		}
	}

	if rc.Request.Method == http.MethodHead {
		if !rc.MediaType.IsZero() {
			rc.Response.Header.Set("Content-Type", rc.MediaType.String())
		}
		return nil
	}

	body, err := e.representation(ctx, rc)
	if err != nil {
		return err
	}
	if body == nil {
		return halt.NotFound().WithDebug("no representation available")
	}

	rc.Response.Body = body
	if !rc.MediaType.IsZero() {
		rc.Response.Header.Set("Content-Type", rc.MediaType.String())
	}
	if e.res.ContentLength != nil {
		n, err := e.res.ContentLength(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("content length: %w", err)
		}
		rc.Response.Header.Set("Content-Length", strconv.FormatInt(n, 10))
	}
	return nil
}

func (e *Endpoint) execPut(ctx context.Context, rc *Context) error {
	if err := e.checkIfMatch(ctx, rc); err != nil {
		return err
	}

	// Existence must be read before the mutation changes it.
	existed, err := e.exists(ctx, rc)
	if err != nil {
		return err
	}

	receipt, err := e.mutate(ctx, rc, e.putHandler, e.res.Put, "put")
	if err != nil {
		return err
	}

	switch {
	case receipt.Pending:
		rc.Response.Status = http.StatusAccepted
	case existed:
		rc.Response.Status = http.StatusNoContent
	default:
		rc.Response.Status = http.StatusCreated
	}
	return nil
}

func (e *Endpoint) execPost(ctx context.Context, rc *Context) error {
	if err := e.checkIfMatch(ctx, rc); err != nil {
		return err
	}

	var (
		result any
		err    error
	)
	switch {
	case e.postHandler != nil:
		result, err = e.postHandler(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("post handler: %w", err)
		}
	case e.res.Post != nil:
		result, err = e.res.Post(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("post: %w", err)
		}
	default:
		return halt.NewFailure("no post implementation configured")
	}
	rc.PostResult = result

	if e.postInterpret != nil {
		if err := e.postInterpret(ctx, rc); err != nil {
			return fmt.Errorf("interpret post result: %w", err)
		}
	}
	return nil
}

func (e *Endpoint) execDelete(ctx context.Context, rc *Context) error {
	ok, err := e.exists(ctx, rc)
	if err != nil {
		return err
	}
	if !ok {
		return halt.NotFound()
	}

	receipt, err := e.mutate(ctx, rc, e.deleteHandler, e.res.Delete, "delete")
	if err != nil {
		return err
	}

	if receipt.Pending {
		rc.Response.Status = http.StatusAccepted
	} else {
		rc.Response.Status = http.StatusNoContent
	}
	return nil
}

func (e *Endpoint) execOptions(ctx context.Context, rc *Context) error {
	if e.allowOrigin == nil {
		return nil
	}
	origin := e.allowOrigin(rc.Request)
	if origin == "" {
		return nil
	}
	rc.Response.Header.Set("Access-Control-Allow-Origin", origin)
	rc.Response.Header.Set("Access-Control-Allow-Methods", allowMethodsValue)
	return nil
}

// runAssemble fixes the terminal success response: an already-set
// status wins, then the configured override, then 200. Configured
// header overrides replace accumulated values key by key.
func (e *Endpoint) runAssemble(ctx context.Context, rc *Context) error {
	if rc.Response.Status == 0 {
		rc.Response.Status = http.StatusOK
		if e.status != 0 {
			rc.Response.Status = e.status
		}
	}

	for key, values := range e.header {
		rc.Response.Header.Del(key)
		for _, v := range values {
			rc.Response.Header.Add(key, v)
		}
	}
	return nil
}

func (e *Endpoint) exists(ctx context.Context, rc *Context) (bool, error) {
	if e.res.Exists == nil {
		return true, nil
	}
	ok, err := e.res.Exists(ctx, rc.resourceRequest())
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

// representation resolves the GET body: the resource's Get capability
// first, then the configured producer, then the static body.
func (e *Endpoint) representation(ctx context.Context, rc *Context) ([]byte, error) {
	if e.res.Get != nil {
		body, err := e.res.Get(ctx, rc.resourceRequest(), rc.MediaType.Type)
		if err != nil {
			return nil, fmt.Errorf("get: %w", err)
		}
		if body != nil {
			return body, nil
		}
	}
	if e.bodyProducer != nil {
		body, err := e.bodyProducer(ctx, rc.resourceRequest())
		if err != nil {
			return nil, fmt.Errorf("produce body: %w", err)
		}
		if body != nil {
			return body, nil
		}
	}
	return e.staticBody, nil
}

// mutate runs a state change with the custom handler taking precedence
// over the resource capability. Having neither is a configuration
// failure, not a client error.
func (e *Endpoint) mutate(ctx context.Context, rc *Context, handler MutationHandler, capability func(context.Context, *resource.Request) (resource.Receipt, error), op string) (resource.Receipt, error) {
	switch {
	case handler != nil:
		receipt, err := handler(ctx, rc.resourceRequest())
		if err != nil {
			return resource.Receipt{}, fmt.Errorf("%s handler: %w", op, err)
		}
		return receipt, nil
	case capability != nil:
		receipt, err := capability(ctx, rc.resourceRequest())
		if err != nil {
			return resource.Receipt{}, fmt.Errorf("%s: %w", op, err)
		}
		return receipt, nil
	}
	return resource.Receipt{}, halt.NewFailure(fmt.Sprintf("no %s implementation configured", op))
}

// checkIfMatch enforces the If-Match precondition for mutations. A bare
// star matches any current state but fails when the resource has none;
// comparisons ignore quoting and weak validator prefixes.
func (e *Endpoint) checkIfMatch(ctx context.Context, rc *Context) error {
	match := strings.TrimSpace(rc.Request.Header.Get("If-Match"))
	if match == "" {
		return nil
	}

	if match == "*" {
		ok, err := e.exists(ctx, rc)
		if err != nil {
			return err
		}
		if !ok {
			return halt.PreconditionFailed().WithDebug("If-Match * requires a current representation")
		}
		return nil
	}

	var current string
	if e.res.ETag != nil {
		etag, err := e.res.ETag(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("etag: %w", err)
		}
		current = etag
	}

	if current != "" {
		for _, candidate := range strings.Split(match, ",") {
			if trimETag(candidate) == trimETag(current) {
				return nil
			}
		}
	}
	return halt.PreconditionFailed().WithDebug(fmt.Sprintf("If-Match %q does not match the current entity tag", match))
}

// trimETag strips quoting and the weak validator prefix.
func trimETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}

// parseHTTPDate parses an HTTP date header value, tolerating the
// obsolete RFC 850 and asctime forms. Unparseable values are ignored.
func parseHTTPDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
