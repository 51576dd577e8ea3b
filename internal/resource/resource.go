// Package resource defines the capability set a served resource may
// implement. Every capability is optional: a nil field stands for the
// documented default, never a construction error. Capabilities accept a
// context and may block; a slow capability suspends only the request that
// invoked it.
package resource

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/restmach/restmach/internal/security"
)

// Availability is the service-availability capability's answer.
type Availability struct {
	// Available reports whether the service can take the request.
	Available bool

	// RetryAfter, when positive, becomes a Retry-After header on the
	// 503 response.
	RetryAfter time.Duration
}

// Receipt reports what a mutating capability did.
type Receipt struct {
	// Pending reports the mutation was accepted but still being applied
	// when the capability returned. Pending receipts yield 202.
	Pending bool
}

// Request is the per-request view handed to capabilities.
type Request struct {
	// HTTP is the original incoming request.
	HTTP *http.Request

	// Params holds the coerced parameters, body values nested under
	// "body". Nil when no parameter schema matched.
	Params map[string]any

	// Creds holds credentials a security scheme extracted, nil when the
	// request carried none.
	Creds *security.Credentials

	// Grant is the derived authorization data the authorizer attached.
	Grant any

	// Snapshot is the value the Fetch capability resolved for this
	// request, nil before fetch or when the capability is absent.
	Snapshot any
}

// Resource describes what is being served. Field-by-field defaults:
//
//	ServiceAvailable  nil means always available
//	KnownMethod       nil means only the fixed method registry is known
//	URITooLong        nil means no URI is too long
//	Exists            nil means the resource exists
//	Fetch             nil means no per-request snapshot
//	LastModified      nil (or a zero time) means no modification date
//	ETag              nil (or "") means no entity tag
//	ContentLength     nil means no Content-Length header
//	ContentTypes      nil means no producible types declared
//	Charsets          nil means no producible charsets declared
//	Get               nil (or a nil slice) defers to the endpoint's
//	                  static body, then 404
//	Put/Post/Delete   nil defers to the endpoint's custom handler; with
//	                  neither present the request is an internal
//	                  configuration failure
type Resource struct {
	// ServiceAvailable reports whether the service is taking requests.
	ServiceAvailable func(ctx context.Context) (Availability, error)

	// KnownMethod accepts request methods beyond the fixed registry.
	KnownMethod func(method string) bool

	// URITooLong rejects over-long request URIs with 414.
	URITooLong func(u *url.URL) bool

	// Exists reports whether the resource currently exists.
	Exists func(ctx context.Context, req *Request) (bool, error)

	// Fetch resolves the resource snapshot for this request.
	Fetch func(ctx context.Context, req *Request) (any, error)

	// LastModified reports when the resource state last changed.
	LastModified func(ctx context.Context, req *Request) (time.Time, error)

	// ETag reports the current entity tag, unquoted.
	ETag func(ctx context.Context, req *Request) (string, error)

	// ContentLength reports the representation's byte length.
	ContentLength func(ctx context.Context, req *Request) (int64, error)

	// ContentTypes enumerates producible media types; entries may carry
	// parameters, e.g. "text/html;charset=utf-8".
	ContentTypes func() []string

	// Charsets enumerates producible charsets.
	Charsets func() []string

	// Get returns the representation for the negotiated media type
	// (empty when none was negotiated). A nil slice means no
	// representation.
	Get func(ctx context.Context, req *Request, mediaType string) ([]byte, error)

	// Put applies the request as the new resource state.
	Put func(ctx context.Context, req *Request) (Receipt, error)

	// Post processes the request; the raw result is kept for the
	// endpoint's interpretation step.
	Post func(ctx context.Context, req *Request) (any, error)

	// Delete removes the resource.
	Delete func(ctx context.Context, req *Request) (Receipt, error)
}
