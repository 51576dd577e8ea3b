package endpoint

import (
	"bytes"
	"io"
	"net/http"

	"github.com/restmach/restmach/internal/negotiate"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/security"
)

// Response is the partial response a Context accumulates.
type Response struct {
	// Status is zero until a stage or final assembly sets it.
	Status int

	// Header holds accumulated response headers.
	Header http.Header

	// Body is the accumulated response body.
	Body []byte
}

// Context is the mutable per-request state threaded through the
// pipeline. It is owned by exactly one in-flight request and mutated
// only by pipeline stages, strictly additively.
type Context struct {
	// Request is the original incoming request.
	Request *http.Request

	// Params holds coerced parameters, body values nested under "body".
	// Nil until the parameter stage attaches a non-empty map.
	Params map[string]any

	// Creds holds credentials a security scheme extracted.
	Creds *security.Credentials

	// Grant is the derived authorization data the authorizer attached.
	Grant any

	// Snapshot is the resolved resource snapshot for this request.
	Snapshot any

	// MediaType is the negotiated content type, zero when none.
	MediaType negotiate.MediaType

	// Charset is the negotiated charset, empty when none.
	Charset string

	// PostResult is the raw result of a POST before interpretation.
	PostResult any

	// Response is the partial response.
	Response Response

	body     []byte
	bodyErr  error
	bodyRead bool
}

func newContext(r *http.Request) *Context {
	return &Context{
		Request:  r,
		Response: Response{Header: make(http.Header)},
	}
}

// RequestBody returns the raw request body, reading and caching it on
// first use so form and body schemas observe the same bytes. The
// consumed reader is replaced with one over the cached bytes so
// capabilities reading Request.Body later still see the full entity.
func (rc *Context) RequestBody() ([]byte, error) {
	if !rc.bodyRead {
		rc.bodyRead = true
		if rc.Request.Body != nil {
			rc.body, rc.bodyErr = io.ReadAll(rc.Request.Body)
			rc.Request.Body = io.NopCloser(bytes.NewReader(rc.body))
		}
	}
	return rc.body, rc.bodyErr
}

// resourceRequest builds the capability view of the request's current
// state.
func (rc *Context) resourceRequest() *resource.Request {
	return &resource.Request{
		HTTP:     rc.Request,
		Params:   rc.Params,
		Creds:    rc.Creds,
		Grant:    rc.Grant,
		Snapshot: rc.Snapshot,
	}
}
