package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/restmach/restmach/internal/negotiate"
	"github.com/restmach/restmach/internal/params"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/security"
)

// Option is a functional option for configuring an Endpoint.
type Option func(*Endpoint) error

// Authorizer decides whether the request may proceed. Returning an
// error wrapping security.ErrNotAuthorized yields a 401; a Decision
// with Allow false yields a 403; Decision.Data attaches to the Context.
type Authorizer func(ctx context.Context, req *resource.Request) (security.Decision, error)

// MutationHandler is a custom PUT or DELETE implementation. It takes
// precedence over the resource's own capability.
type MutationHandler func(ctx context.Context, req *resource.Request) (resource.Receipt, error)

// PostHandler is a custom POST implementation; its raw result is kept
// on the Context for the interpretation step.
type PostHandler func(ctx context.Context, req *resource.Request) (any, error)

// Interpreter transforms the Context after a POST produced its raw
// result.
type Interpreter func(ctx context.Context, rc *Context) error

// BodyProducer supplies a GET body when the resource's Get capability
// yields none.
type BodyProducer func(ctx context.Context, req *resource.Request) ([]byte, error)

// TraceResponse is what a custom TRACE implementation returns. A zero
// Status means 200; a missing content type defaults to
// message/http;charset=utf8.
type TraceResponse struct {
	Status int
	Header http.Header
	Body   string
}

// TraceHandler is a custom TRACE implementation.
type TraceHandler func(ctx context.Context, req *resource.Request) (*TraceResponse, error)

// WithMethods fixes the allowed method set explicitly instead of
// deriving it from the configured handlers.
func WithMethods(methods ...string) Option {
	return func(e *Endpoint) error {
		if len(methods) == 0 {
			return fmt.Errorf("methods must not be empty")
		}
		e.methods = methods
		return nil
	}
}

// WithStatus overrides the success status assembled when no stage set
// one.
func WithStatus(status int) Option {
	return func(e *Endpoint) error {
		if status < 100 || status > 599 {
			return fmt.Errorf("status %d out of range", status)
		}
		e.status = status
		return nil
	}
}

// WithHeader adds a response header override applied at assembly.
func WithHeader(key, value string) Option {
	return func(e *Endpoint) error {
		if key == "" {
			return fmt.Errorf("header key must not be empty")
		}
		e.header.Add(key, value)
		return nil
	}
}

// WithAuthorizer sets the authorization capability. The default always
// permits with no derived data.
func WithAuthorizer(a Authorizer) Option {
	return func(e *Endpoint) error {
		if a == nil {
			return fmt.Errorf("authorizer must not be nil")
		}
		e.authorizer = a
		return nil
	}
}

// WithSecurity configures credential-extracting security schemes. The
// first basic scheme's realm feeds the WWW-Authenticate challenge.
func WithSecurity(schemes ...security.Scheme) Option {
	return func(e *Endpoint) error {
		if len(schemes) == 0 {
			return fmt.Errorf("security schemes must not be empty")
		}
		e.schemes = append(e.schemes, schemes...)
		return nil
	}
}

// WithParams registers a coercion schema for one method and location.
// The method is normalized the same way WithMethods normalizes its set.
func WithParams(method string, loc params.Location, schema params.Schema) Option {
	return func(e *Endpoint) error {
		if schema == nil {
			return fmt.Errorf("schema for %s %s must not be nil", method, loc)
		}
		switch loc {
		case params.Path, params.Query, params.Body, params.Form, params.Header:
		default:
			return fmt.Errorf("unknown parameter location %q", loc)
		}
		method = strings.ToUpper(method)
		byLoc := e.schemas[method]
		if byLoc == nil {
			byLoc = make(map[params.Location]params.Schema)
			e.schemas[method] = byLoc
		}
		byLoc[loc] = schema
		return nil
	}
}

// WithProduces declares media types the endpoint can produce, unioned
// with the resource's own declarations.
func WithProduces(types ...string) Option {
	return func(e *Endpoint) error {
		e.produces = append(e.produces, types...)
		return nil
	}
}

// WithCharsets declares charsets the endpoint can produce, unioned with
// the resource's own declarations.
func WithCharsets(charsets ...string) Option {
	return func(e *Endpoint) error {
		e.charsets = append(e.charsets, charsets...)
		return nil
	}
}

// WithAllowOrigin sets a fixed origin for OPTIONS CORS headers.
func WithAllowOrigin(origin string) Option {
	return func(e *Endpoint) error {
		e.allowOrigin = func(*http.Request) string { return origin }
		return nil
	}
}

// WithAllowOriginFunc resolves the OPTIONS CORS origin per request; an
// empty result attaches no CORS headers.
func WithAllowOriginFunc(fn func(*http.Request) string) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("allow-origin func must not be nil")
		}
		e.allowOrigin = fn
		return nil
	}
}

// WithStaticBody sets the body served when the resource's Get
// capability yields none.
func WithStaticBody(body []byte) Option {
	return func(e *Endpoint) error {
		e.staticBody = body
		return nil
	}
}

// WithBodyProducer sets a producer consulted before the static body.
func WithBodyProducer(fn BodyProducer) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("body producer must not be nil")
		}
		e.bodyProducer = fn
		return nil
	}
}

// WithPutHandler sets a custom PUT implementation.
func WithPutHandler(fn MutationHandler) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("put handler must not be nil")
		}
		e.putHandler = fn
		return nil
	}
}

// WithPostHandler sets a custom POST implementation.
func WithPostHandler(fn PostHandler) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("post handler must not be nil")
		}
		e.postHandler = fn
		return nil
	}
}

// WithDeleteHandler sets a custom DELETE implementation.
func WithDeleteHandler(fn MutationHandler) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("delete handler must not be nil")
		}
		e.deleteHandler = fn
		return nil
	}
}

// WithPostInterpreter sets the step applied to the Context after POST.
func WithPostInterpreter(fn Interpreter) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("post interpreter must not be nil")
		}
		e.postInterpret = fn
		return nil
	}
}

// WithTraceHandler sets a custom TRACE implementation.
func WithTraceHandler(fn TraceHandler) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("trace handler must not be nil")
		}
		e.traceHandler = fn
		return nil
	}
}

// WithNegotiator sets a custom negotiation capability.
func WithNegotiator(n negotiate.Negotiator) Option {
	return func(e *Endpoint) error {
		if n == nil {
			return fmt.Errorf("negotiator must not be nil")
		}
		e.negotiator = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Endpoint) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		e.logger = logger
		return nil
	}
}

// WithTrace observes every stage's name, duration, and outcome.
func WithTrace(fn TraceFunc) Option {
	return func(e *Endpoint) error {
		if fn == nil {
			return fmt.Errorf("trace func must not be nil")
		}
		e.traceLog = fn
		return nil
	}
}

// WithDebugHeader renames the request header that unlocks debug
// payloads on error responses.
func WithDebugHeader(name string) Option {
	return func(e *Endpoint) error {
		if name == "" {
			return fmt.Errorf("debug header must not be empty")
		}
		e.debugHeader = name
		return nil
	}
}
