// Package endpoint builds HTTP resource handlers. An Endpoint binds one
// resource description and its configuration to a fixed pipeline of
// stages; each request runs the pipeline over a fresh Context, and any
// stage may short-circuit the rest by raising a halt.Signal with the
// intended HTTP outcome.
package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/restmach/restmach/internal/halt"
	"github.com/restmach/restmach/internal/negotiate"
	"github.com/restmach/restmach/internal/params"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/security"
)

// DefaultDebugHeader is the request header that unlocks debug payloads
// on error responses.
const DefaultDebugHeader = "X-Restmach-Debug"

// knownMethods is the fixed registry of methods the pipeline recognizes
// without a custom predicate.
var knownMethods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
}

// safeMethods are allowed without any configured mutation handler.
var safeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
}

// stage is one unit of pipeline logic operating on a Context.
type stage struct {
	name string
	run  func(ctx context.Context, rc *Context) error
}

// Endpoint is a constructed, reusable resource handler. It is immutable
// after New and safe for concurrent use.
type Endpoint struct {
	res        *resource.Resource
	logger     *slog.Logger
	negotiator negotiate.Negotiator

	methods  []string
	allowed  []string
	status   int
	header   http.Header
	produces []string
	charsets []string

	authorizer Authorizer
	schemes    []security.Scheme
	basicRealm string

	schemas map[string]map[params.Location]params.Schema

	staticBody   []byte
	bodyProducer BodyProducer

	putHandler    MutationHandler
	deleteHandler MutationHandler
	postHandler   PostHandler
	postInterpret Interpreter
	traceHandler  TraceHandler

	allowOrigin func(*http.Request) string

	traceLog    TraceFunc
	debugHeader string

	stages []stage
}

// New constructs an Endpoint for res. Options are applied in order;
// configuration problems fail construction, never a request.
func New(res *resource.Resource, opts ...Option) (*Endpoint, error) {
	if res == nil {
		return nil, fmt.Errorf("endpoint: resource must not be nil")
	}

	e := &Endpoint{
		res:         res,
		logger:      slog.Default(),
		negotiator:  negotiate.New(),
		header:      make(http.Header),
		schemas:     make(map[string]map[params.Location]params.Schema),
		debugHeader: DefaultDebugHeader,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("endpoint: %w", err)
		}
	}

	if err := e.compile(); err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}

	return e, nil
}

// compile validates the configured surface and fixes the stage chain.
func (e *Endpoint) compile() error {
	for _, p := range e.produces {
		mt, err := negotiate.ParseMediaType(p)
		if err != nil {
			return fmt.Errorf("produces %q: %w", p, err)
		}
		if cs, ok := mt.Params["charset"]; ok && !negotiate.Recognized(cs) {
			return fmt.Errorf("produces %q: unrecognized charset %q", p, cs)
		}
	}
	for _, cs := range e.charsets {
		if !negotiate.Recognized(cs) {
			return fmt.Errorf("charset %q not recognized", cs)
		}
	}

	for i, m := range e.methods {
		e.methods[i] = strings.ToUpper(m)
	}
	e.allowed = e.allowedMethods()

	for _, s := range e.schemes {
		if s.Name() == "basic" && s.Realm() != "" {
			e.basicRealm = s.Realm()
			break
		}
	}

	e.stages = []stage{
		{"available", e.runAvailable},
		{"known-method", e.runKnownMethod},
		{"uri-length", e.runURILength},
		{"allowed-methods", e.runAllowedMethods},
		{"params", e.runParams},
		{"authenticate", e.runAuthenticate},
		{"authorize", e.runAuthorize},
		{"trace", e.runTraceMethod},
		{"fetch", e.runFetch},
		{"negotiate-type", e.runNegotiateType},
		{"negotiate-charset", e.runNegotiateCharset},
		{"execute", e.runExecute},
		{"assemble", e.runAssemble},
	}

	return nil
}

// allowedMethods derives the effective method set: the explicit
// configured set when present, else the safe methods plus each mutation
// with a configured handler or capability.
func (e *Endpoint) allowedMethods() []string {
	if len(e.methods) > 0 {
		return e.methods
	}

	allowed := slices.Clone(safeMethods)
	if e.putHandler != nil || e.res.Put != nil {
		allowed = append(allowed, http.MethodPut)
	}
	if e.postHandler != nil || e.res.Post != nil {
		allowed = append(allowed, http.MethodPost)
	}
	if e.deleteHandler != nil || e.res.Delete != nil {
		allowed = append(allowed, http.MethodDelete)
	}
	return allowed
}

// ServeHTTP implements http.Handler: it runs the pipeline over a fresh
// Context and performs the single terminal write.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := newContext(r)
	if err := e.run(r.Context(), rc); err != nil {
		e.writeError(w, rc, err)
		return
	}
	e.write(w, rc)
}

// run executes the stage chain strictly in order. The first error
// short-circuits the rest; no stage is retried.
func (e *Endpoint) run(ctx context.Context, rc *Context) error {
	for _, s := range e.stages {
		start := time.Now()
		err := s.run(ctx, rc)
		if e.traceLog != nil {
			e.traceLog(s.name, time.Since(start), err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Endpoint) write(w http.ResponseWriter, rc *Context) {
	h := w.Header()
	for key, values := range rc.Response.Header {
		for _, v := range values {
			h.Add(key, v)
		}
	}

	w.WriteHeader(rc.Response.Status)
	if len(rc.Response.Body) > 0 && rc.Request.Method != http.MethodHead {
		_, _ = w.Write(rc.Response.Body)
	}
}

// writeError converts a raised error into the terminal response. An
// intended-outcome signal becomes its carried status/headers/body; all
// other errors surface as a minimal 500.
func (e *Endpoint) writeError(w http.ResponseWriter, rc *Context, err error) {
	debug := rc.Request.Header.Get(e.debugHeader) != ""

	sig, ok := halt.As(err)
	if !ok || !sig.Outcome {
		e.logger.Error("pipeline failed",
			slog.String("method", rc.Request.Method),
			slog.String("path", rc.Request.URL.Path),
			slog.String("error", err.Error()))

		var body []byte
		if debug {
			if ok && sig.Debug != nil {
				body = debugBody(sig.Debug)
			} else {
				body = []byte(err.Error())
			}
		}
		if len(body) > 0 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.WriteHeader(http.StatusInternalServerError)
		if len(body) > 0 {
			_, _ = w.Write(body)
		}
		return
	}

	h := w.Header()
	for key, values := range sig.Header {
		for _, v := range values {
			h.Add(key, v)
		}
	}

	body := sig.Body
	if debug && sig.Debug != nil {
		body = debugBody(sig.Debug)
	}

	w.WriteHeader(sig.HTTPStatus())
	if len(body) > 0 && rc.Request.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// debugBody renders a signal's debug payload for the response body.
func debugBody(v any) []byte {
	switch d := v.(type) {
	case nil:
		return nil
	case []byte:
		return d
	case string:
		return []byte(d)
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return []byte(fmt.Sprint(d))
		}
		return raw
	}
}

// Ensure Endpoint implements the handler interface.
var _ http.Handler = (*Endpoint)(nil)
