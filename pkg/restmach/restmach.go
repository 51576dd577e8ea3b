// Package restmach provides the public API for building resource endpoints.
// This is the stable API for external consumers.
package restmach

import (
	"github.com/restmach/restmach/internal/endpoint"
	"github.com/restmach/restmach/internal/halt"
	"github.com/restmach/restmach/internal/negotiate"
	"github.com/restmach/restmach/internal/params"
	"github.com/restmach/restmach/internal/resource"
	"github.com/restmach/restmach/internal/security"
)

// DefaultDebugHeader is the request header that unlocks diagnostic
// payloads on error responses.
const DefaultDebugHeader = endpoint.DefaultDebugHeader

// Endpoint is an http.Handler that runs every request through the
// decision pipeline. See internal/endpoint.Endpoint for full documentation.
type Endpoint = endpoint.Endpoint

// Option is a functional option for configuring an Endpoint.
type Option = endpoint.Option

// Resource describes the domain object an Endpoint serves.
type Resource = resource.Resource

// Request carries per-request state into resource callbacks.
type Request = resource.Request

// Availability reports whether a resource can serve traffic right now.
type Availability = resource.Availability

// Receipt is the result of a mutation.
type Receipt = resource.Receipt

// Context is the pipeline state handed to interpreters.
type Context = endpoint.Context

// Response is the response under assembly.
type Response = endpoint.Response

// Signal is a pipeline halt carrying the HTTP outcome.
type Signal = halt.Signal

// Handler shapes accepted by the endpoint options.
type (
	Authorizer      = endpoint.Authorizer
	MutationHandler = endpoint.MutationHandler
	PostHandler     = endpoint.PostHandler
	Interpreter     = endpoint.Interpreter
	BodyProducer    = endpoint.BodyProducer
	TraceHandler    = endpoint.TraceHandler
	TraceResponse   = endpoint.TraceResponse
	TraceFunc       = endpoint.TraceFunc
)

// Security types.
type (
	Credentials = security.Credentials
	Decision    = security.Decision
	Scheme      = security.Scheme
)

// Negotiation types.
type (
	MediaType  = negotiate.MediaType
	Negotiator = negotiate.Negotiator
)

// Parameter validation types.
type (
	Location         = params.Location
	Schema           = params.Schema
	ValidationError  = params.ValidationError
	ValidationErrors = params.ValidationErrors
)

// Parameter locations.
const (
	Path   = params.Path
	Query  = params.Query
	Body   = params.Body
	Form   = params.Form
	Header = params.Header
)

// New creates an Endpoint for a resource.
// Example:
//
//	ep, err := restmach.New(res,
//	    restmach.WithProduces("application/json"),
//	    restmach.WithSecurity(restmach.Basic("api")),
//	)
var New = endpoint.New

// Endpoint options
var (
	// Admission
	WithMethods = endpoint.WithMethods
	WithStatus  = endpoint.WithStatus
	WithHeader  = endpoint.WithHeader

	// Security
	WithSecurity   = endpoint.WithSecurity
	WithAuthorizer = endpoint.WithAuthorizer

	// Parameters
	WithParams = endpoint.WithParams

	// Negotiation
	WithProduces   = endpoint.WithProduces
	WithCharsets   = endpoint.WithCharsets
	WithNegotiator = endpoint.WithNegotiator

	// Cross-origin
	WithAllowOrigin     = endpoint.WithAllowOrigin
	WithAllowOriginFunc = endpoint.WithAllowOriginFunc

	// Bodies and mutations
	WithStaticBody      = endpoint.WithStaticBody
	WithBodyProducer    = endpoint.WithBodyProducer
	WithPutHandler      = endpoint.WithPutHandler
	WithPostHandler     = endpoint.WithPostHandler
	WithPostInterpreter = endpoint.WithPostInterpreter
	WithDeleteHandler   = endpoint.WithDeleteHandler
	WithTraceHandler    = endpoint.WithTraceHandler

	// Diagnostics
	WithLogger      = endpoint.WithLogger
	WithTrace       = endpoint.WithTrace
	WithDebugHeader = endpoint.WithDebugHeader
)

// Authentication schemes
var (
	Basic  = security.Basic
	Bearer = security.Bearer
)

// ConsoleTrace returns a TraceFunc that prints stage timings to stderr.
var ConsoleTrace = endpoint.ConsoleTrace

// Halt constructors for resource callbacks that need to force an outcome.
var (
	NewSignal  = halt.New
	NewFailure = halt.NewFailure
	AsSignal   = halt.As
)

// StructParams builds a Schema from a tagged struct type.
func StructParams[T any]() Schema {
	return params.Struct[T]()
}
