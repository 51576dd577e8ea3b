package endpoint

import (
	"context"
	"fmt"
	"maps"
	"net/textproto"
	"slices"
	"strings"

	"github.com/restmach/restmach/internal/halt"
	"github.com/restmach/restmach/internal/negotiate"
)

func (e *Endpoint) runFetch(ctx context.Context, rc *Context) error {
	if e.res.Fetch == nil {
		return nil
	}

	snap, err := e.res.Fetch(ctx, rc.resourceRequest())
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	rc.Snapshot = snap
	return nil
}

// availableTypes is the union of the resource's declared media types and
// the endpoint-level produces option. A declared type carrying an
// unrecognized charset is a configuration failure, not a client error.
func (e *Endpoint) availableTypes() ([]negotiate.MediaType, error) {
	var declared []string
	if e.res.ContentTypes != nil {
		declared = e.res.ContentTypes()
	}
	declared = append(slices.Clone(declared), e.produces...)

	types := make([]negotiate.MediaType, 0, len(declared))
	for _, raw := range declared {
		mt, err := negotiate.ParseMediaType(raw)
		if err != nil {
			return nil, fmt.Errorf("declared content type %q: %w", raw, err)
		}
		if cs, ok := mt.Params["charset"]; ok && !negotiate.Recognized(cs) {
			return nil, fmt.Errorf("declared content type %q: unrecognized charset %q", raw, cs)
		}
		types = append(types, mt)
	}
	return types, nil
}

func (e *Endpoint) runNegotiateType(ctx context.Context, rc *Context) error {
	types, err := e.availableTypes()
	if err != nil {
		return err
	}
	if len(types) == 0 {
		return nil
	}

	accept := rc.Request.Header.Get("Accept")
	mt, ok := e.negotiator.ContentType(accept, types)
	if !ok {
		return halt.NotAcceptable().WithDebug(fmt.Sprintf("no representation matches Accept %q", accept))
	}
	rc.MediaType = mt
	return nil
}

func (e *Endpoint) runNegotiateCharset(ctx context.Context, rc *Context) error {
	var available []string
	if e.res.Charsets != nil {
		available = e.res.Charsets()
	}
	available = append(slices.Clone(available), e.charsets...)
	if len(available) == 0 {
		return nil
	}
	for _, cs := range available {
		if !negotiate.Recognized(cs) {
			return fmt.Errorf("declared charset %q not recognized", cs)
		}
	}

	values, present := rc.Request.Header[textproto.CanonicalMIMEHeaderKey("Accept-Charset")]
	if !present {
		return nil
	}

	acceptCharset := strings.Join(values, ", ")
	cs, ok := e.negotiator.Charset(acceptCharset, available)
	if !ok {
		return halt.NotAcceptable().WithDebug(fmt.Sprintf("no charset matches Accept-Charset %q", acceptCharset))
	}

	rc.Charset = cs
	if rc.MediaType.IsZero() {
		return nil
	}
	if _, exists := rc.MediaType.Params["charset"]; !exists {
		merged := make(map[string]string, len(rc.MediaType.Params)+1)
		maps.Copy(merged, rc.MediaType.Params)
		merged["charset"] = cs
		rc.MediaType.Params = merged
	}
	return nil
}
