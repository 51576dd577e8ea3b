package endpoint

import (
	"context"
	"fmt"
	"log"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/restmach/restmach/internal/halt"
)

// traceContentType labels the TRACE echo body.
const traceContentType = "message/http;charset=utf8"

// TraceFunc observes one pipeline stage per call: the stage name, how
// long it ran, and the error it raised, if any.
type TraceFunc func(stage string, elapsed time.Duration, err error)

// ConsoleTrace returns a TraceFunc printing one status-tagged line per
// stage, with intended HTTP outcomes marked apart from failures.
func ConsoleTrace() TraceFunc {
	okTag := color.New(color.FgWhite).Add(color.BgGreen).Sprintf(" OK  ")
	hltTag := color.New(color.FgBlack).Add(color.BgYellow).Sprintf(" HLT ")
	errTag := color.New(color.FgWhite).Add(color.BgRed).Sprintf(" ERR ")

	return func(stage string, elapsed time.Duration, err error) {
		tag := okTag
		if err != nil {
			tag = errTag
			if sig, ok := halt.As(err); ok && sig.Outcome {
				tag = hltTag
			}
		}

		tclr := color.New(color.FgWhite, color.Faint)
		if elapsed > time.Millisecond {
			tclr = color.New(color.FgWhite).Add(color.BgCyan)
		}

		line := "|" + tag + "| " + tclr.Sprintf("%13v", elapsed) + " | " + stage
		if err != nil {
			line += ": " + err.Error()
		}
		log.Print(line)
	}
}

// runTraceMethod short-circuits TRACE requests. The signal it raises is
// an intended outcome, so the echo survives error translation intact.
func (e *Endpoint) runTraceMethod(ctx context.Context, rc *Context) error {
	if rc.Request.Method != http.MethodTrace {
		return nil
	}

	if e.traceHandler != nil {
		tr, err := e.traceHandler(ctx, rc.resourceRequest())
		if err != nil {
			return fmt.Errorf("trace handler: %w", err)
		}
		return traceSignal(tr)
	}

	body := renderTrace(rc.Request)
	return halt.New(http.StatusOK).
		WithHeader("Content-Type", traceContentType).
		WithHeader("Content-Length", strconv.Itoa(len(body))).
		WithBody(body)
}

// traceSignal converts a custom TRACE result into the terminating
// signal, filling the defaults the handler left out.
func traceSignal(tr *TraceResponse) *halt.Signal {
	status := tr.Status
	if status == 0 {
		status = http.StatusOK
	}

	sig := halt.New(status)
	if len(tr.Header) > 0 {
		sig.Header = tr.Header.Clone()
	}
	if sig.Header.Get("Content-Type") == "" {
		sig = sig.WithHeader("Content-Type", traceContentType)
	}

	body := []byte(tr.Body)
	if sig.Header.Get("Content-Length") == "" {
		sig = sig.WithHeader("Content-Length", strconv.Itoa(len(body)))
	}
	return sig.WithBody(body)
}

// renderTrace reproduces the request line and header block as received,
// with credential-bearing headers removed.
func renderTrace(r *http.Request) []byte {
	h := r.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Del("Authorization")
	h.Del("Cookie")
	if r.Host != "" {
		h.Set("Host", r.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto)
	for _, name := range slices.Sorted(maps.Keys(h)) {
		for _, v := range h[name] {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}
	return []byte(b.String())
}
