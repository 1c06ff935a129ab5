package router

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// doneSentinel is the 12-byte ASCII sequence that marks stream completion.
var doneSentinel = []byte("data: [DONE]")

// Forwarder is the minimal HTTP client capability the router assumes:
// something able to forward a request and return either a buffered
// response or a byte-stream. Dispatcher depends only on this interface,
// never on *http.Client directly, so tests can substitute a fake upstream
// without a real listener.
type Forwarder interface {
	Forward(ctx context.Context, workerURL, route string, body []byte, contentType string) (*http.Response, error)
}

// HTTPForwarder is the default Forwarder, issuing a real upstream POST.
type HTTPForwarder struct {
	Client *http.Client
}

// NewHTTPForwarder builds an HTTPForwarder around a zero-value *http.Client.
// It imposes no deadline of its own; callers that want one should
// configure it on Client themselves.
func NewHTTPForwarder() *HTTPForwarder {
	return &HTTPForwarder{Client: &http.Client{}}
}

// Forward issues POST {workerURL}/{route} with body passed through
// verbatim and Content-Type propagated.
func (f *HTTPForwarder) Forward(ctx context.Context, workerURL, route string, body []byte, contentType string) (*http.Response, error) {
	url := strings.TrimRight(workerURL, "/") + "/" + strings.TrimLeft(route, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// Dispatcher handles one request end to end: extract text, invoke the
// policy, proxy the request, and keep pending counters balanced across
// both buffered and streaming responses.
type Dispatcher struct {
	Router    *Router
	Forwarder Forwarder
}

// NewDispatcher builds a Dispatcher. A nil forwarder defaults to
// NewHTTPForwarder().
func NewDispatcher(r *Router, f Forwarder) *Dispatcher {
	if f == nil {
		f = NewHTTPForwarder()
	}
	return &Dispatcher{Router: r, Forwarder: f}
}

// Dispatch handles one inbound request for the given route tag. It never
// panics: malformed bodies degrade to empty text and the default user id,
// and every exit path — success, upstream failure, or stream abort —
// balances the pending counter it incremented.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request, route string) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	text := ExtractText(body, route)
	userID := ExtractUserID(body)
	streaming := IsStreaming(body)

	worker, err := d.Router.Route(text, userID)
	if err != nil {
		logrus.Warnf("dispatch: routing failed for route=%q: %v", route, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	logrus.Debugf("dispatch: route=%q text_len=%d user=%q -> worker=%q", route, len([]rune(text)), userID, worker)

	contentType := ContentTypeOrDefault(r.Header.Get("Content-Type"))

	resp, err := d.Forwarder.Forward(ctx, worker, route, body, contentType)
	if err != nil {
		// Every selection must be balanced by exactly one decrement, even
		// when the upstream send itself never completes.
		logrus.Warnf("dispatch: upstream send failed for worker %q: %v", worker, err)
		d.Router.DecRunning(worker)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	status := mapStatus(resp.StatusCode)

	if !streaming {
		respBody, readErr := io.ReadAll(resp.Body)
		d.Router.DecRunning(worker)
		if readErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(status)
		_, _ = w.Write(respBody)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(status)
	streamResponse(ctx, w, resp.Body, func() { d.Router.DecRunning(worker) })
}

// mapStatus collapses an invalid upstream status code to internal-server-
// error.
func mapStatus(code int) int {
	if code < 100 || code > 599 {
		logrus.Warnf("dispatch: upstream returned invalid status %d, responding with %d", code, http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
	return code
}

// streamResponse forwards body to w chunk by chunk, sniffing the
// concatenation of each chunk with the tail of the previous one for
// doneSentinel so a match spanning a chunk boundary is still caught.
// onDone fires at most once, on the first sentinel sighting, on read
// error, or when body is exhausted without ever seeing one — so client
// disconnects and upstream failures mid-stream still release the pending
// counter.
func streamResponse(ctx context.Context, w http.ResponseWriter, body io.Reader, onDone func()) {
	flusher, _ := w.(http.Flusher)
	var once sync.Once
	markDone := func() { once.Do(onDone) }
	defer markDone()

	const chunkSize = 4096
	buf := make([]byte, chunkSize)
	var tail []byte
	seen := false

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := w.Write(chunk); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			if !seen {
				window := append(append([]byte(nil), tail...), chunk...)
				if bytes.Contains(window, doneSentinel) {
					seen = true
					markDone()
				}
				tail = tailBytes(window, len(doneSentinel)-1)
			}
		}
		if err != nil {
			if err != io.EOF {
				logrus.Warnf("dispatch: stream read error: %v", err)
				_, _ = w.Write([]byte("\n\ndata: {\"error\":\"internal_server_error\"}\n\n"))
				if flusher != nil {
					flusher.Flush()
				}
			}
			return
		}
	}
}

func tailBytes(b []byte, n int) []byte {
	if n <= 0 {
		return nil
	}
	if len(b) <= n {
		return append([]byte(nil), b...)
	}
	out := make([]byte, n)
	copy(out, b[len(b)-n:])
	return out
}
