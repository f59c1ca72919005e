package bridge

import (
	"context"
	"fmt"

	"github.com/valyala/fasthttp"
)

// Result is the settled outcome of one network call. Callers must inspect Err.
type Result struct {
	Status  int
	Body    []byte
	Payload map[string]any
	Err     error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// fetch performs one request with caching disabled. Redirects are not
// followed, so a request never leaves the origin it was sent to.
func fetch(ctx context.Context, client *fasthttp.Client, method, uri string, header map[string]string, body []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderCacheControl, "no-cache")
	req.Header.Set(fasthttp.HeaderPragma, "no-cache")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("text/plain")
		req.SetBody(body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(req, resp, deadline)
	} else {
		err = client.Do(req, resp)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}
