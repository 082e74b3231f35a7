// Package httprequest implements the http-request workflow action: template
// substitution, an outbound call under a per-action timeout, and a full
// truncated request/response trace.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/radiflow/radiflow/pkg/template"
)

const (
	// DefaultTimeout bounds one action's outbound call.
	DefaultTimeout = 30 * time.Second

	// maxCapturedBody caps the response body stored on the trace.
	maxCapturedBody = 4096

	truncationMarker = "... (truncated)"

	defaultContentType = "application/json"
)

// Action is one configured http-request node.
type Action struct {
	method      string
	url         string
	headers     map[string]string
	body        string
	contentType string
	pattern     *StatusPattern
	timeout     time.Duration

	// client is replaceable in tests.
	client *http.Client
}

// NewAction validates the node payload and builds the action.
func NewAction(data models.NodeData) (*Action, error) {
	if data.HTTPURL == "" {
		return nil, errors.New("http-request action requires a url")
	}

	method := strings.ToUpper(data.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}

	headers, err := parseHeaders(data.HTTPHeaders)
	if err != nil {
		return nil, err
	}

	pattern, err := ParseStatusPattern(data.HTTPExpectedStatusCodes)
	if err != nil {
		return nil, err
	}

	timeout := DefaultTimeout
	if data.HTTPTimeoutSeconds > 0 {
		timeout = time.Duration(data.HTTPTimeoutSeconds) * time.Second
	}

	contentType := data.HTTPContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Action{
		method:      method,
		url:         data.HTTPURL,
		headers:     headers,
		body:        data.HTTPBody,
		contentType: contentType,
		pattern:     pattern,
		timeout:     timeout,
		client:      http.DefaultClient,
	}, nil
}

// parseHeaders decodes the JSON-object-shaped header string. A header
// literally named Content-Type is dropped: the body's own content type
// governs, and keeping both would send conflicting values.
func parseHeaders(raw string) (map[string]string, error) {
	headers := make(map[string]string)

	if strings.TrimSpace(raw) == "" {
		return headers, nil
	}

	var decoded map[string]any

	err := json.Unmarshal([]byte(raw), &decoded)
	if err != nil {
		return nil, fmt.Errorf("http-request headers must be a JSON object: %w", err)
	}

	for key, value := range decoded {
		if http.CanonicalHeaderKey(key) == "Content-Type" {
			continue
		}

		str, ok := value.(string)
		if !ok {
			str = fmt.Sprintf("%v", value)
		}

		headers[key] = str
	}

	return headers, nil
}

// carriesBody reports whether the method conventionally carries a request
// body.
func carriesBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return false
	default:
		return true
	}
}

// Execute resolves templates, performs the call and captures the trace. The
// trace is returned on the result even when the call fails, so the step
// record always shows what was sent and received.
func (a *Action) Execute(ctx context.Context, scope actions.Scope) (*actions.Result, error) {
	url := template.Resolve(a.url, scope.Vars)

	trace := &models.HTTPTrace{
		Method: a.method,
		URL:    url,
	}
	result := &actions.Result{HTTPTrace: trace}

	var body string

	if carriesBody(a.method) && a.body != "" {
		body = template.Resolve(a.body, scope.Vars)
		trace.RequestBody = body
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.method, url, reader)
	if err != nil {
		return result, &RequestError{Kind: FailureConnection, Err: fmt.Errorf("failed to build request: %w", err)}
	}

	requestHeaders := make(map[string]string, len(a.headers)+1)

	for key, value := range a.headers {
		resolved := template.Resolve(value, scope.Vars)
		req.Header.Set(key, resolved)
		requestHeaders[key] = resolved
	}

	if body != "" {
		req.Header.Set("Content-Type", a.contentType)
		requestHeaders["Content-Type"] = a.contentType
	}

	trace.RequestHeaders = requestHeaders

	started := time.Now()

	resp, err := a.client.Do(req)

	trace.DurationMS = time.Since(started).Milliseconds()

	if err != nil {
		return result, &RequestError{Kind: classifyTransportError(err), Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	trace.StatusCode = resp.StatusCode
	trace.ResponseHeaders = flattenHeaders(resp.Header)
	trace.ResponseBody, trace.BodyTruncated = captureBody(resp.Body)
	trace.DurationMS = time.Since(started).Milliseconds()

	if !a.pattern.Matches(resp.StatusCode) {
		return result, &RequestError{
			Kind: FailureUnexpectedStatus,
			Err:  fmt.Errorf("status %d outside expected pattern %q", resp.StatusCode, a.pattern),
		}
	}

	result.Output = map[string]any{
		"status_code": resp.StatusCode,
		"body":        trace.ResponseBody,
	}

	return result, nil
}

func classifyTransportError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	return FailureConnection
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		out[key] = strings.Join(values, ", ")
	}

	return out
}

// captureBody reads up to the capture limit and marks truncation
// explicitly.
func captureBody(body io.Reader) (string, bool) {
	captured, err := io.ReadAll(io.LimitReader(body, maxCapturedBody+1))
	if err != nil {
		return "", false
	}

	if len(captured) > maxCapturedBody {
		return string(captured[:maxCapturedBody]) + truncationMarker, true
	}

	return string(captured), false
}
