package httprequest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope(vars map[string]any) actions.Scope {
	return actions.Scope{
		Event: &models.AutomationEvent{TriggerType: "user_registered"},
		Vars:  vars,
	}
}

func TestExecute_GetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Empty(t, r.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{
		HTTPURL: server.URL + "/users/{{userId}}",
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testScope(map[string]any{"userId": int64(42)}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.Output["status_code"])
	assert.Equal(t, `{"ok":true}`, result.Output["body"])

	require.NotNil(t, result.HTTPTrace)
	assert.Equal(t, http.MethodGet, result.HTTPTrace.Method)
	assert.Equal(t, server.URL+"/users/42", result.HTTPTrace.URL)
	assert.Equal(t, http.StatusOK, result.HTTPTrace.StatusCode)
	assert.False(t, result.HTTPTrace.BodyTruncated)
}

func TestExecute_PostSendsTemplatedBodyAndContentType(t *testing.T) {
	var (
		gotBody        string
		gotContentType string
		gotAuth        string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		gotBody = string(payload)
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	headers, _ := json.Marshal(map[string]string{
		"Authorization": "Bearer {{token}}",
		"Content-Type":  "text/plain", // must be dropped
	})

	action, err := NewAction(models.NodeData{
		HTTPMethod:  "post",
		HTTPURL:     server.URL + "/provision",
		HTTPHeaders: string(headers),
		HTTPBody:    `{"user": "{{username}}"}`,
	})
	require.NoError(t, err)

	vars := map[string]any{"username": "ana", "token": "s3cret"}

	result, err := action.Execute(context.Background(), testScope(vars))
	require.NoError(t, err)

	assert.Equal(t, `{"user": "ana"}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, `{"user": "ana"}`, result.HTTPTrace.RequestBody)
	assert.Equal(t, "Bearer s3cret", result.HTTPTrace.RequestHeaders["Authorization"])
}

func TestExecute_DeleteCarriesNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		assert.Empty(t, payload)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{
		HTTPMethod: "DELETE",
		HTTPURL:    server.URL,
		HTTPBody:   `{"should":"not send"}`,
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testScope(nil))
	require.NoError(t, err)
	assert.Empty(t, result.HTTPTrace.RequestBody)
}

func TestExecute_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{HTTPURL: server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testScope(nil))
	require.Error(t, err)

	var reqErr *RequestError

	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, FailureUnexpectedStatus, reqErr.Kind)

	// The trace still captures the unexpected response.
	require.NotNil(t, result.HTTPTrace)
	assert.Equal(t, http.StatusNotFound, result.HTTPTrace.StatusCode)
	assert.Equal(t, "missing", result.HTTPTrace.ResponseBody)
	assert.Nil(t, result.Output)
}

func TestExecute_CustomStatusPattern(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{
		HTTPURL:                 server.URL,
		HTTPExpectedStatusCodes: "200-299,404",
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testScope(nil))
	assert.NoError(t, err)
}

func TestExecute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{
		HTTPURL:            server.URL,
		HTTPTimeoutSeconds: 1,
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testScope(nil))
	require.Error(t, err)

	var reqErr *RequestError

	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, FailureTimeout, reqErr.Kind)
}

func TestExecute_ConnectionError(t *testing.T) {
	// Reserved TEST-NET address, nothing listens there.
	action, err := NewAction(models.NodeData{
		HTTPURL:            "http://192.0.2.1:1",
		HTTPTimeoutSeconds: 1,
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testScope(nil))
	require.Error(t, err)

	var reqErr *RequestError

	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, []FailureKind{FailureConnection, FailureTimeout}, reqErr.Kind)
}

func TestExecute_ResponseBodyTruncated(t *testing.T) {
	huge := strings.Repeat("x", maxCapturedBody+500)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(huge))
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{HTTPURL: server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testScope(nil))
	require.NoError(t, err)

	assert.True(t, result.HTTPTrace.BodyTruncated)
	assert.True(t, strings.HasSuffix(result.HTTPTrace.ResponseBody, truncationMarker))
	assert.Len(t, result.HTTPTrace.ResponseBody, maxCapturedBody+len(truncationMarker))
}

func TestExecute_UnresolvedPlaceholderStaysInURL(t *testing.T) {
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer server.Close()

	action, err := NewAction(models.NodeData{HTTPURL: server.URL + "/users/{{missing}}"})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), testScope(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "/users/{{missing}}", gotPath)
}

func TestNewAction_Validation(t *testing.T) {
	_, err := NewAction(models.NodeData{})
	assert.Error(t, err)

	_, err = NewAction(models.NodeData{HTTPURL: "http://x", HTTPHeaders: "not-json"})
	assert.Error(t, err)

	_, err = NewAction(models.NodeData{HTTPURL: "http://x", HTTPExpectedStatusCodes: "500-400"})
	assert.Error(t, err)
}
