package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/internal/metrics"
	"github.com/mooncrowned/storyed/internal/testutils"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/editor"
)

func newTestServer(t *testing.T) (*httptest.Server, *editor.Session) {
	t.Helper()
	storage, _ := testutils.SetupStory(t)
	sess, err := editor.Open(context.Background(), storage, editor.Options{
		Debounce: 10 * time.Millisecond,
		Metrics:  metrics.NewCollector("storyed_test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close(context.Background()) })

	srv := httptest.NewServer(NewHandler(sess, metrics.NewCollector("storyed_http_test"), nil))
	t.Cleanup(srv.Close)
	return srv, sess
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestGetStory(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/story", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta domain.StoryMeta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Anna", meta.Characters[0].Name)
}

func TestNodeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/nodes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var nodes []*domain.Node
	require.NoError(t, json.Unmarshal(raw, &nodes))
	require.Len(t, nodes, 1)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/nodes/0", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/nodes/42", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/nodes/zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessageEndpoints(t *testing.T) {
	srv, sess := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/nodes/0/messages", map[string]any{
		"index":   0,
		"message": domain.NewTextMessage("anna", "hello"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	n, _ := sess.Node(0)
	require.Len(t, n.Messages, 1)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/0/messages/0", domain.NewTextMessage("anna", "edited"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, _ = sess.Node(0)
	assert.Equal(t, "edited", n.Messages[0].Text)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/0/messages/9", domain.Message{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/nodes/0/messages/0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, _ = sess.Node(0)
	assert.Empty(t, n.Messages)
}

func TestAnswerEndpoints(t *testing.T) {
	srv, sess := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/nodes/0/answers", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ans domain.Answer
	require.NoError(t, json.Unmarshal(raw, &ans))
	assert.Equal(t, "a_0_1", ans.ID)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/0/answers/0", map[string]any{
		"message": "Sure!",
		"delay":   2.5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, _ := sess.Node(0)
	assert.Equal(t, "Sure!", n.Answers[0].Message)
	assert.Equal(t, 2.5, n.Answers[0].Delay)

	// Create the linked node through the answer.
	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/nodes/0/answers/0/node", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]int
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, 1, created["id"])

	// Rewire to nil.
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/0/answers/0/target", map[string]any{"next_node": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, _ = sess.Node(0)
	assert.Nil(t, n.Answers[0].NextNode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/nodes/0/answers/0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/nodes/0/answers/0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "index now out of range")
}

func TestLayoutAndSelect(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/nodes/0/answers", nil)
	doJSON(t, http.MethodPost, srv.URL+"/nodes/0/answers/0/node", nil)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/select", map[string]any{"id": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h struct {
		Selected  *int  `json:"selected"`
		Ancestors []int `json:"ancestors"`
	}
	require.NoError(t, json.Unmarshal(raw, &h))
	require.NotNil(t, h.Selected)
	assert.Equal(t, 1, *h.Selected)
	assert.Equal(t, []int{0}, h.Ancestors)

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/layout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var layoutResp struct {
		Root      int                        `json:"root"`
		Positions map[string]json.RawMessage `json:"positions"`
		Edges     []json.RawMessage          `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(raw, &layoutResp))
	assert.Equal(t, 0, layoutResp.Root)
	assert.Len(t, layoutResp.Positions, 2)
	assert.Len(t, layoutResp.Edges, 1)

	// Clearing the selection.
	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/select", map[string]any{"id": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &h))
	assert.Nil(t, h.Selected)
}

func TestGraphEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/graph.mmd", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "graph LR")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, raw)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/nodes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/select", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
