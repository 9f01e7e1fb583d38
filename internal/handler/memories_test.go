package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Date      *string         `json:"date"`
	Section   string          `json:"section"`
	Body      string          `json:"body"`
	Location  *string         `json:"location"`
	SortOrder int             `json:"sortOrder"`
	Images    []imageResponse `json:"images"`
}

type imageResponse struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memoryId"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Alt       string `json:"alt"`
	SortOrder int    `json:"sortOrder"`
}

func (e *testEnv) listMemories(t *testing.T) []memoryResponse {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/memories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []memoryResponse
	decodeResponse(t, resp, &list)
	return list
}

func (e *testEnv) getMemory(t *testing.T, id string) memoryResponse {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/memories/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m memoryResponse
	decodeResponse(t, resp, &m)
	return m
}

func TestListMemories_Empty(t *testing.T) {
	env := testServer(t)

	resp := env.do(t, http.MethodGet, "/api/memories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw []memoryResponse
	decodeResponse(t, resp, &raw)
	assert.NotNil(t, raw, "empty timeline is [] not null")
	assert.Empty(t, raw)
}

func TestCreateMemory(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/memories", token, map[string]string{
		"title": "First date", "section": "2023", "body": "Coffee.", "date": "2023-02-14", "location": "Paris",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	decodeResponse(t, resp, &created)
	assert.Equal(t, "Memory created", created["message"])

	m := env.getMemory(t, created["id"])
	assert.Equal(t, "First date", m.Title)
	assert.Equal(t, "2023", m.Section)
	require.NotNil(t, m.Date)
	assert.Equal(t, "2023-02-14", *m.Date)
	require.NotNil(t, m.Location)
	assert.Equal(t, "Paris", *m.Location)
	assert.NotNil(t, m.Images)
	assert.Empty(t, m.Images)
}

func TestCreateMemory_RequiresFields(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/memories", token, map[string]string{"title": "only title", "section": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Title, section, and body are required", errorMessage(t, resp))
	assert.Empty(t, env.listMemories(t))
}

func TestCreateMemory_InvalidJSON(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/memories", token, "{")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMemoryWrites_RequireSession(t *testing.T) {
	env := testServer(t)
	token := env.login(t)
	id := env.createMemory(t, token, "Kept")

	cases := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPost, "/api/memories", map[string]string{"title": "x", "section": "x", "body": "x"}},
		{http.MethodPut, "/api/memories/" + id, map[string]string{"title": "changed"}},
		{http.MethodDelete, "/api/memories/" + id, nil},
		{http.MethodPut, "/api/memories/reorder", map[string]interface{}{"order": []interface{}{}}},
		{http.MethodPut, "/api/valentine", map[string]string{"title": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, "", tc.body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Unauthorized", errorMessage(t, resp))
		})
	}

	list := env.listMemories(t)
	require.Len(t, list, 1)
	assert.Equal(t, "Kept", list[0].Title)
}

func TestGetMemory_NotFound(t *testing.T) {
	env := testServer(t)

	resp := env.do(t, http.MethodGet, "/api/memories/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Memory not found", errorMessage(t, resp))
}

func TestUpdateMemory(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPost, "/api/memories", token, map[string]string{
		"title": "Trip", "section": "2024", "body": "Sea.", "location": "Nice",
	})
	var created map[string]string
	decodeResponse(t, resp, &created)
	id := created["id"]

	resp = env.do(t, http.MethodPut, "/api/memories/"+id, token, map[string]interface{}{
		"title": "Road trip", "body": "", "location": "",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeResponse(t, resp, &body)
	assert.Equal(t, "Memory updated", body["message"])

	m := env.getMemory(t, id)
	assert.Equal(t, "Road trip", m.Title)
	assert.Equal(t, "Sea.", m.Body, "blank required field keeps the stored value")
	assert.Equal(t, "2024", m.Section)
	assert.Nil(t, m.Location, "empty location clears it")
}

func TestUpdateMemory_NotFound(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	resp := env.do(t, http.MethodPut, "/api/memories/missing", token, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Memory not found", errorMessage(t, resp))
}

func TestDeleteMemory(t *testing.T) {
	env := testServer(t)
	token := env.login(t)
	id := env.createMemory(t, token, "Gone soon")

	resp := env.do(t, http.MethodDelete, "/api/memories/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeResponse(t, resp, &body)
	assert.Equal(t, "Memory deleted", body["message"])

	resp = env.do(t, http.MethodDelete, "/api/memories/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Memory not found", errorMessage(t, resp))
}

func TestReorderMemories(t *testing.T) {
	env := testServer(t)
	token := env.login(t)
	a := env.createMemory(t, token, "A")
	b := env.createMemory(t, token, "B")

	list := env.listMemories(t)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Title)

	resp := env.do(t, http.MethodPut, "/api/memories/reorder", token, map[string]interface{}{
		"order": []map[string]interface{}{{"id": b, "sortOrder": 0}, {"id": a, "sortOrder": 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeResponse(t, resp, &body)
	assert.Equal(t, "Memories reordered", body["message"])

	list = env.listMemories(t)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Title)
	assert.Equal(t, "A", list[1].Title)
}

func TestReorderMemories_BadBody(t *testing.T) {
	env := testServer(t)
	token := env.login(t)

	for _, body := range []interface{}{
		map[string]interface{}{"order": "nope"},
		map[string]interface{}{},
	} {
		resp := env.do(t, http.MethodPut, "/api/memories/reorder", token, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Order must be an array", errorMessage(t, resp))
	}
}
