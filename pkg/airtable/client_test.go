package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIKey: "key123", BaseID: "appBase", BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseID: "app"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "key"})
	assert.Error(t, err)
}

func TestClient_List_SendsHeadersAndQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appBase/Quiz", r.URL.Path)
		assert.Equal(t, "Bearer key123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		q := r.URL.Query()
		assert.Equal(t, "Question Number", q.Get("sort[0][field]"))
		assert.Equal(t, "asc", q.Get("sort[0][direction]"))
		assert.Equal(t, "{Active Question} = TRUE()", q.Get("filterByFormula"))

		w.Write([]byte(`{"records":[{"id":"rec1","fields":{"Question Number":1}}]}`))
	})

	records, err := client.List(context.Background(), "Quiz", ListParams{
		FilterByFormula: FieldIsTrue("Active Question"),
		Sort:            []Sort{{Field: "Question Number"}},
	})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec1", records[0].ID)

	var fields struct {
		Number int `json:"Question Number"`
	}
	require.NoError(t, records[0].DecodeFields(&fields))
	assert.Equal(t, 1, fields.Number)
}

func TestClient_List_FollowsOffset(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("offset") {
		case "":
			w.Write([]byte(`{"records":[{"id":"rec1","fields":{}}],"offset":"page2"}`))
		case "page2":
			w.Write([]byte(`{"records":[{"id":"rec2","fields":{}}]}`))
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := client.List(context.Background(), "Votes", ListParams{})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, records, 2)
	assert.Equal(t, "rec2", records[1].ID)
}

func TestClient_ErrorPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_FILTER_BY_FORMULA","message":"bad formula"}}`))
	})

	_, err := client.List(context.Background(), "Quiz", ListParams{FilterByFormula: "{"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream), "Ошибка хранилища должна распознаваться как ErrUpstream")

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	assert.Contains(t, string(upstream.Payload), "INVALID_FILTER_BY_FORMULA")
}

func TestClient_ErrorPayload_String(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"NOT_FOUND"}`))
	})

	_, err := client.Update(context.Background(), "Session", "recX", map[string]int{"Current Question": 1})

	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestClient_Create_WrapsRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)

		var req struct {
			Records []struct {
				Fields map[string]interface{} `json:"fields"`
			} `json:"records"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		if assert.Len(t, req.Records, 1) {
			assert.Equal(t, "Alice", req.Records[0].Fields["Voter Name"])
		}

		w.Write([]byte(`{"records":[{"id":"recVote","createdTime":"2024-01-01T00:00:00.000Z","fields":{"Voter Name":"Alice"}}]}`))
	})

	record, err := client.Create(context.Background(), "Votes", map[string]interface{}{"Voter Name": "Alice"})

	require.NoError(t, err)
	assert.Equal(t, "recVote", record.ID)
}

func TestClient_Update_UsesPatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"records":[{"id":"recS","fields":{"Current Question":2}}],"typecast":true}`, string(body))
		w.Write([]byte(`{"records":[{"id":"recS","fields":{"Current Question":2}}]}`))
	})

	record, err := client.Update(context.Background(), "Session", "recS", map[string]int{"Current Question": 2})

	require.NoError(t, err)
	assert.Equal(t, "recS", record.ID)
}

func TestFormulaHelpers(t *testing.T) {
	assert.Equal(t, "{Session Name} = 'Party'", FieldEquals("Session Name", "Party"))
	assert.Equal(t, `{Session Name} = 'O\'Brien'`, FieldEquals("Session Name", "O'Brien"))
	assert.Equal(t, "{Question Number} = 5", FieldEqualsNumber("Question Number", 5))
}

func TestFlexString_Unmarshal(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a":"2","b":3,"c":null}`), &v))
	assert.Equal(t, "2", v.A.String())
	assert.Equal(t, "3", v.B.String())
	assert.Equal(t, "", v.C.String())
}
