package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

type testAPI struct {
	store  *memStore
	router *gin.Engine
}

func newTestAPI(t *testing.T, legacyActiveFlag bool, questions ...entity.Question) *testAPI {
	t.Helper()

	store := newMemStore(questions...)
	catalog := service.NewCatalogService(memQuestionRepo{store}, nil, 0)

	hub := websocket.NewHub(websocket.HubConfig{}, nil)
	t.Cleanup(func() { hub.Close() })
	manager := websocket.NewManager(hub)

	sessions := service.NewSessionService(memSessionRepo{store}, catalog, nil, manager)
	votes := service.NewVoteService(memVoteRepo{store}, catalog, manager)
	results := service.NewResultService(memVoteRepo{store}, catalog)

	router := NewRouter(RouterDeps{
		Quiz:    NewQuizHandler(catalog, sessions, "main", legacyActiveFlag),
		Session: NewSessionHandler(sessions),
		Vote:    NewVoteHandler(votes),
		Result:  NewResultHandler(results),
		WS:      NewWSHandler(hub, manager, websocket.DefaultClientConfig(), "main", []string{"*"}),
		Health:  NewHealthHandler("memory", hub),
	})
	return &testAPI{store: store, router: router}
}

func (a *testAPI) do(method, path string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// newTestGinContext создает тестовый gin.Context
func newTestGinContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

// parseJSONResponse парсит JSON ответ
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func twoQuestions() []entity.Question {
	return []entity.Question{storeQuestion(2, "recQ2"), storeQuestion(1, "recQ1")}
}

// ============================================================================
// Каталог вопросов
// ============================================================================

func TestGetQuestions_SortedRecords(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	w := api.do(http.MethodGet, "/questions", "")

	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "recQ1", records[0]["id"])
	fields := records[0]["fields"].(map[string]interface{})
	assert.Equal(t, float64(1), fields["Question Number"])
	assert.Equal(t, "Вопрос 1", fields["Question"])
	assert.Equal(t, "B", fields["Answer 2"])
	assert.Equal(t, "2", fields["Correct Answer"])
}

func TestGetQuestion(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	t.Run("found", func(t *testing.T) {
		w := api.do(http.MethodGet, "/question/2", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "recQ2", parseJSONResponse(t, w)["id"])
	})

	t.Run("not found", func(t *testing.T) {
		w := api.do(http.MethodGet, "/question/9", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Question not found", parseJSONResponse(t, w)["error"])
	})

	t.Run("invalid number", func(t *testing.T) {
		w := api.do(http.MethodGet, "/question/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid num", parseJSONResponse(t, w)["error"])
	})
}

func TestGetQuestions_UpstreamError(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)
	api.store.failWith = fmt.Errorf("airtable error (status 422): boom: %w", apperrors.ErrUpstream)

	w := api.do(http.MethodGet, "/questions", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, parseJSONResponse(t, w)["error"], "boom")
}

// ============================================================================
// Сессия по умолчанию: /active и /next
// ============================================================================

func TestDefaultSessionFlow(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	// Сессия ещё не создана
	w := api.do(http.MethodGet, "/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, false, resp["active"])
	assert.Equal(t, true, resp["waiting"])

	// Первый /next создает сессию и показывает вопрос 1
	w = api.do(http.MethodPost, "/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	newActive := parseJSONResponse(t, w)["newActive"].(map[string]interface{})
	assert.Equal(t, "recQ1", newActive["id"])

	w = api.do(http.MethodGet, "/active", "")
	resp = parseJSONResponse(t, w)
	assert.Equal(t, true, resp["active"])
	assert.Equal(t, "recQ1", resp["questionId"])
	assert.Equal(t, float64(1), resp["fields"].(map[string]interface{})["Question Number"])

	w = api.do(http.MethodPost, "/next", "")
	newActive = parseJSONResponse(t, w)["newActive"].(map[string]interface{})
	assert.Equal(t, "recQ2", newActive["id"])

	// Вопросы закончились
	w = api.do(http.MethodPost, "/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = parseJSONResponse(t, w)
	assert.Equal(t, "No next question found", resp["message"])
	assert.NotContains(t, resp, "newActive")

	w = api.do(http.MethodGet, "/active", "")
	resp = parseJSONResponse(t, w)
	assert.Equal(t, false, resp["active"])
	assert.Equal(t, true, resp["end"])

	require.Len(t, api.store.sessions, 1, "сессия по умолчанию создается один раз")
	assert.Equal(t, 3, api.store.sessions[0].CurrentQuestion)
}

func TestLegacyActiveFlagFlow(t *testing.T) {
	questions := twoQuestions()
	questions[1].Active = true // recQ1
	api := newTestAPI(t, true, questions...)

	w := api.do(http.MethodGet, "/active", "")
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["active"])
	assert.Equal(t, "recQ1", resp["questionId"])

	w = api.do(http.MethodPost, "/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	newActive := parseJSONResponse(t, w)["newActive"].(map[string]interface{})
	assert.Equal(t, "recQ2", newActive["id"])

	w = api.do(http.MethodPost, "/next", "")
	assert.Equal(t, "No next question found", parseJSONResponse(t, w)["message"])

	// Флаг снят и с последнего вопроса
	w = api.do(http.MethodGet, "/active", "")
	resp = parseJSONResponse(t, w)
	assert.Equal(t, false, resp["active"])
	assert.NotContains(t, resp, "waiting")
}

// ============================================================================
// Именованные сессии
// ============================================================================

func TestSessionEndpoints(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	w := api.do(http.MethodPost, "/session", `{"sessionName":"Party"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := parseJSONResponse(t, w)
	assert.NotEmpty(t, created["id"])
	fields := created["fields"].(map[string]interface{})
	assert.Equal(t, "Party", fields["Session Name"])
	assert.Equal(t, float64(0), fields["Current Question"])

	w = api.do(http.MethodGet, "/active?session=Party", "")
	assert.Equal(t, true, parseJSONResponse(t, w)["waiting"])

	w = api.do(http.MethodPost, "/session/Party/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(1), resp["newCurrentQuestion"])
	updated := resp["updatedRecord"].(map[string]interface{})
	assert.Equal(t, float64(1), updated["fields"].(map[string]interface{})["Current Question"])

	w = api.do(http.MethodGet, "/session/Party", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["fields"].(map[string]interface{})["Current Question"])

	w = api.do(http.MethodGet, "/active?session=Party", "")
	resp = parseJSONResponse(t, w)
	assert.Equal(t, true, resp["active"])
	assert.Equal(t, "recQ1", resp["questionId"])
	assert.Equal(t, "Party", resp["sessionName"])
}

func TestSessionEndpoints_Errors(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty name", http.MethodPost, "/session", `{"sessionName":"  "}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/session", `{`, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/session/Ghost", "", http.StatusNotFound},
		{"advance unknown session", http.MethodPost, "/session/Ghost/next", "", http.StatusNotFound},
		{"active for unknown session", http.MethodGet, "/active?session=Ghost", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, parseJSONResponse(t, w)["error"])
		})
	}
	assert.Empty(t, api.store.sessions)
}

// ============================================================================
// Голоса и результаты
// ============================================================================

func TestSubmitVote(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	t.Run("by question number", func(t *testing.T) {
		w := api.do(http.MethodPost, "/vote", `{"voterName":"Alice","questionNumber":"1","answerNumber":3,"sessionName":"Party"}`)
		require.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, true, resp["success"])
		fields := resp["voteRecord"].(map[string]interface{})["fields"].(map[string]interface{})
		assert.Equal(t, "Alice", fields["Voter Name"])
		assert.Equal(t, []interface{}{"recQ1"}, fields["Question"])
		assert.Equal(t, "3", fields["Vote"])
	})

	t.Run("by question id", func(t *testing.T) {
		w := api.do(http.MethodPost, "/vote", `{"voterName":"Bob","questionId":"recQ2","answerNumber":"1"}`)
		require.Equal(t, http.StatusOK, w.Code)
	})

	errorCases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing voter", `{"questionId":"recQ1","answerNumber":"1"}`, http.StatusBadRequest},
		{"missing question", `{"voterName":"C","answerNumber":"1"}`, http.StatusBadRequest},
		{"answer out of range", `{"voterName":"C","questionId":"recQ1","answerNumber":5}`, http.StatusBadRequest},
		{"invalid question number", `{"voterName":"C","questionNumber":"x","answerNumber":1}`, http.StatusBadRequest},
		{"unknown question number", `{"voterName":"C","questionNumber":42,"answerNumber":1}`, http.StatusNotFound},
		{"malformed body", `not json`, http.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/vote", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, parseJSONResponse(t, w)["error"])
		})
	}

	assert.Len(t, api.store.votes, 2, "ошибочные голоса не записываются")
}

func seedVotes(api *testAPI) {
	api.store.votes = []entity.Vote{
		{ID: "v1", QuestionID: "recQ1", Answer: "2"},
		{ID: "v2", QuestionID: "recQ1", Answer: "2"},
		{ID: "v3", QuestionID: "recQ1", Answer: "4"},
		{ID: "v4", QuestionID: "recQ1", Answer: "maybe"},
		{ID: "v5", QuestionID: "recQ2", Answer: "1"},
	}
}

func TestGetResults(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)
	seedVotes(api)

	w := api.do(http.MethodGet, "/results/1", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, float64(1), resp["questionNumber"])
	assert.Equal(t, "Вопрос 1", resp["question"])
	assert.Equal(t, "2", resp["correctAnswer"])
	assert.Equal(t, map[string]interface{}{"1": "A", "2": "B", "3": "C", "4": "=D"}, resp["answers"])
	assert.Equal(t, map[string]interface{}{"1": float64(0), "2": float64(2), "3": float64(0), "4": float64(1)}, resp["votes"])
	assert.Equal(t, float64(3), resp["totalVotes"])

	w = api.do(http.MethodGet, "/results/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportResults_CSV(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)
	seedVotes(api)

	w := api.do(http.MethodGet, "/results/1/export?format=csv", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "question_1_results.csv")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"), "CSV должен начинаться с BOM")
	assert.Contains(t, body, "2,B,2,Да")
	assert.Contains(t, body, "4,'=D,1,Нет", "формулы экранируются")
	assert.Contains(t, body, ",Всего,3,")
}

func TestExportResults_XLSX(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)
	seedVotes(api)

	w := api.do(http.MethodGet, "/results/1/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "question_1_results.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Итоги", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Вопрос 1", title)

	votesForTwo, err := f.GetCellValue("Итоги", "C4")
	require.NoError(t, err)
	assert.Equal(t, "2", votesForTwo)

	total, err := f.GetCellValue("Итоги", "C7")
	require.NoError(t, err)
	assert.Equal(t, "3", total)
}

func TestExportResults_InvalidFormat(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)

	w := api.do(http.MethodGet, "/results/1/export?format=pdf", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// Ошибки, здоровье, WebSocket
// ============================================================================

func TestHandleServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("bad: %w", apperrors.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("missing: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("busy: %w", apperrors.ErrConflict), http.StatusConflict},
		{fmt.Errorf("store: %w", apperrors.ErrUpstream), http.StatusInternalServerError},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			c, w := newTestGinContext(http.MethodGet, "/any")

			handleServiceError(c, "Test", tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), parseJSONResponse(t, w)["error"])
		})
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "memory", resp["store"])
	assert.Contains(t, resp, "websocket")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://quiz.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "клиент без Origin разрешен")

	req.Header.Set("Origin", "https://quiz.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker(nil)(req), "пустой список разрешает все, как и CORS")
}

func readEvent(t *testing.T, conn *gorillaws.Conn) websocket.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event websocket.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestWebSocket_ReceivesSessionEvents(t *testing.T) {
	api := newTestAPI(t, false, twoQuestions()...)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=Party"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// ping/pong гарантирует, что клиент уже зарегистрирован в комнате
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, websocket.SERVER_PONG, readEvent(t, conn).Type)

	w := api.do(http.MethodPost, "/session", `{"sessionName":"Party"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = api.do(http.MethodPost, "/session/Party/next", "")
	require.Equal(t, http.StatusOK, w.Code)

	event := readEvent(t, conn)
	assert.Equal(t, websocket.QUESTION_START, event.Type)
	data := event.Data.(map[string]interface{})
	assert.Equal(t, "recQ1", data["questionId"])
	assert.Equal(t, float64(1), data["currentQuestion"])

	w = api.do(http.MethodPost, "/vote", `{"voterName":"Alice","questionNumber":1,"answerNumber":2,"sessionName":"Party"}`)
	require.Equal(t, http.StatusOK, w.Code)
	event = readEvent(t, conn)
	assert.Equal(t, websocket.VOTE_RECORDED, event.Type)
	assert.Equal(t, "2", event.Data.(map[string]interface{})["answer"])
}
