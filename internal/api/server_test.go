package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-tracker/internal/catalog"
	"github.com/terra-clan/survey-tracker/internal/config"
	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/services"
	"github.com/terra-clan/survey-tracker/internal/session"
	"github.com/terra-clan/survey-tracker/internal/storage"
)

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	store   *storage.MemoryStore
	tracker *progress.Tracker
}

// newTestEnv starts a server over a catalog whose physical category has 2 levels
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat, err := catalog.New([]models.CategoryLevels{
		{Category: models.CategorySpiritual, Levels: []models.Level{
			{Ordinal: 1, Questions: []string{"s1"}},
			{Ordinal: 2, Questions: []string{"s2"}},
			{Ordinal: 3, Questions: []string{"s3"}},
		}},
		{Category: models.CategoryPhysical, Levels: []models.Level{
			{Ordinal: 1, Questions: []string{"Did you exercise?", "Did you drink water?"}},
			{Ordinal: 2, Questions: []string{"Did you sleep well?", "Did you eat vegetables?"}},
		}},
		{Category: models.CategoryMental, Levels: []models.Level{
			{Ordinal: 1, Questions: []string{"m1"}},
		}},
	})
	require.NoError(t, err)

	store := storage.NewMemoryStore(time.Hour)
	tracker := progress.NewTracker(cat, store)
	sessions := session.NewManager(session.Options{Secret: "test", TTL: time.Hour})

	registry := services.NewRegistry()
	registry.Register("store", services.NewPingChecker("memory", store))

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, tracker, sessions, registry)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:   store,
		tracker: tracker,
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

// sessionProgress returns the stored progress of the client's only session
func (e *testEnv) sessionProgress(t *testing.T) models.UserProgress {
	t.Helper()
	u, err := url.Parse(e.server.URL)
	require.NoError(t, err)

	cookies := e.client.Jar.Cookies(u)
	require.Len(t, cookies, 1)

	id, err := session.NewManager(session.Options{Secret: "test", TTL: time.Hour}).Parse(cookies[0].Value)
	require.NoError(t, err)

	p, err := e.store.Load(context.Background(), id)
	require.NoError(t, err)
	return p
}

func assertRedirectHome(t *testing.T, resp *http.Response) {
	t.Helper()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Spiritual")
	assert.Contains(t, body, "Physical")
	assert.Contains(t, body, "Mental")
	assert.Contains(t, body, `href="/survey/physical"`)

	p := env.sessionProgress(t)
	require.Len(t, p, 3)
	for _, cp := range p {
		assert.Equal(t, 0, cp.Level)
	}
}

func TestSurveyPages_PhysicalScenario(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/survey/physical")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Level 1")
	assert.Contains(t, body, "Did you exercise?")
	assert.Contains(t, body, `name="q1"`)

	resp = env.postForm(t, "/survey/physical", url.Values{"q0": {"yes"}, "q1": {"no"}})
	assertRedirectHome(t, resp)

	p := env.sessionProgress(t)
	physical := p[models.CategoryPhysical]
	assert.Equal(t, 1, physical.Level)
	require.Len(t, physical.Responses, 1)
	assert.Equal(t, []models.Answer{
		{Question: "Did you exercise?", Answer: "yes"},
		{Question: "Did you drink water?", Answer: "no"},
	}, physical.Responses[0].Answers)
	assert.Empty(t, physical.Badges)

	resp, body = env.get(t, "/survey/physical")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Level 2")
	assert.Contains(t, body, "Did you sleep well?")

	// Missing answer fields are recorded as empty strings
	resp = env.postForm(t, "/survey/physical", url.Values{"q0": {"yes"}})
	assertRedirectHome(t, resp)

	p = env.sessionProgress(t)
	physical = p[models.CategoryPhysical]
	assert.Equal(t, 2, physical.Level)
	assert.Equal(t, []string{"Physical Champion"}, physical.Badges)
	assert.Equal(t, "", physical.Responses[1].Answers[1].Answer)

	resp, _ = env.get(t, "/survey/physical")
	assertRedirectHome(t, resp)

	_, body = env.get(t, "/")
	assert.Contains(t, body, "Physical Champion")
	assert.Contains(t, body, "100% complete")
}

func TestSurveyPage_CompletedCategoryDoesNotMutate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/survey/mental", url.Values{"q0": {"calm"}})
	assertRedirectHome(t, resp)
	before := env.sessionProgress(t)
	require.Equal(t, []string{"Mental Champion"}, before[models.CategoryMental].Badges)

	resp, _ = env.get(t, "/survey/mental")
	assertRedirectHome(t, resp)

	resp = env.postForm(t, "/survey/mental", url.Values{"q0": {"again"}})
	assertRedirectHome(t, resp)

	assert.Equal(t, before, env.sessionProgress(t))
}

func TestSurveyPage_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/survey/unknown-category")
	assertRedirectHome(t, resp)

	resp = env.postForm(t, "/survey/unknown-category", url.Values{"q0": {"x"}})
	assertRedirectHome(t, resp)

	assert.Equal(t, 0, env.store.Len(), "no progress record created")
}

func TestSurveyPage_CategoryCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/survey/Physical")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Physical – Level 1")
}

func TestSubmitPage_IgnoresClientLevel(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, "/survey/spiritual", url.Values{"q0": {"a"}, "level": {"3"}})
	assertRedirectHome(t, resp)

	p := env.sessionProgress(t)
	assert.Equal(t, 1, p[models.CategorySpiritual].Level)
	assert.Equal(t, 1, p[models.CategorySpiritual].Responses[0].Level)
}

func TestAnswersFromForm(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want []string
	}{
		{"empty", url.Values{}, []string{}},
		{"ordered", url.Values{"q0": {"a"}, "q1": {"b"}}, []string{"a", "b"}},
		{"gap", url.Values{"q2": {"c"}}, []string{"", "", "c"}},
		{"first value wins", url.Values{"q0": {"a", "b"}}, []string{"a"}},
		{"ignores other fields", url.Values{"q0": {"a"}, "level": {"9"}, "qx": {"?"}, "q01": {"z"}, "q-1": {"n"}}, []string{"a"}},
		{"bounded", url.Values{"q100000": {"far"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, answersFromForm(tt.form))
		})
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestAPI_ProgressAndSubmit(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/progress", "")
	require.Equal(t, http.StatusOK, status)
	var prog progressResponse
	require.NoError(t, json.Unmarshal(resp.Data, &prog))
	require.Len(t, prog.Categories, 3)
	assert.Equal(t, 0, prog.Categories[1].PercentComplete)

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/survey/physical", "")
	require.Equal(t, http.StatusOK, status)
	var page models.SurveyPage
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, 1, page.Level)
	assert.Len(t, page.Questions, 2)

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/survey/physical", `{"answers":["yes","no"]}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &prog))
	assert.Equal(t, 50, prog.Categories[1].PercentComplete)
	require.NotNil(t, prog.Submitted)
	assert.Equal(t, 1, prog.Submitted.Level)

	// Empty body submits empty answers
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/survey/physical", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &prog))
	assert.Equal(t, []string{"Physical Champion"}, prog.Categories[1].Badges)

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/survey/physical", "")
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "category_complete", resp.Error.Code)

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/survey/physical", `{"answers":[]}`)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_Errors(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/survey/cosmic", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "unknown_category", resp.Error.Code)

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/survey/physical", `{"answers":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestAPI_Catalog(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Categories []models.CategoryLevels `json:"categories"`
		Total      int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, models.CategorySpiritual, list.Categories[0].Category)

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/catalog/physical", "")
	require.Equal(t, http.StatusOK, status)
	var category models.CategoryLevels
	require.NoError(t, json.Unmarshal(resp.Data, &category))
	assert.Equal(t, "Physical", category.Name)
	assert.Len(t, category.Levels, 2)

	status, _ = env.doJSON(t, http.MethodGet, "/api/v1/catalog/cosmic", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.doJSON(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status, _ = env.doJSON(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestLiveProgress(t *testing.T) {
	env := newTestEnv(t)

	// Establish the session cookie first
	env.get(t, "/")
	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/progress/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	var msg LiveMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "summary", msg.Type)
	assert.Equal(t, 0, msg.Categories[2].PercentComplete)

	resp := env.postForm(t, "/survey/mental", url.Values{"q0": {"ok"}})
	assertRedirectHome(t, resp)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, 100, msg.Categories[2].PercentComplete)
	assert.Equal(t, []string{"Mental Champion"}, msg.Categories[2].Badges)
}

func TestHub(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe("a")
	assert.Equal(t, 1, h.Subscribers("a"))

	h.Publish("b", []models.CategorySummary{{Key: models.CategoryMental}})
	select {
	case <-ch:
		t.Fatal("received update for another session")
	default:
	}

	h.Publish("a", []models.CategorySummary{{PercentComplete: 1}})
	h.Publish("a", []models.CategorySummary{{PercentComplete: 2}})
	got := <-ch
	assert.Equal(t, 2, got[0].PercentComplete, "only the latest update is kept")

	unsubscribe()
	assert.Equal(t, 0, h.Subscribers("a"))
}
