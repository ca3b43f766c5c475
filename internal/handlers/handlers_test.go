package handlers_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"brainshare/internal/db/dbtest"
	"brainshare/internal/models"
	"brainshare/internal/router"
	"brainshare/internal/services"
	"brainshare/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := dbtest.Open(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog, err := services.LoadCatalog(context.Background(), gdb, services.DefaultRules())
	require.NoError(t, err)
	opts := services.DefaultOptions()
	opts.Logger = logger
	eng, err := services.New(gdb, catalog, opts)
	require.NoError(t, err)

	return &testServer{t: t, handler: router.New(eng, router.Settings{
		SessionSecret: "test-secret",
		SiteURL:       "https://brainshare.test",
		Logger:        logger,
	}), db: gdb}
}

// client keeps the session cookie between requests.
type client struct {
	s       *testServer
	cookies map[string]*http.Cookie
}

func (s *testServer) client() *client {
	return &client{s: s, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.s.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(c.s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (c *client) register(name string, role models.Role) map[string]any {
	c.s.t.Helper()
	code, body := c.do(http.MethodPost, "/register", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "segredo",
		"role":     role,
	})
	require.Equal(c.s.t, http.StatusCreated, code, body)
	return body
}

func (c *client) createPost(title string) string {
	c.s.t.Helper()
	code, body := c.do(http.MethodPost, "/posts", gin.H{"title": title, "body": "corpo"})
	require.Equal(c.s.t, http.StatusCreated, code, body)
	return body["post"].(map[string]any)["pid"].(string)
}

func (c *client) comment(pid string) string {
	c.s.t.Helper()
	code, body := c.do(http.MethodPost, "/posts/"+pid+"/comments", gin.H{"body": "resposta"})
	require.Equal(c.s.t, http.StatusCreated, code, body)
	return body["comment"].(map[string]any)["cid"].(string)
}

func TestRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)
	c := s.client()

	body := c.register("ana", models.RoleStudent)
	unlocks := body["unlocks"].([]any)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "welcome", unlocks[0].(map[string]any)["key"])
	welcomeXP := int(unlocks[0].(map[string]any)["xp_reward"].(float64))
	assert.NotContains(t, body["user"], "email")

	code, _ := c.do(http.MethodGet, "/achievements", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, body = c.do(http.MethodGet, "/achievements", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "login required", body["error"])

	code, _ = c.do(http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "errada"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, body = c.do(http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "segredo"})
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, services.Level(welcomeXP), body["level"])

	code, _ = s.client().do(http.MethodPost, "/register", gin.H{"username": "ana", "email": "ana@example.com", "password": "segredo"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestLikeLimitReturns429(t *testing.T) {
	s := newTestServer(t)
	author := s.client()
	author.register("author", models.RoleStudent)
	pids := make([]string, 4)
	for i := range pids {
		pids[i] = author.createPost(fmt.Sprintf("post %d", i))
	}

	fan := s.client()
	fan.register("fan", models.RoleStudent)
	for _, pid := range pids[:3] {
		code, body := fan.do(http.MethodPost, "/posts/"+pid+"/like", nil)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, "like", body["action"])
	}
	code, body := fan.do(http.MethodPost, "/posts/"+pids[3]+"/like", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body["error"], "daily like limit")

	code, body = author.do(http.MethodGet, "/notifications/unread", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["unread"])

	code, body = author.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["notifications"], 3)
	_, body = author.do(http.MethodGet, "/notifications/unread", nil)
	assert.EqualValues(t, 0, body["unread"])
}

func TestSolveRequiresProfessor(t *testing.T) {
	s := newTestServer(t)
	student := s.client()
	student.register("student", models.RoleStudent)
	pid := student.createPost("dúvida")
	cid := student.comment(pid)

	code, _ := student.do(http.MethodPost, "/comments/"+cid+"/solve", nil)
	assert.Equal(t, http.StatusForbidden, code)

	prof := s.client()
	prof.register("prof", models.RoleProfessor)
	code, body := prof.do(http.MethodPost, "/comments/"+cid+"/solve", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["comment"].(map[string]any)["is_best_answer"])

	code, _ = prof.do(http.MethodPost, "/comments/"+cid+"/solve", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.client().do(http.MethodGet, "/posts/"+pid, nil)
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, true, comments[0].(map[string]any)["is_best_answer"])
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	hash, err := utils.HashPassword("segredo")
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&models.User{Username: "admin", Email: "admin@example.com", Password: hash, Role: models.RoleAdmin}).Error)

	student := s.client()
	body := student.register("student", models.RoleStudent)
	studentID := body["user"].(map[string]any)["id"]
	pid := student.createPost("post")

	admin := s.client()
	code, _ := admin.do(http.MethodPost, "/login", gin.H{"email": "admin@example.com", "password": "segredo"})
	require.Equal(t, http.StatusOK, code)

	code, _ = student.do(http.MethodPost, fmt.Sprintf("/admin/users/%v/role", studentID), gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = admin.do(http.MethodPost, fmt.Sprintf("/admin/users/%v/role", studentID), gin.H{"role": "professor"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "professor", body["user"].(map[string]any)["role"])

	code, _ = admin.do(http.MethodPost, "/admin/users/abc/role", gin.H{"role": "professor"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = admin.do(http.MethodPost, "/admin/posts/"+pid+"/status", gin.H{"status": "hidden"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = admin.do(http.MethodPost, "/admin/posts/"+pid+"/status", gin.H{"status": "removed"})
	require.Equal(t, http.StatusOK, code)
	code, _ = s.client().do(http.MethodGet, "/posts/"+pid, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.client().do(http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, code)
	board := body["leaderboard"].([]any)
	require.Len(t, board, 1)
	assert.Equal(t, "student", board[0].(map[string]any)["username"])
}

func TestCompanionEndpoints(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	c.register("ana", models.RoleStudent)

	code, body := c.do(http.MethodGet, "/companion/templates", nil)
	require.Equal(t, http.StatusOK, code)
	templates := body["templates"].([]any)
	require.NotEmpty(t, templates)
	stageOne := templates[0].(map[string]any)["id"]

	var stageTwo models.Companion
	require.NoError(t, s.db.Where("stage = ?", 2).First(&stageTwo).Error)

	code, _ = c.do(http.MethodGet, "/companion", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/companion/adopt", gin.H{"companion_id": stageTwo.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = c.do(http.MethodPost, "/companion/adopt", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/companion/adopt", gin.H{"companion_id": stageOne, "nickname": "Pipoca"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = c.do(http.MethodPost, "/companion/adopt", gin.H{"companion_id": stageOne})
	assert.Equal(t, http.StatusConflict, code)

	code, body = c.do(http.MethodGet, "/companion", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["stage"])
	assert.Equal(t, false, body["evolved"])
}

func TestPublicReads(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	body := c.register("ana", models.RoleStudent)
	id := body["user"].(map[string]any)["id"]
	c.createPost("primeiro")

	code, body := s.client().do(http.MethodGet, "/posts?subject=Geral", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 1)

	code, body = s.client().do(http.MethodGet, "/posts?subject=Qu%C3%ADmica", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["posts"])

	code, body = s.client().do(http.MethodGet, fmt.Sprintf("/users/%v", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["post_count"])
	assert.Len(t, body["recent_posts"], 1)

	code, _ = s.client().do(http.MethodGet, "/users/9999", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.client().do(http.MethodGet, "/posts/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/notifications/abc/read", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = c.do(http.MethodDelete, "/notifications/42", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFeed(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	c.register("ana", models.RoleStudent)
	pid := c.createPost("Ácidos & bases")
	code, _ := c.do(http.MethodPost, "/posts", gin.H{"title": "derivadas", "body": "limites", "subject": "Matemática"})
	require.Equal(t, http.StatusCreated, code)

	req := httptest.NewRequest(http.MethodGet, "/feed.xml?subject=Geral", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "BrainShare - Geral", feed.Title)
	require.Len(t, feed.Items, 1)
	item := feed.Items[0]
	assert.Equal(t, "Ácidos & bases", item.Title)
	assert.Equal(t, "https://brainshare.test/posts/"+pid, item.Link)
	assert.Equal(t, "corpo", item.Description)
	assert.Equal(t, []string{"Geral"}, item.Categories)
	require.NotNil(t, item.PublishedParsed)
}

func TestGzipResponses(t *testing.T) {
	s := newTestServer(t)
	s.client().register("ana", models.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body["leaderboard"], 1)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	c := s.client()
	body := c.register("ana", models.RoleStudent)
	id := body["user"].(map[string]any)["id"]
	s.client().register("bia", models.RoleStudent)

	code, _ := s.client().do(http.MethodPost, "/users/me", gin.H{"username": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = c.do(http.MethodPost, "/users/me", gin.H{"username": "ana", "job_title": "Monitora", "about_me": "Química"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Monitora", body["user"].(map[string]any)["job_title"])

	code, _ = c.do(http.MethodPost, "/users/me", gin.H{"username": "bia"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = c.do(http.MethodPost, "/users/me", gin.H{"username": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.client().do(http.MethodGet, fmt.Sprintf("/users/%v", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Química", body["user"].(map[string]any)["about_me"])
}
