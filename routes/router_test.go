package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type pageBody struct {
	Items []struct {
		ID     uint   `json:"id"`
		Text   string `json:"text"`
		Author string `json:"author"`
	} `json:"items"`
	Pagination utils.PaginationMeta `json:"pagination"`
}

func (p pageBody) texts() []string {
	out := make([]string, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Text
	}
	return out
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	cache  *utils.ResponseCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		DBDriver:           "sqlite",
		AdminUsernames:     []string{"admin"},
		RateLimitPerMinute: 10000,
		PostsPerPage:       10,
		IndexCacheSeconds:  20,
	})

	db, err := config.OpenDatabase("sqlite", "file::memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))

	cache := utils.NewResponseCache(utils.NewMemoryCacheBackend(), "cache:")
	t.Cleanup(func() {
		_ = cache.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	engine := SetupRouter(Dependencies{
		DB:        db,
		Cache:     cache,
		Tokens:    utils.NewTokenManager("test-secret", time.Hour),
		Blacklist: utils.NewTokenBlacklist(nil),
		Guard:     utils.NewLoginGuard(nil, 3, time.Minute),
		Events:    utils.NopPublisher{},
	})
	return &testServer{t: t, engine: engine, cache: cache}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) register(username string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": username, "password": "password123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

func (s *testServer) post(token, text string) uint {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/posts", token, gin.H{"text": text})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Post.ID
}

func (s *testServer) page(path, token string) pageBody {
	s.t.Helper()
	w, env := s.do(http.MethodGet, path, token, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var body pageBody
	require.NoError(s.t, json.Unmarshal(env.Data, &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("leo")

	w, env := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"username":"leo"`)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "leo", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "leo", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.register("leo")

	for i := 0; i < 3; i++ {
		w, _ := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "leo", "password": "wrong-password"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "leo", "password": "password123"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 42902, env.Code)
}

func TestWritesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, "/api/v1/posts", "", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, env.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/follow", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)
	author := s.register("author")
	other := s.register("other")
	id := s.post(author, "<b>hello</b>")

	w, env := s.do(http.MethodGet, "/api/v1/posts/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"text":"hello"`)
	assert.Contains(t, string(env.Data), `"author":"author"`)
	assert.Contains(t, string(env.Data), `"pub_date"`)

	w, _ = s.do(http.MethodPut, "/api/v1/posts/"+itoa(id), other, gin.H{"text": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/posts/"+itoa(id), author, gin.H{"text": "edited"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/posts/"+itoa(id)+"/comments", other, gin.H{"text": "nice"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, env = s.do(http.MethodGet, "/api/v1/posts/"+itoa(id)+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"text":"nice"`)

	w, _ = s.do(http.MethodDelete, "/api/v1/posts/"+itoa(id), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/v1/posts/"+itoa(id), author, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(http.MethodGet, "/api/v1/posts/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexIsCachedUntilInvalidated(t *testing.T) {
	s := newTestServer(t)
	author := s.register("author")
	admin := s.register("admin")
	id := s.post(author, "first")

	assert.Equal(t, []string{"first"}, s.page("/api/v1/posts", "").texts())

	w, _ := s.do(http.MethodDelete, "/api/v1/posts/"+itoa(id), author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s.post(author, "second")

	assert.Equal(t, []string{"first"}, s.page("/api/v1/posts", author).texts(), "every viewer gets the cached page")

	w, _ = s.do(http.MethodDelete, "/api/v1/admin/cache/index", author, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/v1/admin/cache/index", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"second"}, s.page("/api/v1/posts", "").texts())
}

func TestIndexPagination(t *testing.T) {
	s := newTestServer(t)
	author := s.register("author")
	for i := 0; i < 13; i++ {
		s.post(author, "p")
	}

	first := s.page("/api/v1/posts", "")
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 2, first.Pagination.TotalPages)
	assert.True(t, first.Pagination.HasNext)

	last := s.page("/api/v1/posts?page=99", "")
	assert.Len(t, last.Items, 3)
	assert.Equal(t, 2, last.Pagination.Page)

	bad := s.page("/api/v1/posts?page=abc", "")
	assert.Equal(t, 1, bad.Pagination.Page)
}

func TestFollowAndFeed(t *testing.T) {
	s := newTestServer(t)
	reader := s.register("reader")
	writer := s.register("writer")
	s.post(writer, "w1")
	s.post(writer, "w2")

	w, env := s.do(http.MethodPost, "/api/v1/profile/reader/follow", reader, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-follow")
	assert.Equal(t, 40001, env.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/profile/ghost/follow", reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for i := 0; i < 2; i++ {
		w, _ = s.do(http.MethodPost, "/api/v1/profile/writer/follow", reader, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	feed := s.page("/api/v1/follow", reader)
	assert.Equal(t, []string{"w2", "w1"}, feed.texts())
	assert.Empty(t, s.page("/api/v1/follow", writer).Items)

	w, env = s.do(http.MethodGet, "/api/v1/profile/writer", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"following":true`)
	assert.Contains(t, string(env.Data), `"followers_count":1`)

	w, env = s.do(http.MethodGet, "/api/v1/profile/writer", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"following":false`)

	w, _ = s.do(http.MethodDelete, "/api/v1/profile/writer/follow", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/v1/profile/writer/follow", reader, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, s.page("/api/v1/follow", reader).Items)
}

func TestGroupsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	user := s.register("user")
	admin := s.register("admin")
	body := gin.H{"title": "Cats", "slug": "cats"}

	w, _ := s.do(http.MethodPost, "/api/v1/groups", user, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env := s.do(http.MethodPost, "/api/v1/groups", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Group models.Group `json:"group"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, _ = s.do(http.MethodPost, "/api/v1/posts", user, gin.H{"text": "meow", "group": created.Group.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	s.post(user, "elsewhere")

	assert.Equal(t, []string{"meow"}, s.page("/api/v1/groups/cats", "").texts())

	w, _ = s.do(http.MethodDelete, "/api/v1/groups/cats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/groups/cats", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsCountsPageViews(t *testing.T) {
	s := newTestServer(t)
	token := s.register("leo")
	s.post(token, "hello")
	s.page("/api/v1/profile/leo", "")
	s.page("/api/v1/profile/leo", "")

	w, env := s.do(http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats["user_count"])
	assert.Equal(t, int64(1), stats["post_count"])
	assert.Equal(t, int64(2), stats["today_views"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
