package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitlife/fitlife/config"
	"github.com/fitlife/fitlife/internal/testdb"
	"github.com/fitlife/fitlife/models"
	"github.com/fitlife/fitlife/storage"
	"github.com/fitlife/fitlife/utils"
)

var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	config.Set(config.AppConfig{
		JWTSecret:          "router-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		RateLimitPerMinute: 6000,
		DBDriver:           "sqlite",
		StorageRoot:        filepath.Join(dir, "storage"),
		UploadMaxMB:        1,
	})
	utils.SetRedis(nil)
	cfg := config.Get()
	db := testdb.Open(t)
	store := storage.NewLocalStore(cfg.StorageRoot, cfg.StoragePublicBase, nil)
	return &testEnv{t: t, db: db, router: SetupRouter(db, store)}
}

func (e *testEnv) useRedis() *miniredis.Miniredis {
	mr := miniredis.RunT(e.t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(rc)
	e.t.Cleanup(func() {
		utils.SetRedis(nil)
		_ = rc.Close()
	})
	return mr
}

func (e *testEnv) send(req *http.Request, token string) (int, apiResponse) {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (e *testEnv) call(method, path, token string, body interface{}) (int, apiResponse) {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

type authData struct {
	Token   string         `json:"token"`
	Account models.Account `json:"account"`
	Profile models.Profile `json:"profile"`
}

func (e *testEnv) register(email, username string) authData {
	e.t.Helper()
	status, resp := e.call(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "secret-pass", "username": username,
	})
	require.Equal(e.t, http.StatusOK, status, resp.Message)
	return decode[authData](e.t, resp)
}

type author struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Initial     string `json:"initial"`
}

type card struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	Author        author `json:"author"`
	LikesCount    int64  `json:"likes_count"`
	CommentsCount int64  `json:"comments_count"`
}

type notice struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
}

func (e *testEnv) createPost(token, title, category string) card {
	e.t.Helper()
	status, resp := e.call(http.MethodPost, "/api/v1/posts", token, gin.H{
		"title": title, "content": "All about " + title, "category": category,
	})
	require.Equal(e.t, http.StatusCreated, status, resp.Message)
	return decode[struct {
		Post card `json:"post"`
	}](e.t, resp).Post
}

func TestHealthAndNoRoute(t *testing.T) {
	e := newEnv(t)
	status, _ := e.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp := e.call(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, resp.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	e := newEnv(t)
	alice := e.register("Alice@Example.com", "alice")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice@example.com", alice.Account.Email)
	require.NotNil(t, alice.Profile.Username)
	assert.Equal(t, "alice", *alice.Profile.Username)

	status, resp := e.call(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "alice@example.com", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40901, resp.Code)

	status, _ = e.call(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "short@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = e.call(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40106, resp.Code)

	status, resp = e.call(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ALICE@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, status)
	token := decode[authData](t, resp).Token

	status, resp = e.call(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice.Account.ID, decode[authData](t, resp).Account.ID)

	status, _ = e.call(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, resp = e.call(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, resp.Code)
}

func TestCaptchaAndOAuthRedirect(t *testing.T) {
	e := newEnv(t)
	status, resp := e.call(http.MethodGet, "/api/v1/auth/captcha", "", nil)
	require.Equal(t, http.StatusOK, status)
	c := decode[map[string]string](t, resp)
	assert.NotEmpty(t, c["captcha_id"])
	assert.Contains(t, c["image"], "data:image/png;base64,")

	status, _ = e.call(http.MethodGet, "/api/v1/auth/oauth/myspace/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.call(http.MethodGet, "/api/v1/auth/oauth/github/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status, "not configured")

	cfg := config.Get()
	cfg.GitHubClientID, cfg.GitHubClientSecret = "client", "secret"
	config.Set(cfg)
	status, resp = e.call(http.MethodGet, "/api/v1/auth/oauth/github/login", "", nil)
	require.Equal(t, http.StatusOK, status)
	redirect := decode[map[string]string](t, resp)
	assert.Contains(t, redirect["authorization_url"], "github.com/login/oauth/authorize")
	assert.Contains(t, redirect["authorization_url"], "state="+redirect["state"])

	status, resp = e.call(http.MethodGet, "/api/v1/auth/oauth/github/callback?code=abc&state=forged", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40006, resp.Code)
}

func TestPostLifecycle(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice@example.com", "alice")
	bob := e.register("bob@example.com", "bob")

	status, resp := e.call(http.MethodPost, "/api/v1/posts", "", gin.H{"title": "x", "content": "y", "category": "fitness"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, resp.Code)

	status, _ = e.call(http.MethodPost, "/api/v1/posts", alice.Token, gin.H{"title": "x", "content": "y", "category": "cardio"})
	assert.Equal(t, http.StatusBadRequest, status)

	legs := e.createPost(alice.Token, "Leg day", "fitness")
	e.createPost(alice.Token, "Apple pie", "nutrition")
	e.createPost(bob.Token, "Bench", "fitness")

	type list struct {
		Items []card `json:"items"`
		Count int    `json:"count"`
	}
	status, resp = e.call(http.MethodGet, "/api/v1/posts?category=fitness&sort=title", "", nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[list](t, resp)
	require.Equal(t, 2, feed.Count)
	assert.Equal(t, "Bench", feed.Items[0].Title)
	assert.Equal(t, "bob", feed.Items[0].Author.DisplayName)
	assert.Equal(t, "B", feed.Items[0].Author.Initial)

	status, resp = e.call(http.MethodGet, "/api/v1/posts?search=PIE", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[list](t, resp).Count)

	status, _ = e.call(http.MethodGet, "/api/v1/posts?sort=random", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = e.call(http.MethodGet, "/api/v1/posts/"+legs.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Leg day", decode[struct {
		Post card `json:"post"`
	}](t, resp).Post.Title)

	// only the author may edit
	status, _ = e.call(http.MethodGet, "/api/v1/posts/"+legs.ID+"/edit", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.call(http.MethodPut, "/api/v1/posts/"+legs.ID, bob.Token, gin.H{"title": "Hacked", "content": "x", "category": "other"})
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = e.call(http.MethodPut, "/api/v1/posts/"+legs.ID, alice.Token, gin.H{"title": "Leg day 2", "content": "More squats", "category": "fitness"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Leg day 2", decode[struct {
		Post card `json:"post"`
	}](t, resp).Post.Title)

	// delete needs confirmation and ownership
	status, resp = e.call(http.MethodDelete, "/api/v1/posts/"+legs.ID, alice.Token, nil)
	assert.Equal(t, http.StatusPreconditionRequired, status)
	assert.Equal(t, 42810, resp.Code)

	status, _ = e.call(http.MethodDelete, "/api/v1/posts/"+legs.ID+"?confirm=true", bob.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = e.call(http.MethodGet, "/api/v1/posts/"+legs.ID, "", nil)
	assert.Equal(t, http.StatusOK, status, "someone else's delete is a no-op")

	status, _ = e.call(http.MethodDelete, "/api/v1/posts/"+legs.ID+"?confirm=true", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	status, resp = e.call(http.MethodGet, "/api/v1/posts/"+legs.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, resp.Code)
}

func TestLikesAndComments(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice@example.com", "alice")
	bob := e.register("bob@example.com", "bob")
	post := e.createPost(alice.Token, "Smoothie", "nutrition")
	base := "/api/v1/posts/" + post.ID

	type likes struct {
		Likes struct {
			Count   int64 `json:"count"`
			IsLiked bool  `json:"is_liked"`
		} `json:"likes"`
		Notices []notice `json:"notices"`
	}

	status, resp := e.call(http.MethodPost, base+"/likes/toggle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	anon := decode[likes](t, resp)
	require.Len(t, anon.Notices, 1)
	assert.Equal(t, "Sign in required", anon.Notices[0].Title)

	status, resp = e.call(http.MethodPost, base+"/likes/toggle", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	l := decode[likes](t, resp)
	assert.EqualValues(t, 1, l.Likes.Count)
	assert.True(t, l.Likes.IsLiked)

	status, resp = e.call(http.MethodGet, base+"/likes", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	l = decode[likes](t, resp)
	assert.EqualValues(t, 1, l.Likes.Count)
	assert.False(t, l.Likes.IsLiked)

	type thread struct {
		Items []struct {
			Content string `json:"content"`
			Author  author `json:"author"`
		} `json:"items"`
		Count   int      `json:"count"`
		Notices []notice `json:"notices"`
	}
	status, resp = e.call(http.MethodPost, base+"/comments", bob.Token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40020, resp.Code)

	status, resp = e.call(http.MethodPost, base+"/comments", bob.Token, gin.H{"content": "Looks <b>great</b> & 3 < 5"})
	require.Equal(t, http.StatusCreated, status)
	th := decode[thread](t, resp)
	require.Equal(t, 1, th.Count)
	assert.Equal(t, "Looks great & 3 < 5", th.Items[0].Content)
	assert.Equal(t, "bob", th.Items[0].Author.DisplayName)
	require.Len(t, th.Notices, 1)
	assert.Equal(t, "info", th.Notices[0].Severity)

	status, resp = e.call(http.MethodGet, base+"/comments", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[thread](t, resp).Count)

	// bob's dashboard lists the liked post, alice's lists her own
	type dash struct {
		Dashboard struct {
			MyPosts    []card `json:"my_posts"`
			LikedPosts []card `json:"liked_posts"`
			SavedPosts []card `json:"saved_posts"`
		} `json:"dashboard"`
	}
	status, resp = e.call(http.MethodGet, "/api/v1/dashboard", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	d := decode[dash](t, resp)
	assert.Empty(t, d.Dashboard.MyPosts)
	require.Len(t, d.Dashboard.LikedPosts, 1)
	assert.Equal(t, post.ID, d.Dashboard.LikedPosts[0].ID)
	assert.NotNil(t, d.Dashboard.SavedPosts)

	status, resp = e.call(http.MethodGet, "/api/v1/dashboard", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dash](t, resp).Dashboard.MyPosts, 1)

	status, _ = e.call(http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// unlike
	status, resp = e.call(http.MethodPost, base+"/likes/toggle", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, decode[likes](t, resp).Likes.Count)
}

func TestLikesAndCommentsOnMissingPost(t *testing.T) {
	e := newEnv(t)
	bob := e.register("bob@example.com", "bob")
	base := "/api/v1/posts/does-not-exist"

	status, resp := e.call(http.MethodPost, base+"/likes/toggle", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, resp.Code)

	status, resp = e.call(http.MethodPost, base+"/comments", bob.Token, gin.H{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, resp.Code)

	var likes, comments int64
	require.NoError(t, e.db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, e.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)
}

func TestProfiles(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice@example.com", "alice")

	status, resp := e.call(http.MethodPatch, "/api/v1/profile", alice.Token, gin.H{
		"full_name": "Alice <i>Runner</i>", "bio": "Marathons",
	})
	require.Equal(t, http.StatusOK, status, resp.Message)
	p := decode[struct {
		Profile models.Profile `json:"profile"`
	}](t, resp).Profile
	require.NotNil(t, p.FullName)
	assert.Equal(t, "Alice Runner", *p.FullName)
	assert.Equal(t, "alice", *p.Username)

	status, resp = e.call(http.MethodGet, "/api/v1/profiles/"+alice.Account.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	pub := decode[struct {
		Profile author `json:"profile"`
	}](t, resp).Profile
	assert.Equal(t, "Alice Runner", pub.DisplayName)
	assert.Equal(t, "A", pub.Initial)

	status, resp = e.call(http.MethodGet, "/api/v1/profiles/nobody", "", nil)
	require.Equal(t, http.StatusOK, status)
	ghost := decode[struct {
		Profile author `json:"profile"`
	}](t, resp).Profile
	assert.Equal(t, "Anonymous", ghost.DisplayName)
	assert.Equal(t, "U", ghost.Initial)

	status, _ = e.call(http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPostDetailCache(t *testing.T) {
	e := newEnv(t)
	mr := e.useRedis()
	alice := e.register("alice@example.com", "alice")
	post := e.createPost(alice.Token, "Cached", "lifestyle")

	status, _ := e.call(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, mr.Exists(utils.CacheKeyPost+post.ID))

	// a direct write is hidden by the cache until an API update invalidates it
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("title", "Changed").Error)
	_, resp := e.call(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
	assert.Equal(t, "Cached", decode[struct {
		Post card `json:"post"`
	}](t, resp).Post.Title)

	status, _ = e.call(http.MethodPut, "/api/v1/posts/"+post.ID, alice.Token, gin.H{"title": "Fresh", "content": "c", "category": "lifestyle"})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, mr.Exists(utils.CacheKeyPost+post.ID))

	_, resp = e.call(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
	assert.Equal(t, "Fresh", decode[struct {
		Post card `json:"post"`
	}](t, resp).Post.Title)

	// profile edits drop cached posts since they embed the author
	status, _ = e.call(http.MethodPatch, "/api/v1/profile", alice.Token, gin.H{"full_name": "Alice R"})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, mr.Exists(utils.CacheKeyPost+post.ID))
}

func (e *testEnv) upload(bucket, token, filename string, content []byte) (int, apiResponse) {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = fw.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload/"+bucket, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, token)
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice@example.com", "alice")

	status, resp := e.upload(storage.BucketPostImages, alice.Token, "pixel.png", pngPixel)
	require.Equal(t, http.StatusCreated, status, resp.Message)
	out := decode[map[string]string](t, resp)
	assert.Contains(t, out["url"], "/static/storage/post-images/"+alice.Account.ID+"/")
	assert.Equal(t, ".png", filepath.Ext(out["path"]))

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, out["url"], nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngPixel, w.Body.Bytes())

	status, resp = e.upload(storage.BucketAvatars, alice.Token, "notes.png", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
	assert.Equal(t, 41501, resp.Code)

	status, _ = e.upload("documents", alice.Token, "pixel.png", pngPixel)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.upload(storage.BucketAvatars, "", "pixel.png", pngPixel)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp = e.upload(storage.BucketAvatars, alice.Token, "big.png", append(append([]byte{}, pngPixel...), make([]byte, 1<<20)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, 41301, resp.Code)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice@example.com", "alice")
	post := e.createPost(alice.Token, "Counted", "other")
	for i := 0; i < 3; i++ {
		status, _ := e.call(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := e.call(http.MethodPost, "/api/v1/posts/"+post.ID+"/likes/toggle", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := e.call(http.MethodGet, "/api/v1/posts/"+post.ID+"/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	ps := decode[map[string]int64](t, resp)
	assert.EqualValues(t, 3, ps["page_views"])
	assert.EqualValues(t, 1, ps["likes_count"])
	assert.EqualValues(t, 0, ps["comments_count"])

	status, resp = e.call(http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	s := decode[map[string]int64](t, resp)
	assert.EqualValues(t, 1, s["post_count"])
	assert.EqualValues(t, 1, s["profile_count"])
	assert.EqualValues(t, 3, s["page_views_today"])
}
