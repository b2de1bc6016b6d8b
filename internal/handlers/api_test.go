package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relay-service/internal/middleware"
	"relay-service/internal/mocks"
	"relay-service/internal/relay"
	"relay-service/internal/session"
	"relay-service/internal/store"
	"relay-service/internal/telemetry"
)

type testAPI struct {
	router   *gin.Engine
	identity *store.Identity
	engine   *relay.Engine
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := store.NewIdentity(nil)
	channels := store.NewChannels(nil, nil)
	engine := relay.NewEngine(identity, channels, session.NewRegistry(), nil)

	authHandler := NewAuthHandler(engine, nil)
	profileHandler := NewProfileHandler(engine)
	roomHandler := NewRoomHandler(engine, nil)
	dmHandler := NewDMHandler(engine)
	stateHandler := NewStateHandler(engine, identity)
	uploadHandler, err := NewUploadHandler(t.TempDir())
	require.NoError(t, err)

	r := gin.New()
	authMiddleware := middleware.Auth(identity)

	r.POST("/api/signup", authHandler.Signup)
	r.POST("/api/login", authHandler.Login)
	r.POST("/api/restore", authHandler.Restore)
	r.POST("/api/upload", uploadHandler.Upload)
	r.POST("/api/profile/update", authMiddleware, profileHandler.Update)
	r.POST("/api/rooms/create", authMiddleware, roomHandler.Create)
	r.POST("/api/rooms/invite", authMiddleware, roomHandler.Invite)
	r.POST("/api/dms/open", authMiddleware, dmHandler.Open)
	r.POST("/api/state", authMiddleware, stateHandler.Fetch)

	return &testAPI{router: r, identity: identity, engine: engine}
}

func (a *testAPI) do(t *testing.T, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	resp := map[string]any{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	return rec, resp
}

func (a *testAPI) signup(t *testing.T, email string) string {
	t.Helper()
	rec, resp := a.do(t, "/api/signup", "", gin.H{"email": email, "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupAndDuplicateEmail(t *testing.T) {
	api := setupAPI(t)

	rec, resp := api.do(t, "/api/signup", "", gin.H{"email": "a@x.com", "password": "p1", "displayName": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["ok"])
	profile := resp["profile"].(map[string]any)
	assert.Equal(t, "Alice", profile["displayName"])

	rec, _ = api.do(t, "/api/signup", "", gin.H{"email": "A@X.com", "password": "p2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupMissingFields(t *testing.T) {
	api := setupAPI(t)

	rec, _ := api.do(t, "/api/signup", "", gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRotatesTokenAndInvalidatesPrior(t *testing.T) {
	api := setupAPI(t)
	signupToken := api.signup(t, "a@x.com")

	rec, resp := api.do(t, "/api/login", "", gin.H{"email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	loginToken := resp["token"].(string)
	require.NotEqual(t, signupToken, loginToken)

	rec, _ = api.do(t, "/api/restore", "", gin.H{"token": signupToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(t, "/api/restore", "", gin.H{"token": loginToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := setupAPI(t)
	api.signup(t, "a@x.com")

	rec, _ := api.do(t, "/api/login", "", gin.H{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddlewareRejectsMissingAndForgedTokens(t *testing.T) {
	api := setupAPI(t)

	rec, _ := api.do(t, "/api/rooms/create", "", gin.H{"name": "general"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(t, "/api/rooms/create", "forged", gin.H{"name": "general"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoomCreateAndInviteFlow(t *testing.T) {
	api := setupAPI(t)
	ownerToken := api.signup(t, "owner@x.com")
	api.signup(t, "member@x.com")
	strangerToken := api.signup(t, "stranger@x.com")

	rec, resp := api.do(t, "/api/rooms/create", ownerToken, gin.H{"name": "secret", "isPrivate": true})
	require.Equal(t, http.StatusOK, rec.Code)
	room := resp["room"].(map[string]any)
	roomID := room["id"].(string)

	// A stranger cannot invite into a private room, and gets the same
	// answer whether or not the target email is registered.
	rec, _ = api.do(t, "/api/rooms/invite", strangerToken, gin.H{"roomId": roomID, "email": "member@x.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = api.do(t, "/api/rooms/invite", strangerToken, gin.H{"roomId": roomID, "email": "nobody@x.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, "/api/rooms/invite", ownerToken, gin.H{"roomId": roomID, "email": "member@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Idempotent: the second invite is not an error.
	rec, _ = api.do(t, "/api/rooms/invite", ownerToken, gin.H{"roomId": roomID, "email": "member@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.do(t, "/api/rooms/invite", ownerToken, gin.H{"roomId": roomID, "email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = api.do(t, "/api/rooms/invite", ownerToken, gin.H{"roomId": "missing", "email": "member@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDMOpenIdempotentAcrossDirections(t *testing.T) {
	api := setupAPI(t)
	aliceToken := api.signup(t, "alice@x.com")
	bobToken := api.signup(t, "bob@x.com")

	rec, resp := api.do(t, "/api/dms/open", aliceToken, gin.H{"otherEmail": "bob@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	id1 := resp["thread"].(map[string]any)["id"].(string)

	rec, resp = api.do(t, "/api/dms/open", bobToken, gin.H{"otherEmail": "alice@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	id2 := resp["thread"].(map[string]any)["id"].(string)
	assert.Equal(t, id1, id2)

	rec, _ = api.do(t, "/api/dms/open", aliceToken, gin.H{"otherEmail": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateFetchIsScoped(t *testing.T) {
	api := setupAPI(t)
	ownerToken := api.signup(t, "owner@x.com")
	strangerToken := api.signup(t, "stranger@x.com")

	rec, _ := api.do(t, "/api/rooms/create", ownerToken, gin.H{"name": "secret", "isPrivate": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = api.do(t, "/api/rooms/create", ownerToken, gin.H{"name": "general", "isPrivate": false})
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp := api.do(t, "/api/state", strangerToken, gin.H{})
	rooms := resp["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].(map[string]any)["name"])
	assert.Len(t, resp["users"].([]any), 2, "user directory carries every public profile")

	_, resp = api.do(t, "/api/state", ownerToken, gin.H{})
	assert.Len(t, resp["rooms"].([]any), 2)
}

func TestProfileUpdatePartial(t *testing.T) {
	api := setupAPI(t)
	token := api.signup(t, "alice@x.com")

	rec, resp := api.do(t, "/api/profile/update", token, gin.H{"displayName": "Alicia"})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := resp["profile"].(map[string]any)
	assert.Equal(t, "Alicia", profile["displayName"])
	assert.Equal(t, store.DefaultColor, profile["color"])
}

func TestUploadStoresFileAndReturnsURL(t *testing.T) {
	api := setupAPI(t)
	data := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	rec, resp := api.do(t, "/api/upload", "", gin.H{"filename": "pic one.png", "dataBase64": fmt.Sprintf("data:image/png;base64,%s", data)})
	require.Equal(t, http.StatusOK, rec.Code)
	url := resp["url"].(string)
	assert.Contains(t, url, "/uploads/")
	assert.NotContains(t, url, " ")
}

func TestUploadRejectsMissingPayload(t *testing.T) {
	api := setupAPI(t)

	rec, _ := api.do(t, "/api/upload", "", gin.H{"filename": "x.png"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupEmitsAuditEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.relay", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(telemetry.AuditEnvelope)
		return ok && envelope.EventType == "audit_log" && envelope.Payload.Level == "INFO"
	})).Return(nil)

	identity := store.NewIdentity(nil)
	engine := relay.NewEngine(identity, store.NewChannels(nil, nil), session.NewRegistry(), nil)
	audit := telemetry.NewAuditEmitter(publisher, "audit.relay", "relay-service", "test")
	authHandler := NewAuthHandler(engine, audit)

	r := gin.New()
	r.POST("/api/signup", authHandler.Signup)

	body, _ := json.Marshal(gin.H{"email": "a@x.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	publisher.AssertExpectations(t)
}
