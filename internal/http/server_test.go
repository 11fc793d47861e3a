package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"castenobar/internal/account"
	"castenobar/internal/config"
	"castenobar/internal/credential"
	"castenobar/internal/models"
	"castenobar/internal/storage"
	"castenobar/internal/store"
)

// memoryBackend stands in for postgres in handler tests.
type memoryBackend struct {
	mu         sync.Mutex
	identities map[string]*models.Identity
	profiles   []*models.Profile
	settings   map[string]models.Settings
	nextID     uint
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		identities: make(map[string]*models.Identity),
		settings:   make(map[string]models.Settings),
	}
}

func (m *memoryBackend) CreateIdentity(_ context.Context, identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.LoginID == identity.LoginID {
			return store.ErrConflict
		}
	}
	cp := *identity
	m.identities[identity.ID] = &cp
	return nil
}

func (m *memoryBackend) IdentityByLoginID(_ context.Context, loginID string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.LoginID == loginID {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryBackend) IdentityByID(_ context.Context, id string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[id]; ok {
		cp := *existing
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memoryBackend) InsertProfile(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.UserID == p.UserID || existing.WhatsAppNumber == p.WhatsAppNumber {
			return store.ErrConflict
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.profiles = append(m.profiles, &cp)
	return nil
}

func (m *memoryBackend) UpdateProfile(_ context.Context, ownerID string, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.UserID == ownerID {
			next := *p
			next.ID = existing.ID
			next.UserID = existing.UserID
			next.WhatsAppNumber = existing.WhatsAppNumber
			next.IsAdmin = existing.IsAdmin
			*existing = next
			cp := next
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryBackend) ProfileByOwner(_ context.Context, ownerID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.UserID == ownerID {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryBackend) ProfileExists(_ context.Context, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.WhatsAppNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBackend) ListExcept(_ context.Context, ownerID string) ([]store.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Listing
	for _, p := range m.profiles {
		if p.UserID == ownerID {
			continue
		}
		st, ok := m.settings[p.UserID]
		if !ok {
			st = models.DefaultSettings(p.UserID)
		}
		if !st.ProfileVisibility {
			continue
		}
		out = append(out, store.Listing{Profile: *p, Settings: st})
	}
	return out, nil
}

func (m *memoryBackend) AllProfiles(_ context.Context) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memoryBackend) SettingsByOwner(_ context.Context, ownerID string) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.settings[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &st, nil
}

func (m *memoryBackend) UpsertSettings(_ context.Context, st *models.Settings) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[st.UserID] = *st
	cp := *st
	return &cp, nil
}

type testServer struct {
	engine  *gin.Engine
	backend *memoryBackend
	cfg     *config.Config
}

func newTestServer(t *testing.T, limiter RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AllowOrigins:  "*",
		UploadDir:     t.TempDir(),
		PublicBaseURL: "http://cnb.test",
		ReqTimeoutSec: 5,
		MaxUploadMB:   1,
		AdminLoginID:  "46733115830@cnb.app",
	}
	backend := newMemoryBackend()
	accounts := account.New(backend, account.NewMemoryRevocations(), account.NewHub(), zap.NewNop(), "test-secret", time.Hour)
	disk, err := storage.NewDisk(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadMB*1024*1024)
	require.NoError(t, err)

	engine := NewServer(cfg, Deps{
		Accounts: accounts,
		Tables:   backend,
		Blobs:    disk,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
	})
	return &testServer{engine: engine, backend: backend, cfg: cfg}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

// signUp creates an identity and its stub profile the way the client does.
func (ts *testServer) signUp(t *testing.T, phone, pin string) *models.Session {
	t.Helper()
	cred := credential.ToCredential(phone, pin)
	w := ts.do(t, "POST", "/v1/auth/signup", "", gin.H{"login_id": cred.LoginID, "secret": cred.Secret})
	require.Equal(t, 201, w.Code, w.Body.String())
	var sess models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))

	w = ts.do(t, "POST", "/v1/profiles", sess.AccessToken, gin.H{"whatsapp_number": phone, "name": ""})
	require.Equal(t, 201, w.Code, w.Body.String())
	return &sess
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func completeProfile(phone string) gin.H {
	return gin.H{
		"name":                   "Asha",
		"age":                    29,
		"profession":             "Engineer",
		"gender":                 "Female",
		"city":                   "Chennai",
		"marriage_timeframe":     "6-12 months",
		"about_me":               "Hello",
		"whatsapp_number":        phone,
		"email":                  "asha@example.com",
		"consent_no_dowry":       true,
		"consent_medical_report": true,
		"consent_any_caste":      true,
		"consent_any_religion":   true,
		"consent_share_contact":  true,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, "GET", "/health", "", nil)
	assert.Equal(t, 200, w.Code)
}

func TestSignupAndToken(t *testing.T) {
	ts := newTestServer(t, nil)
	cred := credential.ToCredential("+91 98765 43210", "1234")

	w := ts.do(t, "POST", "/v1/auth/signup", "", gin.H{"login_id": cred.LoginID, "secret": cred.Secret})
	require.Equal(t, 201, w.Code)

	w = ts.do(t, "POST", "/v1/auth/signup", "", gin.H{"login_id": cred.LoginID, "secret": cred.Secret})
	assert.Equal(t, 409, w.Code)
	assert.Equal(t, "account_exists", decodeError(t, w))

	w = ts.do(t, "POST", "/v1/auth/token", "", gin.H{"login_id": cred.LoginID, "secret": "wrong"})
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, w))

	w = ts.do(t, "POST", "/v1/auth/token", "", gin.H{"login_id": cred.LoginID, "secret": cred.Secret})
	require.Equal(t, 200, w.Code)
	var sess models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, cred.LoginID, sess.Identity.LoginID)

	w = ts.do(t, "GET", "/v1/auth/session", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)

	w = ts.do(t, "POST", "/v1/auth/token", "", gin.H{"login_id": cred.LoginID})
	assert.Equal(t, 400, w.Code)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, "GET", "/v1/profiles", "", nil)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "authorization_header_missing", decodeError(t, w))

	w = ts.do(t, "GET", "/v1/profiles", "garbage", nil)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "invalid_session", decodeError(t, w))
}

func TestSignOutInvalidatesToken(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "POST", "/v1/auth/signout", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)

	w = ts.do(t, "GET", "/v1/auth/session", sess.AccessToken, nil)
	assert.Equal(t, 401, w.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "POST", "/v1/auth/refresh", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var next models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	assert.NotEqual(t, sess.AccessToken, next.AccessToken)

	assert.Equal(t, 401, ts.do(t, "GET", "/v1/auth/session", sess.AccessToken, nil).Code)
	assert.Equal(t, 200, ts.do(t, "GET", "/v1/auth/session", next.AccessToken, nil).Code)
}

func TestProfileExists(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "GET", "/v1/profiles/exists?whatsapp_number=%2B919876543210", "", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"exists":true}`, w.Body.String())

	w = ts.do(t, "GET", "/v1/profiles/exists?whatsapp_number=%2B910000000000", "", nil)
	assert.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = ts.do(t, "GET", "/v1/profiles/exists", "", nil)
	assert.Equal(t, 400, w.Code)
}

func TestCreateProfileRules(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "POST", "/v1/profiles", sess.AccessToken, gin.H{"whatsapp_number": "+919876543210"})
	assert.Equal(t, 409, w.Code)

	w = ts.do(t, "POST", "/v1/profiles", sess.AccessToken, gin.H{"whatsapp_number": "+911111111111"})
	assert.Equal(t, 403, w.Code)

	p, err := ts.backend.ProfileByOwner(context.Background(), sess.Identity.ID)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin)
	assert.False(t, p.IsComplete())
}

func TestUpdateOwnProfile(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	bad := completeProfile("+919876543210")
	bad["gender"] = "Unknown"
	bad["about_me"] = strings.Repeat("a", 501)
	w := ts.do(t, "PUT", "/v1/profiles/me", sess.AccessToken, bad)
	require.Equal(t, 422, w.Code)
	assert.Equal(t, "schema_invalid", decodeError(t, w))

	w = ts.do(t, "PUT", "/v1/profiles/me", sess.AccessToken, completeProfile("+919876543210"))
	require.Equal(t, 200, w.Code, w.Body.String())

	w = ts.do(t, "GET", "/v1/profiles/me", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.True(t, p.IsComplete())
	assert.Equal(t, sess.Identity.ID, p.UserID)
	require.NotNil(t, p.Age)
	assert.Equal(t, 29, *p.Age)
}

func TestUpdateOwnProfileKeepsNumber(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "PUT", "/v1/profiles/me", sess.AccessToken, completeProfile("+919111111111"))
	require.Equal(t, 422, w.Code)
	assert.Equal(t, "whatsapp_number_immutable", decodeError(t, w))

	w = ts.do(t, "PUT", "/v1/profiles/me", sess.AccessToken, completeProfile("+91 98765 43210"))
	require.Equal(t, 200, w.Code, w.Body.String())

	w = ts.do(t, "GET", "/v1/profiles/me", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "+919876543210", p.WhatsAppNumber)
	assert.Equal(t, "Asha", p.Name)
}

func TestListProfilesMasksAndHides(t *testing.T) {
	ts := newTestServer(t, nil)
	viewer := ts.signUp(t, "+919000000001", "1111")
	shown := ts.signUp(t, "+919000000002", "2222")
	hidden := ts.signUp(t, "+919000000003", "3333")

	require.Equal(t, 200, ts.do(t, "PUT", "/v1/profiles/me", shown.AccessToken, completeProfile("+919000000002")).Code)

	w := ts.do(t, "PUT", "/v1/settings", shown.AccessToken, gin.H{
		"profile_visibility":     true,
		"show_whatsapp_publicly": false,
		"show_email_publicly":    false,
	})
	require.Equal(t, 200, w.Code)
	w = ts.do(t, "PUT", "/v1/settings", hidden.AccessToken, gin.H{"profile_visibility": false})
	require.Equal(t, 200, w.Code)

	w = ts.do(t, "GET", "/v1/profiles", viewer.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var got []models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, shown.Identity.ID, got[0].UserID)
	assert.Empty(t, got[0].WhatsAppNumber)
	assert.Empty(t, got[0].Email)
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")

	w := ts.do(t, "GET", "/v1/settings", sess.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var st models.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, models.DefaultSettings(sess.Identity.ID).ShowWhatsAppPublicly, st.ShowWhatsAppPublicly)
	assert.Equal(t, "system", st.ThemePreference)

	w = ts.do(t, "PUT", "/v1/settings", sess.AccessToken, gin.H{"user_id": "someone-else", "theme_preference": "dark"})
	require.Equal(t, 200, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, sess.Identity.ID, st.UserID)
	assert.Equal(t, "dark", st.ThemePreference)
	assert.Equal(t, "en", st.LanguagePreference)
	assert.False(t, st.EmailNotifications)
}

func TestUploadPhoto(t *testing.T) {
	ts := newTestServer(t, nil)
	sess := ts.signUp(t, "+919876543210", "1234")
	owner := sess.Identity.ID

	w := ts.do(t, "PUT", "/v1/storage/photos/someone-else/profile.jpg?overwrite=true", sess.AccessToken, []byte("img"))
	assert.Equal(t, 403, w.Code)

	w = ts.do(t, "PUT", "/v1/storage/photos/"+owner+"/profile.jpg?overwrite=true", sess.AccessToken, []byte("img"))
	require.Equal(t, 200, w.Code, w.Body.String())
	var res struct {
		Path string `json:"path"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, owner+"/profile.jpg", res.Path)
	assert.Equal(t, "http://cnb.test/uploads/"+owner+"/profile.jpg", res.URL)

	w = ts.do(t, "PUT", "/v1/storage/photos/"+owner+"/profile.jpg", sess.AccessToken, []byte("img"))
	assert.Equal(t, 409, w.Code)

	w = ts.do(t, "GET", "/uploads/"+owner+"/profile.jpg", "", nil)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "img", w.Body.String())

	big := bytes.Repeat([]byte("x"), 1024*1024+1)
	w = ts.do(t, "PUT", "/v1/storage/photos/"+owner+"/profile.png?overwrite=true", sess.AccessToken, big)
	assert.Equal(t, 413, w.Code)
}

func TestAdminOverview(t *testing.T) {
	ts := newTestServer(t, nil)
	member := ts.signUp(t, "+919876543210", "1234")
	require.Equal(t, 200, ts.do(t, "PUT", "/v1/profiles/me", member.AccessToken, completeProfile("+919876543210")).Code)

	w := ts.do(t, "GET", "/v1/admin/overview", member.AccessToken, nil)
	assert.Equal(t, 403, w.Code)

	admin := ts.signUp(t, "+46733115830", "0000")
	p, err := ts.backend.ProfileByOwner(context.Background(), admin.Identity.ID)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	w = ts.do(t, "GET", "/v1/admin/overview", admin.AccessToken, nil)
	require.Equal(t, 200, w.Code)
	var o Overview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, 2, o.TotalProfiles)
	assert.Equal(t, 1, o.Complete)
	assert.Equal(t, 1, o.Incomplete)
	assert.Equal(t, 1, o.FullyConsented)
}

func TestBuildOverview(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	age := func(n int) *int { return &n }
	dob := "1990-07-01"
	profiles := []models.Profile{
		{Name: "A", Profession: "P", City: "Chennai", Gender: models.GenderFemale, Age: age(24)},
		{Name: "B", Profession: "P", City: "chennai ", Gender: models.GenderMale, DateOfBirth: &dob},
		{Name: "C", Profession: "P", City: "Mumbai", Gender: models.GenderMale, Age: age(45)},
		{WhatsAppNumber: "+911"},
	}

	o := buildOverview(profiles, now)
	assert.Equal(t, 4, o.TotalProfiles)
	assert.Equal(t, 3, o.Complete)
	assert.Equal(t, 1, o.Incomplete)

	assert.Equal(t, []Breakdown{
		{Label: "Male", Count: 2, Percentage: 50},
		{Label: "Female", Count: 1, Percentage: 25},
		{Label: "Unspecified", Count: 1, Percentage: 25},
	}, o.ByGender)

	labels := map[string]int{}
	for _, b := range o.ByAgeBand {
		labels[b.Label] = b.Count
	}
	// 1990-07-01 is still 33 on 2024-06-15.
	assert.Equal(t, map[string]int{"18-25": 1, "31-35": 1, "41+": 1, "Other": 1}, labels)

	require.Len(t, o.TopCities, 2)
	assert.Equal(t, "Chennai", o.TopCities[0].Label)
	assert.Equal(t, 2, o.TopCities[0].Count)
	assert.Equal(t, "Mumbai", o.TopCities[1].Label)
}

func TestRateLimitOnToken(t *testing.T) {
	ts := newTestServer(t, NewMemoryRateLimiter(2, time.Minute))
	body := gin.H{"login_id": "1@cnb.app", "secret": "x"}

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(t, "POST", "/v1/auth/token", "", body).Code)
	}
	assert.Equal(t, []int{401, 401, 429}, codes)
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := rl.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = rl.Allow(ctx, "k")
	assert.False(t, ok)
	ok, _ = rl.Allow(ctx, "other")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = rl.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, "GET", "/health", "", nil)

	w := ts.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "cnb_api_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodOptions, "/v1/profiles", "", nil)
	assert.Equal(t, 204, w.Code)
	methods := strings.Split(w.Header().Get("Access-Control-Allow-Methods"), ", ")
	sort.Strings(methods)
	assert.Equal(t, []string{"GET", "OPTIONS", "POST", "PUT"}, methods)
}
