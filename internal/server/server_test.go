package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pr-poehali-dev/samp-survival-site/internal/cases"
	"github.com/pr-poehali-dev/samp-survival-site/internal/config"
	"github.com/pr-poehali-dev/samp-survival-site/internal/session"
	"github.com/pr-poehali-dev/samp-survival-site/internal/store"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// fakeUpstream emulates the remote game function endpoints.
type fakeUpstream struct {
	mu sync.Mutex

	password  string
	user      model.UserRecord
	authDown  bool
	authCalls int

	blocked  map[string]bool
	failures map[string]int

	online      gameapi.OnlineStatus
	settingsMap map[string]string
	rules       []gameapi.Rule
	news        []gameapi.NewsItem

	cases      []gameapi.Case
	openResult *gameapi.OpenResult
	openErr    string
	openCalls  int

	logEntries []gameapi.LogEntry
	patches    []map[string]any

	priceUpdates []map[string]any
	lootUpdates  []map[string]any

	srv *httptest.Server
}

func newFakeUpstream() *fakeUpstream {
	f := &fakeUpstream{
		password: "hunter2",
		user: model.UserRecord{
			ID: 7, Name: "Kenny_West", Money: 5000, Donate: 100, Score: 42,
		},
		blocked:  map[string]bool{},
		failures: map[string]int{},
		online:   gameapi.OnlineStatus{Online: 17, MaxPlayers: 100},
		settingsMap: map[string]string{
			"server_name": "Survival RP",
		},
		rules: []gameapi.Rule{
			{ID: 1, Category: "general", Title: "No cheating"},
		},
		news: []gameapi.NewsItem{
			{ID: 1, Title: "Wipe day"},
		},
		cases: []gameapi.Case{
			{ID: 3, Name: "Weapon Case", PriceMoney: 1000, PriceDonate: 50},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", f.handleAuth)
	mux.HandleFunc("/ipguard", f.handleGuard)
	mux.HandleFunc("/settings", f.handleSettings)
	mux.HandleFunc("/rules", f.handleRules)
	mux.HandleFunc("/news", f.handleNews)
	mux.HandleFunc("/users", f.handleUsers)
	mux.HandleFunc("/cases", f.handleCases)
	mux.HandleFunc("/cases-management", f.handleCasesAdmin)
	mux.HandleFunc("/inventory", f.handleInventory)
	mux.HandleFunc("/logs", f.handleLogs)
	mux.HandleFunc("/payment", f.handlePayment)
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeUpstream) endpoints() gameapi.Endpoints {
	return gameapi.Endpoints{
		Auth:       f.srv.URL + "/auth",
		IPGuard:    f.srv.URL + "/ipguard",
		Settings:   f.srv.URL + "/settings",
		Rules:      f.srv.URL + "/rules",
		News:       f.srv.URL + "/news",
		Users:      f.srv.URL + "/users",
		Cases:      f.srv.URL + "/cases",
		CasesAdmin: f.srv.URL + "/cases-management",
		Inventory:  f.srv.URL + "/inventory",
		Logs:       f.srv.URL + "/logs",
		Payment:    f.srv.URL + "/payment",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeUpstream) handleAuth(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++

	if f.authDown {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	var req map[string]string
	json.NewDecoder(r.Body).Decode(&req)
	if req["login"] != f.user.Name || req["password"] != f.password {
		writeJSON(w, map[string]any{"success": false, "error": "Неверный логин или пароль"})
		return
	}
	writeJSON(w, map[string]any{"success": true, "user": f.user})
}

func (f *fakeUpstream) handleGuard(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req map[string]any
	json.NewDecoder(r.Body).Decode(&req)
	ip, _ := req["ip"].(string)

	switch req["action"] {
	case "check_block":
		if f.blocked[ip] {
			writeJSON(w, map[string]any{"blocked": true, "message": "IP заблокирован"})
			return
		}
		writeJSON(w, map[string]any{"blocked": false})
	case "record_attempt":
		if success, _ := req["success"].(bool); success {
			f.failures[ip] = 0
			writeJSON(w, map[string]any{"blocked": false})
			return
		}
		f.failures[ip]++
		if f.failures[ip] >= 3 {
			f.blocked[ip] = true
			writeJSON(w, map[string]any{"blocked": true, "message": "Слишком много попыток"})
			return
		}
		writeJSON(w, map[string]any{"blocked": false, "attempts": f.failures[ip]})
	case "list_blocks":
		writeJSON(w, map[string]any{"blocks": []any{}})
	case "unblock":
		delete(f.blocked, ip)
		f.failures[ip] = 0
		writeJSON(w, map[string]any{})
	}
}

func (f *fakeUpstream) handleSettings(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Query().Get("check") == "online" {
		writeJSON(w, f.online)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Settings map[string]string `json:"settings"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for k, v := range req.Settings {
			f.settingsMap[k] = v
		}
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, f.settingsMap)
}

func (f *fakeUpstream) handleRules(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"rules": f.rules})
	default:
		writeJSON(w, map[string]any{})
	}
}

func (f *fakeUpstream) handleNews(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"news": f.news})
	default:
		writeJSON(w, map[string]any{})
	}
}

func (f *fakeUpstream) handleUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{
			"users": []model.UserRecord{f.user},
			"total": 1,
		})
	case http.MethodPost:
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		f.patches = append(f.patches, patch)
		writeJSON(w, map[string]any{})
	default:
		writeJSON(w, map[string]any{})
	}
}

func (f *fakeUpstream) handleCases(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method == http.MethodGet {
		writeJSON(w, map[string]any{"cases": f.cases})
		return
	}
	f.openCalls++
	if f.openErr != "" {
		writeJSON(w, map[string]any{"success": false, "error": f.openErr})
		return
	}
	writeJSON(w, map[string]any{
		"success":         true,
		"won_item":        f.openResult.WonItem,
		"animation_items": f.openResult.AnimationItems,
		"inventory_slot":  f.openResult.InventorySlot,
	})
}

func (f *fakeUpstream) handleCasesAdmin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		// Numeric columns arrive quoted, as the real backend serializes them.
		writeJSON(w, map[string]any{
			"cases": []map[string]any{
				{"case_id": 3, "case_name": "Weapon Case", "price_money": "1000",
					"price_donate": 50, "rarity": "rare"},
			},
			"items": []map[string]any{
				{"loot_id": 1, "loot_name": "Desert Eagle", "loot_price": "700",
					"drop_chance": "1.50"},
			},
		})
	case http.MethodPost:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.priceUpdates = append(f.priceUpdates, body)
		writeJSON(w, map[string]any{"success": true})
	case http.MethodPut:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.lootUpdates = append(f.lootUpdates, body)
		writeJSON(w, map[string]any{"success": true})
	}
}

func (f *fakeUpstream) handleInventory(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method == http.MethodGet {
		writeJSON(w, map[string]any{"items": []gameapi.InventoryItem{
			{Slot: 3, Name: "Desert Eagle", Price: 700, CanSell: true},
		}})
		return
	}
	writeJSON(w, map[string]any{"success": true, "item_name": "Desert Eagle", "sell_price": 490})
}

func (f *fakeUpstream) handleLogs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method == http.MethodGet {
		writeJSON(w, map[string]any{"logs": f.logEntries, "total": len(f.logEntries)})
		return
	}
	var entry gameapi.LogEntry
	json.NewDecoder(r.Body).Decode(&entry)
	f.logEntries = append(f.logEntries, entry)
	writeJSON(w, map[string]any{})
}

func (f *fakeUpstream) handlePayment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"success":     true,
		"payment_url": "https://pay.example/abc",
		"order_id":    "DONATE_7_1700000000",
	})
}

// setOpenResult installs a valid reveal sequence with the won item at the
// stop index.
func (f *fakeUpstream) setOpenResult(won gameapi.CaseItem, slot int) {
	items := make([]gameapi.CaseItem, cases.SequenceLength)
	for i := range items {
		items[i] = gameapi.CaseItem{Name: "Baseball Bat", Price: 50}
	}
	items[cases.StopIndex] = won
	f.mu.Lock()
	f.openResult = &gameapi.OpenResult{WonItem: won, AnimationItems: items, InventorySlot: slot}
	f.mu.Unlock()
}

type testEnv struct {
	srv  *Server
	fake *fakeUpstream
	st   *store.SQLiteStore
	api  *gameapi.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeUpstream()
	t.Cleanup(fake.srv.Close)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultServerConfig()
	cfg.Endpoints = fake.endpoints()

	hash, _ := bcrypt.GenerateFromPassword([]byte("breakglass"), bcrypt.MinCost)
	cfg.Console = config.ConsoleConfig{Username: "console", PasswordHash: string(hash)}

	api := gameapi.NewClient(gameapi.Config{
		Endpoints:  fake.endpoints(),
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, logger)

	sessions := session.NewManager(st, time.Hour)
	seq := cases.NewSequencer(api, 50*time.Millisecond, logger)

	srv := New(cfg, st, sessions, api, nil, logger, WithSequencer(seq))
	return &testEnv{srv: srv, fake: fake, st: st, api: api}
}

// envelope decodes the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON response: %v, body=%s", err, w.Body.String())
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "203.0.113.9:34712"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

// login authenticates as the fake upstream's user and returns the session
// cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := e.do(t, "POST", "/api/v1/auth/login",
		`{"login":"Kenny_West","password":"hunter2"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status=%d, body=%s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func (e *testEnv) loginAdmin(t *testing.T) *http.Cookie {
	t.Helper()
	e.fake.mu.Lock()
	e.fake.user.AdminLevel = 6
	e.fake.mu.Unlock()
	return e.login(t)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
	resp := decode(t, w)
	if resp.Status != "ok" || resp.RequestID == "" {
		t.Errorf("envelope = %+v, want ok with request id", resp)
	}

	var data struct {
		Status string `json:"status"`
	}
	json.Unmarshal(resp.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	if !strings.HasPrefix(cookie.Value, "sess_") {
		t.Errorf("session token = %q, want sess_ prefix", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	w := env.do(t, "GET", "/api/v1/auth/session", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("session: status=%d", w.Code)
	}
	var data struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		IsAdmin bool `json:"is_admin"`
	}
	json.Unmarshal(decode(t, w).Data, &data)
	if data.User.Name != "Kenny_West" {
		t.Errorf("user name = %q, want Kenny_West", data.User.Name)
	}
	if data.IsAdmin {
		t.Error("level-0 user reported as admin")
	}
}

func TestLogin_WrongPassword_VerbatimMessage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/v1/auth/login",
		`{"login":"Kenny_West","password":"nope"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401, body=%s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp.Error == nil || resp.Error.Message != "Неверный логин или пароль" {
		t.Errorf("error = %+v, want upstream message verbatim", resp.Error)
	}
}

func TestLogin_BlocksAfterThreeFailures(t *testing.T) {
	env := newTestEnv(t)
	body := `{"login":"Kenny_West","password":"nope"}`

	env.do(t, "POST", "/api/v1/auth/login", body, nil)
	env.do(t, "POST", "/api/v1/auth/login", body, nil)

	// Third failure crosses the threshold: the block lands in this response.
	w := env.do(t, "POST", "/api/v1/auth/login", body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("third failure: status=%d, want 403", w.Code)
	}
	if msg := decode(t, w).Error.Message; msg != "Слишком много попыток" {
		t.Errorf("block message = %q", msg)
	}

	// Once blocked, even correct credentials are cut off before auth.
	env.fake.mu.Lock()
	before := env.fake.authCalls
	env.fake.mu.Unlock()

	w = env.do(t, "POST", "/api/v1/auth/login",
		`{"login":"Kenny_West","password":"hunter2"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("blocked login: status=%d, want 403", w.Code)
	}

	env.fake.mu.Lock()
	after := env.fake.authCalls
	env.fake.mu.Unlock()
	if after != before {
		t.Errorf("auth endpoint called %d times while blocked, want 0", after-before)
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, "POST", "/api/v1/auth/login", `{"login":"Kenny_West","password":"nope"}`, nil)
	env.do(t, "POST", "/api/v1/auth/login", `{"login":"Kenny_West","password":"nope"}`, nil)
	env.login(t)

	env.fake.mu.Lock()
	failures := env.fake.failures["203.0.113.9"]
	env.fake.mu.Unlock()
	if failures != 0 {
		t.Errorf("failure counter = %d after successful login, want 0", failures)
	}
}

func TestLogin_ConsoleAccount_UpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.fake.mu.Lock()
	env.fake.authDown = true
	env.fake.mu.Unlock()

	w := env.do(t, "POST", "/api/v1/auth/login",
		`{"login":"console","password":"breakglass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("console login: status=%d, body=%s", w.Code, w.Body.String())
	}

	var data struct {
		IsAdmin bool `json:"is_admin"`
	}
	json.Unmarshal(decode(t, w).Data, &data)
	if !data.IsAdmin {
		t.Error("console session is not admin")
	}
}

func TestLogin_ConsoleWrongPassword_CountsAgainstIP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/auth/login",
		`{"login":"console","password":"wrong"}`, nil)
	if w.Code == http.StatusOK {
		t.Fatal("wrong console password logged in")
	}

	env.fake.mu.Lock()
	failures := env.fake.failures["203.0.113.9"]
	env.fake.mu.Unlock()
	if failures != 1 {
		t.Errorf("failure counter = %d, want 1", failures)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	if w := env.do(t, "POST", "/api/v1/auth/logout", "", cookie); w.Code != http.StatusOK {
		t.Fatalf("logout: status=%d", w.Code)
	}

	// Replaying the revoked token must fail regardless of cookie expiry.
	if w := env.do(t, "GET", "/api/v1/auth/session", "", cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked session: status=%d, want 401", w.Code)
	}
}

func TestAdminGate_DenialNamesLevels(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, "GET", "/api/v1/admin/users", "", cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403", w.Code)
	}
	msg := decode(t, w).Error.Message
	if msg != "admin level 6 required, your level is 0" {
		t.Errorf("denial message = %q", msg)
	}
}

func TestAdminGate_LevelSixPasses(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "GET", "/api/v1/admin/users", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp.Pagination == nil || resp.Pagination.Total != 1 {
		t.Errorf("pagination = %+v, want total 1", resp.Pagination)
	}
}

func TestCachedReads_ColdThenWarm(t *testing.T) {
	env := newTestEnv(t)

	// Nothing primed yet.
	if w := env.do(t, "GET", "/api/v1/online", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("cold read: status=%d, want 503", w.Code)
	}

	env.srv.pollers.Online.Tick(context.Background())

	w := env.do(t, "GET", "/api/v1/online", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("warm read: status=%d", w.Code)
	}
	var data gameapi.OnlineStatus
	json.Unmarshal(decode(t, w).Data, &data)
	if data.Online != 17 {
		t.Errorf("online = %d, want 17", data.Online)
	}
}

func TestCachedReads_ServeStaleWhenUpstreamDies(t *testing.T) {
	env := newTestEnv(t)
	env.srv.pollers.Settings.Tick(context.Background())

	env.fake.srv.Close()
	env.srv.pollers.Settings.Tick(context.Background())

	w := env.do(t, "GET", "/api/v1/settings", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stale read: status=%d, want 200", w.Code)
	}
	var data map[string]string
	json.Unmarshal(decode(t, w).Data, &data)
	if data["server_name"] != "Survival RP" {
		t.Errorf("settings = %v, want cached value", data)
	}
}

func TestOpenCase_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	won := gameapi.CaseItem{Name: "Desert Eagle", Price: 700}
	env.fake.setOpenResult(won, 3)

	w := env.do(t, "POST", "/api/v1/cases/3/open", `{"method":"money"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("open: status=%d, body=%s", w.Code, w.Body.String())
	}
	var state cases.State
	json.Unmarshal(decode(t, w).Data, &state)
	if state.Phase != cases.PhaseRequesting && state.Phase != cases.PhaseRevealed {
		t.Fatalf("phase = %q", state.Phase)
	}
	if len(state.AnimationItems) != cases.SequenceLength {
		t.Errorf("sequence length = %d, want %d", len(state.AnimationItems), cases.SequenceLength)
	}
	if state.WonItem != nil {
		t.Error("won item leaked before the reveal timer")
	}

	// Claiming before the reveal timer fires is rejected.
	if w := env.do(t, "POST", "/api/v1/cases/claim", "", cookie); w.Code != http.StatusConflict {
		t.Errorf("early claim: status=%d, want 409", w.Code)
	}

	time.Sleep(80 * time.Millisecond)

	w = env.do(t, "POST", "/api/v1/cases/claim", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("claim: status=%d, body=%s", w.Code, w.Body.String())
	}
	var claim struct {
		WonItem       gameapi.CaseItem `json:"won_item"`
		InventorySlot int              `json:"inventory_slot"`
	}
	json.Unmarshal(decode(t, w).Data, &claim)
	if claim.WonItem.Name != "Desert Eagle" || claim.InventorySlot != 3 {
		t.Errorf("claim = %+v", claim)
	}
}

func TestOpenCase_InsufficientFunds_NoUpstreamCall(t *testing.T) {
	env := newTestEnv(t)
	env.fake.mu.Lock()
	env.fake.user.Money = 10
	env.fake.mu.Unlock()
	cookie := env.login(t)

	w := env.do(t, "POST", "/api/v1/cases/3/open", `{"method":"money"}`, cookie)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status=%d, want 402, body=%s", w.Code, w.Body.String())
	}

	env.fake.mu.Lock()
	calls := env.fake.openCalls
	env.fake.mu.Unlock()
	if calls != 0 {
		t.Errorf("open endpoint called %d times, want 0", calls)
	}
}

func TestOpenCase_UpstreamError_Verbatim(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.fake.mu.Lock()
	env.fake.openErr = "Инвентарь полон"
	env.fake.mu.Unlock()

	w := env.do(t, "POST", "/api/v1/cases/3/open", `{"method":"money"}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400, body=%s", w.Code, w.Body.String())
	}
	if msg := decode(t, w).Error.Message; msg != "Инвентарь полон" {
		t.Errorf("error = %q, want upstream message verbatim", msg)
	}

	// The failed opening aborted; a fresh open works.
	env.fake.mu.Lock()
	env.fake.openErr = ""
	env.fake.mu.Unlock()
	env.fake.setOpenResult(gameapi.CaseItem{Name: "AK-47"}, 1)

	if w := env.do(t, "POST", "/api/v1/cases/3/open", `{"method":"money"}`, cookie); w.Code != http.StatusOK {
		t.Errorf("reopen after abort: status=%d, body=%s", w.Code, w.Body.String())
	}
}

func TestOpenCase_UnknownCase(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, "POST", "/api/v1/cases/99/open", `{"method":"money"}`, cookie)
	if w.Code != http.StatusNotFound {
		t.Errorf("status=%d, want 404", w.Code)
	}
}

func TestSellItem_CreditsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, "POST", "/api/v1/inventory/3/sell", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("sell: status=%d, body=%s", w.Code, w.Body.String())
	}
	var data gameapi.SellResult
	json.Unmarshal(decode(t, w).Data, &data)
	if data.SellPrice != 490 {
		t.Errorf("sell price = %d, want 490 (70%% of 700)", data.SellPrice)
	}
}

func TestCreatePayment(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, "POST", "/api/v1/payments", `{"amount":100}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var data gameapi.PaymentLink
	json.Unmarshal(decode(t, w).Data, &data)
	if !strings.HasPrefix(data.OrderID, "DONATE_") {
		t.Errorf("order id = %q, want DONATE_ prefix", data.OrderID)
	}

	if w := env.do(t, "POST", "/api/v1/payments", `{"amount":-5}`, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("negative amount: status=%d, want 400", w.Code)
	}
}

func TestCategories_CRUD(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "POST", "/api/v1/admin/categories",
		`{"id":"traffic","label":"Traffic rules","icon":"Scale"}`, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status=%d, body=%s", w.Code, w.Body.String())
	}

	// The public list is open to everyone.
	w = env.do(t, "GET", "/api/v1/categories", "", nil)
	var list []model.RuleCategory
	json.Unmarshal(decode(t, w).Data, &list)
	if len(list) != 1 || list[0].ID != "traffic" {
		t.Fatalf("categories = %+v", list)
	}

	w = env.do(t, "DELETE", "/api/v1/admin/categories/traffic", "", cookie)
	if w.Code != http.StatusOK {
		t.Errorf("delete: status=%d, body=%s", w.Code, w.Body.String())
	}
}

func TestCategories_UnknownIconRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "POST", "/api/v1/admin/categories",
		`{"id":"x","label":"X","icon":"Sparkles"}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestCategories_DeleteBlockedWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	env.do(t, "POST", "/api/v1/admin/categories",
		`{"id":"general","label":"General","icon":"Shield"}`, cookie)

	// The fake upstream's rule list has a rule in category "general".
	w := env.do(t, "DELETE", "/api/v1/admin/categories/general", "", cookie)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d, want 409, body=%s", w.Code, w.Body.String())
	}
	if code := decode(t, w).Error.Code; code != model.ErrConflict {
		t.Errorf("error code = %q, want CONFLICT", code)
	}
}

func TestAdminUserPatch_AuditLogged(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PATCH", "/api/v1/admin/users/7", `{"u_money":9000}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: status=%d, body=%s", w.Code, w.Body.String())
	}

	env.fake.mu.Lock()
	patches := len(env.fake.patches)
	var audit []gameapi.LogEntry
	audit = append(audit, env.fake.logEntries...)
	env.fake.mu.Unlock()

	if patches != 1 {
		t.Fatalf("upstream patches = %d, want 1", patches)
	}
	found := false
	for _, e := range audit {
		if e.Category == "admin" && e.Action == "user_update" {
			found = true
		}
	}
	if !found {
		t.Error("no admin audit entry recorded for the patch")
	}
}

func TestAdminUserPatch_EmptyPatchRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PATCH", "/api/v1/admin/users/7", `{}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}
}

func TestRequireSession_NoCookie(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/v1/inventory", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
	if code := decode(t, w).Error.Code; code != model.ErrUnauthorized {
		t.Errorf("error code = %q", code)
	}
}

// sessionMoney reads u_money from the session view.
func (e *testEnv) sessionMoney(t *testing.T, cookie *http.Cookie) int64 {
	t.Helper()
	w := e.do(t, "GET", "/api/v1/auth/session", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("session: status=%d, body=%s", w.Code, w.Body.String())
	}
	var data struct {
		User struct {
			Stats []model.Stat `json:"stats"`
		} `json:"user"`
	}
	json.Unmarshal(decode(t, w).Data, &data)
	for _, s := range data.User.Stats {
		if s.Key == "u_money" {
			n, err := strconv.ParseInt(s.Value, 10, 64)
			if err != nil {
				t.Fatalf("money stat %q: %v", s.Value, err)
			}
			return n
		}
	}
	t.Fatal("session view has no u_money stat")
	return 0
}

func TestOpenCase_DebitsExactPriceUntilRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.fake.setOpenResult(gameapi.CaseItem{Name: "Desert Eagle", Price: 700}, 3)
	cookie := env.login(t)

	if money := env.sessionMoney(t, cookie); money != 5000 {
		t.Fatalf("starting money = %d, want 5000", money)
	}

	w := env.do(t, "POST", "/api/v1/cases/3/open", `{"method":"money"}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("open: status=%d, body=%s", w.Code, w.Body.String())
	}

	// The cached balance drops by exactly the case price in the chosen
	// currency before any upstream refresh.
	if money := env.sessionMoney(t, cookie); money != 4000 {
		t.Errorf("money after open = %d, want 4000", money)
	}

	// A refresher pass replaces the cached record with the upstream row,
	// which is authoritative for the real balance.
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	ref := session.NewRefresher(env.st, env.api, session.RefresherConfig{}, logger)
	if err := ref.Tick(context.Background()); err != nil {
		t.Fatalf("refresh tick: %v", err)
	}
	if money := env.sessionMoney(t, cookie); money != 5000 {
		t.Errorf("money after refresh = %d, want upstream's 5000", money)
	}
}

func TestAdminCaseCatalog(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "GET", "/api/v1/admin/cases", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("catalog: status=%d, body=%s", w.Code, w.Body.String())
	}
	var catalog gameapi.CaseCatalog
	json.Unmarshal(decode(t, w).Data, &catalog)

	if len(catalog.Cases) != 1 || len(catalog.Items) != 1 {
		t.Fatalf("catalog = %d cases, %d items, want 1 and 1", len(catalog.Cases), len(catalog.Items))
	}
	if c := catalog.Cases[0]; c.ID != 3 || c.PriceMoney != 1000 || c.PriceDonate != 50 {
		t.Errorf("case = %+v, want id 3 with prices 1000/50", c)
	}
	if it := catalog.Items[0]; it.Price != 700 || it.DropChance != 1.5 {
		t.Errorf("item = %+v, want quoted price 700 and drop chance 1.5 decoded", it)
	}
}

func TestAdminCaseReprice_AuditLogged(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PUT", "/api/v1/admin/cases/3",
		`{"price_money":2500,"price_donate":80}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("reprice: status=%d, body=%s", w.Code, w.Body.String())
	}

	env.fake.mu.Lock()
	updates := append([]map[string]any{}, env.fake.priceUpdates...)
	audit := append([]gameapi.LogEntry{}, env.fake.logEntries...)
	env.fake.mu.Unlock()

	if len(updates) != 1 {
		t.Fatalf("upstream price updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u["case_id"] != float64(3) || u["price_money"] != float64(2500) || u["price_donate"] != float64(80) {
		t.Errorf("upstream update = %v, want case 3 repriced to 2500/80", u)
	}
	if u["user_id"] != float64(7) {
		t.Errorf("update carries user_id %v, want the acting admin's 7", u["user_id"])
	}

	found := false
	for _, e := range audit {
		if e.Category == "admin" && e.Action == "case_reprice" {
			found = true
		}
	}
	if !found {
		t.Error("no admin audit entry recorded for the reprice")
	}
}

func TestAdminCaseReprice_RejectsPartialPrices(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PUT", "/api/v1/admin/cases/3", `{"price_money":2500}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}

	env.fake.mu.Lock()
	updates := len(env.fake.priceUpdates)
	env.fake.mu.Unlock()
	if updates != 0 {
		t.Errorf("upstream price updates = %d, want none for a partial body", updates)
	}
}

func TestAdminLootPatch_SendsOnlySetFields(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PUT", "/api/v1/admin/items/1", `{"drop_chance":2.5}`, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("loot patch: status=%d, body=%s", w.Code, w.Body.String())
	}

	env.fake.mu.Lock()
	updates := append([]map[string]any{}, env.fake.lootUpdates...)
	env.fake.mu.Unlock()

	if len(updates) != 1 {
		t.Fatalf("upstream loot updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u["loot_id"] != float64(1) || u["drop_chance"] != float64(2.5) {
		t.Errorf("upstream update = %v, want loot 1 drop chance 2.5", u)
	}
	if _, present := u["loot_price"]; present {
		t.Error("loot_price sent despite being absent from the patch")
	}
}

func TestAdminLootPatch_EmptyPatchRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAdmin(t)

	w := env.do(t, "PUT", "/api/v1/admin/items/1", `{}`, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}
}

func TestAdminCaseCatalog_GateApplies(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.do(t, "GET", "/api/v1/admin/cases", "", cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403 for a level-0 user", w.Code)
	}
}

type failingTicker struct{}

func (failingTicker) Tick(context.Context) error { return errors.New("upstream down") }

func TestReprime_WarnsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{logger: slog.New(slog.NewTextHandler(&buf, nil))}

	s.reprime(context.Background(), "rules", failingTicker{})

	if out := buf.String(); !strings.Contains(out, "cache re-prime failed") {
		t.Errorf("log = %q, want a re-prime warning", out)
	}
}
