package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/db"
	"github.com/newsdesk/internal/router"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The suite drives the whole newsroom flow over HTTP with session logins:
// draft, review, approval round, publication bundle, recall and purge.

type e2eSuite struct {
	handler http.Handler
	clients map[string]*localClient
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

const baseURL = "http://newsdesk.test"

func newSuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%s-%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := map[string]string{
		"ana":    "macro:analyst",
		"ed":     "macro:editor",
		"victor": "macro:editor",
		"boss":   "global:admin",
	}
	for name, scopes := range users {
		if err := db.EnsureUser(gdb, name, name+"-pass", scopes); err != nil {
			t.Fatalf("ensure user %s: %v", name, err)
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, _ := router.Setup(gdb, "e2e-secret", 2, log)

	suite := &e2eSuite{handler: engine, clients: map[string]*localClient{}}
	for name := range users {
		suite.login(t, name)
	}
	return suite
}

func (s *e2eSuite) login(t *testing.T, username string) {
	t.Helper()
	client := newLocalClient(s.handler)
	resp := doJSON(t, client, http.MethodPost, "/login",
		map[string]any{"username": username, "password": username + "-pass"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d", username, resp.StatusCode)
	}
	s.clients[username] = client
}

func doJSON(t *testing.T, client *localClient, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func (s *e2eSuite) call(t *testing.T, user, method, path string, payload any, wantStatus int) map[string]any {
	t.Helper()
	resp := doJSON(t, s.clients[user], method, path, payload)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s as %s: got %d want %d: %s", method, path, user, resp.StatusCode, wantStatus, raw)
	}
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func (s *e2eSuite) fetch(t *testing.T, user, path string, wantStatus int) (*http.Response, []byte) {
	t.Helper()
	resp := doJSON(t, s.clients[user], http.MethodGet, path, nil)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s as %s: got %d want %d: %s", path, user, resp.StatusCode, wantStatus, raw)
	}
	return resp, raw
}

func TestNewsroomFlow(t *testing.T) {
	s := newSuite(t)

	// The analyst drafts a piece.
	created := s.call(t, "ana", http.MethodPost, "/articles", map[string]any{
		"topic":    "macro",
		"headline": "Quarterly Macro Outlook",
		"body":     "# Outlook\n\nGrowth **holds** up despite the drag.",
	}, http.StatusCreated)
	article := created["article"].(map[string]any)
	id := int(article["id"].(float64))
	articlePath := fmt.Sprintf("/articles/%d", id)

	if article["status"] != db.StatusDraft {
		t.Fatalf("new article status: %v", article["status"])
	}

	// Draft goes to the editor desk.
	submitted := s.call(t, "ana", http.MethodPost, articlePath+"/submit", nil, http.StatusOK)
	if submitted["status"] != db.StatusEditor {
		t.Fatalf("after submit: %v", submitted["status"])
	}

	// The editor polishes the copy.
	s.call(t, "ed", http.MethodPut, articlePath, map[string]any{
		"editor": "ed",
		"body":   "# Outlook\n\nGrowth holds up despite the fiscal drag.",
	}, http.StatusOK)

	// The editor opens an approval round and can no longer publish directly.
	s.call(t, "ed", http.MethodPost, articlePath+"/approval-requests",
		map[string]any{"notes": "second pair of eyes please"}, http.StatusCreated)
	s.call(t, "ed", http.MethodPost, articlePath+"/publish", nil, http.StatusConflict)

	// Self-approval is off; a colleague signs off instead.
	s.call(t, "ed", http.MethodPost, fmt.Sprintf("/approvals/%d", id),
		map[string]any{"approved": true, "notes": "lgtm"}, http.StatusBadRequest)
	decided := s.call(t, "victor", http.MethodPost, fmt.Sprintf("/approvals/%d", id),
		map[string]any{"approved": true, "notes": "run it"}, http.StatusOK)
	if decided["newStatus"] != db.StatusPublished {
		t.Fatalf("after approve: %v", decided["newStatus"])
	}

	// Publication produced the parent bundle with both renders.
	bundle := s.call(t, "ana", http.MethodGet, articlePath+"/bundle", nil, http.StatusOK)
	if children := bundle["children"].([]any); len(children) != 2 {
		t.Fatalf("bundle children: %d", len(children))
	}

	resp, html := s.fetch(t, "ana", articlePath+"/bundle/html", http.StatusOK)
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("html content type: %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(html), "Quarterly Macro Outlook") {
		t.Fatal("html render must carry the headline")
	}
	if !strings.Contains(string(html), "fiscal drag") {
		t.Fatal("html render must carry the edited body")
	}

	resp, pdf := s.fetch(t, "ana", articlePath+"/bundle/pdf", http.StatusOK)
	if resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf content type: %q", resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-1.4")) {
		t.Fatal("pdf render missing header")
	}

	// Recall pulls the article and its artifacts.
	recalled := s.call(t, "boss", http.MethodPost, articlePath+"/recall", nil, http.StatusOK)
	if recalled["status"] != db.StatusDraft {
		t.Fatalf("after recall: %v", recalled["status"])
	}
	s.call(t, "ana", http.MethodGet, articlePath+"/bundle", nil, http.StatusNotFound)
	s.fetch(t, "ana", articlePath+"/bundle/html", http.StatusNotFound)

	// Purge is global-admin only and leaves nothing behind.
	s.call(t, "ed", http.MethodDelete, articlePath+"/purge", nil, http.StatusForbidden)
	s.call(t, "boss", http.MethodDelete, articlePath+"/purge", nil, http.StatusOK)
	s.call(t, "ana", http.MethodGet, articlePath, nil, http.StatusNotFound)
}

func TestRejectionRound(t *testing.T) {
	s := newSuite(t)

	created := s.call(t, "ana", http.MethodPost, "/articles", map[string]any{
		"topic":    "macro",
		"headline": "Rate Path Revisited",
		"body":     "too thin",
	}, http.StatusCreated)
	id := int(created["article"].(map[string]any)["id"].(float64))
	articlePath := fmt.Sprintf("/articles/%d", id)

	s.call(t, "ana", http.MethodPost, articlePath+"/submit", nil, http.StatusOK)
	s.call(t, "ed", http.MethodPost, articlePath+"/approval-requests", nil, http.StatusCreated)

	// Rejection without notes is refused, with notes it lands.
	s.call(t, "victor", http.MethodPost, fmt.Sprintf("/approvals/%d", id),
		map[string]any{"approved": false}, http.StatusBadRequest)
	decided := s.call(t, "victor", http.MethodPost, fmt.Sprintf("/approvals/%d", id),
		map[string]any{"approved": false, "notes": "needs a second source"}, http.StatusOK)
	if decided["newStatus"] != db.StatusEditor {
		t.Fatalf("after reject: %v", decided["newStatus"])
	}

	// No artifacts were ever built.
	s.call(t, "ana", http.MethodGet, articlePath+"/bundle", nil, http.StatusNotFound)
}
