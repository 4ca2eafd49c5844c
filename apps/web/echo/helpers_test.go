package webapp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
	apisvc "github.com/trezcool/escuela/services/api"
	"github.com/trezcool/escuela/storage/sessions/inmem"
	"github.com/trezcool/escuela/testutil"
)

var (
	ana  = user.Identity{ID: 2, Name: "Ana", FirstSurn: "López", Role: user.RoleStudent, Email: "ana@x.com", Password: "secret"}
	luis = user.Identity{ID: 1, Name: "Luis", FirstSurn: "Pérez", SecondSurn: "Gómez", Role: user.RoleAdmin, Email: "luis@x.com", Password: "admin"}
	rosa = user.Identity{ID: 4, Name: "Rosa", Role: user.RoleParent, Email: "rosa@x.com", Password: "rosa"}
	odd  = user.Identity{ID: 9, Name: "Odd", Role: user.Role(7), Email: "odd@x.com", Password: "odd"}
)

type logEntry struct {
	level string
	msg   string
}

// testLogger records entries instead of printing them.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *testLogger) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *testLogger) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *testLogger) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *testLogger) Error(msg string, _ ...interface{}) { l.add("error", msg) }
func (l *testLogger) Fatal(msg string, _ ...interface{}) { l.add("fatal", msg) }

func testConf() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "CBTA",
		SecretKey: "test-secret",
		Session:   core.SessionConfig{CookieName: "test_session", TTL: time.Hour},
		Carousel:  core.CarouselConfig{Interval: 20 * time.Millisecond},
	}
}

type testEnv struct {
	backend *testutil.Backend
	server  *server
	http    *httptest.Server
	logger  *testLogger
}

func setup(t *testing.T) *testEnv {
	backend := testutil.NewBackend(t)
	for _, usr := range []user.Identity{ana, luis, rosa, odd} {
		backend.AddUser(usr)
	}

	logger := new(testLogger)
	srv, err := NewServer(ServerDeps{
		Conf:     testConf(),
		Logger:   logger,
		Backend:  apisvc.NewClient(backend.BaseURL(), time.Second),
		Sessions: inmem.NewRegistry(time.Hour),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{backend: backend, server: srv.(*server), http: ts, logger: logger}
}

// browser keeps cookies and never follows redirects.
type browser struct {
	t      *testing.T
	env    *testEnv
	client *http.Client
}

func (env *testEnv) newBrowser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		env: env,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	code     int
	location string
	body     string
}

func (b *browser) do(req *http.Request) response {
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{code: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string, accept ...string) response {
	req, err := http.NewRequest(http.MethodGet, b.env.http.URL+path, nil)
	require.NoError(b.t, err)
	if len(accept) > 0 {
		req.Header.Set("Accept", accept[0])
	}
	return b.do(req)
}

// post submits an HTML form.
func (b *browser) post(path string, form url.Values) response {
	req, err := http.NewRequest(http.MethodPost, b.env.http.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postJSON calls a login endpoint the way an API client would.
func (b *browser) postJSON(path string, body interface{}) (response, flowResult) {
	data, err := json.Marshal(body)
	require.NoError(b.t, err)
	req, err := http.NewRequest(http.MethodPost, b.env.http.URL+path, strings.NewReader(string(data)))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp := b.do(req)

	var res flowResult
	require.NoError(b.t, json.Unmarshal([]byte(resp.body), &res), resp.body)
	return resp, res
}

// login runs both steps of the login form.
func (b *browser) login(usr user.Identity) response {
	resp := b.post("/login/email", url.Values{"correo_usuario": {usr.Email}})
	require.Equal(b.t, http.StatusSeeOther, resp.code)
	return b.post("/login/password", url.Values{"pwd_usuario": {usr.Password}})
}
