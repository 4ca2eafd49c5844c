package webapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/user"
	apisvc "github.com/trezcool/escuela/services/api"
	"github.com/trezcool/escuela/storage/sessions/inmem"
	"github.com/trezcool/escuela/testutil"
)

func TestHealthAndMetrics(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	resp := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.body)

	b.login(ana)
	resp = b.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, `portal_login_attempts_total{outcome="ok",step="email"} 1`)
	assert.Contains(t, resp.body, `portal_login_attempts_total{outcome="ok",step="password"} 1`)
}

func TestHome(t *testing.T) {
	env := setup(t)
	env.backend.SetList("welcome", []apisvc.Welcome{{ID: 1, Text: "Bienvenidos al CBTA"}})
	env.backend.SetList("carreras/tecnicas", map[string]interface{}{"carreras": []apisvc.Career{
		{ID: 1, Name: "Agropecuario"},
		{ID: 2, Name: "Contabilidad"},
		{ID: 3, Name: "Informática"},
	}})
	env.server.now = func() time.Time { return time.Unix(0, 0).Add(20 * time.Millisecond) }

	resp := env.newBrowser(t).get("/")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, "Bienvenidos al CBTA")
	assert.Contains(t, resp.body, "No encontrado") // news failed alone
	assert.Contains(t, resp.body, `href="/login"`)

	// one interval elapsed: the careers list starts at its second item
	agro := strings.Index(resp.body, "Agropecuario")
	conta := strings.Index(resp.body, "Contabilidad")
	info := strings.Index(resp.body, "Informática")
	assert.True(t, conta < info && info < agro, resp.body)
}

func TestHome_InfoSections(t *testing.T) {
	env := setup(t)
	env.backend.SetList("mision", []apisvc.Mission{{ID: 1, Text: "Formar técnicos agropecuarios"}})
	env.backend.SetList("vision", []apisvc.Vision{{ID: 1, Text: "Ser referente regional"}})
	env.backend.SetList("sobre_nosotros", []apisvc.AboutUs{{ID: 1, Text: "Fundada en 1970", Image: testutil.PNG}})
	env.backend.Reply("info_becas", http.StatusInternalServerError, map[string]string{"error": "Becas no disponibles"})

	resp := env.newBrowser(t).get("/")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, "Formar técnicos agropecuarios")
	assert.Contains(t, resp.body, "Ser referente regional")
	assert.Contains(t, resp.body, "Fundada en 1970")
	assert.Contains(t, resp.body, "data:image/png;base64,")
	assert.Contains(t, resp.body, "Becas no disponibles") // failed alone
	assert.Contains(t, resp.body, `action="/contact"`)

	metrics := env.newBrowser(t).get("/metrics").body
	assert.Contains(t, metrics, `portal_backend_errors_total{endpoint="scholarships"} 1`)
}

func TestContact(t *testing.T) {
	env := setup(t)
	form := url.Values{
		"nombre_mensaje_contacto":  {" Rosa "},
		"correo_mensaje_contacto":  {"rosa@x.com"},
		"motivo_mensaje_contacto":  {"Becas"},
		"mensaje_mensaje_contacto": {"¿Cuándo abren las becas?"},
	}

	t.Run("sent", func(t *testing.T) {
		b := env.newBrowser(t)
		resp := b.post("/contact", form)
		assert.Equal(t, http.StatusSeeOther, resp.code)
		assert.Equal(t, "/", resp.location)

		contacts := env.backend.Contacts()
		require.Len(t, contacts, 1)
		assert.Equal(t, "Rosa", contacts[0]["nombre_mensaje_contacto"])
		assert.Equal(t, "¿Cuándo abren las becas?", contacts[0]["mensaje_mensaje_contacto"])
		assert.Contains(t, b.get("/").body, "Mensaje enviado correctamente")
	})

	t.Run("invalid form", func(t *testing.T) {
		before := env.backend.Calls("mensaje_contacto/insert")
		b := env.newBrowser(t)
		resp := b.post("/contact", url.Values{"correo_mensaje_contacto": {"not-an-email"}})
		assert.Equal(t, http.StatusSeeOther, resp.code)
		assert.Equal(t, "/#contacto", resp.location)
		assert.Equal(t, before, env.backend.Calls("mensaje_contacto/insert"))

		body := b.get("/").body
		assert.Contains(t, body, "nombre_mensaje_contacto es requerido.")
		assert.Contains(t, body, "mensaje_mensaje_contacto es requerido.")
	})

	t.Run("invalid json", func(t *testing.T) {
		b := env.newBrowser(t)
		req, err := http.NewRequest(http.MethodPost, env.http.URL+"/contact", strings.NewReader(`{"correo_mensaje_contacto":"rosa@x.com"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		resp := b.do(req)
		assert.Equal(t, http.StatusBadRequest, resp.code)
		assert.Contains(t, resp.body, `"nombre_mensaje_contacto"`)
	})

	t.Run("backend down", func(t *testing.T) {
		env.backend.Reply("mensaje_contacto/insert", http.StatusInternalServerError, map[string]string{})
		defer env.backend.ClearReply("mensaje_contacto/insert")

		b := env.newBrowser(t)
		resp := b.post("/contact", form)
		assert.Equal(t, "/#contacto", resp.location)
		assert.Contains(t, b.get("/").body, apisvc.MsgContactFailed)
	})
}

func TestRotation(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		interval time.Duration
		want     int
	}{
		{"epoch", time.Unix(0, 0), time.Second, 0},
		{"three intervals", time.Unix(3, 0), time.Second, 3},
		{"no interval", time.Unix(3, 0), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rotation(tt.now, tt.interval))
		})
	}
}

func TestLogin_Student(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	resp := b.get("/login")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, `action="/login/email"`)

	resp = b.post("/login/email", url.Values{"correo_usuario": {"  ana@x.com "}})
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/login", resp.location)

	resp = b.get("/login")
	assert.Contains(t, resp.body, auth.MsgEmailFound)
	assert.Contains(t, resp.body, `action="/login/password"`)
	assert.Contains(t, resp.body, "ana@x.com")

	resp = b.post("/login/password", url.Values{"pwd_usuario": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/Student/Ana", resp.location)

	resp = b.get("/Student/Ana")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, "Bienvenido alumno Ana")
	assert.Contains(t, resp.body, "Panel del alumno")

	// notices are shown once
	resp = b.get("/Student/Ana")
	assert.NotContains(t, resp.body, "Bienvenido alumno Ana")

	resp = b.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/Student/Ana", resp.location)

	resp = b.get("/Administration")
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/", resp.location)
	assert.Contains(t, b.get("/").body, "No tienes permisos de administrador.")
}

func TestLogin_Errors(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	b.post("/login/email", url.Values{"correo_usuario": {"   "}})
	resp := b.get("/login")
	assert.Contains(t, resp.body, auth.MsgEmailRequired)
	assert.Equal(t, 0, env.backend.Calls("check-email"))

	b.post("/login/email", url.Values{"correo_usuario": {"nobody@x.com"}})
	resp = b.get("/login")
	assert.Contains(t, resp.body, auth.MsgEmailNotRegistered)
	assert.NotContains(t, resp.body, "toast-error")
	assert.Contains(t, resp.body, `action="/login/email"`)

	b.post("/login/email", url.Values{"correo_usuario": {"ana@x.com"}})
	b.post("/login/password", url.Values{"pwd_usuario": {"wrong"}})
	resp = b.get("/login")
	assert.Contains(t, resp.body, "Credenciales inválidas")
	assert.Contains(t, resp.body, "toast-error")
	assert.Contains(t, resp.body, `action="/login/password"`)

	b.post("/login/password", url.Values{"pwd_usuario": {""}})
	assert.Contains(t, b.get("/login").body, auth.MsgPasswordRequired)
	assert.Equal(t, 1, env.backend.Calls("login"))
}

func TestLogin_JSON(t *testing.T) {
	env := setup(t)

	t.Run("admin", func(t *testing.T) {
		b := env.newBrowser(t)
		resp, res := b.postJSON("/login/email", echoMap("correo_usuario", luis.Email))
		assert.Equal(t, http.StatusOK, resp.code)
		assert.Equal(t, flowResult{Outcome: "ok", Step: "awaiting_password", Redirect: "/login"}, res)

		resp, res = b.postJSON("/login/password", echoMap("pwd_usuario", luis.Password))
		assert.Equal(t, http.StatusOK, resp.code)
		assert.Equal(t, flowResult{Outcome: "ok", Step: "authenticated", Redirect: "/Administration/Luis"}, res)

		page := b.get("/Administration/Luis")
		require.Equal(t, http.StatusOK, page.code)
		assert.Contains(t, page.body, "Bienvenido administrador Luis")
		assert.Contains(t, page.body, "Luis Pérez Gómez")
	})

	t.Run("out of step", func(t *testing.T) {
		b := env.newBrowser(t)
		resp, res := b.postJSON("/login/password", echoMap("pwd_usuario", "x"))
		assert.Equal(t, http.StatusConflict, resp.code)
		assert.Equal(t, "out_of_step", res.Outcome)
	})

	t.Run("not registered", func(t *testing.T) {
		b := env.newBrowser(t)
		resp, res := b.postJSON("/login/email", echoMap("correo_usuario", "nobody@x.com"))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.code)
		assert.Equal(t, flowResult{Outcome: "not_registered", Step: "awaiting_email", Error: auth.MsgEmailNotRegistered, Redirect: "/login"}, res)
	})

	t.Run("password mismatch", func(t *testing.T) {
		b := env.newBrowser(t)
		b.postJSON("/login/email", echoMap("correo_usuario", ana.Email))

		other := ana
		other.Password = "not the typed one"
		env.backend.Reply("login", http.StatusOK, map[string]interface{}{"tbl_users": other})
		defer env.backend.ClearReply("login")

		resp, res := b.postJSON("/login/password", echoMap("pwd_usuario", ana.Password))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.code)
		assert.Equal(t, "mismatch", res.Outcome)
		assert.Equal(t, auth.MsgDataMismatch, res.Error)
		assert.Equal(t, "awaiting_password", res.Step)
		assert.Equal(t, http.StatusSeeOther, b.get("/Student/Ana").code)
	})
}

func TestLogin_UnknownRole(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	resp := b.login(odd)
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/login", resp.location)

	resp = b.get("/login")
	assert.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, msgUnknownRole)
	assert.Contains(t, resp.body, "Sesión iniciada.")
	assert.NotEmpty(t, env.logger.entries)
}

func TestLogin_Reset(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	b.post("/login/email", url.Values{"correo_usuario": {"ana@x.com"}})
	resp := b.post("/login/reset", nil)
	assert.Equal(t, http.StatusSeeOther, resp.code)

	resp = b.get("/login")
	assert.Contains(t, resp.body, `action="/login/email"`)
	assert.Contains(t, resp.body, `value="ana@x.com"`)
}

func TestLogout(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)
	b.login(ana)

	resp := b.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Equal(t, "/", resp.location)
	assert.Contains(t, b.get("/").body, msgLoggedOut)

	resp = b.get("/Student/Ana")
	assert.Equal(t, http.StatusSeeOther, resp.code)
	assert.Contains(t, b.get("/login").body, `action="/login/email"`)
}

func TestGuard(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name     string
		usr      *user.Identity
		path     string
		wantCode int
		wantMsg  string
	}{
		{"anonymous admin", nil, "/Administration", http.StatusForbidden, "No tienes permisos de administrador."},
		{"anonymous teacher", nil, "/Teacher/Ana", http.StatusForbidden, "No tienes permisos de docente."},
		{"student on parent", &ana, "/Parent", http.StatusForbidden, "No tienes permisos de familiar."},
		{"parent on parent", &rosa, "/Parent/Rosa", http.StatusOK, ""},
		{"admin on student", &luis, "/Student", http.StatusForbidden, "No tienes permisos de alumno."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := env.newBrowser(t)
			if tt.usr != nil {
				b.login(*tt.usr)
			}
			resp := b.get(tt.path, "application/json")
			assert.Equal(t, tt.wantCode, resp.code)
			if tt.wantMsg != "" {
				assert.JSONEq(t, fmt.Sprintf(`{"error": %q}`, tt.wantMsg), resp.body)
			}
		})
	}
	assert.Contains(t, getBody(t, env, "/metrics"), `portal_guard_denials_total{dashboard="admin"} 1`)
}

func TestLegacyParentPath(t *testing.T) {
	env := setup(t)
	b := env.newBrowser(t)

	resp := b.get("/Pather/Rosa?x=1")
	assert.Equal(t, http.StatusMovedPermanently, resp.code)
	assert.Equal(t, "/Parent/Rosa?x=1", resp.location)

	resp = b.get("/Pather")
	assert.Equal(t, "/Parent", resp.location)

	resp = b.login(rosa)
	assert.Equal(t, "/Parent/Rosa", resp.location)
}

func TestAdminDashboard(t *testing.T) {
	env := setup(t)
	grades := make([]map[string]interface{}, 0, 10)
	for i := 1; i <= 10; i++ {
		grades = append(grades, map[string]interface{}{"id_grado": i, "nombre_grado": fmt.Sprintf("Grado %d", i)})
	}
	env.backend.SetList("grado", grades)

	b := env.newBrowser(t)
	b.login(luis)

	resp := b.get("/Administration/Luis")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Contains(t, resp.body, `data-view="headeraddmin"`)
	assert.Contains(t, resp.body, "?view=infoalumnos")

	resp = b.get("/Administration/Luis?view=grados")
	assert.Contains(t, resp.body, "GRADOS")
	assert.Contains(t, resp.body, "Página 1 de 2")
	assert.Contains(t, resp.body, "Grado 8")
	assert.NotContains(t, resp.body, "Grado 9")
	assert.Contains(t, resp.body, `<span class="disabled">Anterior</span>`)

	resp = b.get("/Administration/Luis?view=grados&page=2")
	assert.Contains(t, resp.body, "Página 2 de 2")
	assert.Contains(t, resp.body, "Grado 9")
	assert.Contains(t, resp.body, `<span class="disabled">Siguiente</span>`)

	// out of range pages clamp, and the mounted panel is remembered
	b.get("/Administration/Luis?page=5")
	resp = b.get("/Administration/Luis")
	assert.Contains(t, resp.body, `data-view="grados"`)
	assert.Contains(t, resp.body, "Página 2 de 2")

	// switching view drops the previous panel state
	resp = b.get("/Administration/Luis?view=usuarios")
	assert.Contains(t, resp.body, "USUARIOS")
	assert.Contains(t, resp.body, "Página 1 de 1")
	assert.Contains(t, resp.body, "No encontrado")

	resp = b.get("/Administration/Luis?view=nope", "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.code)
	assert.Contains(t, resp.body, `"view"`)

	resp = b.get("/Administration/Luis?page=0", "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.code)
	assert.Contains(t, resp.body, `"page"`)

	resp = b.get("/Administration/Luis?view=nope")
	assert.Equal(t, http.StatusBadRequest, resp.code)
	assert.Contains(t, resp.body, "<h1>400</h1>")
}

func TestSessionCookie(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	var issued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			issued = c
		}
	}
	require.NotNil(t, issued)
	assert.True(t, issued.HttpOnly)
	id, err := env.server.cookies.parse(issued.Value)
	require.NoError(t, err)

	// a known cookie keeps its session
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
	_, err = env.server.sessions.Get(req.Context(), id)
	assert.NoError(t, err)
}

func TestSessionRegistryClosed(t *testing.T) {
	env := setup(t)
	env.server.sessions.(*inmem.Registry).Close()

	resp := env.newBrowser(t).get("/", "application/json")
	assert.Equal(t, http.StatusInternalServerError, resp.code)

	select {
	case sig := <-env.server.ShutdownSignal():
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(time.Second):
		t.Fatal("server was not asked to shut down")
	}
	require.NotEmpty(t, env.logger.entries)
	assert.Equal(t, "error", env.logger.entries[0].level)
}

func TestCookieSigner(t *testing.T) {
	conf := testConf()
	cs := newCookieSigner(conf)

	c, err := cs.issue("abc")
	require.NoError(t, err)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)
	id, err := cs.parse(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	conf.SecretKey = "another"
	_, err = newCookieSigner(conf).parse(c.Value)
	assert.Equal(t, errInvalidCookie, err)

	cs.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := cs.issue("abc")
	require.NoError(t, err)
	_, err = cs.parse(old.Value)
	assert.Equal(t, errInvalidCookie, err)
}

func TestCarouselSocket(t *testing.T) {
	env := setup(t)

	t.Run("slides", func(t *testing.T) {
		conn := dialCarousel(t, env, env.newBrowser(t))
		defer conn.Close()

		var got []int
		for i := 0; i < 3; i++ {
			sl := readSlide(t, conn)
			assert.Equal(t, 2, sl.Count)
			assert.True(t, strings.HasPrefix(sl.Src, "data:image/png;base64,"))
			got = append(got, sl.Index)
		}
		assert.Equal(t, []int{0, 1, 0}, got)
	})

	t.Run("no images", func(t *testing.T) {
		env.backend.SetImages()
		defer env.backend.SetImages(testutil.PNG, testutil.PNG)

		conn := dialCarousel(t, env, env.newBrowser(t))
		defer conn.Close()
		assert.Equal(t, slide{Error: msgCarouselFailed}, readSlide(t, conn))
	})

	t.Run("unmounts on login", func(t *testing.T) {
		b := env.newBrowser(t)
		conn := dialCarousel(t, env, b)
		defer conn.Close()
		readSlide(t, conn)

		b.login(ana)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var err error
		for err == nil {
			_, _, err = conn.ReadMessage()
		}
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
	})
}

// Helpers

func echoMap(key, val string) map[string]string {
	return map[string]string{key: val}
}

func getBody(t *testing.T, env *testEnv, path string) string {
	return env.newBrowser(t).get(path).body
}

func dialCarousel(t *testing.T, env *testEnv, b *browser) *websocket.Conn {
	b.get("/login") // gets the session cookie
	dialer := websocket.Dialer{Jar: b.client.Jar, HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(env.http.URL, "http")+"/login/carousel", nil)
	require.NoError(t, err)
	return conn
}

func readSlide(t *testing.T, conn *websocket.Conn) slide {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var sl slide
	require.NoError(t, json.Unmarshal(data, &sl))
	return sl
}
