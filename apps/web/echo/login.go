package webapp

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/dashboard"
	"github.com/trezcool/escuela/core/session"
)

const (
	msgLoggedOut   = "Sesión cerrada correctamente"
	msgUnknownRole = "Tu cuenta no tiene un panel asignado."
	loginPath      = "/login"
)

type (
	emailInput struct {
		Email string `json:"correo_usuario" form:"correo_usuario"`
	}

	passwordInput struct {
		Password string `json:"pwd_usuario" form:"pwd_usuario"`
	}

	loginData struct {
		Email            string
		Error            string
		AwaitingPassword bool
		Authenticated    bool
	}

	// flowResult answers JSON clients of the login endpoints.
	flowResult struct {
		Outcome  string `json:"outcome"`
		Step     string `json:"step"`
		Error    string `json:"error,omitempty"`
		Redirect string `json:"redirect,omitempty"`
	}
)

func registerLogin(g *echo.Group, s *server) {
	lg := g.Group(loginPath)
	lg.GET("", s.loginView)
	lg.POST("/email", s.submitEmail)
	lg.POST("/password", s.submitPassword)
	lg.POST("/reset", s.resetLogin)
	lg.GET("/carousel", s.carouselSocket)

	g.POST("/logout", s.logout)
}

// Handlers

func (s *server) loginView(ctx echo.Context) error {
	sess := currentSession(ctx)
	if sess.Read().Authenticated {
		if dest, err := dashboard.Resolve(sess.Read().Identity); err == nil {
			return ctx.Redirect(http.StatusSeeOther, dest.Path)
		}
	}

	st := sess.Flow()
	data := loginData{
		Email:            st.Email,
		Error:            st.Error,
		AwaitingPassword: st.Step == auth.AwaitingPassword,
		Authenticated:    st.Step == auth.Authenticated,
	}
	return ctx.Render(http.StatusOK, "login", newView(ctx, "Iniciar sesión", data))
}

func (s *server) submitEmail(ctx echo.Context) error {
	var in emailInput
	if err := ctx.Bind(&in); err != nil {
		return errors.Wrap(err, "binding to emailInput")
	}

	sess := currentSession(ctx)
	err := s.flow.SubmitEmail(ctx.Request().Context(), sess, in.Email)
	s.metrics.logins.WithLabelValues("email", auth.Outcome(err)).Inc()
	return s.flowResponse(ctx, sess, err, loginPath)
}

func (s *server) submitPassword(ctx echo.Context) error {
	var in passwordInput
	if err := ctx.Bind(&in); err != nil {
		return errors.Wrap(err, "binding to passwordInput")
	}

	sess := currentSession(ctx)
	usr, err := s.flow.SubmitPassword(ctx.Request().Context(), sess, in.Password)
	s.metrics.logins.WithLabelValues("password", auth.Outcome(err)).Inc()
	if err != nil {
		return s.flowResponse(ctx, sess, err, loginPath)
	}

	dest, err := dashboard.Resolve(&usr)
	if err != nil {
		// authenticated, but there is nowhere to go
		s.logger.Warn("login without dashboard", err, usr)
		sess.Notify(core.ErrorNotice(msgUnknownRole))
		return s.flowResponse(ctx, sess, nil, loginPath)
	}
	sess.SetNav(dest.Nav)
	sess.Notify(dest.Welcome)
	return s.flowResponse(ctx, sess, nil, dest.Path)
}

func (s *server) resetLogin(ctx echo.Context) error {
	sess := currentSession(ctx)
	s.flow.Reset(sess)
	return s.flowResponse(ctx, sess, nil, loginPath)
}

func (s *server) logout(ctx echo.Context) error {
	sess := currentSession(ctx)
	sess.Logout()
	sess.Notify(core.SuccessNotice(msgLoggedOut))
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, flowResult{Outcome: "ok", Step: sess.Flow().Step.String(), Redirect: dashboard.HomePath})
	}
	return ctx.Redirect(http.StatusSeeOther, dashboard.HomePath)
}

// flowResponse redirects browsers (post/redirect/get) and describes the flow to JSON clients.
// Recoverable flow errors were already turned into inline errors and notices.
func (s *server) flowResponse(ctx echo.Context, sess *session.Session, err error, redirect string) error {
	if !wantsJSON(ctx) {
		return ctx.Redirect(http.StatusSeeOther, redirect)
	}

	st := sess.Flow()
	res := flowResult{Outcome: auth.Outcome(err), Step: st.Step.String(), Error: st.Error, Redirect: redirect}
	code := http.StatusOK
	switch err {
	case nil, auth.ErrStale:
	case auth.ErrUnexpectedStep:
		code = http.StatusConflict
	default:
		code = http.StatusUnprocessableEntity
		if res.Error == "" {
			res.Error = core.UserMessage(err, auth.MsgUnexpected)
		}
	}
	return ctx.JSON(code, res)
}
