package webapp

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/session"
)

var errInvalidCookie = errors.New("invalid session cookie")

// cookieSigner issues the session cookie: an HS256 JWT whose subject is the session ID.
type cookieSigner struct {
	name   string
	issuer string
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func newCookieSigner(conf *core.Config) *cookieSigner {
	return &cookieSigner{
		name:   conf.Session.CookieName,
		issuer: conf.AppName,
		key:    []byte(conf.SecretKey),
		ttl:    conf.Session.TTL,
		secure: conf.Session.Secure,
		now:    time.Now,
	}
}

func (cs *cookieSigner) issue(id string) (*http.Cookie, error) {
	now := cs.now()
	claims := jwt.StandardClaims{
		Issuer:    cs.issuer,
		Subject:   id,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(cs.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cs.key)
	if err != nil {
		return nil, errors.Wrap(err, "signing session cookie")
	}
	return &http.Cookie{
		Name:     cs.name,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(cs.ttl),
		MaxAge:   int(cs.ttl.Seconds()),
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// parse returns the session ID carried by a cookie value.
func (cs *cookieSigner) parse(value string) (string, error) {
	var claims jwt.StandardClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidCookie
		}
		return cs.key, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidCookie
	}
	if claims.Issuer != cs.issuer || claims.Subject == "" {
		return "", errInvalidCookie
	}
	return claims.Subject, nil
}

// sessionMiddleware provides the browser's Session to the handlers and saves it once they are done.
// Browsers without a valid cookie get a new Session.
func (s *server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		sess, err := s.loadSession(ctx)
		if err != nil {
			return err
		}
		ctx.SetRequest(req.WithContext(session.NewContext(req.Context(), sess)))

		hErr := next(ctx)

		if err := s.sessions.Save(req.Context(), sess); err != nil {
			if hErr != nil {
				return hErr
			}
			return errors.Wrap(registryErr(err), "saving session")
		}
		return hErr
	}
}

func (s *server) loadSession(ctx echo.Context) (*session.Session, error) {
	if c, err := ctx.Cookie(s.cookies.name); err == nil {
		if id, err := s.cookies.parse(c.Value); err == nil {
			sess, err := s.sessions.Get(ctx.Request().Context(), id)
			if err == nil {
				return sess, nil
			}
			if errors.Cause(err) != session.ErrNotFound {
				return nil, errors.Wrap(registryErr(err), "loading session")
			}
		}
	}

	sess := session.New(uuid.NewString())
	c, err := s.cookies.issue(sess.ID())
	if err != nil {
		return nil, err
	}
	ctx.SetCookie(c)
	return sess, nil
}

// registryErr turns a closed registry into a shutdown error: no request can be served anymore.
func registryErr(err error) error {
	if errors.Is(err, session.ErrClosed) {
		return core.NewShutdownError(err.Error())
	}
	return err
}

// currentSession is the Session provided by sessionMiddleware.
func currentSession(ctx echo.Context) *session.Session {
	return session.FromContext(ctx.Request().Context())
}
