package webapp

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/session"
	"github.com/trezcool/escuela/core/user"
	apisvc "github.com/trezcool/escuela/services/api"
	mediasvc "github.com/trezcool/escuela/services/media"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

var pages = []string{"home", "login", "dashboard", "admin", "error"}

// view is what every page template receives.
type view struct {
	Title    string
	Notices  []core.Notice
	Identity *user.Identity
	Nav      session.NavState
	Data     interface{}
}

// newView drains the pending notices of the current session into a page.
func newView(ctx echo.Context, title string, data interface{}) view {
	sess := currentSession(ctx)
	return view{
		Title:    title,
		Notices:  sess.DrainNotices(),
		Identity: sess.Read().Identity,
		Nav:      sess.Nav(),
		Data:     data,
	}
}

type renderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer() (*renderer, error) {
	base, err := template.New("layout").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parsing layout")
	}
	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, errors.Wrapf(err, "cloning layout for %s", name)
		}
		if t, err = t.ParseFS(templateFS, "templates/"+name+".gohtml"); err != nil {
			return nil, errors.Wrapf(err, "parsing %s template", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

var templateFuncs = template.FuncMap{
	"year": func() int { return time.Now().Year() },
	"add":  func(a, b int) int { return a + b },
	// field renders one value of a backend record.
	"field": func(rec apisvc.Record, name string) string {
		v, ok := rec[name]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},
	// img turns a base64 picture into a safe <img> src.
	"img": func(b64 interface{}) template.URL {
		s, _ := b64.(string)
		if s == "" {
			return ""
		}
		uri, err := mediasvc.DataURI(s)
		if err != nil {
			return ""
		}
		return template.URL(uri)
	},
}
