package webapp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/dashboard"
	"github.com/trezcool/escuela/core/panel"
	apisvc "github.com/trezcool/escuela/services/api"
)

const legacyParentBase = "/Pather"

type (
	menuItem struct {
		Key    string
		Title  string
		Group  string
		Active bool
	}

	table struct {
		Source panel.Source
		Page   panel.Page[apisvc.Record]
		Error  string
	}

	adminData struct {
		Menu      []menuItem
		Spec      panel.Spec
		Tables    []table
		Paginated bool
		Pager     panel.Page[apisvc.Record]
	}

	adminQuery struct {
		View string `query:"view"`
		Page string `query:"page"`
	}
)

func registerDashboards(g *echo.Group, s *server) {
	mount := func(d dashboard.Dashboard, h echo.HandlerFunc) {
		dg := g.Group(d.Base(), s.guard(d))
		dg.GET("", h)
		dg.GET("/:userName", h)
	}
	mount(dashboard.Admin, s.adminDashboard)
	mount(dashboard.Student, s.roleDashboard(dashboard.Student, "Panel del alumno"))
	mount(dashboard.Teacher, s.roleDashboard(dashboard.Teacher, "Panel del docente"))
	mount(dashboard.Parent, s.roleDashboard(dashboard.Parent, "Panel del familiar"))

	g.GET(legacyParentBase, legacyParentRedirect)
	g.GET(legacyParentBase+"/:userName", legacyParentRedirect)
}

// guard lets through only the sessions allowed on dashboard d; the others are sent home with a notice.
func (s *server) guard(d dashboard.Dashboard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := currentSession(ctx)
			dec := dashboard.Enforce(d, sess.Read())
			if dec.Allow {
				return next(ctx)
			}
			s.metrics.denials.WithLabelValues(d.String()).Inc()
			sess.Notify(dec.Notice)
			if wantsJSON(ctx) {
				return echo.NewHTTPError(http.StatusForbidden, dec.Notice.Message)
			}
			return ctx.Redirect(http.StatusSeeOther, dec.Redirect)
		}
	}
}

func (s *server) roleDashboard(d dashboard.Dashboard, title string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.Render(http.StatusOK, "dashboard", newView(ctx, title, d))
	}
}

func legacyParentRedirect(ctx echo.Context) error {
	path := dashboard.Parent.Base()
	if name := ctx.Param("userName"); name != "" {
		path += "/" + name
	}
	if q := ctx.QueryString(); q != "" {
		path += "?" + q
	}
	return ctx.Redirect(http.StatusMovedPermanently, path)
}

// adminDashboard mounts the requested panel (`?view=<key>&page=<n>`), or the one left mounted
// in the session, and renders it from freshly fetched listings.
func (s *server) adminDashboard(ctx echo.Context) error {
	q := adminQuery{View: ctx.QueryParam("view"), Page: ctx.QueryParam("page")}
	page, err := q.validate()
	if err != nil {
		return err
	}

	sess := currentSession(ctx)
	var switchErr error
	sess.UpdateAdmin(func(d *panel.Dispatcher) {
		if q.View != "" {
			if switchErr = d.SwitchKey(q.View); switchErr != nil {
				return
			}
		}
		if page > 0 {
			d.Goto(page)
		}
	})
	if switchErr != nil {
		return errors.Wrap(switchErr, "switching admin view")
	}

	disp := sess.Admin()
	spec := disp.View.Spec()
	tables, err := s.fetchTables(ctx, spec, disp.Page)
	if err != nil {
		return err
	}
	data := adminData{
		Menu:      adminMenu(disp.View),
		Spec:      spec,
		Tables:    tables,
		Paginated: spec.PerPage > 0,
	}
	if len(data.Tables) > 0 {
		data.Pager = data.Tables[0].Page
	}
	return ctx.Render(http.StatusOK, "admin", newView(ctx, "Panel de administración", data))
}

// validate checks the admin query and returns the requested page, 0 when absent.
func (q adminQuery) validate() (int, error) {
	var fldErrs []core.FieldError
	if q.View != "" {
		if err := core.Validate.Var(q.View, "oneof="+strings.Join(panel.Keys(), " ")); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "view", Error: "view debe ser una vista válida."})
		}
	}
	var page int
	if q.Page != "" {
		p, err := strconv.Atoi(q.Page)
		if err == nil {
			err = core.Validate.Var(p, "min=1")
		}
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "page", Error: "page debe ser 1 o más."})
		}
		page = p
	}
	if fldErrs != nil {
		return 0, core.NewValidationError(errors.New("invalid admin query"), fldErrs...)
	}
	return page, nil
}

func adminMenu(current panel.View) []menuItem {
	views := panel.AllViews()
	menu := make([]menuItem, 0, len(views))
	for _, v := range views {
		spec := v.Spec()
		menu = append(menu, menuItem{Key: spec.Key, Title: spec.Title, Group: spec.Group, Active: v == current})
	}
	return menu
}

// fetchTables loads every listing of spec concurrently. A failing listing only fails its own table.
func (s *server) fetchTables(ctx echo.Context, spec panel.Spec, page int) ([]table, error) {
	tables := make([]table, len(spec.Sources))
	records := make([][]apisvc.Record, len(spec.Sources))
	secs := newSections(ctx.Request().Context())
	for i, src := range spec.Sources {
		i, src := i, src
		tables[i].Source = src
		secs.Go(strconv.Itoa(i), func(c context.Context) (err error) {
			records[i], err = s.backend.List(c, src.Endpoint, src.Envelope)
			return
		})
	}
	errs, err := secs.Wait()
	if err != nil {
		return nil, err
	}

	for i, src := range spec.Sources {
		if err, ok := errs[strconv.Itoa(i)]; ok {
			s.metrics.backend.WithLabelValues(src.Endpoint).Inc()
			s.logger.Warn("listing "+src.Endpoint, err)
			tables[i].Error = core.UserMessage(err, "Error al obtener los datos.")
			records[i] = nil
		}
		tables[i].Page = panel.Paginate(records[i], page, spec.PerPage)
	}
	return tables, nil
}
