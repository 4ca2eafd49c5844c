package webapp

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/carousel"
	"github.com/trezcool/escuela/core/dashboard"
	apisvc "github.com/trezcool/escuela/services/api"
)

const contactAnchor = "/#contacto"

type homeData struct {
	Welcome      []apisvc.Welcome
	News         []apisvc.NewsItem
	Careers      []apisvc.Career
	Missions     []apisvc.Mission
	Visions      []apisvc.Vision
	AboutUs      []apisvc.AboutUs
	Scholarships []apisvc.Scholarship
	Errors       map[string]string // per section
}

// home renders the public page. Its sections are fetched concurrently and fail independently.
func (s *server) home(ctx echo.Context) error {
	var data homeData

	secs := newSections(ctx.Request().Context())
	secs.Go("welcome", func(c context.Context) (err error) {
		data.Welcome, err = s.backend.Welcome(c)
		return
	})
	secs.Go("news", func(c context.Context) (err error) {
		data.News, err = s.backend.News(c)
		return
	})
	secs.Go("careers", func(c context.Context) (err error) {
		data.Careers, err = s.backend.Careers(c)
		return
	})
	secs.Go("mission", func(c context.Context) (err error) {
		data.Missions, err = s.backend.Missions(c)
		return
	})
	secs.Go("vision", func(c context.Context) (err error) {
		data.Visions, err = s.backend.Visions(c)
		return
	})
	secs.Go("about", func(c context.Context) (err error) {
		data.AboutUs, err = s.backend.AboutUs(c)
		return
	})
	secs.Go("scholarships", func(c context.Context) (err error) {
		data.Scholarships, err = s.backend.Scholarships(c)
		return
	})
	errs, err := secs.Wait()
	if err != nil {
		return err
	}

	data.Errors = make(map[string]string, len(errs))
	for section, err := range errs {
		s.metrics.backend.WithLabelValues(section).Inc()
		data.Errors[section] = core.UserMessage(err, "Error al obtener los datos.")
	}

	// the careers list moves by one every carousel interval
	data.Careers = carousel.Rotate(data.Careers, rotation(s.now(), s.conf.Carousel.Interval))

	return ctx.Render(http.StatusOK, "home", newView(ctx, "Inicio", data))
}

// contact forwards the public contact form to the backend.
func (s *server) contact(ctx echo.Context) error {
	var msg apisvc.ContactMessage
	if err := ctx.Bind(&msg); err != nil {
		return errors.Wrap(err, "binding to ContactMessage")
	}
	msg.Name = core.CleanString(msg.Name)
	msg.Email = core.CleanString(msg.Email)
	msg.Reason = core.CleanString(msg.Reason)
	msg.Message = core.CleanString(msg.Message)

	sess := currentSession(ctx)
	if err := core.Validate.Struct(msg); err != nil {
		var vErrs validator.ValidationErrors
		if wantsJSON(ctx) || !errors.As(err, &vErrs) {
			return err
		}
		fldErrs := core.TranslateErrors(vErrs)
		fields := make([]string, 0, len(fldErrs))
		for fld := range fldErrs {
			fields = append(fields, fld)
		}
		sort.Strings(fields)
		for _, fld := range fields {
			sess.Notify(core.ErrorNotice(fldErrs[fld]))
		}
		return ctx.Redirect(http.StatusSeeOther, contactAnchor)
	}

	confirm, err := s.backend.SendContact(ctx.Request().Context(), msg)
	if err != nil {
		s.metrics.backend.WithLabelValues("contact").Inc()
		s.logger.Warn("sending contact message", err)
		text := core.UserMessage(err, apisvc.MsgContactFailed)
		if wantsJSON(ctx) {
			return ctx.JSON(http.StatusBadGateway, echo.Map{"error": text})
		}
		sess.Notify(core.ErrorNotice(text))
		return ctx.Redirect(http.StatusSeeOther, contactAnchor)
	}

	if confirm == "" {
		confirm = "Mensaje enviado"
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, echo.Map{"message": confirm})
	}
	sess.Notify(core.SuccessNotice(confirm))
	return ctx.Redirect(http.StatusSeeOther, dashboard.HomePath)
}

func rotation(now time.Time, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(now.UnixNano() / int64(interval))
}
