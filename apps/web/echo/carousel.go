package webapp

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/carousel"
	"github.com/trezcool/escuela/core/session"
	mediasvc "github.com/trezcool/escuela/services/media"
)

const msgCarouselFailed = "No se pudieron cargar las imágenes del carrusel."

// slide is pushed to the login view every time the carousel moves.
type slide struct {
	Index int    `json:"index"`
	Count int    `json:"count,omitempty"`
	Src   string `json:"src,omitempty"`
	Error string `json:"error,omitempty"`
}

// carouselSocket mounts one login carousel for the lifetime of the websocket.
// It unmounts when the client goes away or the session logs in.
func (s *server) carouselSocket(ctx echo.Context) error {
	sess := currentSession(ctx)
	conn, err := s.upgrader.Upgrade(ctx.Response(), ctx.Request(), ctx.Response().Header())
	if err != nil {
		return nil // the upgrader already answered
	}
	defer conn.Close()

	s.metrics.carousel.Inc()
	defer s.metrics.carousel.Dec()

	m := &carouselMount{
		conn:     conn,
		backend:  s.backend,
		runner:   carousel.NewRunner(s.conf.Carousel.Interval),
		maxWidth: s.conf.Carousel.MaxWidth,
		logger:   s.logger,
	}
	m.run(ctx.Request().Context(), sess)
	return nil
}

type carouselMount struct {
	conn     *websocket.Conn
	backend  Backend
	runner   *carousel.Runner
	maxWidth int
	logger   core.Logger

	wmu sync.Mutex
}

func (m *carouselMount) run(parent context.Context, sess *session.Session) {
	ctx, unmount := context.WithCancel(parent)
	defer unmount()

	if sess.Read().Authenticated {
		return
	}
	unsubscribe := sess.Subscribe(func(snap session.Snapshot) {
		if snap.Authenticated {
			unmount()
		}
	})
	defer unsubscribe()

	// reads only to notice the client going away
	go func() {
		defer unmount()
		for {
			if _, _, err := m.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	type fetched struct {
		srcs []string
		err  error
	}
	results := make(chan fetched, 1)
	go func() {
		imgs, err := m.backend.CarouselImages(ctx)
		if err != nil {
			results <- fetched{err: err}
			return
		}
		srcs, errs := mediasvc.FitAll(imgs, m.maxWidth)
		for _, e := range errs {
			m.logger.Warn("skipping carousel image", e)
		}
		results <- fetched{srcs: srcs}
	}()

	select {
	case <-ctx.Done():
		return // unmounted before the images arrived, the result is dropped
	case res := <-results:
		switch {
		case res.err != nil:
			m.send(slide{Error: core.UserMessage(res.err, msgCarouselFailed)})
		case len(res.srcs) == 0:
			m.send(slide{Error: msgCarouselFailed})
		default:
			srcs := res.srcs
			c := carousel.New(len(srcs))
			m.send(slide{Index: c.Index(), Count: len(srcs), Src: srcs[c.Index()]})
			m.runner.Start(ctx, c, func(i int) {
				if !m.send(slide{Index: i, Count: len(srcs), Src: srcs[i]}) {
					unmount()
				}
			})
		}
	}

	<-ctx.Done()
	m.runner.Stop()
	m.closeNormally()
}

func (m *carouselMount) send(sl slide) bool {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	return m.conn.WriteJSON(sl) == nil
}

func (m *carouselMount) closeNormally() {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = m.conn.WriteMessage(websocket.CloseMessage, msg)
}
