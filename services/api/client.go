package apisvc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/user"
)

const (
	msgListFailed       = "Error al obtener los datos."
	msgNoCarouselImages = "No se pudieron cargar las imágenes del carrusel."
)

var ErrNoCarouselImages = core.NewUserError(msgNoCarouselImages)

// Error is a non-OK answer of the backend.
type Error struct {
	Status  int
	Message string
}

func (err *Error) Error() string {
	return http.StatusText(err.Status) + ": " + err.Message
}

// Record is one row of a listing, as sent by the backend.
type Record map[string]interface{}

type (
	Welcome struct {
		ID    int    `json:"id_welcome"`
		Text  string `json:"welcome_text"`
		Photo string `json:"foto_welcome"`
	}

	NewsItem struct {
		ID          int    `json:"id_actividades_noticias"`
		Title       string `json:"titulo_actividad_noticia"`
		Description string `json:"descripcion_actividad_noticia"`
		Image       string `json:"imagen_actividad_noticia"`
		Date        string `json:"fecha_actividad_noticias"`
	}

	Career struct {
		ID          int    `json:"id_carrera_tecnica"`
		Name        string `json:"nombre_carrera_tecnica"`
		Description string `json:"descripcion_carrera_tecnica"`
		Photo       string `json:"foto_carrera_tecnica"`
	}

	Mission struct {
		ID   int    `json:"id_mision"`
		Text string `json:"mision_text"`
	}

	Vision struct {
		ID   int    `json:"id_vision"`
		Text string `json:"vision_text"`
	}

	AboutUs struct {
		ID    int    `json:"id_sobre_nosotros"`
		Text  string `json:"txt_sobre_nosotros"`
		Image string `json:"imagen_sobre_nosotros"`
		Date  string `json:"fecha_sobre_nosotros"`
	}

	Scholarship struct {
		ID           int    `json:"id_info_becas"`
		Title        string `json:"titulo_info_becas"`
		Description  string `json:"descripcion_info_becas"`
		Requirements string `json:"requisitos_info_becas"`
		Photo        string `json:"foto_info_becas"`
	}

	// ContactMessage is a message left through the public contact form.
	ContactMessage struct {
		Name    string `json:"nombre_mensaje_contacto" form:"nombre_mensaje_contacto" validate:"required,max=100"`
		Email   string `json:"correo_mensaje_contacto" form:"correo_mensaje_contacto" validate:"required,email"`
		Reason  string `json:"motivo_mensaje_contacto" form:"motivo_mensaje_contacto" validate:"max=150"`
		Message string `json:"mensaje_mensaje_contacto" form:"mensaje_mensaje_contacto" validate:"required,max=2000"`
	}
)

const MsgContactFailed = "Error al enviar el mensaje. Por favor, inténtalo de nuevo."

// Client talks to the school REST backend. Endpoints are relative to the base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ auth.Authenticator = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: core.NormalizeBaseURL(baseURL),
		http:    &http.Client{Timeout: timeout},
	}
}

// CheckEmail asks the backend whether an account uses email.
func (c *Client) CheckEmail(ctx context.Context, email string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	body := map[string]string{"correo_usuario": email}
	if err := c.do(ctx, http.MethodPost, "check-email", body, &resp, auth.MsgCheckEmailFailed); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Login authenticates email/pwd and returns the matching user record.
func (c *Client) Login(ctx context.Context, email, pwd string) (user.Identity, error) {
	var resp struct {
		User *user.Identity `json:"tbl_users"`
	}
	body := map[string]string{"correo_usuario": email, "pwd_usuario": pwd}
	if err := c.do(ctx, http.MethodPost, "login", body, &resp, auth.MsgLoginFailed); err != nil {
		return user.Identity{}, err
	}
	if resp.User == nil {
		return user.Identity{}, core.NewUserError(auth.MsgLoginFailed, errors.New("login response without user"))
	}
	return *resp.User, nil
}

// CarouselImages returns the base64 encoded login carousel pictures, in order.
func (c *Client) CarouselImages(ctx context.Context) ([]string, error) {
	var resp struct {
		Images []struct {
			Data string `json:"carrusel"`
		} `json:"carrusel_imgs"`
	}
	if err := c.do(ctx, http.MethodGet, "carrusel_imgs", nil, &resp, msgNoCarouselImages); err != nil {
		return nil, err
	}
	imgs := make([]string, 0, len(resp.Images))
	for _, img := range resp.Images {
		if img.Data != "" {
			imgs = append(imgs, img.Data)
		}
	}
	if len(imgs) == 0 {
		return nil, ErrNoCarouselImages
	}
	return imgs, nil
}

// List fetches every record of endpoint. When envelope is set, the records are read from
// that key of the response object instead of a bare array.
func (c *Client) List(ctx context.Context, endpoint, envelope string) ([]Record, error) {
	if envelope == "" {
		var recs []Record
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &recs, msgListFailed); err != nil {
			return nil, err
		}
		return recs, nil
	}

	var resp map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp, msgListFailed); err != nil {
		return nil, err
	}
	var recs []Record
	if raw, ok := resp[envelope]; ok {
		if err := decode(bytes.NewReader(raw), &recs); err != nil {
			return nil, errors.Wrapf(err, "decoding %s.%s", endpoint, envelope)
		}
	}
	return recs, nil
}

func (c *Client) Welcome(ctx context.Context) ([]Welcome, error) {
	var items []Welcome
	err := c.do(ctx, http.MethodGet, "welcome", nil, &items, "Error al obtener la bienvenida.")
	return items, err
}

func (c *Client) News(ctx context.Context) ([]NewsItem, error) {
	var items []NewsItem
	err := c.do(ctx, http.MethodGet, "actividades_noticias", nil, &items, "Error al obtener las noticias.")
	return items, err
}

func (c *Client) Careers(ctx context.Context) ([]Career, error) {
	var resp struct {
		Careers []Career `json:"carreras"`
	}
	err := c.do(ctx, http.MethodGet, "carreras/tecnicas", nil, &resp, "Error al obtener las carreras técnicas")
	return resp.Careers, err
}

func (c *Client) Missions(ctx context.Context) ([]Mission, error) {
	var items []Mission
	err := c.do(ctx, http.MethodGet, "mision", nil, &items, "Error al obtener las misiones")
	return items, err
}

func (c *Client) Visions(ctx context.Context) ([]Vision, error) {
	var items []Vision
	err := c.do(ctx, http.MethodGet, "vision", nil, &items, "Error al obtener las visiones")
	return items, err
}

func (c *Client) AboutUs(ctx context.Context) ([]AboutUs, error) {
	var items []AboutUs
	err := c.do(ctx, http.MethodGet, "sobre_nosotros", nil, &items, "Error al obtener la información sobre nosotros")
	return items, err
}

func (c *Client) Scholarships(ctx context.Context) ([]Scholarship, error) {
	var items []Scholarship
	err := c.do(ctx, http.MethodGet, "info_becas", nil, &items, "Error al obtener la información de becas")
	return items, err
}

// SendContact posts msg to the backend and returns its confirmation text.
func (c *Client) SendContact(ctx context.Context, msg ContactMessage) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "mensaje_contacto/insert", msg, &resp, MsgContactFailed); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do sends a request and decodes a successful JSON answer into out.
// Non-OK answers become a core.UserError carrying the backend's `error` message, or failMsg.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}, failMsg string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s body", endpoint)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimPrefix(endpoint, "/"), body)
	if err != nil {
		return errors.Wrapf(err, "building %s request", endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: failMsg}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if decode(resp.Body, &payload) == nil {
			if payload.Error != "" {
				apiErr.Message = payload.Error
			} else if payload.Message != "" {
				apiErr.Message = payload.Message
			}
		}
		return core.NewUserError(apiErr.Message, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := decode(resp.Body, out); err != nil {
		return errors.Wrapf(err, "decoding %s response", endpoint)
	}
	return nil
}

func decode(r io.Reader, out interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(out)
}
