package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/trezcool/escuela/core/user"
)

// PNG is a 1x1 transparent PNG, base64 encoded.
const PNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type reply struct {
	status int
	body   interface{}
}

// Backend is a fake of the school REST backend.
type Backend struct {
	*httptest.Server

	mu      sync.Mutex
	users   map[string]user.Identity // by email
	images  []string
	lists   map[string]interface{}
	replies  map[string]reply
	calls    map[string]int
	contacts []map[string]string
}

func NewBackend(t *testing.T) *Backend {
	b := &Backend{
		users:   make(map[string]user.Identity),
		images:  []string{PNG, PNG},
		lists:   make(map[string]interface{}),
		replies: make(map[string]reply),
		calls:   make(map[string]int),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// BaseURL is the API base, ready to be used as `apiURL`.
func (b *Backend) BaseURL() string { return b.Server.URL + "/" }

func (b *Backend) AddUser(usr user.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[usr.Email] = usr
}

func (b *Backend) SetImages(imgs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images = imgs
}

// SetList sets the JSON body returned by GET endpoint.
func (b *Backend) SetList(endpoint string, body interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[endpoint] = body
}

// Reply forces the answer of endpoint, whatever the request.
func (b *Backend) Reply(endpoint string, status int, body interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[endpoint] = reply{status: status, body: body}
}

func (b *Backend) ClearReply(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.replies, endpoint)
}

// Contacts returns the contact messages received so far.
func (b *Backend) Contacts() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.contacts...)
}

func (b *Backend) Calls(endpoint string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[endpoint]
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[endpoint]++

	if rep, ok := b.replies[endpoint]; ok {
		writeJSON(w, rep.status, rep.body)
		return
	}

	switch {
	case endpoint == "check-email" && r.Method == http.MethodPost:
		var in struct {
			Email string `json:"correo_usuario"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		_, ok := b.users[in.Email]
		writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})

	case endpoint == "login" && r.Method == http.MethodPost:
		var in struct {
			Email    string `json:"correo_usuario"`
			Password string `json:"pwd_usuario"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		usr, ok := b.users[in.Email]
		if !ok || usr.Password != in.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Credenciales inválidas"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tbl_users": usr})

	case endpoint == "carrusel_imgs" && r.Method == http.MethodGet:
		imgs := make([]map[string]interface{}, 0, len(b.images))
		for i, img := range b.images {
			imgs = append(imgs, map[string]interface{}{"id_carrusel": i + 1, "carrusel": img})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"carrusel_imgs": imgs})

	case endpoint == "mensaje_contacto/insert" && r.Method == http.MethodPost:
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		b.contacts = append(b.contacts, in)
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Mensaje enviado correctamente"})

	case r.Method == http.MethodGet:
		body, ok := b.lists[endpoint]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No encontrado"})
			return
		}
		writeJSON(w, http.StatusOK, body)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Método no permitido"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
