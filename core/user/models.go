package user

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Role is the backend's role identifier (`idRol`).
type Role int

// Roles
const (
	RoleAdmin   Role = 1
	RoleStudent Role = 2
	RoleTeacher Role = 3
	RoleParent  Role = 4
)

var (
	ErrInvalidRole = errors.New("invalid role")

	Roles = []Role{RoleAdmin, RoleStudent, RoleTeacher, RoleParent}

	roleNames = map[Role]string{
		RoleAdmin:   "administrador",
		RoleStudent: "alumno",
		RoleTeacher: "docente",
		RoleParent:  "familiar",
	}
)

// ParseRole converts a raw role identifier, failing for anything outside the four known roles.
func ParseRole(id int) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, errors.Wrapf(ErrInvalidRole, "role %d", id)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Name returns the Spanish noun used in greetings ("Bienvenido <name> ...").
func (r Role) Name() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "rol " + strconv.Itoa(int(r))
}

func (r Role) String() string { return r.Name() }

// Identity is the authenticated user record as returned by the backend `login` endpoint.
type Identity struct {
	ID         int    `json:"id_usuario"`
	Name       string `json:"nombre_usuario"`
	FirstSurn  string `json:"app_usuario"`
	SecondSurn string `json:"apm_usuario"`
	Role       Role   `json:"idRol"`
	Email      string `json:"correo_usuario"`
	Password   string `json:"pwd_usuario,omitempty"`
	Photo      string `json:"foto_usuario,omitempty"` // base64
}

// FullName is the given name followed by both surnames.
func (id Identity) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{id.Name, id.FirstSurn, id.SecondSurn} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// CheckPassword compares the record's password field against pwd.
// The backend stores and returns it in plain text.
func (id Identity) CheckPassword(pwd string) bool {
	return id.Password == pwd
}

// WithoutCredentials returns a copy that no longer carries the password.
func (id Identity) WithoutCredentials() Identity {
	id.Password = ""
	return id
}
