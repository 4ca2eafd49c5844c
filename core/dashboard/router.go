package dashboard

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/session"
	"github.com/trezcool/escuela/core/user"
)

var (
	ErrNoIdentity  = errors.New("no identity to route")
	ErrUnknownRole = errors.New("no dashboard for role")
)

// Dashboard is a top-level destination of the portal.
type Dashboard int

const (
	Public Dashboard = iota
	Admin
	Student
	Teacher
	Parent
)

// HomePath is where denied or logged-out visitors are sent.
const HomePath = "/"

type info struct {
	base   string // path prefix, the user name is appended to it
	role   user.Role
	denied string
}

var dashboards = map[Dashboard]info{
	Public:  {base: HomePath},
	Admin:   {base: "/Administration", role: user.RoleAdmin, denied: "No tienes permisos de administrador."},
	Student: {base: "/Student", role: user.RoleStudent, denied: "No tienes permisos de alumno."},
	Teacher: {base: "/Teacher", role: user.RoleTeacher, denied: "No tienes permisos de docente."},
	Parent:  {base: "/Parent", role: user.RoleParent, denied: "No tienes permisos de familiar."},
}

var byRole = map[user.Role]Dashboard{
	user.RoleAdmin:   Admin,
	user.RoleStudent: Student,
	user.RoleTeacher: Teacher,
	user.RoleParent:  Parent,
}

// For returns the dashboard reserved to role. Roles sent by the backend are validated first.
func For(role user.Role) (Dashboard, error) {
	r, err := user.ParseRole(int(role))
	if err != nil {
		return Public, errors.Wrap(ErrUnknownRole, err.Error())
	}
	return byRole[r], nil
}

// Base is the path prefix the dashboard is mounted on.
func (d Dashboard) Base() string { return dashboards[d].base }

// Role is the role required to view the dashboard (zero for Public).
func (d Dashboard) Role() user.Role { return dashboards[d].role }

func (d Dashboard) String() string {
	switch d {
	case Public:
		return "public"
	case Admin:
		return "admin"
	case Student:
		return "student"
	case Teacher:
		return "teacher"
	case Parent:
		return "parent"
	}
	return fmt.Sprintf("dashboard(%d)", int(d))
}

// Destination is where a freshly authenticated user is sent.
type Destination struct {
	Dashboard Dashboard
	Path      string
	Nav       session.NavState // travels next to the path, not in it
	Welcome   core.Notice
}

// Resolve maps an identity to its dashboard. An absent identity or an unknown role
// yields an error and no destination.
func Resolve(usr *user.Identity) (Destination, error) {
	if usr == nil {
		return Destination{}, ErrNoIdentity
	}
	d, err := For(usr.Role)
	if err != nil {
		return Destination{}, err
	}

	display := usr.Name
	if d == Admin {
		display = usr.FullName()
	}
	return Destination{
		Dashboard: d,
		Path:      d.Base() + "/" + url.PathEscape(usr.Name),
		Nav:       session.NavState{DisplayName: display},
		Welcome:   core.SuccessNotice(fmt.Sprintf("Bienvenido %s %s", usr.Role.Name(), usr.Name)),
	}, nil
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect string
	Notice   core.Notice
}

// Enforce decides whether snap may view dashboard d. It is evaluated once per page
// render; a session changing afterwards is only seen on the next render.
func Enforce(d Dashboard, snap session.Snapshot) Decision {
	inf, ok := dashboards[d]
	if !ok {
		return Decision{Redirect: HomePath, Notice: core.ErrorNotice("No tienes permisos.")}
	}
	if d == Public {
		return Decision{Allow: true}
	}
	if snap.Authenticated && snap.Identity != nil && snap.Identity.Role == inf.role {
		return Decision{Allow: true}
	}
	return Decision{Redirect: HomePath, Notice: core.ErrorNotice(inf.denied)}
}
