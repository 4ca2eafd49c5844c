package dashboard

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/session"
	"github.com/trezcool/escuela/core/user"
)

func identity(role user.Role) *user.Identity {
	return &user.Identity{ID: 1, Name: "Ana", FirstSurn: "López", SecondSurn: "García", Role: role}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		role        user.Role
		want        Dashboard
		wantPath    string
		wantDisplay string
		wantWelcome string
	}{
		{role: user.RoleAdmin, want: Admin, wantPath: "/Administration/Ana", wantDisplay: "Ana López García", wantWelcome: "Bienvenido administrador Ana"},
		{role: user.RoleStudent, want: Student, wantPath: "/Student/Ana", wantDisplay: "Ana", wantWelcome: "Bienvenido alumno Ana"},
		{role: user.RoleTeacher, want: Teacher, wantPath: "/Teacher/Ana", wantDisplay: "Ana", wantWelcome: "Bienvenido docente Ana"},
		{role: user.RoleParent, want: Parent, wantPath: "/Parent/Ana", wantDisplay: "Ana", wantWelcome: "Bienvenido familiar Ana"},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			dest, err := Resolve(identity(tt.role))
			require.NoError(t, err)
			assert.Equal(t, tt.want, dest.Dashboard)
			assert.Equal(t, tt.wantPath, dest.Path)
			assert.Equal(t, tt.wantDisplay, dest.Nav.DisplayName)
			assert.Equal(t, core.SuccessNotice(tt.wantWelcome), dest.Welcome)

			// and no other dashboard
			for _, other := range []Dashboard{Admin, Student, Teacher, Parent} {
				if other != tt.want {
					assert.False(t, strings.HasPrefix(dest.Path, other.Base()+"/"), "%s routed to %s", dest.Path, other)
				}
			}
		})
	}
}

func TestResolve_NoNavigation(t *testing.T) {
	for _, role := range []user.Role{0, 5, -1, 42} {
		dest, err := Resolve(identity(role))
		assert.True(t, errors.Is(err, ErrUnknownRole), "role %d: %v", role, err)
		assert.Equal(t, Destination{}, dest)
	}
	dest, err := Resolve(nil)
	assert.Equal(t, ErrNoIdentity, err)
	assert.Equal(t, Destination{}, dest)
}

func TestResolve_EscapesName(t *testing.T) {
	usr := identity(user.RoleStudent)
	usr.Name = "José María"
	dest, err := Resolve(usr)
	require.NoError(t, err)
	assert.Equal(t, "/Student/Jos%C3%A9%20Mar%C3%ADa", dest.Path)
	assert.Equal(t, "José María", dest.Nav.DisplayName)
}

func TestEnforce(t *testing.T) {
	denied := Decision{Redirect: HomePath, Notice: core.ErrorNotice("No tienes permisos de administrador.")}
	tests := []struct {
		name string
		snap session.Snapshot
		want Decision
	}{
		{name: "unauthenticated", snap: session.Snapshot{}, want: denied},
		{name: "student", snap: session.Snapshot{Identity: identity(user.RoleStudent), Authenticated: true}, want: denied},
		{name: "teacher", snap: session.Snapshot{Identity: identity(user.RoleTeacher), Authenticated: true}, want: denied},
		{name: "parent", snap: session.Snapshot{Identity: identity(user.RoleParent), Authenticated: true}, want: denied},
		{name: "unknown role", snap: session.Snapshot{Identity: identity(9), Authenticated: true}, want: denied},
		{name: "admin", snap: session.Snapshot{Identity: identity(user.RoleAdmin), Authenticated: true}, want: Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Enforce(Admin, tt.snap))
		})
	}

	student := session.Snapshot{Identity: identity(user.RoleStudent), Authenticated: true}
	assert.True(t, Enforce(Student, student).Allow)
	assert.False(t, Enforce(Parent, student).Allow)
	assert.True(t, Enforce(Public, session.Snapshot{}).Allow)
	assert.False(t, Enforce(Dashboard(99), student).Allow)
}

func TestFor(t *testing.T) {
	for _, role := range user.Roles {
		d, err := For(role)
		require.NoError(t, err)
		assert.Equal(t, role, d.Role())
	}
	d, err := For(0)
	assert.Equal(t, Public, d)
	assert.Equal(t, ErrUnknownRole, errors.Cause(err))
	assert.Contains(t, err.Error(), "role 0: invalid role")

	_, err = For(user.Role(7))
	assert.True(t, errors.Is(err, ErrUnknownRole))
}
