package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/user"
)

var (
	// ErrStale is returned when a newer submission superseded the one being answered.
	ErrStale = errors.New("response superseded by a newer submission")
	// ErrUnexpectedStep is returned when a step is submitted while the flow is elsewhere.
	ErrUnexpectedStep = errors.New("login step is not current")
)

type Step int

const (
	AwaitingEmail Step = iota
	AwaitingPassword
	Authenticated
)

func (s Step) String() string {
	switch s {
	case AwaitingEmail:
		return "awaiting_email"
	case AwaitingPassword:
		return "awaiting_password"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is the per-session progress of the login flow.
// The password is never part of it: every rendered password form starts empty.
type State struct {
	Step  Step   `json:"step"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"` // inline error, kept until the next successful step
	Seq   uint64 `json:"seq"`             // bumped on every submission; older responses are ignored
}

type (
	// Authenticator is the backend side of the flow.
	Authenticator interface {
		CheckEmail(ctx context.Context, email string) (bool, error)
		Login(ctx context.Context, email, pwd string) (user.Identity, error)
	}

	// Session is the part of the session store the flow drives.
	Session interface {
		// UpdateFlow runs fn with exclusive access to the flow State.
		UpdateFlow(fn func(st *State))
		Login(usr user.Identity)
		Notify(n core.Notice)
	}

	Flow struct {
		auth Authenticator
	}

	emailForm struct {
		Email string `json:"correo_usuario" validate:"required"`
	}

	passwordForm struct {
		Password string `json:"pwd_usuario" validate:"required"`
	}
)

func NewFlow(auth Authenticator) *Flow {
	return &Flow{auth: auth}
}

// SubmitEmail runs the email step: AwaitingEmail -> AwaitingPassword when the backend knows the address.
func (f *Flow) SubmitEmail(ctx context.Context, sess Session, email string) error {
	email = core.CleanString(email)
	invalid := core.Validate.Struct(emailForm{Email: email}) != nil

	var ticket uint64
	var stepErr error
	sess.UpdateFlow(func(st *State) {
		if st.Step != AwaitingEmail {
			stepErr = ErrUnexpectedStep
			return
		}
		st.Seq++
		ticket = st.Seq
		st.Email = email
		if invalid {
			st.Error = MsgEmailRequired
		}
	})
	if stepErr != nil {
		return stepErr
	}
	if invalid {
		return ErrEmailRequired
	}

	exists, err := f.auth.CheckEmail(ctx, email)
	if err != nil {
		err = errors.Wrap(err, "checking email")
	} else if !exists {
		err = ErrEmailNotRegistered
	}

	var stale bool
	sess.UpdateFlow(func(st *State) {
		if st.Seq != ticket || st.Step != AwaitingEmail {
			stale = true
			return
		}
		if err != nil {
			st.Error = core.UserMessage(err, MsgUnexpected)
			return
		}
		st.Step = AwaitingPassword
		st.Error = ""
	})

	switch {
	case stale:
		return ErrStale
	case err == ErrEmailNotRegistered:
		return err
	case err != nil:
		sess.Notify(core.ErrorNotice(core.UserMessage(err, MsgUnexpected)))
		return err
	}
	sess.Notify(core.SuccessNotice(MsgEmailFound))
	return nil
}

// SubmitPassword runs the password step: AwaitingPassword -> Authenticated.
// The identity returned by the backend must carry the very password that was typed,
// otherwise the attempt fails even though the backend accepted it.
func (f *Flow) SubmitPassword(ctx context.Context, sess Session, pwd string) (user.Identity, error) {
	invalid := core.Validate.Struct(passwordForm{Password: pwd}) != nil

	var ticket uint64
	var email string
	var stepErr error
	sess.UpdateFlow(func(st *State) {
		if st.Step != AwaitingPassword {
			stepErr = ErrUnexpectedStep
			return
		}
		st.Seq++
		ticket = st.Seq
		email = st.Email
		if invalid {
			st.Error = MsgPasswordRequired
		}
	})
	if stepErr != nil {
		return user.Identity{}, stepErr
	}
	if invalid {
		return user.Identity{}, ErrPasswordRequired
	}

	usr, err := f.auth.Login(ctx, email, pwd)
	if err != nil {
		err = errors.Wrap(err, "logging in")
	} else if !usr.CheckPassword(pwd) {
		err = ErrDataMismatch
	}

	var stale bool
	sess.UpdateFlow(func(st *State) {
		if st.Seq != ticket || st.Step != AwaitingPassword {
			stale = true
			return
		}
		if err != nil {
			st.Error = core.UserMessage(err, MsgUnexpected)
			return
		}
		st.Step = Authenticated
		st.Error = ""
	})

	if stale {
		return user.Identity{}, ErrStale
	}
	if err != nil {
		sess.Notify(core.ErrorNotice(core.UserMessage(err, MsgUnexpected)))
		return user.Identity{}, err
	}
	usr = usr.WithoutCredentials()
	sess.Login(usr)
	return usr, nil
}

// Reset goes back to the email step, keeping the entered address.
// Responses to submissions still in flight are ignored afterwards.
func (f *Flow) Reset(sess Session) {
	sess.UpdateFlow(func(st *State) {
		st.Step = AwaitingEmail
		st.Error = ""
		st.Seq++
	})
}

// Outcome labels the result of a submission.
func Outcome(err error) string {
	switch err {
	case nil:
		return "ok"
	case ErrEmailRequired, ErrPasswordRequired:
		return "invalid"
	case ErrEmailNotRegistered:
		return "not_registered"
	case ErrDataMismatch:
		return "mismatch"
	case ErrStale:
		return "stale"
	case ErrUnexpectedStep:
		return "out_of_step"
	}
	return "failed"
}
