package panel

// Dispatcher keeps the admin dashboard's current view and the state of its only mounted panel.
type Dispatcher struct {
	View View `json:"view"`
	Page int  `json:"page"`
}

func NewDispatcher() Dispatcher {
	return Dispatcher{View: Home, Page: 1}
}

// Switch mounts v. Moving to another view drops the previous panel's state.
func (d *Dispatcher) Switch(v View) error {
	if !v.Valid() {
		return ErrUnknownView
	}
	if v != d.View {
		d.View = v
		d.Page = 1
	}
	return nil
}

// SwitchKey is Switch for a menu key.
func (d *Dispatcher) SwitchKey(key string) error {
	v, err := ParseView(key)
	if err != nil {
		return err
	}
	return d.Switch(v)
}

// Goto moves the mounted panel to page p; clamping happens when the page is rendered.
func (d *Dispatcher) Goto(p int) {
	if p < 1 {
		p = 1
	}
	d.Page = p
}
