package streams

type ownershipState interface {
	OwnerGet() ([20]byte, bool, error)
	OwnerPut(owner [20]byte) error
}

// Ownership is the single-owner capability gating all administrative stream
// operations. It is composed into the engine rather than inherited so that
// additional capabilities can be layered on later without diamond concerns.
type Ownership struct {
	state ownershipState
}

// NewOwnership constructs the capability over the supplied state backend.
func NewOwnership(state ownershipState) *Ownership {
	return &Ownership{state: state}
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Bootstrap installs the initial owner. It is a no-op when an owner record
// already exists, so genesis wiring can call it unconditionally.
func (o *Ownership) Bootstrap(owner [20]byte) error {
	if o == nil || o.state == nil {
		return errNilState
	}
	if isZeroAddress(owner) {
		return ErrInvalidOwner
	}
	if _, ok, err := o.state.OwnerGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	return o.state.OwnerPut(owner)
}

// Owner returns the current owner. The zero address means ownership was
// renounced or never bootstrapped.
func (o *Ownership) Owner() ([20]byte, error) {
	if o == nil || o.state == nil {
		return [20]byte{}, errNilState
	}
	owner, ok, err := o.state.OwnerGet()
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, nil
	}
	return owner, nil
}

// RequireOwner fails with ErrUnauthorized unless caller is the current owner.
// A renounced (zero) owner rejects every caller permanently.
func (o *Ownership) RequireOwner(caller [20]byte) error {
	owner, err := o.Owner()
	if err != nil {
		return err
	}
	if isZeroAddress(owner) || caller != owner {
		return ErrUnauthorized
	}
	return nil
}

// Transfer hands ownership to newOwner. The zero address is rejected; use
// Renounce to disable administration permanently.
func (o *Ownership) Transfer(caller [20]byte, newOwner [20]byte) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	if isZeroAddress(newOwner) {
		return ErrInvalidOwner
	}
	return o.state.OwnerPut(newOwner)
}

// Renounce sets the owner to the zero address, permanently disabling all
// owner-gated operations.
func (o *Ownership) Renounce(caller [20]byte) error {
	if err := o.RequireOwner(caller); err != nil {
		return err
	}
	return o.state.OwnerPut([20]byte{})
}
