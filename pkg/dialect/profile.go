package dialect

import "fmt"

// Profile holds the immutable connection parameters for one switch.
// Created per request; never mutated; not persisted.
type Profile struct {
	Address  string
	Port     int
	Username string
	Password string
	Dialect  *Dialect
}

// NewProfile builds a connection profile, resolving the dialect tag against
// the registry. An unknown tag is fatal and never retried.
func NewProfile(address, username, password, dialectTag string) (*Profile, error) {
	if address == "" {
		return nil, fmt.Errorf("switch address is required")
	}
	d, err := Lookup(dialectTag)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Address:  address,
		Port:     22,
		Username: username,
		Password: password,
		Dialect:  d,
	}, nil
}

// Addr returns the dial address in host:port form.
func (p *Profile) Addr() string {
	return fmt.Sprintf("%s:%d", p.Address, p.Port)
}
