package database

import "errors"

// Privilege selects which credentials a store connection uses.
type Privilege string

const (
	PrivilegeAnon    Privilege = "anon"
	PrivilegeService Privilege = "service"
)

var ErrNoCredentials = errors.New("no database credentials configured")

// Credentials holds one connection string per privilege level.
type Credentials struct {
	AnonURL    string
	ServiceURL string
}

// Resolve returns the connection string for the wanted privilege. A service
// request falls back to anon credentials when no service URL is configured;
// an anon request is never upgraded. The returned Privilege is the one
// actually granted.
func (c Credentials) Resolve(want Privilege) (string, Privilege, error) {
	if want == PrivilegeService && c.ServiceURL != "" {
		return c.ServiceURL, PrivilegeService, nil
	}
	if c.AnonURL != "" {
		return c.AnonURL, PrivilegeAnon, nil
	}
	return "", "", ErrNoCredentials
}
