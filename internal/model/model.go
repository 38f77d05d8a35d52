package model

import (
	"pharmacy/internal/access"
	"time"
)

type User struct {
	ID                int         `json:"id"`
	Username          string      `json:"username"`
	Email             string      `json:"email"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Role              access.Role `json:"role"`
	CedulaProfesional string      `json:"cedula_profesional,omitempty"`
	Departamento      string      `json:"departamento,omitempty"`
	Telefono          string      `json:"telefono,omitempty"`
	IsActive          bool        `json:"is_active"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// TokenPair holds the access/refresh pair. Empty string means absent.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (t TokenPair) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}

type MenuEntry struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}
