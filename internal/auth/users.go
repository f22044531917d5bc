package auth

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maxicoach/backend/internal/knowledge"
)

//go:embed data/users.yaml
var embedded embed.FS

type Role string

const (
	RoleAgent Role = "Agente"
	RoleLead  Role = "Lider"
	RoleAdmin Role = "Admin"
)

type User struct {
	Username        string `yaml:"username" json:"username"`
	Password        string `yaml:"password" json:"-"`
	Role            Role   `yaml:"role" json:"role"`
	AccessMaxiCoach bool   `yaml:"accessMaxiCoach" json:"accessMaxiCoach"`
	AccessFalcon    bool   `yaml:"accessFalcon" json:"accessFalcon"`
}

func (u User) HasAccess() bool {
	return u.AccessMaxiCoach || u.AccessFalcon
}

// CanUse maps the access flags onto personas: Maxi-Coach is the agent
// coach, Falcon the lead coach.
func (u User) CanUse(p knowledge.Persona) bool {
	switch p {
	case knowledge.PersonaAgent:
		return u.AccessMaxiCoach
	case knowledge.PersonaLead:
		return u.AccessFalcon
	}
	return false
}

// Directory is the static user list. Lookups ignore case.
type Directory struct {
	users map[string]User
}

// LoadDirectory reads the user list from path, or the built-in list when
// path is empty.
func LoadDirectory(path string) (*Directory, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = embedded.ReadFile("data/users.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return ParseDirectory(data)
}

func ParseDirectory(data []byte) (*Directory, error) {
	var f struct {
		Users []User `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}

	d := &Directory{users: make(map[string]User, len(f.Users))}
	for _, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("user without username")
		}
		switch u.Role {
		case RoleAgent, RoleLead, RoleAdmin:
		default:
			return nil, fmt.Errorf("user %q has unknown role %q", u.Username, u.Role)
		}
		key := strings.ToLower(u.Username)
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("duplicate user %q", u.Username)
		}
		d.users[key] = u
	}
	return d, nil
}

func (d *Directory) Find(username string) (User, bool) {
	u, ok := d.users[strings.ToLower(strings.TrimSpace(username))]
	return u, ok
}

func (d *Directory) Len() int {
	return len(d.users)
}
