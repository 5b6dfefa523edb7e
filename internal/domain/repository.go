// Package domain contains the core data structures and domain logic for the application.
package domain

// RepositoryRef identifies one git working tree found during a scan.
// Path is canonical (absolute, symlinks resolved) and is the identity of the repository.
type RepositoryRef struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Identity is the local git author used to select "my commits".
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IsZero reports whether no identity could be resolved.
func (i Identity) IsZero() bool {
	return i.Name == "" && i.Email == ""
}
