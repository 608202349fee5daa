// Package registry implements overview publishers for container registries.
package registry

import (
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/jupyter/overviews/internal/domain"
)

// repository is a destination split into its namespace and repository name.
type repository struct {
	Registry  string
	Namespace string
	Name      string
}

// Path returns "<namespace>/<name>".
func (r repository) Path() string {
	return r.Namespace + "/" + r.Name
}

// parseDestination validates a destination such as "quay.io/jupyter/base-notebook".
// Registry overviews live at the repository level, so tags and digests are rejected.
func parseDestination(destination string) (repository, error) {
	repo, err := name.NewRepository(destination, name.StrictValidation)
	if err != nil {
		return repository{}, fmt.Errorf("%w %q: %v", domain.ErrInvalidDestination, destination, err)
	}

	path := repo.RepositoryStr()
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return repository{}, fmt.Errorf("%w %q: missing namespace", domain.ErrInvalidDestination, destination)
	}

	return repository{
		Registry:  repo.RegistryStr(),
		Namespace: path[:i],
		Name:      path[i+1:],
	}, nil
}
