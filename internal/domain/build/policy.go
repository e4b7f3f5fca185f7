package build

import (
	"fmt"
	"strings"

	apperrors "nunu-cli/internal/pkg/errors"
)

// DeletionPolicy selects which builds the backend removes when auto-delete
// kicks in
type DeletionPolicy string

const (
	DeletionPolicyLeastRecent DeletionPolicy = "least_recent"
	DeletionPolicyOldest      DeletionPolicy = "oldest"
)

func (d DeletionPolicy) String() string {
	return string(d)
}

// ParseDeletionPolicy accepts least_recent, least-recent and oldest
func ParseDeletionPolicy(s string) (DeletionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "least_recent", "least-recent":
		return DeletionPolicyLeastRecent, nil
	case "oldest":
		return DeletionPolicyOldest, nil
	default:
		return "", apperrors.NewConfigError(
			fmt.Sprintf("Invalid deletion policy: '%s'. Valid policies are: least_recent, oldest", s), nil)
	}
}
