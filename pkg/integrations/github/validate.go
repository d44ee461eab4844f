package github

import (
	"regexp"
	"strings"

	"github.com/matzehuels/stackgate/pkg/errors"
)

var (
	// 1-39 alphanumerics or hyphens, not starting with a hyphen.
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	validRepo  = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
	// A workflow file name under .github/workflows or a numeric ID.
	validWorkflow = regexp.MustCompile(`^([a-zA-Z0-9._-]+\.ya?ml|[0-9]+)$`)
)

// ValidateOwner validates a GitHub user or organization name.
func ValidateOwner(owner string) error {
	if !validOwner.MatchString(owner) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid GitHub owner %q", owner)
	}
	return nil
}

// ValidateRepo validates a GitHub repository name.
func ValidateRepo(repo string) error {
	if !validRepo.MatchString(repo) || repo == "." || repo == ".." {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid GitHub repository %q", repo)
	}
	return nil
}

// ValidateRepoRef validates both owner and repo.
func ValidateRepoRef(owner, repo string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	return ValidateRepo(repo)
}

// ValidateWorkflow validates a workflow file name or numeric workflow ID.
func ValidateWorkflow(workflow string) error {
	if !validWorkflow.MatchString(workflow) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid workflow %q (want a .yml file name or an ID)", workflow)
	}
	return nil
}

// ParseRepoRef splits and validates an "owner/repo" string.
func ParseRepoRef(ref string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(ref, "/")
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidConfig, "invalid repository %q: use owner/repo", ref)
	}
	if err := ValidateRepoRef(owner, repo); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}
