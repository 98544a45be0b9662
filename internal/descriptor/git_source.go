package descriptor

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	// Registers the "file" transport so RepoURL may name a local path
	// (used heavily by tests, and by setups that keep descriptors in a
	// repo on a shared filesystem rather than a network remote).
	_ "github.com/go-git/go-git/v5/plumbing/transport/file"

	pkgerrors "forgerun/pkg/errors"
)

// GitOptions configures where a project descriptor is fetched from
// before being parsed as YAML. This acquires configuration, not step
// execution targets: it runs once, before the dependency graph is
// built, and is never invoked as part of a step's command payload.
type GitOptions struct {
	// RepoURL is cloned into CheckoutDir when CheckoutDir does not
	// already contain a git repository.
	RepoURL string
	// CheckoutDir is reused across runs if it already holds a clone;
	// otherwise RepoURL is cloned into it.
	CheckoutDir string
	// Ref is the branch, tag, or commit to check out. Defaults to the
	// repository's default branch.
	Ref string
	// DescriptorPath is the descriptor file's path relative to the
	// repository root.
	DescriptorPath string
}

// LoadGitDescriptorSource clones or opens opts.CheckoutDir, checks out
// opts.Ref, and parses opts.DescriptorPath as a YAMLSource.
func LoadGitDescriptorSource(opts GitOptions) (*YAMLSource, error) {
	repo, err := openOrClone(opts)
	if err != nil {
		return nil, pkgerrors.NewDescriptorError(opts.RepoURL, err)
	}

	if opts.Ref != "" {
		if err := checkoutRef(repo, opts.Ref); err != nil {
			return nil, pkgerrors.NewDescriptorError(opts.RepoURL, err)
		}
	}

	return LoadYAMLSource(filepath.Join(opts.CheckoutDir, opts.DescriptorPath))
}

func openOrClone(opts GitOptions) (*git.Repository, error) {
	repo, err := git.PlainOpen(opts.CheckoutDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}

	if err := os.MkdirAll(opts.CheckoutDir, 0o755); err != nil {
		return nil, err
	}

	return git.PlainClone(opts.CheckoutDir, false, &git.CloneOptions{
		URL: opts.RepoURL,
	})
}

func checkoutRef(repo *git.Repository, ref string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		return wt.Checkout(&git.CheckoutOptions{Hash: *hash})
	}

	return wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(ref),
	})
}
