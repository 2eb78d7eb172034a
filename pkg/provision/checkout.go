package provision

import (
	"context"
	"fmt"
	"io"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// hostCheckout clones the task source onto the host filesystem. Used by the
// local and docker backends, which share the host work dir (docker via a
// bind mount). Shallow, single-branch: an invocation only ever needs the
// tip of one ref.
func hostCheckout(ctx context.Context, dir string, src SourceSpec, progress io.Writer) error {
	opts := &git.CloneOptions{
		URL:          src.RepoURL,
		Depth:        1,
		SingleBranch: true,
		Progress:     progress,
	}
	if src.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Ref)
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("cloning %s: %w", src.RepoURL, err)
	}
	return nil
}
