package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/karrick/godirwalk"
	"go.trai.ch/zr/internal/core/domain"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements the InputResolver interface. Simple patterns (no "**")
// are resolved with filepath.Glob for speed; patterns containing a
// recursive "**" segment are compiled with gobwas/glob and matched against
// a full directory walk performed by karrick/godirwalk, since filepath.Glob
// has no concept of recursive wildcards.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs resolves the given input patterns to a sorted, deduplicated
// list of concrete file paths rooted at root.
func (r *Resolver) ResolveInputs(inputs []string, root string) ([]string, error) {
	uniquePaths := make(map[string]bool)

	for _, input := range inputs {
		matches, err := r.resolveOne(input, root)
		if err != nil {
			return nil, err
		}

		if len(matches) == 0 {
			return nil, zerr.With(domain.ErrInputNotFound, "path", filepath.Join(root, input))
		}

		for _, match := range matches {
			uniquePaths[match] = true
		}
	}

	result := make([]string, 0, len(uniquePaths))
	for path := range uniquePaths {
		result = append(result, path)
	}
	sort.Strings(result)

	return result, nil
}

func (r *Resolver) resolveOne(input, root string) ([]string, error) {
	if !strings.Contains(input, "**") {
		path := filepath.Join(root, input)
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", path)
		}
		return matches, nil
	}
	return r.resolveRecursive(input, root)
}

// resolveRecursive matches a "**"-containing pattern by walking root and
// testing every regular file's root-relative, slash-separated path against
// a compiled glob.Glob.
func (r *Resolver) resolveRecursive(input, root string) ([]string, error) {
	compiled, err := glob.Compile(input, '/')
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to compile glob pattern"), "pattern", input)
	}

	var matches []string
	walkErr := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, ent *godirwalk.Dirent) error {
			if ent.IsDir() {
				if name := ent.Name(); name == ".git" || name == ".jj" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if compiled.Match(rel) {
				matches = append(matches, path)
			}
			return nil
		},
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(walkErr, "failed to walk root for recursive glob"), "root", root)
	}

	return matches, nil
}
