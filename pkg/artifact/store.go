package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of parsed artifacts kept in memory.
const DefaultCacheSize = 64

// Store is a directory of compiled artifacts. Contracts can be referred to
// by plain name (if unique) or by fully qualified "source:Name" name.
type Store struct {
	dir   string
	pin   *semver.Version
	index map[string][]string
	cache *lru.Cache
}

// NewStore indexes artifacts found in dir. If compilerVersion is not empty,
// artifacts carrying compiler metadata must be built with this version.
func NewStore(dir string, compilerVersion string, cacheSize int) (*Store, error) {
	var pin *semver.Version
	if compilerVersion != "" {
		v, err := semver.Parse(compilerVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid compiler version %q: %w", compilerVersion, err)
		}
		pin = &v
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("artifacts directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("artifacts path %s is not a directory", dir)
	}
	s := &Store{
		dir:   dir,
		pin:   pin,
		index: make(map[string][]string),
		cache: cache,
	}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" || d.Name() == "cache" {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if filepath.Ext(name) != ".json" || strings.HasSuffix(name, ".dbg.json") {
			return nil
		}
		contract := strings.TrimSuffix(name, ".json")
		s.index[contract] = append(s.index[contract], path)

		rel, err := filepath.Rel(dir, filepath.Dir(path))
		if err == nil && rel != "." {
			fqn := filepath.ToSlash(rel) + ":" + contract
			s.index[fqn] = append(s.index[fqn], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index artifacts: %w", err)
	}
	return s, nil
}

// Names returns sorted plain contract names available in the store.
func (s *Store) Names() []string {
	var names []string
	for k := range s.index {
		if !strings.Contains(k, ":") {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Get returns the artifact of the named contract.
func (s *Store) Get(name string) (*Artifact, error) {
	paths := s.index[name]
	switch len(paths) {
	case 0:
		return nil, fmt.Errorf("%w: %s (no artifact in %s)", ErrUnknownArtifact, name, s.dir)
	case 1:
	default:
		return nil, fmt.Errorf("ambiguous contract name %s, use a fully qualified one: %s",
			name, strings.Join(s.qualifiedNames(name), ", "))
	}
	if a, ok := s.cache.Get(paths[0]); ok {
		return a.(*Artifact), nil
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	a, err := FromJSON(strings.TrimSuffix(filepath.Base(paths[0]), ".json"), data)
	if err != nil {
		return nil, err
	}
	if s.pin != nil {
		if err := a.CheckCompiler(*s.pin); err != nil {
			return nil, err
		}
	}
	s.cache.Add(paths[0], a)
	return a, nil
}

func (s *Store) qualifiedNames(name string) []string {
	var res []string
	for k := range s.index {
		if strings.HasSuffix(k, ":"+name) {
			res = append(res, k)
		}
	}
	sort.Strings(res)
	return res
}
