// Package fs stores evidence payloads as files under a local root directory.
// Each payload gets a sidecar file (key + ".meta") holding content type, user
// metadata, size and checksum. Suitable for single-node deployments and
// development; payload creation is atomic per key via rename.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	iofs "io/fs"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"casefile/internal/blob/core"
)

const sidecarExt = ".meta"

// Store implements core.Store on the local filesystem.
type Store struct{ root string }

// New opens a store rooted at dir, creating the directory if needed. An empty
// dir falls back to ./evidence-data.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "./evidence-data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: dir}, nil
}

// Driver reports the configuration name of this backend.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// cleanKey rejects empty, absolute and traversing keys so payloads cannot
// land outside the root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("absolute key %q", key)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("key %q escapes root", key)
	}
	norm := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(norm, "..") {
		return "", fmt.Errorf("key %q escapes root", key)
	}
	return norm, nil
}

func (s *Store) resolve(key string) (dataPath, sidecarPath string, err error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, clean)
	return dataPath, dataPath + sidecarExt, nil
}

type sidecar struct {
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ContentType string            `json:"content_type,omitempty"`
	ETag        string            `json:"etag"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *Store) infoFor(key string, sc sidecar) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.ETag,
		Metadata:     copyAttrs(sc.Metadata),
		LastModified: sc.UpdatedAt,
		URL:          s.localURL(key),
	}
}

// Put streams the payload to a temp file, hashes it, then renames it into
// place. Existing keys are rejected before any bytes are written.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	dataPath, sidecarPath, err := s.resolve(key)
	if err != nil {
		return core.Info{}, err
	}
	parent := filepath.Dir(dataPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return core.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	tmp, err := os.CreateTemp(parent, ".partial-*")
	if err != nil {
		return core.Info{}, err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	digest := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, digest), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmpName, dataPath); err != nil {
		return core.Info{}, err
	}

	now := time.Now().UTC()
	sc := sidecar{
		Size:        size,
		ContentType: opts.ContentType,
		ETag:        hex.EncodeToString(digest.Sum(nil)),
		Metadata:    copyAttrs(opts.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := writeSidecar(sidecarPath, sc); err != nil {
		return core.Info{}, err
	}
	return s.infoFor(key, sc), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, sidecarPath, err := s.resolve(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	sc, err := readSidecar(sidecarPath)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(dataPath) //nolint:gosec // path is sanitized against the root
	if err != nil {
		return core.Info{}, nil, err
	}
	return s.infoFor(key, sc), file, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	_, sidecarPath, err := s.resolve(key)
	if err != nil {
		return core.Info{}, err
	}
	sc, err := readSidecar(sidecarPath)
	if err != nil {
		return core.Info{}, err
	}
	return s.infoFor(key, sc), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, sidecarPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(sidecarPath)
	return true, nil
}

// List walks the root collecting sidecars, so only fully written payloads are
// reported. Results are sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	collect := func(path string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, sidecarExt) {
			return nil
		}
		sc, err := readSidecar(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, sidecarExt))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		infos = append(infos, s.infoFor(key, sc))
		return nil
	}
	if err := filepath.WalkDir(s.root, collect); err != nil {
		return nil, err
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}

// PresignURL hands out the unauthenticated local URL; only GET is supported.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	switch strings.ToUpper(opts.Method) {
	case "", http.MethodGet:
		return s.localURL(key), nil
	}
	return "", core.ErrUnsupported
}

// localURL builds a stable pseudo URL; the host marks it as a dev artifact.
func (s *Store) localURL(key string) string {
	return (&url.URL{Scheme: "http", Host: "local.evidence", Path: "/" + key}).String()
}

func copyAttrs(in map[string]string) map[string]string {
	return maps.Clone(in)
}

// marshalSidecar is swappable so tests can force encode failures.
var marshalSidecar = func(sc sidecar) ([]byte, error) {
	return json.MarshalIndent(sc, "", "  ")
}

func writeSidecar(path string, sc sidecar) error {
	b, err := marshalSidecar(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644) //nolint:gosec // sidecar holds no secrets
}

func readSidecar(path string) (sidecar, error) {
	b, err := os.ReadFile(path) //nolint:gosec // path is derived from a sanitized key
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return sidecar{}, err
	}
	return sc, nil
}
