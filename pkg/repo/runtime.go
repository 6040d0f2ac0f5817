package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"strata/pkg/cas"
	strataerrors "strata/pkg/errors"
	"strata/pkg/fileutil"
	"strata/pkg/idutil"
)

const runtimeConfigFile = "config.json"

func (r *Repository) runtimeDir(id string) string {
	return filepath.Join(r.runsDir(), id)
}

// NewRuntime allocates a fresh runtime directory structure (lower,
// upper, work, root subdirectories plus an empty layer config) under a
// freshly generated ID, per spec §3's Runtime lifecycle: "created
// (fresh ID)".
func (r *Repository) NewRuntime() (*cas.Runtime, error) {
	id := idutil.GenerateID()
	dir := r.runtimeDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runtime directory: %w", err)
	}

	rt := &cas.Runtime{
		ID:       id,
		LowerDir: filepath.Join(dir, "lower"),
		UpperDir: filepath.Join(dir, "upper"),
		WorkDir:  filepath.Join(dir, "work"),
		RootDir:  filepath.Join(dir, "root"),
	}
	for _, sub := range []string{rt.LowerDir, rt.UpperDir, rt.WorkDir, rt.RootDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("create runtime subdirectory %s: %w", sub, err)
		}
	}
	if err := r.saveRuntime(rt); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return rt, nil
}

// GetRuntime loads a runtime's persisted configuration by ID.
func (r *Repository) GetRuntime(id string) (*cas.Runtime, error) {
	dir := r.runtimeDir(id)
	data, err := os.ReadFile(filepath.Join(dir, runtimeConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", strataerrors.ErrRuntimeNotFound, id)
		}
		return nil, fmt.Errorf("read runtime config %s: %w", id, err)
	}
	var rt cas.Runtime
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, fmt.Errorf("decode runtime config %s: %w", id, err)
	}
	return &rt, nil
}

// LockRuntime blocks until it holds runtime id's mutation lock.
// Callers that persist new runtime config (MutateRuntime's append
// layer) want the wait, not a failure, when another process briefly
// holds the same runtime.
func (r *Repository) LockRuntime(id string) (*RuntimeLock, error) {
	return AcquireRuntimeLock(r.runtimeDir(id))
}

// TryLockRuntime attempts runtime id's mutation lock without blocking,
// for callers (mount/unmount/commit) that should fail fast rather than
// serialize behind a concurrent operation on the same runtime root.
func (r *Repository) TryLockRuntime(id string) (*RuntimeLock, error) {
	return TryAcquireRuntimeLock(r.runtimeDir(id))
}

// MutateRuntime loads runtime id under its mutation lock, runs fn, and
// persists whatever fn leaves in place.
func (r *Repository) MutateRuntime(id string, fn func(rt *cas.Runtime) error) (*cas.Runtime, error) {
	lock, err := r.LockRuntime(id)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	rt, err := r.GetRuntime(id)
	if err != nil {
		return nil, err
	}
	if err := fn(rt); err != nil {
		return nil, err
	}
	if err := r.saveRuntime(rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// DeleteRuntime tears down a runtime's working directories. Idempotent:
// deleting an already-absent runtime is not an error.
func (r *Repository) DeleteRuntime(id string) error {
	if err := os.RemoveAll(r.runtimeDir(id)); err != nil {
		return fmt.Errorf("remove runtime %s: %w", id, err)
	}
	return nil
}

func (r *Repository) saveRuntime(rt *cas.Runtime) error {
	data, err := json.MarshalIndent(rt, "", "  ")
	if err != nil {
		return fmt.Errorf("encode runtime config: %w", err)
	}
	path := filepath.Join(r.runtimeDir(rt.ID), runtimeConfigFile)
	return fileutil.AtomicWriteFile(path, data, 0o644)
}
