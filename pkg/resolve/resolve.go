// Package resolve turns a runtime's configured layer/platform refs into
// a process environment and an overlay-mount option string. It only
// ever builds these values; it never performs a mount itself — that is
// pkg/mount's job, invoked solely at the CLI boundary.
package resolve

import (
	"strings"

	"strata/pkg/cas"
	"strata/pkg/repo"
)

// LayersToPackages expands refs (each naming either a Layer directly
// or a Platform whose stack is recursively expanded) into an ordered
// list of Layers. Input order is preserved with depth-first expansion;
// duplicates are not de-duplicated, since later-wins overlay semantics
// already handle repeats correctly.
func LayersToPackages(r *repo.Repository, refs []string) ([]*cas.Layer, error) {
	var out []*cas.Layer
	for _, ref := range refs {
		resolved, err := r.ReadRef(ref)
		if err != nil {
			return nil, err
		}
		switch {
		case resolved.Layer != nil:
			out = append(out, resolved.Layer)
		case resolved.Platform != nil:
			stackRefs := make([]string, len(resolved.Platform.Stack))
			for i, d := range resolved.Platform.Stack {
				stackRefs[i] = d.String()
			}
			expanded, err := LayersToPackages(r, stackRefs)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		default:
			// A runtime ref among layer refs has no package meaning;
			// resolution only composes immutable layers/platforms.
			continue
		}
	}
	return out, nil
}

// PackagesToEnvironment folds each layer's env left-to-right; later
// layers override earlier ones on key collisions, matching the
// teacher's resolve_packages_to_environment.
func PackagesToEnvironment(layers []*cas.Layer) map[string]string {
	env := make(map[string]string)
	for _, l := range layers {
		for _, kv := range l.Env {
			env[kv.Key] = kv.Value
		}
	}
	return env
}

// RuntimeEnvironment resolves a runtime's configured layers to an
// environment map plus the runtime's own SPENV_RUNTIME-equivalent
// rootdir binding.
func RuntimeEnvironment(r *repo.Repository, rt *cas.Runtime) (map[string]string, error) {
	layers, err := LayersToPackages(r, rt.Config.Layers)
	if err != nil {
		return nil, err
	}
	env := PackagesToEnvironment(layers)
	env["STRATA_RUNTIME"] = rt.RootDir
	return env, nil
}

// OverlayOptions builds an overlayfs mount option string for rt: the
// runtime's own lowerdir, followed by each resolved layer's render
// directory (rendering it first if not already present), in resolved
// order, then the runtime's upperdir and workdir. It only constructs
// the string; mounting is a separate concern (pkg/mount).
func OverlayOptions(r *repo.Repository, rt *cas.Runtime) (string, error) {
	layers, err := LayersToPackages(r, rt.Config.Layers)
	if err != nil {
		return "", err
	}

	lowerdirs := []string{rt.LowerDir}
	for _, l := range layers {
		dir, err := r.Renderer.RenderLayer(l)
		if err != nil {
			return "", err
		}
		lowerdirs = append(lowerdirs, dir)
	}

	return "lowerdir=" + strings.Join(lowerdirs, ":") +
		",upperdir=" + rt.UpperDir +
		",workdir=" + rt.WorkDir, nil
}
