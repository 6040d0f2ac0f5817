// Package registry pulls OCI images from a remote container registry and
// materializes them as strata Platforms inside a local Repository, from
// which pkg/sync can copy them like any other Platform. It only pulls:
// nothing is pushed to a registry, and pkg/sync itself works only
// between two local repositories.
//
// Each remote layer is extracted with whiteout handling into a plain
// directory rather than an overlay layer cache, so render.CommitDir can
// hash it into a Manifest the same way any other committed runtime is
// hashed.
package registry

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"strata/internal/obslog"
	"strata/pkg/cas"
	"strata/pkg/digest"
	"strata/pkg/render"
	"strata/pkg/repo"
)

const (
	whiteoutPrefix = ".wh."
	opaqueWhiteout = ".wh..wh..opq"
)

// PullOptions configures a Pull.
type PullOptions struct {
	// Platform restricts a multi-arch image to one OS/architecture,
	// e.g. "linux/amd64". Empty means the registry default.
	Platform string
}

// Pull fetches ref from a remote registry and writes it into dest as a
// chain of Layers topped by a Platform, returning the Platform. Each
// remote layer is extracted to a scratch directory and committed
// through render.CommitDir, so the resulting Layer's Manifest is built
// from real file content exactly as CommitPackage builds one from a
// runtime's upperdir — the registry is just a different source for the
// bytes.
func Pull(ref string, dest *repo.Repository, opts *PullOptions) (*cas.Platform, error) {
	if opts == nil {
		opts = &PullOptions{}
	}

	r, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("parse reference %s: %w", ref, err)
	}

	remoteOpts := []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
	if opts.Platform != "" {
		p, err := parsePlatform(opts.Platform)
		if err != nil {
			return nil, fmt.Errorf("parse platform %q: %w", opts.Platform, err)
		}
		remoteOpts = append(remoteOpts, remote.WithPlatform(*p))
	}
	img, err := remote.Image(r, remoteOpts...)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", ref, err)
	}

	rawManifest, err := img.RawManifest()
	if err != nil {
		return nil, fmt.Errorf("fetch manifest for %s: %w", ref, err)
	}
	var ociManifest ocispec.Manifest
	if err := json.Unmarshal(rawManifest, &ociManifest); err != nil {
		return nil, fmt.Errorf("decode OCI manifest for %s: %w", ref, err)
	}
	obslog.WithField("mediaType", ociManifest.MediaType).Debug("fetched image manifest")

	rawConfig, err := img.RawConfigFile()
	if err != nil {
		return nil, fmt.Errorf("fetch config for %s: %w", ref, err)
	}
	var ociConfig ocispec.Image
	if err := json.Unmarshal(rawConfig, &ociConfig); err != nil {
		return nil, fmt.Errorf("decode OCI config for %s: %w", ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("list layers for %s: %w", ref, err)
	}
	if len(ociManifest.Layers) != len(layers) {
		return nil, fmt.Errorf("manifest for %s lists %d layers, image exposes %d", ref, len(ociManifest.Layers), len(layers))
	}

	env := make([]cas.EnvVar, 0, len(ociConfig.Config.Env))
	for _, kv := range ociConfig.Config.Env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env = append(env, cas.EnvVar{Key: k, Value: v})
	}

	stack := make([]digest.Digest, 0, len(layers))
	for i, l := range layers {
		obslog.WithField("mediaType", ociManifest.Layers[i].MediaType).
			WithField("ociDigest", ociManifest.Layers[i].Digest.String()).
			Debug("extracting layer")

		rc, err := l.Uncompressed()
		if err != nil {
			return nil, fmt.Errorf("open layer %d of %s: %w", i, ref, err)
		}

		scratch, err := os.MkdirTemp("", "strata-pull-*")
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("create extraction scratch dir: %w", err)
		}
		err = extractTar(rc, scratch)
		rc.Close()
		if err != nil {
			os.RemoveAll(scratch)
			return nil, fmt.Errorf("extract layer %d of %s: %w", i, ref, err)
		}

		manifest, err := render.CommitDir(dest.Blobs, scratch)
		os.RemoveAll(scratch)
		if err != nil {
			return nil, fmt.Errorf("commit layer %d of %s: %w", i, ref, err)
		}

		var layerEnv []cas.EnvVar
		if i == len(layers)-1 {
			layerEnv = env
		}
		cl := cas.NewLayer(manifest, layerEnv)
		if err := dest.WriteLayer(cl); err != nil {
			return nil, fmt.Errorf("write layer %d of %s: %w", i, ref, err)
		}
		obslog.WithField("digest", cl.Digest).Info("pulled layer")
		stack = append(stack, cl.Digest)
	}

	platform := cas.NewPlatform(stack)
	if err := dest.WritePlatform(platform); err != nil {
		return nil, fmt.Errorf("write platform for %s: %w", ref, err)
	}
	return platform, nil
}

// parsePlatform parses a "os/arch" or "os/arch/variant" string, the
// same shape docker/OCI tooling accepts on the command line, into a
// v1.Platform for remote.WithPlatform.
func parsePlatform(s string) (*v1.Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("expected os/arch[/variant], got %q", s)
	}
	p := &v1.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}

// extractTar extracts a (possibly gzip-compressed) tar stream into
// destDir, honoring OCI whiteout entries by simply omitting the
// whited-out path rather than writing an overlay character-device
// marker: the destination is a plain directory headed for
// render.CommitDir, not an overlay lowerdir, so a whiteout here means
// "this path does not exist in the committed tree", full stop.
func extractTar(r io.Reader, destDir string) error {
	tr, err := newTarReader(r)
	if err != nil {
		return err
	}

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		cleanName := filepath.Clean(header.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("invalid path in layer tar: %s", header.Name)
		}
		target := filepath.Join(destDir, cleanName)

		baseName := filepath.Base(cleanName)
		if strings.HasPrefix(baseName, whiteoutPrefix) {
			if baseName == opaqueWhiteout {
				continue
			}
			deleted := filepath.Join(filepath.Dir(target), strings.TrimPrefix(baseName, whiteoutPrefix))
			os.RemoveAll(deleted)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", cleanName, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("create directory %s: %w", cleanName, err)
			}
		case tar.TypeReg, tar.TypeRegA:
			os.Remove(target)
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", cleanName, err)
			}
			_, copyErr := io.Copy(f, tr)
			closeErr := f.Close()
			if copyErr != nil {
				return fmt.Errorf("write file %s: %w", cleanName, copyErr)
			}
			if closeErr != nil {
				return fmt.Errorf("close file %s: %w", cleanName, closeErr)
			}
		case tar.TypeSymlink:
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", cleanName, err)
			}
		case tar.TypeLink:
			linkTarget := filepath.Join(destDir, filepath.Clean(header.Linkname))
			os.Remove(target)
			if err := os.Link(linkTarget, target); err != nil {
				return fmt.Errorf("create hard link %s: %w", cleanName, err)
			}
		default:
			continue
		}
	}
	return nil
}

func newTarReader(r io.Reader) (*tar.Reader, error) {
	buf := make([]byte, 2)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	mr := io.MultiReader(strings.NewReader(string(buf[:n])), r)

	if n >= 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(mr)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return tar.NewReader(gz), nil
	}
	return tar.NewReader(mr), nil
}
