package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/zkpool/zkpool/config"
	"github.com/zkpool/zkpool/log"
)

// CheckHashes determines whether artifact content is verified against its
// expected hash on load and download. Set the ZKPOOL_CHECK_HASHES
// environment variable to false or 0 to disable it.
var CheckHashes = true

// BaseDir is the local artifact cache. Artifacts not found there are
// downloaded and stored under their hex-encoded hash. Defaults to the
// ZKPOOL_ARTIFACTS_DIR environment variable or the user cache directory.
var BaseDir string

func init() {
	if checkHashes := os.Getenv("ZKPOOL_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("ZKPOOL_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
	} else {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			BaseDir = filepath.Join(os.TempDir(), "zkpool-artifacts")
		} else {
			BaseDir = filepath.Join(home, ".cache", "zkpool-artifacts")
		}
	}
}

// Artifact is a remote circuit file: its URL, the expected sha256 of its
// content, and the content once loaded.
type Artifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// Load fills Content from the local cache. It returns an error when the
// artifact is absent or its hash does not match.
func (a *Artifact) Load() error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(a.Hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("artifact %s not found in cache", path)
		}
		return fmt.Errorf("cannot read artifact %s: %w", path, err)
	}
	if CheckHashes {
		sum := sha256.Sum256(content)
		if !bytes.Equal(sum[:], a.Hash) {
			return fmt.Errorf("hash mismatch for %s: expected %x, got %x", path, a.Hash, sum)
		}
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from its remote URL into the local cache,
// verifying the hash before the file becomes visible under its final name.
// Already cached artifacts are left alone.
func (a *Artifact) Download(ctx context.Context) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact remote URL not provided")
	}
	if _, err := url.Parse(a.RemoteURL); err != nil {
		return fmt.Errorf("invalid artifact URL: %w", err)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("cannot create artifact cache: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(a.Hash))
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	log.Infow("downloading circuit artifact", "url", a.RemoteURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.RemoteURL, nil)
	if err != nil {
		return fmt.Errorf("cannot create artifact request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot download artifact: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err.Error())
		}
	}()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot download artifact %s: http status %d", a.RemoteURL, res.StatusCode)
	}

	partialPath := path + ".partial"
	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open artifact file: %w", err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(fd, hasher), res.Body); err != nil {
		_ = fd.Close()
		return fmt.Errorf("cannot write artifact file: %w", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close artifact file: %w", err)
	}
	if CheckHashes && !bytes.Equal(hasher.Sum(nil), a.Hash) {
		_ = os.Remove(partialPath)
		return fmt.Errorf("hash mismatch for %s: expected %x, got %x", a.RemoteURL, a.Hash, hasher.Sum(nil))
	}
	return os.Rename(partialPath, path)
}

// CircuitArtifacts bundles the three files one circuit variant needs: the
// compiled circom wasm, the Groth16 proving key and the verification key.
type CircuitArtifacts struct {
	wasm         *Artifact
	provingKey   *Artifact
	verifyingKey *Artifact
}

// ArtifactsForVariant returns the artifact descriptors of a circuit variant.
func ArtifactsForVariant(v Variant) (*CircuitArtifacts, error) {
	switch v {
	case VariantTx2:
		return &CircuitArtifacts{
			wasm:         &Artifact{RemoteURL: config.Tx2CircuitURL, Hash: hexHash(config.Tx2CircuitHash)},
			provingKey:   &Artifact{RemoteURL: config.Tx2ProvingKeyURL, Hash: hexHash(config.Tx2ProvingKeyHash)},
			verifyingKey: &Artifact{RemoteURL: config.Tx2VerificationKeyURL, Hash: hexHash(config.Tx2VerificationKeyHash)},
		}, nil
	case VariantTx16:
		return &CircuitArtifacts{
			wasm:         &Artifact{RemoteURL: config.Tx16CircuitURL, Hash: hexHash(config.Tx16CircuitHash)},
			provingKey:   &Artifact{RemoteURL: config.Tx16ProvingKeyURL, Hash: hexHash(config.Tx16ProvingKeyHash)},
			verifyingKey: &Artifact{RemoteURL: config.Tx16VerificationKeyURL, Hash: hexHash(config.Tx16VerificationKeyHash)},
		}, nil
	}
	return nil, fmt.Errorf("no artifacts for variant %s", v)
}

// EnsureAll downloads any missing artifact and loads all three into memory.
func (ca *CircuitArtifacts) EnsureAll(ctx context.Context) error {
	return ensure(ctx, ca.wasm, ca.provingKey, ca.verifyingKey)
}

// EnsureVerifyingKey downloads and loads only the verification key. Verifier
// nodes never need the wasm or the proving key.
func (ca *CircuitArtifacts) EnsureVerifyingKey(ctx context.Context) error {
	return ensure(ctx, ca.verifyingKey)
}

func ensure(ctx context.Context, artifacts ...*Artifact) error {
	for _, a := range artifacts {
		if err := a.Load(); err == nil {
			continue
		}
		if err := a.Download(ctx); err != nil {
			return err
		}
		if err := a.Load(); err != nil {
			return err
		}
	}
	return nil
}

// Wasm returns the compiled circuit content, nil if not loaded.
func (ca *CircuitArtifacts) Wasm() []byte { return ca.wasm.Content }

// ProvingKey returns the proving key content, nil if not loaded.
func (ca *CircuitArtifacts) ProvingKey() []byte { return ca.provingKey.Content }

// VerifyingKey returns the verification key content, nil if not loaded.
func (ca *CircuitArtifacts) VerifyingKey() []byte { return ca.verifyingKey.Content }

func hexHash(s string) []byte {
	h, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("malformed artifact hash constant %q", s))
	}
	return h
}

// LoadVerifier ensures the verification keys of both circuit variants and
// builds the verifier backend named by backend ("rapidsnark" or "gnark").
// This is the only artifact loading a pool node performs.
func LoadVerifier(ctx context.Context, backend string) (Verifier, error) {
	tx2, tx16, err := bothVariants(ctx, (*CircuitArtifacts).EnsureVerifyingKey)
	if err != nil {
		return nil, err
	}
	switch backend {
	case "", "rapidsnark":
		return NewRapidsnarkVerifier(tx2.VerifyingKey(), tx16.VerifyingKey()), nil
	case "gnark":
		return NewGnarkVerifier(tx2.VerifyingKey(), tx16.VerifyingKey()), nil
	}
	return nil, fmt.Errorf("unknown verifier backend %q", backend)
}

// LoadProver ensures the full artifact set of both circuit variants and
// builds a local prover from them. Used by wallet-side tooling that builds
// transactions.
func LoadProver(ctx context.Context) (Prover, error) {
	tx2, tx16, err := bothVariants(ctx, (*CircuitArtifacts).EnsureAll)
	if err != nil {
		return nil, err
	}
	return NewLocalProver(tx2.Wasm(), tx2.ProvingKey(), tx16.Wasm(), tx16.ProvingKey()), nil
}

func bothVariants(ctx context.Context, load func(*CircuitArtifacts, context.Context) error) (tx2, tx16 *CircuitArtifacts, err error) {
	if tx2, err = ArtifactsForVariant(VariantTx2); err != nil {
		return nil, nil, err
	}
	if err = load(tx2, ctx); err != nil {
		return nil, nil, fmt.Errorf("cannot load %s artifacts: %w", VariantTx2, err)
	}
	if tx16, err = ArtifactsForVariant(VariantTx16); err != nil {
		return nil, nil, err
	}
	if err = load(tx16, ctx); err != nil {
		return nil, nil, fmt.Errorf("cannot load %s artifacts: %w", VariantTx16, err)
	}
	return tx2, tx16, nil
}
