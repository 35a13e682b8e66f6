package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// HashStore persists the last committed digest of each domain.
type HashStore interface {
	ContentHash(ctx context.Context, domain string) (string, bool, error)
	SetContentHash(ctx context.Context, domain, digest string) error
}

// Status is the outcome of a version check.
type Status struct {
	Domain  Domain
	Digest  string
	Changed bool
}

// VersionTracker detects content changes per domain by hashing the bundle.
type VersionTracker struct {
	scanner *Scanner
	hashes  HashStore
}

// NewVersionTracker creates a tracker reading files through scanner.
func NewVersionTracker(scanner *Scanner, hashes HashStore) *VersionTracker {
	return &VersionTracker{scanner: scanner, hashes: hashes}
}

// CurrentHash returns the hex SHA-256 of the domain's files concatenated in
// file-name order.
func (v *VersionTracker) CurrentHash(d Domain) (string, error) {
	files, err := v.scanner.DiscoverFiles(d)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, name := range files {
		data, err := v.scanner.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HasChanged reports whether the domain's digest differs from the committed
// one. It is true when nothing has been committed yet.
func (v *VersionTracker) HasChanged(ctx context.Context, d Domain) (bool, error) {
	st, err := v.Check(ctx, d)
	return st.Changed, err
}

// Check hashes the domain once and compares it with the committed digest.
func (v *VersionTracker) Check(ctx context.Context, d Domain) (Status, error) {
	digest, err := v.CurrentHash(d)
	if err != nil {
		return Status{Domain: d}, err
	}
	return v.compare(ctx, d, digest)
}

func (v *VersionTracker) compare(ctx context.Context, d Domain, digest string) (Status, error) {
	last, ok, err := v.hashes.ContentHash(ctx, string(d))
	if err != nil {
		return Status{Domain: d, Digest: digest}, err
	}
	return Status{Domain: d, Digest: digest, Changed: !ok || last != digest}, nil
}

// Commit records digest as the synchronized version of the domain.
func (v *VersionTracker) Commit(ctx context.Context, d Domain, digest string) error {
	if err := v.hashes.SetContentHash(ctx, string(d), digest); err != nil {
		return fmt.Errorf("failed to commit %s hash: %w", d, err)
	}
	return nil
}

// CheckAll checks the given domains concurrently. Hashing is read-only; the
// comparisons against the hash store run after all digests are known.
func (v *VersionTracker) CheckAll(ctx context.Context, domains []Domain) (map[Domain]Status, error) {
	digests, err := v.CurrentHashes(ctx, domains)
	if err != nil {
		return nil, err
	}
	out := make(map[Domain]Status, len(domains))
	for _, d := range domains {
		st, err := v.compare(ctx, d, digests[d])
		if err != nil {
			return nil, err
		}
		out[d] = st
	}
	return out, nil
}

// CurrentHashes hashes the given domains concurrently.
func (v *VersionTracker) CurrentHashes(ctx context.Context, domains []Domain) (map[Domain]string, error) {
	var mu sync.Mutex
	out := make(map[Domain]string, len(domains))

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range domains {
		d := d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := v.CurrentHash(d)
			if err != nil {
				return fmt.Errorf("failed to hash %s: %w", d, err)
			}
			mu.Lock()
			out[d] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
