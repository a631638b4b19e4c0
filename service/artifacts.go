package service

import (
	"context"
	"time"

	"github.com/zkpool/zkpool/circuits"
	"golang.org/x/sync/errgroup"
)

// DownloadArtifacts downloads the circuit artifacts of all transaction
// variants concurrently.
func DownloadArtifacts(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, v := range []circuits.Variant{circuits.VariantTx2, circuits.VariantTx16} {
		arts, err := circuits.ArtifactsForVariant(v)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return arts.EnsureAll(ctx)
		})
	}
	return g.Wait()
}
