// Package stage implements Stage, the unit of work a Job runs against
// one Volume, and the registry of Stage factories PackageType.StageMap
// entries resolve against.
package stage

import (
	"context"

	"github.com/hathitrust/feed/registry"
	"github.com/hathitrust/feed/volume"
)

// Info describes the statuses a Stage transitions a Volume between.
type Info struct {
	SuccessState string
	FailureState string
}

// Stage is one unit of ingest work: unpacking, validating, assembling,
// or placing a Volume. Run reports whether the stage succeeded; on
// failure the caller reads Error for detail.
type Stage interface {
	Run(ctx context.Context, v *volume.Volume) bool
	Info() Info
	Failed() bool
	Error() error
	CleanAlways() bool
	CleanSuccess() bool
	CleanFailure() bool
}

// Factory constructs a fresh Stage instance. Stages are stateful (they
// record their own Error/Failed after Run), so Job obtains a new one per
// run rather than sharing a singleton.
type Factory func() Stage

// Register adds a Stage factory to the registry under identifier, for
// PackageType.StageMap and Job to resolve by name.
func Register(identifier string, factory Factory) {
	registry.Register(registry.KindStage, identifier, factory)
}

// Lookup retrieves a previously registered Stage factory and invokes it.
func Lookup(identifier string) (Stage, error) {
	v, err := registry.Lookup(registry.KindStage, identifier)
	if err != nil {
		return nil, err
	}
	return v.(Factory)(), nil
}

// base is embedded by concrete stages for the bookkeeping every Stage
// implementation needs: the recorded error, and which Volume.CleanAll
// triggers apply.
type base struct {
	info         Info
	err          error
	cleanAlways  bool
	cleanSuccess bool
	cleanFailure bool
}

func (b *base) Info() Info          { return b.info }
func (b *base) Failed() bool        { return b.err != nil }
func (b *base) Error() error        { return b.err }
func (b *base) CleanAlways() bool   { return b.cleanAlways }
func (b *base) CleanSuccess() bool  { return b.cleanSuccess }
func (b *base) CleanFailure() bool  { return b.cleanFailure }

func (b *base) setError(err error) bool {
	b.err = err
	return err == nil
}
