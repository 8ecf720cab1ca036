// Package preflight performs fail-fast capability checks before the
// replication service accepts work.
//
// The checks verify interface capabilities and, for the destination,
// issue a probe HEAD against a key that should not exist: any answer
// other than not-found (or success) indicates a connectivity or
// permission problem worth failing on before traffic arrives.
package preflight

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lakeshift/relay/pkg/provider"
)

// Capability labels used in check results.
const (
	CapSourceRead      = "source.read"
	CapDestinationHead = "destination.head"
	CapDestinationPut  = "destination.put"
)

// CheckResult is a single capability check outcome.
type CheckResult struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
	Method     string `json:"method,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Record collects the results of one preflight run.
type Record struct {
	Results []CheckResult `json:"results"`
}

// Options selects which checks to run.
type Options struct {
	// ProbeDestination issues a HEAD against a random key in the
	// destination bucket to verify connectivity and read permission.
	ProbeDestination bool
}

// Check verifies the providers can serve a replication workload.
//
// Ordering (fail-fast): source read capability → destination write
// capability → destination probe (when enabled).
func Check(ctx context.Context, src, dst provider.Provider, dstBucket string, opts Options) (*Record, error) {
	rec := &Record{Results: []CheckResult{}}

	if _, ok := src.(provider.ObjectGetter); !ok {
		rec.Results = append(rec.Results, CheckResult{
			Capability: CapSourceRead,
			Allowed:    false,
			Detail:     "source provider does not support GetObject",
		})
		return rec, fmt.Errorf("source provider does not support GetObject")
	}
	rec.Results = append(rec.Results, CheckResult{Capability: CapSourceRead, Allowed: true})

	if _, ok := dst.(provider.ObjectPutter); !ok {
		rec.Results = append(rec.Results, CheckResult{
			Capability: CapDestinationPut,
			Allowed:    false,
			Detail:     "destination provider does not support PutObject",
		})
		return rec, fmt.Errorf("destination provider does not support PutObject")
	}
	rec.Results = append(rec.Results, CheckResult{Capability: CapDestinationPut, Allowed: true})

	if opts.ProbeDestination {
		probeKey := "_relay/preflight-" + uuid.NewString()
		_, err := dst.Head(ctx, dstBucket, probeKey)
		if err != nil && !provider.IsNotFound(err) {
			rec.Results = append(rec.Results, CheckResult{
				Capability: CapDestinationHead,
				Allowed:    false,
				Method:     "Head(random)",
				Detail:     err.Error(),
			})
			return rec, err
		}
		rec.Results = append(rec.Results, CheckResult{
			Capability: CapDestinationHead,
			Allowed:    true,
			Method:     "Head(random)",
		})
	}

	return rec, nil
}
