package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/amsross/transitlambda/pkg/lookup"
	_ "github.com/amsross/transitlambda/pkg/ratelimit"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

// TestMetricNamespace gathers the default registry and checks the pipeline's
// metric families carry the transit_ prefix. Importing the packages above is
// what registers them.
func TestMetricNamespace(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "transit_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected at least one transit_ metric family to be registered")
	}
}
