package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricNamespace(t *testing.T) {
	tests := map[string]string{
		"H3ravel":      "h3ravel",
		"Test App":     "test_app",
		"  my-api v2 ": "my_api_v2",
		"9lives":       "app_9lives",
		"":             "app",
	}
	for in, want := range tests {
		assert.Equal(t, want, metricNamespace(in), in)
	}
}
