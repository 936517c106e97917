package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netweaver/nidcore/internal/feature"
)

func TestFeatureColumnsMatchHeader(t *testing.T) {
	assert.Equal(t, "time", featureColumns[0])
	assert.Equal(t, "flow_key", featureColumns[1])
	assert.Equal(t, feature.Header, featureColumns[2:])
	assert.Len(t, featureColumns, feature.NumFields+2)
}

func TestAlertColumnsCount(t *testing.T) {
	// One column per Alert field, including composite fields split across
	// src/dst.
	assert.Len(t, alertColumns, 13)
}
