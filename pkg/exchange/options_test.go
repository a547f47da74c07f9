package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tidexgo/pkg/core"
)

func TestApplyOptions(t *testing.T) {
	o := ApplyOptions(
		WithLimit(50),
		WithSince(1646294384000),
		WithCursor("135762344"),
		WithTimeframe("1h"),
		WithParams(core.Params{"a": 1, "b": "x"}),
		WithParams(core.Params{"b": "y"}),
	)

	assert.Equal(t, 50, o.Limit)
	assert.Equal(t, int64(1646294384000), o.Since)
	assert.Equal(t, "135762344", o.Cursor)
	assert.Equal(t, "1h", o.Timeframe)
	assert.Equal(t, core.Params{"a": 1, "b": "y"}, o.Params)
}

func TestApplyOptions_Empty(t *testing.T) {
	o := ApplyOptions()

	assert.Zero(t, o.Limit)
	assert.Zero(t, o.Since)
	assert.Empty(t, o.Cursor)
	assert.Nil(t, o.Params)
}
