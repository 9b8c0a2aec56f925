package hexite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVQLEvaluator(t *testing.T) {
	view, err := NewBytesView(recordsSample, recordsFormat(t))
	require.NoError(t, err)

	var evaluator Evaluator = NewVQLEvaluator(view)

	_, err = evaluator.Query("x => x.count")
	assert.True(t, errors.Is(err, NotFoundError))

	require.NoError(t, evaluator.Load("root"))

	value, err := evaluator.Query("x => x.count")
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), value)

	_, err = evaluator.Query("x => x.no_such_field")
	assert.True(t, errors.Is(err, NotFoundError))

	_, err = evaluator.Query("not a lambda")
	assert.True(t, errors.Is(err, InvalidConfigurationError))

	err = evaluator.Load("missing")
	assert.True(t, errors.Is(err, NotFoundError))

	// Top level children load on their own.
	require.NoError(t, evaluator.Load("count"))
	value, err = evaluator.Query("x => x")
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), value)
}
