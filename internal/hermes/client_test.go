package hermes

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent(t *testing.T) {
	ev := BatchCompletedEvent{BatchID: "b-1"}
	payload, id, err := encodeEvent(SubjectBatchCompleted("b-1"), ev)
	require.NoError(t, err)

	var back BatchCompletedEvent
	require.NoError(t, json.Unmarshal(payload, &back))
	assert.Equal(t, "b-1", back.BatchID)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	_, id2, err := encodeEvent(SubjectBatchCompleted("b-1"), ev)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2, "each publish gets its own message id")
}

func TestEncodeEventRejectsUnencodable(t *testing.T) {
	_, _, err := encodeEvent(SubjectSolveTimeout, map[string]interface{}{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), SubjectSolveTimeout)
}
