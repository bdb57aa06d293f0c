package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	m := NewMessage(`{"type":"setValue","key":"k","value":[1,2]}`)

	var env struct {
		Type  string `json:"type"`
		Key   string `json:"key"`
		Value []int  `json:"value"`
	}
	require.NoError(t, m.Decode(&env))
	assert.Equal(t, "setValue", env.Type)
	assert.Equal(t, []int{1, 2}, env.Value)
	assert.Equal(t, `{"type":"setValue","key":"k","value":[1,2]}`, m.String())
	assert.Equal(t, m.String(), string(m.Raw()))

	var wrong int
	assert.Error(t, m.Decode(&wrong))
}

func TestValidPayload(t *testing.T) {
	assert.True(t, validPayload(`"x"`))
	assert.True(t, validPayload(`null`))
	assert.False(t, validPayload(`not json`))
	assert.False(t, validPayload(``))
}
