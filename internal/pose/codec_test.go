package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode(t *testing.T) {
	in := Pose{Yaw: 0.2, Pitch: -0.1, Roll: 0, SentAt: 1234.5}

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_FailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing yaw", map[string]any{"pitch": 0.1, "roll": 0.0}},
		{"missing roll", map[string]any{"yaw": 0.1, "pitch": 0.1}},
		{"string angle", map[string]any{"yaw": "0.2", "pitch": 0.1, "roll": 0.0}},
		{"nan angle", map[string]any{"yaw": math.NaN(), "pitch": 0.1, "roll": 0.0}},
		{"empty map", map[string]any{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := msgpack.Marshal(tc.payload)
			require.NoError(t, err)

			_, err = Decode(data)
			assert.ErrorIs(t, err, ErrMalformedPose)
		})
	}

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := Decode([]byte{0xc1, 0x00})
		assert.ErrorIs(t, err, ErrMalformedPose)
	})
}

func TestDecode_IntegerAnglesAndMissingT(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"yaw": 1, "pitch": 0, "roll": -1})
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Pose{Yaw: 1, Pitch: 0, Roll: -1}, p)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("browser payload", func(t *testing.T) {
		p, err := DecodeJSON([]byte(`{"yaw":0.2,"pitch":-0.1,"roll":0,"t":88.25}`))
		require.NoError(t, err)
		assert.Equal(t, Pose{Yaw: 0.2, Pitch: -0.1, Roll: 0, SentAt: 88.25}, p)
	})

	t.Run("null angle rejected", func(t *testing.T) {
		_, err := DecodeJSON([]byte(`{"yaw":null,"pitch":-0.1,"roll":0}`))
		assert.ErrorIs(t, err, ErrMalformedPose)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`hello`), true)
		assert.ErrorIs(t, err, ErrMalformedPose)
	})
}
