package checkpoint_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
)

type sample struct {
	Name   string         `json:"name" msgpack:"name"`
	Values map[string]any `json:"values" msgpack:"values"`
}

func TestSerializer_RoundTrip(t *testing.T) {
	names := []string{"json", "msgpack", "json+gzip", "json+zstd", "msgpack+gzip", "msgpack+zstd"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, err := checkpoint.ParseSerializer(name)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name())

			in := sample{Name: "ctx", Values: map[string]any{"s": "hello", "b": true}}
			data, err := s.Serialize(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, s.Deserialize(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestSerializer_NumericFidelity(t *testing.T) {
	in := map[string]any{"n": int64(5), "f": 2.5}

	t.Run("msgpack keeps integers", func(t *testing.T) {
		s := checkpoint.DefaultSerializer()
		data, err := s.Serialize(in)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, s.Deserialize(data, &out))
		_, isFloat := out["n"].(float64)
		assert.False(t, isFloat, "msgpack decoded %T", out["n"])
		assert.EqualValues(t, 5, out["n"])
		assert.Equal(t, 2.5, out["f"])
	})

	t.Run("json decodes numbers as json.Number", func(t *testing.T) {
		s, err := checkpoint.NewSerializer("json", "")
		require.NoError(t, err)
		data, err := s.Serialize(in)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, s.Deserialize(data, &out))
		assert.Equal(t, json.Number("5"), out["n"])
		assert.Equal(t, json.Number("2.5"), out["f"])
	})
}

func TestSerializer_Compresses(t *testing.T) {
	payload := map[string]string{"text": string(bytes.Repeat([]byte("flowchart "), 500))}

	plain, err := checkpoint.NewSerializer("json", "none")
	require.NoError(t, err)
	zstd, err := checkpoint.NewSerializer("json", "zstd")
	require.NoError(t, err)

	raw, err := plain.Serialize(payload)
	require.NoError(t, err)
	small, err := zstd.Serialize(payload)
	require.NoError(t, err)
	assert.Less(t, len(small), len(raw)/4)
}

func TestParseSerializer(t *testing.T) {
	s, err := checkpoint.ParseSerializer("")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", s.Name())

	s, err = checkpoint.ParseSerializer("JSON+ZSTD")
	require.NoError(t, err)
	assert.Equal(t, "json+zstd", s.Name())

	_, err = checkpoint.ParseSerializer("xml")
	assert.ErrorIs(t, err, checkpoint.ErrUnknownEncoding)

	_, err = checkpoint.ParseSerializer("json+lz4")
	assert.ErrorIs(t, err, checkpoint.ErrUnknownEncoding)
}

func TestSerializer_CorruptData(t *testing.T) {
	s, err := checkpoint.NewSerializer("msgpack", "zstd")
	require.NoError(t, err)

	var out map[string]any
	assert.Error(t, s.Deserialize([]byte("not zstd"), &out))
}

func TestCheckpoint_Decode(t *testing.T) {
	s, err := checkpoint.NewSerializer("msgpack", "gzip")
	require.NoError(t, err)
	state, err := s.Serialize(sample{Name: "paused"})
	require.NoError(t, err)

	cp := checkpoint.New("run-1", "bp", 2, state, s.Name())

	var out sample
	require.NoError(t, cp.Decode(&out))
	assert.Equal(t, "paused", out.Name)

	cp.Version = checkpoint.Version + 1
	assert.ErrorIs(t, cp.Decode(&out), checkpoint.ErrVersionMismatch)
}

func TestCheckpoint_Clone(t *testing.T) {
	cp := checkpoint.New("run-1", "bp", 2, []byte("abc"), "json")
	clone := cp.Clone()
	clone.State[0] = 'X'
	clone.NodeID = "other"
	assert.Equal(t, []byte("abc"), cp.State)
	assert.Equal(t, "bp", cp.NodeID)
}
