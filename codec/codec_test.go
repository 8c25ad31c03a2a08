package codec

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type robot struct {
	Name   string   `json:"name"`
	Errors uint32   `json:"errors"`
	Log    []string `json:"log"`
}

func TestCodecs(t *testing.T) {
	in := robot{Name: "r2", Errors: 2, Log: []string{"Initialized", "bump"}}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out robot
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)

			byName, ok := ByName(c.Name())
			require.True(t, ok)
			assert.Equal(t, c, byName)
		})
	}
}

func TestJSONInterchangeable(t *testing.T) {
	in := robot{Name: "r2", Log: []string{"a"}}
	data, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var out robot
	require.NoError(t, GoJSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

// u64 encodes uint64 values only.
type u64 struct{}

func (u64) Name() string { return "test-u64" }

func (u64) Marshal(v any) ([]byte, error) {
	n, ok := v.(uint64)
	if !ok {
		return nil, errors.New("not a uint64")
	}
	return binary.LittleEndian.AppendUint64(nil, n), nil
}

func (u64) Unmarshal(data []byte, v any) error {
	p, ok := v.(*uint64)
	if !ok || len(data) != 8 {
		return errors.New("bad u64")
	}
	*p = binary.LittleEndian.Uint64(data)
	return nil
}

func TestRegister(t *testing.T) {
	if err := Register(u64{}); err != nil {
		require.ErrorIs(t, err, ErrDuplicate)
	}
	c, ok := ByName("test-u64")
	require.True(t, ok)
	assert.Contains(t, Names(), "test-u64")

	data, err := c.Marshal(uint64(7))
	require.NoError(t, err)
	var n uint64
	require.NoError(t, c.Unmarshal(data, &n))
	assert.Equal(t, uint64(7), n)

	assert.ErrorIs(t, Register(u64{}), ErrDuplicate)
	assert.ErrorIs(t, Register(JSON{}), ErrDuplicate)
}

type named string

func (named) Marshal(any) ([]byte, error) { return nil, nil }
func (named) Unmarshal([]byte, any) error { return nil }
func (n named) Name() string              { return string(n) }

func TestRegister_InvalidName(t *testing.T) {
	assert.Error(t, Register(named("")))
	assert.Error(t, Register(named(strings.Repeat("x", 256))))
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}
