package genarena

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_String(t *testing.T) {
	h := Handle{index: 3, gen: 2}
	assert.Equal(t, "3v2", h.String())
	assert.True(t, Handle{}.IsZero())
	assert.False(t, h.IsZero())
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    Handle
		wantErr bool
	}{
		{in: "3v2", want: Handle{index: 3, gen: 2}},
		{in: "0v18446744073709551615", want: Handle{index: 0, gen: 18446744073709551615}},
		{in: "3", wantErr: true},
		{in: "v2", wantErr: true},
		{in: "3v", wantErr: true},
		{in: "4294967296v1", wantErr: true},
		{in: "-1v1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHandle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandle_TextInStruct(t *testing.T) {
	type edge struct {
		From Handle `json:"from"`
		To   Handle `json:"to"`
	}

	in := edge{From: Handle{index: 1, gen: 1}, To: Handle{index: 7, gen: 3}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"1v1","to":"7v3"}`, string(data))

	var out edge
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"from":"bogus"}`), &out))
}
