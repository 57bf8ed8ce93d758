package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ResolveRequest
		wantErr bool
	}{
		{"valid", ResolveRequest{OriginLat: 21.0278, OriginLng: 105.8342, Destination: "Hồ Hoàn Kiếm"}, false},
		{"boundary coordinates accepted", ResolveRequest{OriginLat: 90, OriginLng: -180, Destination: "x"}, false},
		{"latitude too high", ResolveRequest{OriginLat: 90.0001, OriginLng: 0, Destination: "x"}, true},
		{"longitude too low", ResolveRequest{OriginLat: 0, OriginLng: -180.0001, Destination: "x"}, true},
		{"missing destination", ResolveRequest{OriginLat: 21.0, OriginLng: 105.8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOutcomeCases(t *testing.T) {
	place := &ResolvedPlace{
		Destination: "x",
		Lat:         Float64(21.0),
		Lng:         Float64(105.8),
		Source:      SourceOSM,
	}

	found := Found(place)
	assert.True(t, found.IsFound())
	assert.False(t, found.IsFailed())
	assert.Same(t, place, found.Place())

	absent := NotFound()
	assert.False(t, absent.IsFound())
	assert.False(t, absent.IsFailed())
	assert.Nil(t, absent.Place())

	failed := Failed(assert.AnError)
	assert.False(t, failed.IsFound())
	assert.True(t, failed.IsFailed())
	require.Error(t, failed.Err())
}

func TestFoundWithoutCoordinatesIsNotFound(t *testing.T) {
	// A name-only result does not terminate the fallback chain.
	out := Found(&ResolvedPlace{Destination: "x", Source: SourceNotFound})
	assert.False(t, out.IsFound())
}
