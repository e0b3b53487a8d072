package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "waypoint/pkg/domain-errors"
)

func decodeTrack(t *testing.T, body string) (TrackRequest, error) {
	t.Helper()
	var req TrackRequest
	err := json.Unmarshal([]byte(body), &req)
	return req, err
}

func TestTrackRequest(t *testing.T) {
	t.Run("numbers", func(t *testing.T) {
		req, err := decodeTrack(t, `{"lat": 52.52, "lon": 13.405}`)
		require.NoError(t, err)
		require.NoError(t, req.Validate())
		assert.InDelta(t, 52.52, req.Lat.Float(), 1e-9)
	})

	t.Run("numeric strings", func(t *testing.T) {
		req, err := decodeTrack(t, `{"lat": "-33.86", "lon": " 151.2 "}`)
		require.NoError(t, err)
		require.NoError(t, req.Validate())
		assert.InDelta(t, 151.2, req.Lon.Float(), 1e-9)
	})

	t.Run("zero is a coordinate", func(t *testing.T) {
		req, err := decodeTrack(t, `{"lat": 0, "lon": 0}`)
		require.NoError(t, err)
		assert.NoError(t, req.Validate())
	})

	missing := []string{`{}`, `{"lat": 1}`, `{"lon": 1}`, `{"lat": "", "lon": 1}`, `{"lat": null, "lon": 1}`}
	for _, body := range missing {
		t.Run("missing "+body, func(t *testing.T) {
			req, err := decodeTrack(t, body)
			require.NoError(t, err)
			err = req.Validate()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.ErrorContains(t, err, "required")
		})
	}

	t.Run("out of range", func(t *testing.T) {
		req, err := decodeTrack(t, `{"lat": 91, "lon": 0}`)
		require.NoError(t, err)
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

		req, err = decodeTrack(t, `{"lat": 0, "lon": -180.5}`)
		require.NoError(t, err)
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := decodeTrack(t, `{"lat": "north", "lon": 1}`)
		assert.Error(t, err)
	})
}
