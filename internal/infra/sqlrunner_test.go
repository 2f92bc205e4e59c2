package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantSQL    string
		wantErr    bool
	}{
		{
			name:       "valid marker",
			query:      "\n--sql 0f9b8a4e-1c2d-4e5f-8a9b-0c1d2e3f4a5b\nSELECT 1\n",
			wantMarker: "0f9b8a4e-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
			wantSQL:    "SELECT 1",
		},
		{
			name:    "missing marker",
			query:   "SELECT 1",
			wantErr: true,
		},
		{
			name:    "uppercase uuid rejected",
			query:   "--sql 0F9B8A4E-1C2D-4E5F-8A9B-0C1D2E3F4A5B\nSELECT 1",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, sql, err := extractMarker(tc.query)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMarker, marker)
			assert.Equal(t, tc.wantSQL, sql)
		})
	}
}
