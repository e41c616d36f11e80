package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{raw: "YES", want: true},
		{raw: "NO", want: false},
		{raw: "yes", want: true},
		{raw: "No.", want: false},
		{raw: "  YES  ", want: true},
		{raw: "\"NO\"", want: false},
		{raw: "YES, the challenger reversed the stance.", want: true},
		{raw: "Maybe", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseVerdict(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
