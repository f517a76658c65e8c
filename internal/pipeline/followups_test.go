package pipeline

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMergeFollowUps(t *testing.T) {
	tests := []struct {
		name         string
		current      []string
		recommended  []string
		wantMerged   []string
		wantAccepted []string
	}{
		{
			name:         "empty set accepts everything",
			current:      nil,
			recommended:  []string{"a", "b"},
			wantMerged:   []string{"a", "b"},
			wantAccepted: []string{"a", "b"},
		},
		{
			name:         "duplicates against current are dropped",
			current:      []string{"a", "b"},
			recommended:  []string{"b", "c"},
			wantMerged:   []string{"a", "b", "c"},
			wantAccepted: []string{"c"},
		},
		{
			name:         "duplicates within recommendations are dropped",
			current:      []string{"a"},
			recommended:  []string{"b", "b", "b"},
			wantMerged:   []string{"a", "b"},
			wantAccepted: []string{"b"},
		},
		{
			name:         "nothing new",
			current:      []string{"a", "b"},
			recommended:  []string{"a", "b"},
			wantMerged:   []string{"a", "b"},
			wantAccepted: nil,
		},
		{
			name:         "first-seen order is preserved",
			current:      []string{"c", "a"},
			recommended:  []string{"b", "a", "d"},
			wantMerged:   []string{"c", "a", "b", "d"},
			wantAccepted: []string{"b", "d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, accepted := mergeFollowUps(tt.current, tt.recommended)
			require.Equal(t, tt.wantMerged, merged)
			require.Equal(t, tt.wantAccepted, accepted)
			require.GreaterOrEqual(t, len(merged), len(tt.current), "set size never shrinks")
		})
	}
}
