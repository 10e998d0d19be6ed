package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/disposal-planner/internal/keys"
)

func TestViewListsKeysAndLegend(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	view := m.View()

	for _, want := range []string{"Keys", "complete", "Status", "overdue", "Priority", "P1 critical", "Hazard", "CRITICAL", "recurring"} {
		assert.Contains(t, view, want)
	}
}
