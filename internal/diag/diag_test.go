package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBag_LimitDropsExtra(t *testing.T) {
	t.Parallel()
	b := NewBag(2)
	assert.True(t, b.Addf(SevWarning, 1, 1, "one"))
	assert.True(t, b.Addf(SevWarning, 2, 1, "two"))
	assert.False(t, b.Addf(SevError, 3, 1, "three"))
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.HasErrors())
	assert.True(t, b.HasWarnings())
}

func TestBag_Unlimited(t *testing.T) {
	t.Parallel()
	b := NewBag(0)
	for i := range 100 {
		require.True(t, b.Addf(SevInfo, i+1, 1, "n%d", i))
	}
	assert.Equal(t, 100, b.Len())
	assert.False(t, b.HasWarnings())
}

func TestBag_SortAndSummary(t *testing.T) {
	t.Parallel()
	b := NewBag(0)
	b.Addf(SevWarning, 4, 2, "late warning")
	b.Addf(SevError, 1, 5, "early error")
	b.Addf(SevWarning, 1, 5, "same spot warning")
	b.Sort()

	items := b.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "early error", items[0].Message)
	assert.Equal(t, "same spot warning", items[1].Message)
	assert.Equal(t, "late warning", items[2].Message)
	assert.Equal(t, "1:5: error: early error", b.Summary())
}

func TestDiagnostic_StringWithoutLocation(t *testing.T) {
	t.Parallel()
	d := Diagnostic{Severity: SevWarning, Message: "argument unused during compilation: '-pipe'"}
	assert.Equal(t, "warning: argument unused during compilation: '-pipe'", d.String())
}

func TestBag_Merge(t *testing.T) {
	t.Parallel()
	a := NewBag(1)
	a.Addf(SevInfo, 0, 0, "a")
	other := NewBag(0)
	other.Addf(SevError, 2, 2, "b")
	a.Merge(other)
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.HasErrors())
	a.Merge(nil)
	assert.Equal(t, 2, a.Len())
}
