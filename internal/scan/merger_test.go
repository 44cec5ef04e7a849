package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfinder/devfinder/internal/scan"
)

func TestDefaultMergerDeduplicates(t *testing.T) {
	t.Parallel()

	merger := scan.NewDefaultMerger()

	results := merger.Merge([]*scan.Result{
		{Name: "Unknown device", Address: "AA:BB:CC:DD:EE:FF", Paired: true},
		{Name: "Living Room Speaker", Address: "aa:bb:cc:dd:ee:ff", Signal: "70"},
		{Name: "Keyboard", Address: "11:22:33:44:55:66"},
	})

	require.Len(t, results, 2)

	// Name-ordered output, gaps filled from later duplicates
	assert.Equal(t, "Keyboard", results[0].Name)
	assert.Equal(t, "Living Room Speaker", results[1].Name)
	assert.Equal(t, "70", results[1].Signal)
	assert.True(t, results[1].Paired)
}

func TestDefaultMergerKeepsAddresslessResults(t *testing.T) {
	t.Parallel()

	merger := scan.NewDefaultMerger()

	results := merger.Merge([]*scan.Result{
		{Name: "Integrated Webcam"},
		{Name: "USB Camera"},
	})

	assert.Len(t, results, 2)
}

func TestDefaultMergerDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	merger := scan.NewDefaultMerger()

	a := &scan.Result{Name: "first", Address: "AA:BB:CC:DD:EE:FF"}
	b := &scan.Result{Name: "second", Address: "AA:BB:CC:DD:EE:FF", Signal: "55"}

	merged := merger.Merge([]*scan.Result{a, b})

	require.Len(t, merged, 1)
	assert.Equal(t, "55", merged[0].Signal)
	assert.Empty(t, a.Signal) // input untouched
}

func TestDefaultMergerEmpty(t *testing.T) {
	t.Parallel()

	merger := scan.NewDefaultMerger()
	assert.Empty(t, merger.Merge(nil))
}
