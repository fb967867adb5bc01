package device

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestMissingNames(t *testing.T) {
	available := map[string]int{
		"VK_KHR_swapchain":          1,
		"VK_KHR_portability_subset": 1,
	}

	testCases := map[string]struct {
		required []string
		missing  []string
	}{
		"nothing required": {},
		"all present": {
			required: []string{"VK_KHR_swapchain"},
		},
		"order kept": {
			required: []string{"VK_b", "VK_KHR_swapchain", "VK_a"},
			missing:  []string{"VK_b", "VK_a"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.missing, MissingNames(available, tc.required))
		})
	}
}

func TestSelectQueueFamily(t *testing.T) {
	testCases := map[string]struct {
		families []core1_0.QueueFlags
		present  map[int]bool
		index    int
		found    bool
	}{
		"first graphics and present": {
			families: []core1_0.QueueFlags{core1_0.QueueGraphics | core1_0.QueueTransfer, core1_0.QueueGraphics},
			present:  map[int]bool{0: true, 1: true},
			index:    0,
			found:    true,
		},
		"compute only skipped": {
			families: []core1_0.QueueFlags{core1_0.QueueCompute, core1_0.QueueGraphics | core1_0.QueueCompute},
			present:  map[int]bool{0: true, 1: true},
			index:    1,
			found:    true,
		},
		"graphics without present skipped": {
			families: []core1_0.QueueFlags{core1_0.QueueGraphics, core1_0.QueueGraphics},
			present:  map[int]bool{1: true},
			index:    1,
			found:    true,
		},
		"present without graphics": {
			families: []core1_0.QueueFlags{core1_0.QueueTransfer},
			present:  map[int]bool{0: true},
			index:    -1,
		},
		"no families": {
			index: -1,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			index, found, err := SelectQueueFamily(tc.families, func(queueFamilyIndex int) (bool, error) {
				return tc.present[queueFamilyIndex], nil
			})
			require.NoError(t, err)
			require.Equal(t, tc.found, found)
			require.Equal(t, tc.index, index)
		})
	}
}

func TestSelectQueueFamilyPresentError(t *testing.T) {
	queryErr := errors.New("surface lost")

	_, found, err := SelectQueueFamily([]core1_0.QueueFlags{core1_0.QueueGraphics}, func(int) (bool, error) {
		return false, queryErr
	})
	require.ErrorIs(t, err, queryErr)
	require.False(t, found)
}

func TestSelectQueueFamilySkipsPresentQueryForNonGraphics(t *testing.T) {
	var queried []int

	_, _, err := SelectQueueFamily([]core1_0.QueueFlags{core1_0.QueueCompute, core1_0.QueueGraphics}, func(queueFamilyIndex int) (bool, error) {
		queried = append(queried, queueFamilyIndex)
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1}, queried)
}

func TestMaxSampleCount(t *testing.T) {
	testCases := map[string]struct {
		color     core1_0.SampleCountFlags
		depth     core1_0.SampleCountFlags
		requested core1_0.SampleCountFlags
		expected  core1_0.SampleCountFlags
	}{
		"requested supported": {
			color:     core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8,
			depth:     core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8,
			requested: core1_0.Samples4,
			expected:  core1_0.Samples4,
		},
		"capped by depth": {
			color:     core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8,
			depth:     core1_0.Samples1 | core1_0.Samples2,
			requested: core1_0.Samples8,
			expected:  core1_0.Samples2,
		},
		"gap in counts": {
			color:     core1_0.Samples1 | core1_0.Samples8,
			depth:     core1_0.Samples1 | core1_0.Samples4 | core1_0.Samples8,
			requested: core1_0.Samples4,
			expected:  core1_0.Samples1,
		},
		"single sample only": {
			color:     core1_0.Samples1,
			depth:     core1_0.Samples1,
			requested: core1_0.Samples8,
			expected:  core1_0.Samples1,
		},
		"requested single": {
			color:     core1_0.Samples1 | core1_0.Samples4,
			depth:     core1_0.Samples1 | core1_0.Samples4,
			requested: core1_0.Samples1,
			expected:  core1_0.Samples1,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, MaxSampleCount(tc.color, tc.depth, tc.requested))
		})
	}
}

func TestChooseFormat(t *testing.T) {
	features := map[core1_0.Format]core1_0.FormatFeatureFlags{
		core1_0.FormatD32SignedFloat:                     core1_0.FormatFeatureSampledImage,
		core1_0.FormatD32SignedFloatS8UnsignedInt:        core1_0.FormatFeatureDepthStencilAttachment | core1_0.FormatFeatureSampledImage,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt: core1_0.FormatFeatureDepthStencilAttachment,
	}
	lookup := func(format core1_0.Format) core1_0.FormatFeatureFlags {
		return features[format]
	}

	format, ok := ChooseFormat(DepthFormatCandidates, lookup, core1_0.FormatFeatureDepthStencilAttachment)
	require.True(t, ok)
	require.Equal(t, core1_0.FormatD32SignedFloatS8UnsignedInt, format)
	require.True(t, HasStencilComponent(format))

	_, ok = ChooseFormat(DepthFormatCandidates, lookup, core1_0.FormatFeatureColorAttachment)
	require.False(t, ok)

	require.False(t, HasStencilComponent(core1_0.FormatD32SignedFloat))
}

func TestSortedKeys(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]bool{"c": true, "a": true, "b": false}))
}
