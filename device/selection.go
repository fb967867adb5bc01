package device

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MissingNames returns the entries of required that are not keys of available, in the order they are
// required
func MissingNames[V any](available map[string]V, required []string) []string {
	var missing []string
	for _, name := range required {
		_, ok := available[name]
		if !ok {
			missing = append(missing, name)
		}
	}

	return missing
}

// SelectQueueFamily walks queue families in order and returns the index of the first one with graphics
// support for which present reports surface support. Graphics queues implicitly support transfer. The
// second return value is false if no family qualifies.
func SelectQueueFamily(families []core1_0.QueueFlags, present func(queueFamilyIndex int) (bool, error)) (int, bool, error) {
	for queueFamilyIndex, flags := range families {
		if flags&core1_0.QueueGraphics == 0 {
			continue
		}

		supported, err := present(queueFamilyIndex)
		if err != nil {
			return -1, false, err
		}

		if supported {
			return queueFamilyIndex, true, nil
		}
	}

	return -1, false, nil
}

var sampleCounts = []core1_0.SampleCountFlags{
	core1_0.Samples64,
	core1_0.Samples32,
	core1_0.Samples16,
	core1_0.Samples8,
	core1_0.Samples4,
	core1_0.Samples2,
}

// MaxSampleCount returns the highest sample count that is no higher than requested and is supported for
// both colour and depth framebuffer attachments. Single sampling is always supported.
func MaxSampleCount(colorCounts, depthCounts, requested core1_0.SampleCountFlags) core1_0.SampleCountFlags {
	counts := colorCounts & depthCounts

	for _, count := range sampleCounts {
		if count > requested {
			continue
		}

		if counts&count != 0 {
			return count
		}
	}

	return core1_0.Samples1
}

// ChooseFormat returns the first candidate whose features, as reported by features, include every flag in
// required
func ChooseFormat(candidates []core1_0.Format, features func(format core1_0.Format) core1_0.FormatFeatureFlags, required core1_0.FormatFeatureFlags) (core1_0.Format, bool) {
	for _, format := range candidates {
		if features(format)&required == required {
			return format, true
		}
	}

	return 0, false
}

// DepthFormatCandidates are the depth formats tried by Context.FindDepthFormat, in order of preference
var DepthFormatCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// HasStencilComponent reports whether a depth format carries a stencil aspect
func HasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}
