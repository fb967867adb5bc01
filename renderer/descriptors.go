package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/upload"
)

// descriptors owns the pool and one set per frame slot. Each set points at the slot's uniform region
// and the shared texture.
type descriptors struct {
	driver core1_0.DeviceDriver
	pool   core1_0.DescriptorPool
	sets   []core1_0.DescriptorSet
}

func newDescriptors(driver core1_0.DeviceDriver, layout core1_0.DescriptorSetLayout, uniforms *uniformRing, texture *upload.Texture) (*descriptors, error) {
	count := uniforms.count

	pool, _, err := driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: count,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: count,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: count,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create descriptor pool")
	}

	layouts := make([]core1_0.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}

	sets, _, err := driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     layouts,
	})
	if err != nil {
		driver.DestroyDescriptorPool(pool, nil)
		return nil, errors.Wrap(err, "failed to allocate descriptor sets")
	}

	for i, set := range sets {
		err = driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{uniforms.BufferInfo(i)},
			},
			{
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   texture.View,
						Sampler:     texture.Sampler,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			driver.DestroyDescriptorPool(pool, nil)
			return nil, errors.Wrapf(err, "failed to write descriptor set %d", i)
		}
	}

	return &descriptors{
		driver: driver,
		pool:   pool,
		sets:   sets,
	}, nil
}

func (d *descriptors) Set(slot int) core1_0.DescriptorSet {
	return d.sets[slot]
}

// Destroy destroys the pool, which frees every set allocated from it
func (d *descriptors) Destroy() {
	d.driver.DestroyDescriptorPool(d.pool, nil)
	d.sets = nil
}
