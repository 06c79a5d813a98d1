package vkrender

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderModule is a compiled SPIR-V module
type ShaderModule struct {
	Path           string
	VKShaderModule vk.ShaderModule
}

// LoadShaderModule creates a shader module from the SPIR-V file at path
func (d *VulkanDevice) LoadShaderModule(path string) (*ShaderModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading shader")
	}
	code, err := spirvWords(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	var module vk.ShaderModule
	err = vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    code,
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrapf(err, "creating shader module %s", path)
	}
	return &ShaderModule{Path: path, VKShaderModule: module}, nil
}

func (d *VulkanDevice) DestroyShaderModule(s *ShaderModule) {
	vk.DestroyShaderModule(d.VKDevice, s.VKShaderModule, nil)
}

// StageInfo describes s as the given pipeline stage
func (s *ShaderModule) StageInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.VKShaderModule,
		PName:  SafeString(entryPoint),
	}
}

const spirvMagic = 0x07230203

// spirvWords reinterprets data as SPIR-V words, checking its size and magic number
func spirvWords(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Errorf("SPIR-V size %d is not a multiple of 4", len(data))
	}
	words := unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
	if words[0] != spirvMagic {
		return nil, errors.Errorf("bad SPIR-V magic %#x", words[0])
	}
	return words, nil
}
