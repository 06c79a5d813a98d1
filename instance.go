package vkrender

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Version is used to specify versions of components
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation
func (v *Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// App is used to provide information about this specific application to Vulkan
type App struct {
	// Name the name of the application
	Name string
	// Engine the name of the engine associated with the application
	EngineName string
	// Version the version of the application
	Version Version
	// APIVersion the expected minimum version of the Vulkan API (i.e. 1.0.0)
	APIVersion Version

	EnabledLayers     []string
	EnabledExtensions []string
}

// SupportedLayers returns the instance layers available. Vulkan must have been
// initialized first.
func SupportedLayers() ([]string, error) {
	var instanceLayerLen uint32
	err := vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, nil))
	if err != nil {
		return nil, err
	}
	instanceLayer := make([]vk.LayerProperties, instanceLayerLen)
	err = vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, instanceLayer))
	if err != nil {
		return nil, err
	}
	layerNames := make([]string, 0, len(instanceLayer))
	for _, layer := range instanceLayer {
		layer.Deref()
		layerNames = append(layerNames, vk.ToString(layer.LayerName[:]))
	}
	return layerNames, nil
}

// EnableValidation enables the Khronos validation layer and debug reporting,
// it fails if the layer is not installed
func (a *App) EnableValidation() error {
	if err := a.EnableLayer("VK_LAYER_KHRONOS_validation"); err != nil {
		return err
	}
	a.EnableExtension("VK_EXT_debug_report")
	return nil
}

// EnableLayer enables a layer if it is supported
func (a *App) EnableLayer(layer string) error {
	layers, err := SupportedLayers()
	if err != nil {
		return errors.Wrap(err, "getting supported layers")
	}
	for _, l := range layers {
		if l == layer {
			a.EnabledLayers = append(a.EnabledLayers, layer)
			return nil
		}
	}
	return errors.Errorf("layer '%s' not found", layer)
}

func (a *App) EnableExtension(extension ...string) *App {
	a.EnabledExtensions = append(a.EnabledExtensions, extension...)
	return a
}

// VKApplicationInfo creates a structure representing this application in a Vulkan friendly format
func (a *App) VKApplicationInfo() vk.ApplicationInfo {
	if a.APIVersion.Major < 1 {
		a.APIVersion.Major = 1
	}
	return vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         a.APIVersion.VKVersion(),
		ApplicationVersion: a.Version.VKVersion(),
		PApplicationName:   SafeString(a.Name),
		PEngineName:        SafeString(a.EngineName),
	}
}

// CreateInstance creates the Vulkan instance
func (a *App) CreateInstance() (*Instance, error) {
	appInfo := a.VKApplicationInfo()

	extensions := SafeStrings(a.EnabledExtensions)
	layers := SafeStrings(a.EnabledLayers)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	instance := &Instance{}
	err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance.VKInstance))
	if err != nil {
		return nil, errors.Wrap(err, "creating instance")
	}
	vk.InitInstance(instance.VKInstance)

	Logger().WithFields(logrus.Fields{
		"layers":     a.EnabledLayers,
		"extensions": a.EnabledExtensions,
	}).Debug("created instance")
	return instance, nil
}

// Instance is an instance of the Vulkan subsystem
type Instance struct {
	VKInstance vk.Instance

	debugCallback vk.DebugReportCallback
}

// PhysicalDevices returns the physical devices known to Vulkan
func (i *Instance) PhysicalDevices() ([]*PhysicalDevice, error) {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, nil))
	if err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, nil
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, devices))
	if err != nil {
		return nil, err
	}

	ret := make([]*PhysicalDevice, deviceCount)
	for j, device := range devices {
		ret[j] = &PhysicalDevice{VKPhysicalDevice: device}
		vk.GetPhysicalDeviceProperties(device, &ret[j].VKPhysicalDeviceProperties)
		ret[j].VKPhysicalDeviceProperties.Deref()
		ret[j].DeviceName = vk.ToString(ret[j].VKPhysicalDeviceProperties.DeviceName[:])
	}
	return ret, nil
}

// UseLoggerDebugCallback routes validation messages to the package logger.
// The instance must have been created with the debug report extension.
func (i *Instance) UseLoggerDebugCallback() error {
	ret := vk.CreateDebugReportCallback(i.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: loggerDebugCallback,
	}, nil, &i.debugCallback)
	return vk.Error(ret)
}

func loggerDebugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := Logger().WithFields(logrus.Fields{
		"layer": pLayerPrefix,
		"code":  messageCode,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.Bool32(vk.False)
}

func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.VKInstance, i.debugCallback, nil)
	}
	vk.DestroyInstance(i.VKInstance, nil)
}
