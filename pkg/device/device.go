// Package device reads board definitions (config.gni) under device/.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/domain/errors"
)

// ConfigName is the board definition file inside a device directory.
const ConfigName = "config.gni"

var assignment = regexp.MustCompile(`(?m)^\s*(\w+)\s*=\s*"([^"]*)"`)

// Info is what a config.gni declares about a device.
type Info struct {
	Path          string
	KernelType    string
	KernelVersion string
	BoardName     string
	Toolchain     string
}

// Parse reads the gn string assignments from a config.gni file.
func Parse(configPath string) (*Info, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.New(errors.CodeManifest, "device", fmt.Sprintf("%s not found", configPath), err)
	}
	values := map[string]string{}
	for _, m := range assignment.FindAllStringSubmatch(string(data), -1) {
		if _, seen := values[m[1]]; !seen {
			values[m[1]] = m[2]
		}
	}
	return &Info{
		Path:          filepath.Dir(configPath),
		KernelType:    values["kernel_type"],
		KernelVersion: values["kernel_version"],
		BoardName:     values["board_name"],
		Toolchain:     values["board_toolchain_type"],
	}, nil
}

// IsInDevice reports whether dir is a device directory: it holds a
// config.gni that declares kernel_type.
func IsInDevice(dir string) bool {
	configPath := filepath.Join(dir, ConfigName)
	if !filesystem.IsFile(configPath) {
		return false
	}
	info, err := Parse(configPath)
	return err == nil && info.KernelType != ""
}

// GetCompiler returns the board toolchain type declared for devicePath.
func GetCompiler(devicePath string) (string, error) {
	info, err := Parse(filepath.Join(devicePath, ConfigName))
	if err != nil {
		return "", err
	}
	if info.Toolchain == "" {
		return "", errors.New(errors.CodeManifest, "device",
			fmt.Sprintf("board_toolchain_type is None in %s", filepath.Join(devicePath, ConfigName)), nil)
	}
	return info.Toolchain, nil
}

// List returns every device directory directly below boardPath.
func List(boardPath string) ([]*Info, error) {
	entries, err := os.ReadDir(boardPath)
	if err != nil {
		return nil, errors.New(errors.CodeManifest, "device", fmt.Sprintf("%s not found", boardPath), err)
	}
	var infos []*Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		configPath := filepath.Join(boardPath, e.Name(), ConfigName)
		if !filesystem.IsFile(configPath) {
			continue
		}
		info, err := Parse(configPath)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// FindDevicePath returns the device directory under boardPath whose kernel
// type and version match. An empty kernelVersion matches any version.
func FindDevicePath(boardPath, kernel, kernelVersion string) (string, error) {
	infos, err := List(boardPath)
	if err != nil {
		return "", err
	}
	for _, info := range infos {
		if info.KernelType != kernel {
			continue
		}
		if kernelVersion != "" && info.KernelVersion != kernelVersion {
			continue
		}
		return info.Path, nil
	}
	return "", errors.New(errors.CodeManifest, "device",
		fmt.Sprintf("cannot find %s_%s device in %s", kernel, kernelVersion, boardPath), nil)
}
