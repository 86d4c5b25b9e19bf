package util

import (
	"os"
	"strings"
)

// GetDeviceName reads the name file of a hwmon device
func GetDeviceName(devicePath string) string {
	namePath := devicePath + "/name"
	content, _ := os.ReadFile(namePath)
	return strings.TrimSpace(string(content))
}

// GetDeviceModalias reads the modalias of a device
func GetDeviceModalias(devicePath string) string {
	modaliasPath := devicePath + "/device/modalias"
	content, _ := os.ReadFile(modaliasPath)
	return strings.TrimSpace(string(content))
}
