//go:build windows

package preflight

import "golang.org/x/sys/windows"

func diskFreeBytes(path string) (uint64, error) {
	var free uint64
	err := windows.GetDiskFreeSpaceEx(windows.StringToUTF16Ptr(path), &free, nil, nil)
	if err != nil {
		return 0, err
	}
	return free, nil
}
