// SPDX-License-Identifier: MPL-2.0

package platform

import "strings"

// reservedStems are device names Windows refuses as file names with or
// without an extension.
var reservedStems = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsReservedFileName reports whether name, ignoring its extension and
// case, cannot be used as a file or directory name on Windows. Binary and
// module names become file names, so they are checked on every platform.
func IsReservedFileName(name string) bool {
	stem := strings.ToUpper(name)
	if i := strings.IndexByte(stem, '.'); i != -1 {
		stem = stem[:i]
	}
	return reservedStems[stem]
}
