// go-nfcv
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcv.
//
// go-nfcv is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcv is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcv; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist lists USB devices that must not be probed.
// Format: VID:PID in hexadecimal.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno, resets when the port opens
		"2341:0042", // Arduino Mega 2560, same
		"1546:01A7", // u-blox GPS receiver
	}
}

// IsBlocked reports whether vidpid is on blocklist. Comparison ignores case
// and surrounding space.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = normalizeVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if normalizeVIDPID(blocked) == vidpid {
			return true
		}
	}
	return false
}

// FormatVIDPID joins USB vendor and product ids as VID:PID.
func FormatVIDPID(vid, pid string) string {
	if vid == "" || pid == "" {
		return ""
	}
	return normalizeVIDPID(vid + ":" + pid)
}

func normalizeVIDPID(s string) string {
	vid, pid, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), ":")
	if !ok || !isHex(vid) || !isHex(pid) {
		return ""
	}
	return leftPad(vid) + ":" + leftPad(pid)
}

func leftPad(s string) string {
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath is one of ignorePaths. Paths are
// cleaned and compared without regard to case, so COM ports match too.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
