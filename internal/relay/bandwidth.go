// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import "fmt"

// FormatBytesPerSecond renders observed bandwidth (in bytes/second) per the
// selected display unit (spec §4.E "Bandwidth units", §8 property 7).
//
// bits mode converts to bits/second (×8) and divides by powers of 1000;
// bytes mode divides by powers of 1024. Both modes round to two decimals.
func FormatBytesPerSecond(bytesPerSecond int64, unit BandwidthUnit) string {
	if unit == BandwidthUnitBytes {
		return formatBytes(float64(bytesPerSecond))
	}
	return formatBits(float64(bytesPerSecond) * 8)
}

func formatBits(bitsPerSecond float64) string {
	const k = 1000.0
	switch {
	case bitsPerSecond >= k*k*k:
		return fmt.Sprintf("%.2f Gbit/s", bitsPerSecond/(k*k*k))
	case bitsPerSecond >= k*k:
		return fmt.Sprintf("%.2f Mbit/s", bitsPerSecond/(k*k))
	case bitsPerSecond >= k:
		return fmt.Sprintf("%.2f Kbit/s", bitsPerSecond/k)
	default:
		return fmt.Sprintf("%.2f bit/s", bitsPerSecond)
	}
}

func formatBytes(bytesPerSecond float64) string {
	const k = 1024.0
	switch {
	case bytesPerSecond >= k*k*k:
		return fmt.Sprintf("%.2f GB/s", bytesPerSecond/(k*k*k))
	case bytesPerSecond >= k*k:
		return fmt.Sprintf("%.2f MB/s", bytesPerSecond/(k*k))
	case bytesPerSecond >= k:
		return fmt.Sprintf("%.2f KB/s", bytesPerSecond/k)
	default:
		return fmt.Sprintf("%.2f B/s", bytesPerSecond)
	}
}
