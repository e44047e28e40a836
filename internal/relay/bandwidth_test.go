// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytesPerSecondBitsWorkedExample(t *testing.T) {
	assert.Equal(t, "12.00 Mbit/s", FormatBytesPerSecond(1_500_000, BandwidthUnitBits))
}

func TestFormatBytesPerSecondBytesWorkedExample(t *testing.T) {
	assert.Equal(t, "1.43 MB/s", FormatBytesPerSecond(1_500_000, BandwidthUnitBytes))
}

func TestFormatBytesPerSecondSmallValues(t *testing.T) {
	assert.Equal(t, "800.00 bit/s", FormatBytesPerSecond(100, BandwidthUnitBits))
	assert.Equal(t, "100.00 B/s", FormatBytesPerSecond(100, BandwidthUnitBytes))
}
