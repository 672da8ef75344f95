// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// CalculateCRC computes the CRC-16/XMODEM checksum for the given data
func CalculateCRC(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
