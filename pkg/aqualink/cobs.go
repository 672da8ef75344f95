// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import "fmt"

// EncodeFrame applies consistent overhead byte stuffing to data and appends
// the terminator. The result contains no zero byte other than the last one.
func EncodeFrame(data []byte) []byte {
	out := make([]byte, 1, len(data)+len(data)/254+2)
	codeIdx := 0
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code

	return append(out, Terminator)
}

// DecodeFrame reverses EncodeFrame. The block must not include the terminator.
func DecodeFrame(block []byte) ([]byte, error) {
	out := make([]byte, 0, len(block))

	for i := 0; i < len(block); {
		code := block[i]
		if code == 0 {
			return nil, fmt.Errorf("%w: zero byte at offset %d", ErrInvalidFrame, i)
		}
		i++

		end := i + int(code) - 1
		if end > len(block) {
			return nil, fmt.Errorf("%w: block at offset %d overruns frame", ErrInvalidFrame, i-1)
		}
		for j := i; j < end; j++ {
			if block[j] == 0 {
				return nil, fmt.Errorf("%w: zero byte at offset %d", ErrInvalidFrame, j)
			}
		}
		out = append(out, block[i:end]...)
		i = end

		if code < 0xFF && i < len(block) {
			out = append(out, 0)
		}
	}

	return out, nil
}
