// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records link traffic as a CBOR sequence and plays it back.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a recorded frame relative to the host.
type Direction uint8

const (
	RX Direction = iota
	TX
)

func (d Direction) String() string {
	switch d {
	case RX:
		return "rx"
	case TX:
		return "tx"
	default:
		return fmt.Sprintf("dir(%d)", uint8(d))
	}
}

// Record is one frame as it crossed the channel.
type Record struct {
	At    time.Time `cbor:"1,keyasint"`
	Dir   Direction `cbor:"2,keyasint"`
	Frame []byte    `cbor:"3,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Writer appends records to a CBOR sequence. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
}

// NewWriter creates a writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: encMode.NewEncoder(w)}
}

// Write encodes one record.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Reader decodes records from a CBOR sequence.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the sequence.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// ReadAll decodes every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var records []Record
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
