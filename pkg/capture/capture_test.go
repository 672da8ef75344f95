// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

type memConn struct {
	in      *bytes.Reader
	out     bytes.Buffer
	timeout time.Duration
}

func (m *memConn) Read(p []byte) (int, error)  { return m.in.Read(p) }
func (m *memConn) Write(p []byte) (int, error) { return m.out.Write(p) }
func (m *memConn) SetReadTimeout(t time.Duration) error {
	m.timeout = t
	return nil
}

func frame(t *testing.T, p *aqualink.Packet) []byte {
	t.Helper()
	f, err := aqualink.EncodePacket(p)
	require.NoError(t, err)
	return f
}

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	at := time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)
	require.NoError(t, w.Write(Record{At: at, Dir: TX, Frame: []byte{0x03, 0x2D, 0x00}}))
	require.NoError(t, w.Write(Record{At: at.Add(time.Second), Dir: RX, Frame: []byte{0x01, 0x00}}))

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].At.Equal(at))
	assert.Equal(t, TX, records[0].Dir)
	assert.Equal(t, []byte{0x03, 0x2D, 0x00}, records[0].Frame)
	assert.Equal(t, RX, records[1].Dir)
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write(Record{At: time.Now(), Dir: RX, Frame: []byte{1, 2, 3}}))

	data := buf.Bytes()[:buf.Len()-2]
	_, err := NewReader(bytes.NewReader(data)).Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "rx", RX.String())
	assert.Equal(t, "tx", TX.String())
	assert.Equal(t, "dir(7)", Direction(7).String())
}

func TestRecorder(t *testing.T) {
	ec := frame(t, aqualink.EncodeEcData(1234))
	ready := frame(t, aqualink.NewPacket(aqualink.PacketIDResponseReadyRequest, nil))
	stream := append(append([]byte{}, ec...), ready...)

	conn := &memConn{in: bytes.NewReader(stream)}
	var buf bytes.Buffer
	rec := NewRecorder(conn, NewWriter(&buf))

	// Small reads split frames across calls.
	chunk := make([]byte, 3)
	for {
		_, err := rec.Read(chunk)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	cmd := frame(t, aqualink.NewReadyRequest())
	_, err := rec.Write(cmd)
	require.NoError(t, err)
	require.NoError(t, rec.SetReadTimeout(time.Second))
	require.NoError(t, rec.Err())

	assert.Equal(t, time.Second, conn.timeout)
	assert.Equal(t, cmd, conn.out.Bytes())

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, RX, records[0].Dir)
	assert.Equal(t, ec, records[0].Frame)
	assert.Equal(t, ready, records[1].Frame)
	assert.Equal(t, TX, records[2].Dir)
	assert.Equal(t, cmd, records[2].Frame)
}

func TestReplay_Read(t *testing.T) {
	records := []Record{
		{Dir: RX, Frame: []byte{1, 2, 0}},
		{Dir: TX, Frame: []byte{9, 9, 0}},
		{Dir: RX, Frame: []byte{3, 0}},
	}
	r := NewReplay(records)
	assert.Equal(t, 2, r.Len())

	var got []byte
	buf := make([]byte, 2)
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, []byte{1, 2, 0, 3, 0}, got)

	n, err := r.Write([]byte{1, 2})
	assert.Equal(t, 2, n)
	assert.NoError(t, err)
}

func TestReplay_IntoReceiver(t *testing.T) {
	records := []Record{
		{Dir: RX, Frame: frame(t, aqualink.EncodeEcData(1500))},
		{Dir: RX, Frame: []byte{0x01, 0x00}},
		{Dir: RX, Frame: frame(t, aqualink.NewPacket(aqualink.PacketIDResponseReadyRequest, nil))},
	}

	bus := link.NewBus(nil)
	var topics []link.Topic
	bus.Subscribe(func(e link.Event) { topics = append(topics, e.Topic()) })

	recv := link.NewReceiver(NewReplay(records), bus, link.ReceiverConfig{})
	err := recv.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)
	bus.Close()

	assert.Equal(t, []link.Topic{link.TopicEcData, link.TopicReady}, topics)
	stats := recv.Statistics()
	assert.Equal(t, uint64(1), stats.ShortFrames)
	assert.Equal(t, uint64(2), stats.ValidPackets)
}

func TestReplay_RealtimeYieldsOnTimeout(t *testing.T) {
	base := time.Now()
	r := NewReplay([]Record{
		{At: base, Dir: RX, Frame: []byte{1, 0}},
		{At: base.Add(time.Hour), Dir: RX, Frame: []byte{2, 0}},
	})
	r.Realtime = true
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	require.NoError(t, r.SetReadTimeout(50*time.Millisecond))

	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, slept)
}
