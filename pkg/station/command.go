// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

type command struct {
	usage string
	build func(args url.Values) (*aqualink.Packet, error)
}

func fixed(id aqualink.PacketID) func(url.Values) (*aqualink.Packet, error) {
	return func(url.Values) (*aqualink.Packet, error) {
		return aqualink.NewCalibrationCommand(id), nil
	}
}

var lightChannels = map[string][2]aqualink.PacketID{
	"all":   {aqualink.PacketIDCmdLightSet, aqualink.PacketIDCmdLightGet},
	"blue":  {aqualink.PacketIDCmdLightBlueSet, aqualink.PacketIDCmdLightBlueGet},
	"red":   {aqualink.PacketIDCmdLightRedSet, aqualink.PacketIDCmdLightRedGet},
	"white": {aqualink.PacketIDCmdLightWhiteSet, aqualink.PacketIDCmdLightWhiteGet},
}

var owiResolutions = map[uint64]uint8{
	9:  aqualink.OwiResolution9Bit,
	10: aqualink.OwiResolution10Bit,
	11: aqualink.OwiResolution11Bit,
	12: aqualink.OwiResolution12Bit,
}

var commands = map[string]command{
	"ready":       {"", func(url.Values) (*aqualink.Packet, error) { return aqualink.NewReadyRequest(), nil }},
	"owi-measure": {"", func(url.Values) (*aqualink.Packet, error) { return aqualink.NewOwiMeasure(), nil }},
	"owi-get-res": {"", func(url.Values) (*aqualink.Packet, error) { return aqualink.NewOwiGetResolution(), nil }},
	"owi-set-res": {"bits=9..12", func(args url.Values) (*aqualink.Packet, error) {
		bits, err := uintArg(args, "bits", 8)
		if err != nil {
			return nil, err
		}
		res, ok := owiResolutions[bits]
		if !ok {
			return nil, fmt.Errorf("%w: bits must be 9-12, got %d", ErrBadArgument, bits)
		}
		return aqualink.NewOwiSetResolution(res), nil
	}},

	"ec-measure":      {"", func(url.Values) (*aqualink.Packet, error) { return aqualink.NewEcMeasure(), nil }},
	"ec-compensation": {"temp=<celsius>", compensation(aqualink.NewEcCompensation)},
	"ec-calib-format": {"", fixed(aqualink.PacketIDCmdEcGetCalibFormat)},
	"ec-export-calib": {"", fixed(aqualink.PacketIDCmdEcExportCalib)},
	"ec-import-calib": {"data=<hex>", importCalibration(aqualink.NewEcImportCalibration)},
	"ec-clear-calib":  {"", fixed(aqualink.PacketIDCmdEcClearCalib)},
	"ec-calib-dry":    {"", fixed(aqualink.PacketIDCmdEcCalibDry)},
	"ec-calib-low":    {"", fixed(aqualink.PacketIDCmdEcCalibLow)},
	"ec-calib-high":   {"", fixed(aqualink.PacketIDCmdEcCalibHigh)},

	"ph-measure":      {"", func(url.Values) (*aqualink.Packet, error) { return aqualink.NewPhMeasure(), nil }},
	"ph-compensation": {"temp=<celsius>", compensation(aqualink.NewPhCompensation)},
	"ph-calib-format": {"", fixed(aqualink.PacketIDCmdPhGetCalibFormat)},
	"ph-export-calib": {"", fixed(aqualink.PacketIDCmdPhExportCalib)},
	"ph-import-calib": {"data=<hex>", importCalibration(aqualink.NewPhImportCalibration)},
	"ph-clear-calib":  {"", fixed(aqualink.PacketIDCmdPhClearCalib)},
	"ph-calib-low":    {"", fixed(aqualink.PacketIDCmdPhCalibLow)},
	"ph-calib-mid":    {"", fixed(aqualink.PacketIDCmdPhCalibMid)},
	"ph-calib-high":   {"", fixed(aqualink.PacketIDCmdPhCalibHigh)},

	"light": {"state=0..255 [channel=all|blue|red|white]", func(args url.Values) (*aqualink.Packet, error) {
		ids, err := lightChannel(args)
		if err != nil {
			return nil, err
		}
		state, err := uintArg(args, "state", 8)
		if err != nil {
			return nil, err
		}
		return aqualink.NewLightSet(ids[0], uint8(state)), nil
	}},
	"light-get": {"[channel=all|blue|red|white]", func(args url.Values) (*aqualink.Packet, error) {
		ids, err := lightChannel(args)
		if err != nil {
			return nil, err
		}
		return aqualink.NewLightGet(ids[1]), nil
	}},

	"fan": {"index=<n> speed=<n>", func(args url.Values) (*aqualink.Packet, error) {
		index, err := uintArg(args, "index", 8)
		if err != nil {
			return nil, err
		}
		speed, err := uintArg(args, "speed", 16)
		if err != nil {
			return nil, err
		}
		return aqualink.NewFanSetSpeed(uint8(index), uint16(speed)), nil
	}},
	"fan-get": {"index=<n>", func(args url.Values) (*aqualink.Packet, error) {
		index, err := uintArg(args, "index", 8)
		if err != nil {
			return nil, err
		}
		return aqualink.NewFanGetSpeed(uint8(index)), nil
	}},
}

// ParseCommand builds the packet for a named ad-hoc command. Arguments use
// query-string form, e.g. "fan" with index=0&speed=1200.
func ParseCommand(name string, args url.Values) (*aqualink.Packet, error) {
	c, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return c.build(args)
}

// CommandUsage lists every command name with its arguments, sorted.
func CommandUsage() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name
		if u := commands[name].usage; u != "" {
			out[i] += " " + u
		}
	}
	return out
}

func uintArg(args url.Values, key string, bits int) (uint64, error) {
	s := args.Get(key)
	if s == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrBadArgument, key)
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadArgument, key, err)
	}
	return v, nil
}

func lightChannel(args url.Values) ([2]aqualink.PacketID, error) {
	name := args.Get("channel")
	if name == "" {
		name = "all"
	}
	ids, ok := lightChannels[name]
	if !ok {
		return ids, fmt.Errorf("%w: unknown light channel %q", ErrBadArgument, name)
	}
	return ids, nil
}

func compensation(build func(float64) *aqualink.Packet) func(url.Values) (*aqualink.Packet, error) {
	return func(args url.Values) (*aqualink.Packet, error) {
		s := args.Get("temp")
		if s == "" {
			return nil, fmt.Errorf("%w: missing temp", ErrBadArgument)
		}
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: temp: %v", ErrBadArgument, err)
		}
		return build(t), nil
	}
}

func importCalibration(build func([]byte) *aqualink.Packet) func(url.Values) (*aqualink.Packet, error) {
	return func(args url.Values) (*aqualink.Packet, error) {
		data, err := hex.DecodeString(args.Get("data"))
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrBadArgument, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: missing data", ErrBadArgument)
		}
		if len(data) > aqualink.MaxPayloadSize {
			return nil, fmt.Errorf("%w: data: %w", ErrBadArgument, aqualink.ErrPayloadTooLarge)
		}
		return build(data), nil
	}
}
