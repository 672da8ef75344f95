// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"log/slog"
	"strings"
)

// LogRecord is a parsed LOGGING packet. The firmware formats these as
// "[LEVEL][SOURCE] message".
type LogRecord struct {
	Level   LogLevel
	Source  string
	Message string
}

// ParseLogRecord decodes a LOGGING packet. Text that does not follow the
// bracketed layout is returned whole as the message with a zero level.
func ParseLogRecord(p *Packet) (LogRecord, error) {
	if err := expect(p, 0, PacketIDLogging); err != nil {
		return LogRecord{}, err
	}
	text := strings.TrimRight(string(p.payload), "\x00")

	level, rest, ok := cutBracket(text)
	if !ok {
		return LogRecord{Message: text}, nil
	}
	source, rest, ok := cutBracket(rest)
	if !ok {
		return LogRecord{Message: text}, nil
	}

	return LogRecord{
		Level:   ParseLogLevel(level),
		Source:  source,
		Message: strings.TrimSpace(rest),
	}, nil
}

// NewLogging builds a LOGGING packet the way the firmware does.
func NewLogging(level LogLevel, source, message string) *Packet {
	text := "[" + level.String() + "][" + source + "] " + message
	if len(text) > MaxPayloadSize {
		text = text[:MaxPayloadSize]
	}
	return NewPacket(PacketIDLogging, []byte(text))
}

func cutBracket(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", s, false
	}
	return s[1:end], s[end+1:], true
}

// ParseLogLevel maps a firmware level name to a LogLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARNING":
		return LogLevelWarning
	case "ERROR":
		return LogLevelError
	default:
		return 0
	}
}

// String returns the firmware name of the level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SlogLevel maps the firmware level onto log/slog. Unknown levels log as info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
