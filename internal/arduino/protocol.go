package arduino

import (
	"fmt"
)

// CommandMarker is the first byte of every command frame sent to the board.
const CommandMarker = 0xf1

// SetPwmCommand is the fixed 3-byte frame {marker, pin, value} which sets
// the PWM duty cycle of a single pin.
type SetPwmCommand struct {
	PwmPin uint8
	Pwm    uint8
}

func (c SetPwmCommand) Bytes() []byte {
	return []byte{CommandMarker, c.PwmPin, c.Pwm}
}

func ParseSetPwmCommand(data []byte) (SetPwmCommand, error) {
	if len(data) != 3 {
		return SetPwmCommand{}, fmt.Errorf("invalid command length %d, expected 3", len(data))
	}
	if data[0] != CommandMarker {
		return SetPwmCommand{}, fmt.Errorf("invalid command marker 0x%02x, expected 0x%02x", data[0], CommandMarker)
	}
	return SetPwmCommand{PwmPin: data[1], Pwm: data[2]}, nil
}

// StatusMessage is one newline-terminated JSON line periodically sent by
// the board. Pin numbers are transmitted as string keys.
type StatusMessage struct {
	FanInputs map[string]int `json:"fan_inputs"`
	FanPwm    map[string]int `json:"fan_pwm"`
	Error     string         `json:"error,omitempty"`
}
