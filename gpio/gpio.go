// Package gpio exposes a handful of sysfs GPIO pins through a small web
// control panel.
package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"kioskd/supervisor"
)

// SysfsRoot is the default GPIO sysfs tree.
const SysfsRoot = "/sys/class/gpio"

// Pin describes one exposed pin.
type Pin struct {
	Number    int
	Direction string // "in" or "out"
	Label     string
}

// PinState is a pin with its current value.
type PinState struct {
	Number    int    `json:"number"`
	Direction string `json:"direction"`
	Label     string `json:"label,omitempty"`
	Value     int    `json:"value"`
}

// ErrUnknownPin is returned for pins not in the configured set.
var ErrUnknownPin = errors.New("pin not configured")

// Bank is the configured set of pins over one sysfs root.
type Bank struct {
	root string
	j    supervisor.Journaler
	pins map[int]Pin
}

// NewBank creates a pin bank over the given sysfs root.
func NewBank(root string, j supervisor.Journaler, pins []Pin) *Bank {
	m := make(map[int]Pin, len(pins))
	for _, pin := range pins {
		m[pin.Number] = pin
	}

	return &Bank{root: root, j: j, pins: m}
}

// Setup exports every configured pin and sets its direction. Pins already
// exported are left alone apart from the direction write.
func (b *Bank) Setup() error {
	for _, pin := range b.pins {
		if err := b.export(pin); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bank) export(pin Pin) error {
	dir := b.pinDir(pin.Number)

	if _, err := os.Stat(dir); err != nil {
		err := os.WriteFile(
			filepath.Join(b.root, "export"),
			[]byte(strconv.Itoa(pin.Number)), 0200)
		if err != nil {
			return errors.Wrapf(err, "failed to export pin %d", pin.Number)
		}
	}

	err := os.WriteFile(filepath.Join(dir, "direction"), []byte(pin.Direction), 0644)
	return errors.Wrapf(err, "failed to set direction of pin %d", pin.Number)
}

// Read returns the current value of a configured pin.
func (b *Bank) Read(number int) (int, error) {
	if _, ok := b.pins[number]; !ok {
		return 0, errors.Wrapf(ErrUnknownPin, "pin %d", number)
	}

	raw, err := os.ReadFile(filepath.Join(b.pinDir(number), "value"))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read pin %d", number)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, errors.Wrapf(err, "bad value for pin %d", number)
	}

	return value, nil
}

// Write sets a configured output pin to 0 or 1.
func (b *Bank) Write(number, value int) error {
	pin, ok := b.pins[number]
	if !ok {
		return errors.Wrapf(ErrUnknownPin, "pin %d", number)
	}

	if pin.Direction != "out" {
		return errors.Errorf("pin %d is not an output", number)
	}

	if value != 0 && value != 1 {
		return errors.Errorf("bad value %d for pin %d", value, number)
	}

	err := os.WriteFile(
		filepath.Join(b.pinDir(number), "value"),
		[]byte(strconv.Itoa(value)), 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to write pin %d", number)
	}

	b.j.Write(&supervisor.EventPinChanged{Pin: number, Value: value})
	return nil
}

// States returns every configured pin with its current value, ordered by
// pin number.
func (b *Bank) States() ([]PinState, error) {
	states := make([]PinState, 0, len(b.pins))

	for number, pin := range b.pins {
		value, err := b.Read(number)
		if err != nil {
			return nil, err
		}

		states = append(states, PinState{
			Number:    pin.Number,
			Direction: pin.Direction,
			Label:     pin.Label,
			Value:     value,
		})
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].Number < states[j].Number
	})

	return states, nil
}

func (b *Bank) pinDir(number int) string {
	return filepath.Join(b.root, fmt.Sprintf("gpio%d", number))
}
