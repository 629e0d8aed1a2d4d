package doctor

import (
	"context"
	"fmt"

	"github.com/halowlab/halowdiag/internal/device"
	"github.com/halowlab/halowdiag/internal/errors"
)

// DeviceOpener opens a configured remote device.
type DeviceOpener func(ctx context.Context) (*device.Device, func() error, error)

// DeviceCheck logs in to a remote device and looks for its HaLow
// interface.
type DeviceCheck struct {
	Device string
	Open   DeviceOpener
}

func (c *DeviceCheck) Name() string     { return "device_" + c.Device }
func (c *DeviceCheck) Category() string { return CategoryDevices }

func (c *DeviceCheck) Run(ctx context.Context) CheckResult {
	d, closeFn, err := c.Open(ctx)
	if err != nil {
		msg, suggestion := describe(err, "")
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.Device, msg),
			Suggestion: suggestion,
		}
	}
	defer closeFn()

	iface, err := d.Interface(ctx)
	if err != nil {
		fallback := fmt.Sprintf("Check %s answers at %s", c.Device, d.BaseURL())
		if errors.IsCode(err, errors.ErrAuth) {
			fallback = fmt.Sprintf("Check username and password under devices.%s", c.Device)
		}
		msg, suggestion := describe(err, fallback)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s (%s): %s", c.Device, d.Host(), msg),
			Suggestion: suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%s): HaLow interface %s", c.Device, d.Host(), iface),
	}
}
