package device

import (
	"context"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/reconnect"
)

// ApplyOptions configures ApplyAndWait.
type ApplyOptions struct {
	// Extra lists additional addresses the device may come back on.
	Extra []string

	// Sections restricts which network sections contribute addresses.
	Sections []string

	Watchdog reconnect.Options
}

// ApplyAndWait applies the staged changes and waits until the device
// answers again on one of its candidate addresses. The device is then
// reached on that address.
func (d *Device) ApplyAndWait(ctx context.Context, opts ApplyOptions) (reconnect.Result, error) {
	changes, err := d.UCI.Changes(ctx)
	if err != nil {
		return reconnect.Result{}, err
	}
	candidates := reconnect.Candidates(changes, d.Host(), opts.Extra, opts.Sections...)
	d.log.Debug("device: applying %d configs, candidates %v", len(changes), candidates)

	if err := d.UCI.Apply(ctx, 0, false); err != nil {
		// The device may drop the connection while restarting its network.
		if !errors.IsCode(err, errors.ErrTransport) {
			return reconnect.Result{}, err
		}
		d.log.Debug("device: apply reply lost: %v", err)
	}

	wopts := opts.Watchdog
	if wopts.Log == nil {
		wopts.Log = d.log
	}
	prober := &reconnect.RPCProber{
		Username:  d.username,
		Password:  d.password,
		Transport: d.transport,
	}

	res, err := reconnect.New(prober, wopts).Run(candidates)
	if err != nil {
		return res, err
	}
	if res.Address != "" && res.Address != d.Host() {
		d.client.SetBaseURL(res.Address)
		d.log.Debug("device: now reached on %s", d.BaseURL())
	}
	return res, nil
}
