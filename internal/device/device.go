// Package device manages a second HaLow device over its ubus JSON-RPC
// endpoint: UCI configuration, radio discovery, scanning and the
// regulatory channel table.
package device

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/rpc"
)

// morseOUI matches MAC addresses of Morse Micro radios.
var morseOUI = regexp.MustCompile(`(?i)^0c:bf:74`)

// Options configures Open.
type Options struct {
	Username string
	Password string
	Timeout  time.Duration

	// Proxy, when set, relays every request through this client's
	// "dongle request" method instead of talking HTTP to the device.
	Proxy rpc.Caller

	// Transport overrides both HTTP and Proxy.
	Transport rpc.Transport

	Log logger.Logger
}

// Device is a handle on one remote device. It is safe for concurrent use.
type Device struct {
	client    *rpc.Client
	transport rpc.Transport
	username  string
	password  string
	log       logger.Logger

	// UCI reads and changes the device configuration.
	UCI *UCI

	networkDevices func(ctx context.Context, args ...any) (map[string]NetDevice, error)
	scan           func(ctx context.Context, args ...any) ([]ScanResult, error)
	readFile       func(ctx context.Context, args ...any) (string, error)
}

// NetDevice is one entry of luci-rpc getNetworkDevices.
type NetDevice struct {
	Name    string `json:"name"`
	MAC     string `json:"mac"`
	DevType string `json:"devtype"`
	Up      bool   `json:"up"`
}

// ScanResult is one network seen by iwinfo scan.
type ScanResult struct {
	SSID       string     `json:"ssid"`
	BSSID      string     `json:"bssid"`
	Mode       string     `json:"mode"`
	Channel    int        `json:"channel"`
	Signal     int        `json:"signal"`
	Quality    int        `json:"quality"`
	QualityMax int        `json:"quality_max"`
	Encryption Encryption `json:"encryption"`
}

// Encryption summarizes a scanned network's security.
type Encryption struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Open returns a handle on the device at baseURL. A bare host is expanded
// to http://<host>/ubus. Nothing is sent until the first call.
func Open(baseURL string, opts Options) *Device {
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}
	if opts.Username == "" {
		opts.Username = rpc.DefaultUsername
		if opts.Password == "" {
			opts.Password = rpc.DefaultPassword
		}
	}

	tr := opts.Transport
	switch {
	case tr != nil:
	case opts.Proxy != nil:
		tr = &rpc.ProxyTransport{Local: opts.Proxy}
	default:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = rpc.DefaultTimeout
		}
		tr = rpc.NewHTTPTransport(timeout)
	}

	c := rpc.NewClient(baseURL,
		rpc.WithTransport(tr),
		rpc.WithCredentials(opts.Username, opts.Password),
		rpc.WithLogger(opts.Log),
	)

	return &Device{
		client:    c,
		transport: tr,
		username:  opts.Username,
		password:  opts.Password,
		log:       opts.Log,
		UCI:       newUCI(c),

		networkDevices: rpc.Declare[map[string]NetDevice](c, rpc.Method{
			Object: "luci-rpc", Method: "getNetworkDevices",
		}),
		scan: rpc.Declare[[]ScanResult](c, rpc.Method{
			Object: "iwinfo", Method: "scan", Params: []string{"device"}, Expect: "results",
		}),
		readFile: rpc.Declare[string](c, rpc.Method{
			Object: "file", Method: "read", Params: []string{"path"}, Expect: "data",
		}),
	}
}

// Client returns the underlying RPC client.
func (d *Device) Client() *rpc.Client { return d.client }

// BaseURL returns the endpoint the device is currently reached on.
func (d *Device) BaseURL() string { return d.client.BaseURL() }

// Host returns the host[:port] part of the endpoint.
func (d *Device) Host() string {
	u, err := url.Parse(d.client.BaseURL())
	if err != nil {
		return ""
	}
	return u.Host
}

// Interface finds the HaLow network device by its Morse Micro OUI.
func (d *Device) Interface(ctx context.Context) (string, error) {
	devices, _ := d.networkDevices(ctx)

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dev := devices[name]
		if dev.MAC == "" {
			continue
		}
		if morseOUI.MatchString(dev.MAC) && dev.DevType == "wlan" {
			return name, nil
		}
	}

	return "", errors.New(errors.ErrRPC,
		"No morse device found on "+d.BaseURL(),
		"Check the HaLow radio is up and luci-mod-rpc is installed on the device.")
}

// Scan triggers a wireless scan on iface. An empty iface scans nothing.
func (d *Device) Scan(ctx context.Context, iface string) ([]ScanResult, error) {
	if iface == "" {
		return nil, nil
	}
	return d.scan(ctx, iface)
}
