package device

import (
	"context"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
)

// ChannelsPath is the Morse regulatory database on the device.
const ChannelsPath = "/usr/share/morse-regdb/channels.csv"

// DriverCountries are the country codes the driver accepts. The
// regulatory database covers more.
var DriverCountries = map[string]bool{
	"US": true, "AU": true, "NZ": true, "EU": true,
	"IN": true, "JP": true, "KR": true, "SG": true,
}

// channelLine captures country_code, bw, s1g_chan, global_op_class and
// centre_freq_mhz. s1g_op_class is skipped.
var channelLine = regexp.MustCompile(`^([A-Z]{2}),([0-9]+),([0-9]+),[^,]*,([0-9]+),([0-9.]+),.*$`)

// BandPlan lists the channels of one operating class.
type BandPlan struct {
	Bandwidth int       `json:"bandwidth_mhz"`
	Channels  []int     `json:"channels"`
	Freqs     []float64 `json:"centre_freqs_mhz"`
}

// ChannelMap is country code → global operating class → band plan.
type ChannelMap map[string]map[string]*BandPlan

// ChannelMap reads the regulatory database and groups its channels.
func (d *Device) ChannelMap(ctx context.Context) (ChannelMap, error) {
	data, err := d.channelsCSV(ctx)
	if err != nil {
		return nil, err
	}
	return ParseChannelMap(data), nil
}

// HalowChannels reads the regulatory database as header-keyed rows.
func (d *Device) HalowChannels(ctx context.Context) ([]map[string]string, error) {
	data, err := d.channelsCSV(ctx)
	if err != nil {
		return nil, err
	}
	return ParseHalowChannels(data)
}

func (d *Device) channelsCSV(ctx context.Context) (string, error) {
	data, _ := d.readFile(ctx, ChannelsPath)
	if data == "" {
		return "", errors.New(errors.ErrRPC,
			"No channel map found on "+d.BaseURL(),
			"Check that morse-regdb is installed and the login user may read "+ChannelsPath+".")
	}
	return data, nil
}

// ParseChannelMap groups the channels of driver countries by operating
// class. Lines that don't look like channel rows, the header included,
// are skipped.
func ParseChannelMap(data string) ChannelMap {
	out := make(ChannelMap)
	for _, line := range splitLines(data) {
		m := channelLine.FindStringSubmatch(line)
		if m == nil || !DriverCountries[m[1]] {
			continue
		}
		bw, err1 := strconv.Atoi(m[2])
		ch, err2 := strconv.Atoi(m[3])
		freq, err3 := strconv.ParseFloat(m[5], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		classes, ok := out[m[1]]
		if !ok {
			classes = make(map[string]*BandPlan)
			out[m[1]] = classes
		}
		plan, ok := classes[m[4]]
		if !ok {
			plan = &BandPlan{Bandwidth: bw}
			classes[m[4]] = plan
		}
		plan.Channels = append(plan.Channels, ch)
		plan.Freqs = append(plan.Freqs, freq)
	}
	return out
}

// ParseHalowChannels keys every row by the header and keeps driver
// countries. Short rows get only the columns they have.
func ParseHalowChannels(data string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrParse,
			"Channel map has no header", "")
	}

	var out []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrParse,
				"Couldn't parse the channel map", "")
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		if DriverCountries[row["country_code"]] {
			out = append(out, row)
		}
	}
	return out, nil
}

func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' })
}
