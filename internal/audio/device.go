package audio

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/gen2brain/malgo"
)

// fallbackSampleRate is used when a backend reports a native format with
// sample rate 0, which miniaudio uses to mean "any".
const fallbackSampleRate = 48000

// Host is an audio backend miniaudio can drive.
type Host struct {
	Name    string
	Backend malgo.Backend
	goos    []string
}

var hosts = []Host{
	{"wasapi", malgo.BackendWasapi, []string{"windows"}},
	{"dsound", malgo.BackendDsound, []string{"windows"}},
	{"winmm", malgo.BackendWinmm, []string{"windows"}},
	{"coreaudio", malgo.BackendCoreaudio, []string{"darwin", "ios"}},
	{"sndio", malgo.BackendSndio, []string{"openbsd"}},
	{"audio4", malgo.BackendAudio4, []string{"netbsd", "openbsd"}},
	{"oss", malgo.BackendOss, []string{"freebsd", "dragonfly"}},
	{"pulseaudio", malgo.BackendPulseaudio, []string{"linux", "freebsd"}},
	{"alsa", malgo.BackendAlsa, []string{"linux"}},
	{"jack", malgo.BackendJack, []string{"linux", "freebsd", "windows"}},
	{"aaudio", malgo.BackendAaudio, []string{"android"}},
	{"opensl", malgo.BackendOpensl, []string{"android"}},
	{"null", malgo.BackendNull, nil},
}

// Hosts returns the backends available on the running platform, in
// miniaudio's default preference order.
func Hosts() []Host {
	return hostsFor(runtime.GOOS)
}

func hostsFor(goos string) []Host {
	var out []Host
	for _, h := range hosts {
		if h.goos == nil || slices.Contains(h.goos, goos) {
			out = append(out, h)
		}
	}
	return out
}

// LookupHost resolves a backend by name. The empty name returns nil,
// meaning the platform default order.
func LookupHost(name string) (*Host, error) {
	if name == "" {
		return nil, nil
	}
	for _, h := range Hosts() {
		if h.Name == name {
			return &h, nil
		}
	}
	return nil, fmt.Errorf("audio: unknown host %q on %s", name, runtime.GOOS)
}

// Device is a capture device reported by a host.
type Device struct {
	Index     int
	Name      string
	IsDefault bool
	id        malgo.DeviceID
}

func (d Device) String() string {
	if d.IsDefault {
		return d.Name + " (default)"
	}
	return d.Name
}

// Context owns a miniaudio context bound to one host. Call Close() when done.
type Context struct {
	ctx  *malgo.AllocatedContext
	host string
}

// OpenContext initializes a miniaudio context for the named host, or the
// platform default order when host is empty.
func OpenContext(host string) (*Context, error) {
	h, err := LookupHost(host)
	if err != nil {
		return nil, err
	}

	var backends []malgo.Backend
	name := "default"
	if h != nil {
		backends = []malgo.Backend{h.Backend}
		name = h.Name
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("[audio] miniaudio", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio context (host %s): %w", name, err)
	}
	return &Context{ctx: ctx, host: name}, nil
}

// Host returns the name of the backend this context was opened for.
func (c *Context) Host() string { return c.host }

// Close releases the miniaudio context.
func (c *Context) Close() error {
	if c.ctx == nil {
		return nil
	}
	err := c.ctx.Uninit()
	c.ctx.Free()
	c.ctx = nil
	if err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	return nil
}

// InputDevices lists the capture devices of the host in backend order.
func (c *Context) InputDevices() ([]Device, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
			id:        info.ID,
		}
	}
	return devices, nil
}

// Resolve selects a capture device. A negative index selects the host's
// default input device.
func (c *Context) Resolve(index int) (Device, error) {
	devices, err := c.InputDevices()
	if err != nil {
		return Device{}, err
	}
	return pickDevice(devices, index)
}

func pickDevice(devices []Device, index int) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}
	if index < 0 {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		return devices[0], nil
	}
	if index >= len(devices) {
		return Device{}, fmt.Errorf("%w: index %d (have %d devices)", ErrNoDevice, index, len(devices))
	}
	return devices[index], nil
}

// DefaultStreamConfig negotiates the device's preferred capture format,
// taken from the first native data format the backend reports.
func (c *Context) DefaultStreamConfig(d Device) (StreamConfig, error) {
	info, err := c.ctx.DeviceInfo(malgo.Capture, d.id, malgo.Shared)
	if err != nil {
		return StreamConfig{}, fmt.Errorf("querying device %q: %w", d.Name, err)
	}

	var formats []malgo.DataFormat
	for i := 0; i < int(info.FormatCount) && i < len(info.Formats); i++ {
		formats = append(formats, info.Formats[i])
	}
	return configFromFormats(formats)
}

func configFromFormats(formats []malgo.DataFormat) (StreamConfig, error) {
	if len(formats) == 0 {
		return StreamConfig{}, fmt.Errorf("%w: device reports no native formats", ErrUnsupportedFormat)
	}
	native := formats[0]

	format, err := FormatFromMalgo(native.Format)
	if err != nil {
		return StreamConfig{}, err
	}
	cfg := StreamConfig{
		Channels:   int(native.Channels),
		SampleRate: int(native.SampleRate),
		Format:     format,
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = fallbackSampleRate
	}
	return cfg, nil
}
