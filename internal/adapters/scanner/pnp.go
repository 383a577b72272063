package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/velat/hubcal/internal/domain/model"
	"github.com/velat/hubcal/pkg/metrics"
)

const defaultScanTimeout = 10 * time.Second

// Runner executes a PowerShell script and returns its stdout.
type Runner func(ctx context.Context, script string) ([]byte, error)

// PnPSource implements Source by shelling out to Windows PowerShell PnP
// queries. Each scan runs under a bounded timeout; a timed-out scan is
// retried once silently before ErrTimeout is surfaced.
type PnPSource struct {
	timeout  time.Duration
	vendorID string
	run      Runner
}

// PnPOption applies a configuration option to the PnPSource.
type PnPOption func(*PnPSource)

// WithTimeout bounds a single scan invocation.
func WithTimeout(d time.Duration) PnPOption {
	return func(s *PnPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithVendorID filters hub controllers by USB vendor identifier,
// e.g. "VID_2109".
func WithVendorID(id string) PnPOption {
	return func(s *PnPSource) {
		if id != "" {
			s.vendorID = id
		}
	}
}

// WithRunner substitutes the script runner, used by tests.
func WithRunner(r Runner) PnPOption {
	return func(s *PnPSource) {
		if r != nil {
			s.run = r
		}
	}
}

// NewPnPSource constructs a PnP-backed observation source.
func NewPnPSource(opts ...PnPOption) *PnPSource {
	s := &PnPSource{
		timeout:  defaultScanTimeout,
		vendorID: "VID_2109",
		run:      powershellRunner,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// driveScript walks each USB mass-storage device up to its grandparent hub:
// the location string comes from the USB adapter node one level up, the
// parent identifier from the hub node two levels up.
const driveScript = `
$ErrorActionPreference = 'Stop'
$out = @()
Get-PnpDevice -Class DiskDrive -PresentOnly | Where-Object { $_.InstanceId -like 'USBSTOR\*' } | ForEach-Object {
  $usb = (Get-PnpDeviceProperty -InstanceId $_.InstanceId -KeyName DEVPKEY_Device_Parent).Data
  $hub = (Get-PnpDeviceProperty -InstanceId $usb -KeyName DEVPKEY_Device_Parent).Data
  $loc = (Get-PnpDeviceProperty -InstanceId $usb -KeyName DEVPKEY_Device_LocationInfo).Data
  $serial = ($_.InstanceId -split '\\')[-1]
  $out += [pscustomobject]@{ name = $_.FriendlyName; serial = $serial; location = $loc; parent = $hub }
}
ConvertTo-Json -InputObject $out -Compress
`

const hubScriptFmt = `
$ErrorActionPreference = 'Stop'
$out = @()
Get-PnpDevice -Class USB -PresentOnly | Where-Object { $_.InstanceId -like 'USB\%s*' -and $_.FriendlyName -match 'Hub' } | ForEach-Object {
  $loc = (Get-PnpDeviceProperty -InstanceId $_.InstanceId -KeyName DEVPKEY_Device_LocationInfo).Data
  $parent = (Get-PnpDeviceProperty -InstanceId $_.InstanceId -KeyName DEVPKEY_Device_Parent).Data
  $out += [pscustomobject]@{ name = $_.FriendlyName; instanceId = $_.InstanceId; location = $loc; parent = $parent }
}
ConvertTo-Json -InputObject $out -Compress
`

// Drives implements Source.
func (s *PnPSource) Drives(ctx context.Context) ([]model.Drive, error) {
	raw, err := s.scan(ctx, driveScript)
	if err != nil {
		return nil, err
	}
	var drives []model.Drive
	if err := decodeList(raw, &drives); err != nil {
		return nil, fmt.Errorf("parse drive scan output: %w", err)
	}
	metrics.UpdateDrivesObserved(len(drives))
	return drives, nil
}

// Hubs implements Source.
func (s *PnPSource) Hubs(ctx context.Context) ([]model.Hub, error) {
	raw, err := s.scan(ctx, fmt.Sprintf(hubScriptFmt, s.vendorID))
	if err != nil {
		return nil, err
	}
	var hubs []model.Hub
	if err := decodeList(raw, &hubs); err != nil {
		return nil, fmt.Errorf("parse hub scan output: %w", err)
	}
	return hubs, nil
}

// scan runs the script once, and once more silently if the first attempt
// timed out.
func (s *PnPSource) scan(ctx context.Context, script string) ([]byte, error) {
	raw, err := s.scanOnce(ctx, script)
	if err != nil && errors.Is(err, ErrTimeout) && ctx.Err() == nil {
		raw, err = s.scanOnce(ctx, script)
	}
	return raw, err
}

func (s *PnPSource) scanOnce(ctx context.Context, script string) ([]byte, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.run(scanCtx, script)
	metrics.RecordScan(time.Since(start))
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(scanCtx.Err(), context.DeadlineExceeded):
			metrics.RecordScanFailure("timeout")
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		case errors.Is(err, exec.ErrNotFound):
			metrics.RecordScanFailure("unavailable")
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		default:
			metrics.RecordScanFailure("other")
			return nil, fmt.Errorf("device scan failed: %w", err)
		}
	}
	return raw, nil
}

func powershellRunner(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// decodeList tolerates the ConvertTo-Json quirk of emitting a bare object
// for single-element input, plus empty output when nothing matched.
func decodeList[T any](raw []byte, out *[]T) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*out = nil
		return nil
	}
	if raw[0] == '{' {
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return err
		}
		*out = []T{one}
		return nil
	}
	return json.Unmarshal(raw, out)
}
