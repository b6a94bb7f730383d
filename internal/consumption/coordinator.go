package consumption

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voltwatch/voltwatch-core/internal/alerts"
	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
	"github.com/voltwatch/voltwatch-core/internal/monitoring"
)

// DeviceStore is the slice of the device repository the coordinator needs.
// device.Repository satisfies it.
type DeviceStore interface {
	GetByID(ctx context.Context, id string) (*device.Device, error)
	ListByUser(ctx context.Context, userID string) ([]device.Device, error)
	Update(ctx context.Context, d *device.Device) error
}

// UserDirectory answers whether a user exists. *directory.Client satisfies it.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// SampleSource provides a day's raw samples. *monitoring.Client satisfies it.
type SampleSource interface {
	ConsumptionPerDevices(ctx context.Context, deviceIDs []string, date string) ([]monitoring.Sample, error)
}

// AlertSink receives threshold alerts. *alerts.Dispatcher satisfies it.
type AlertSink interface {
	Dispatch(ctx context.Context, event alerts.Event)
}

// HistoryWriter records ingested values to local time-series storage.
// *influxdb.Client satisfies it. Optional; writes are fire-and-forget.
type HistoryWriter interface {
	WriteConsumption(deviceID, userID string, value float64)
	WriteAlert(deviceID, userID string, value, ceiling float64)
}

// Config wires a Coordinator's collaborators.
//
// Devices, Users, Samples and Alerts are required. History may be nil
// when time-series storage is disabled. Location defaults to UTC and
// decides which local hour a sample's timestamp falls in.
type Config struct {
	Devices  DeviceStore
	Users    UserDirectory
	Samples  SampleSource
	Alerts   AlertSink
	History  HistoryWriter
	Location *time.Location
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
}

// Coordinator implements the device consumption operations.
//
// It holds no mutable state of its own; all methods are safe for
// concurrent use as long as the collaborators are.
type Coordinator struct {
	devices DeviceStore
	users   UserDirectory
	samples SampleSource
	alerts  AlertSink
	history HistoryWriter
	loc     *time.Location
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCoordinator creates a coordinator from its collaborators.
func NewCoordinator(cfg Config) *Coordinator {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Coordinator{
		devices: cfg.Devices,
		users:   cfg.Users,
		samples: cfg.Samples,
		alerts:  cfg.Alerts,
		history: cfg.History,
		loc:     loc,
		logger:  logger.With("component", "consumption"),
		metrics: cfg.Metrics,
	}
}

// Associate binds a device to a user and returns the updated device.
//
// The device lookup and the directory check run concurrently. Any
// NotFound result names both IDs in its message; which sentinel(s) it
// wraps (device.ErrDeviceNotFound, ErrUserNotFound) reflects what was
// actually missing. A directory transport failure aborts the operation
// with that failure; it is never reported as a missing user.
func (c *Coordinator) Associate(ctx context.Context, deviceID, userID string) (*device.Device, error) {
	var (
		dev        *device.Device
		devErr     error
		userExists bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dev, devErr = c.devices.GetByID(gctx, deviceID)
		if devErr != nil && !errors.Is(devErr, device.ErrDeviceNotFound) {
			return devErr
		}
		return nil
	})
	g.Go(func() error {
		var err error
		userExists, err = c.users.UserExists(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Every NotFound names both ids; the caller cannot tell from the
	// message alone which lookup failed, only from errors.Is.
	deviceMissing := errors.Is(devErr, device.ErrDeviceNotFound)
	switch {
	case deviceMissing && !userExists:
		return nil, fmt.Errorf("%w: %s; %w: %s",
			device.ErrDeviceNotFound, deviceID, ErrUserNotFound, userID)
	case deviceMissing:
		return nil, fmt.Errorf("%w: device %s or user %s",
			device.ErrDeviceNotFound, deviceID, userID)
	case !userExists:
		return nil, fmt.Errorf("%w: device %s or user %s",
			ErrUserNotFound, deviceID, userID)
	}

	dev.UserID = &userID
	if err := c.devices.Update(ctx, dev); err != nil {
		return nil, fmt.Errorf("associating device %s: %w", deviceID, err)
	}

	c.logger.Info("device associated", "device_id", deviceID, "user_id", userID)
	return dev, nil
}

// Ingest accepts one hourly consumption value reported by a device.
//
// Checks run in order and the first failure wins: unknown device, then
// unassociated device, then unknown owner. A value strictly above the
// device's ceiling dispatches exactly one alert, and the dispatch
// completes before Ingest returns.
func (c *Coordinator) Ingest(ctx context.Context, deviceID string, value float64) error {
	dev, err := c.devices.GetByID(ctx, deviceID)
	if err != nil {
		c.metrics.Ingest("rejected")
		if errors.Is(err, device.ErrDeviceNotFound) {
			return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, deviceID)
		}
		return err
	}

	if !dev.Associated() {
		c.metrics.Ingest("rejected")
		return fmt.Errorf("%w: %s", ErrDeviceUnassigned, deviceID)
	}
	userID := *dev.UserID

	exists, err := c.users.UserExists(ctx, userID)
	if err != nil {
		c.metrics.Ingest("rejected")
		return fmt.Errorf("verifying owner of %s: %w", deviceID, err)
	}
	if !exists {
		c.metrics.Ingest("rejected")
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	if c.history != nil {
		c.history.WriteConsumption(deviceID, userID, value)
	}

	if value > dev.MaxHourlyConsumption {
		event := alerts.NewExceededEvent(deviceID, userID, value, dev.MaxHourlyConsumption)
		c.alerts.Dispatch(ctx, event)
		if c.history != nil {
			c.history.WriteAlert(deviceID, userID, value, dev.MaxHourlyConsumption)
		}
		c.metrics.Ingest("alert")
		return nil
	}

	c.metrics.Ingest("ok")
	return nil
}

// Report aggregates a user's consumption for one calendar day into
// hourly buckets in the site's local timezone.
//
// The date is a "2006-01-02" string. Hours with no samples produce no
// row; rows come back sorted by hour ascending. A sample whose amount
// does not parse counts as zero and is logged rather than failing the
// whole report.
func (c *Coordinator) Report(ctx context.Context, userID, date string) ([]ReportRow, error) {
	if _, err := time.Parse(monitoring.DateFormat, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	exists, err := c.users.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verifying user %s: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	devices, err := c.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices for %s: %w", userID, err)
	}

	// A user with no devices still gets a (necessarily empty) report.
	deviceIDs := make([]string, 0, len(devices))
	for _, d := range devices {
		deviceIDs = append(deviceIDs, d.ID)
	}

	samples, err := c.samples.ConsumptionPerDevices(ctx, deviceIDs, date)
	if err != nil {
		return nil, err
	}

	totals := make(map[int]float64)
	for _, s := range samples {
		v, err := s.TotalConsumption.Float()
		if err != nil {
			c.logger.Warn("malformed consumption amount, counting as zero",
				"device_id", s.DeviceID,
				"amount", string(s.TotalConsumption),
			)
			c.metrics.MalformedSample()
			v = 0
		}
		totals[s.Timestamp.In(c.loc).Hour()] += v
	}

	rows := make([]ReportRow, 0, len(totals))
	for hour, total := range totals {
		rows = append(rows, ReportRow{Hour: hour, TotalConsumption: total})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Hour < rows[j].Hour })

	return rows, nil
}
