package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/order-alert/internal/api/grpc/command"
	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
	"github.com/oshokin/order-alert/internal/repository/shop"
	"github.com/oshokin/order-alert/internal/service/orders"
)

// Options configures a single UI command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the monitor address from config when specified.
	ServerAddress string
	// StoreFile overrides the shop store path from config when specified.
	StoreFile string
	// Action is the command sent to the monitor.
	Action domain.Action
	// ShopID is the shop to set up or start. Start falls back to the stored shop.
	ShopID string
	// Setup verifies and persists ShopID before starting monitoring.
	Setup bool
	// Wait bounds retries while the daemon is unreachable. Zero tries once.
	Wait time.Duration
	// Output receives the human readable result.
	Output io.Writer
}

const (
	// defaultPushInterval defines retry delay when the daemon is unreachable.
	defaultPushInterval = 1 * time.Second
	// callTimeoutFactor scales the network timeout for commands that poll before answering.
	callTimeoutFactor = 3
)

var (
	// ErrNoShop is returned by start when no shop id is given or stored.
	ErrNoShop = errors.New("no shop configured, run setup first")
	// ErrShopNotVerified is returned when the count endpoint rejects a shop id during setup.
	ErrShopNotVerified = errors.New("shop id could not be verified")
)

// Sender delivers a command to the monitor.
type Sender interface {
	Send(ctx context.Context, req domain.Request) (domain.Response, error)
}

// Verifier fetches a shop's pending-order count.
type Verifier interface {
	Count(ctx context.Context, shopID string) (int, error)
}

// Store persists the shop selection.
type Store interface {
	Load(ctx context.Context) (*domain.ShopConfig, error)
	Save(ctx context.Context, cfg *domain.ShopConfig) error
}

// Commander runs UI commands against its collaborators.
type Commander struct {
	sender   Sender
	verifier Verifier
	store    Store
	out      io.Writer
	interval time.Duration
}

// NewCommander creates a commander writing results to out.
func NewCommander(sender Sender, verifier Verifier, store Store, out io.Writer) *Commander {
	if out == nil {
		out = io.Discard
	}

	return &Commander{
		sender:   sender,
		verifier: verifier,
		store:    store,
		out:      out,
		interval: defaultPushInterval,
	}
}

// Run loads settings, connects to the monitor daemon and executes the command.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "order-alert")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	storeFile := cfg.StoreFile
	if opts.StoreFile != "" {
		storeFile = opts.StoreFile
	}

	verifier, err := orders.NewClient(cfg.EndpointURL, orders.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	client, err := command.DialMonitor(ctx, serverAddress,
		command.WithCallTimeout(callTimeoutFactor*cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Wait > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Wait)
		defer cancel()
	}

	c := NewCommander(client, verifier, shop.NewFileRepository(storeFile), opts.Output)
	if opts.Wait <= 0 {
		c.interval = 0
	}

	if opts.Setup {
		return c.Setup(ctx, opts.ShopID)
	}

	return c.Execute(ctx, opts.Action, opts.ShopID)
}

// Setup verifies shopID against the count endpoint, stores it and starts monitoring.
func (c *Commander) Setup(ctx context.Context, shopID string) error {
	if shopID == "" {
		return domain.ErrShopIDRequired
	}

	count, err := c.verifier.Count(ctx, shopID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShopNotVerified, err)
	}

	cfg := &domain.ShopConfig{
		ShopID:   shopID,
		ShopName: domain.DefaultShopName(shopID),
	}

	if err = c.store.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save shop: %w", err)
	}

	logger.InfoKV(ctx, "Shop configured", "shop_id", cfg.ShopID, "shop_name", cfg.ShopName, "pending", count)
	_, _ = fmt.Fprintf(c.out, "%s configured, %d pending order(s)\n", cfg.ShopName, count)

	return c.Execute(ctx, domain.ActionStartMonitoring, shopID)
}

// Execute sends one command and reports the result.
func (c *Commander) Execute(ctx context.Context, action domain.Action, shopID string) error {
	req := domain.Request{Action: action}

	if action == domain.ActionStartMonitoring {
		id, err := c.resolveShop(ctx, shopID)
		if err != nil {
			return err
		}

		req.ShopID = id
	}

	resp, err := c.push(ctx, req)
	if err != nil {
		return err
	}

	if err = resp.Err(); err != nil {
		return err
	}

	if resp.Status != nil {
		_, _ = fmt.Fprintln(c.out, FormatStatus(resp.Status))
		return nil
	}

	_, _ = fmt.Fprintf(c.out, "%s: ok\n", action)

	return nil
}

// resolveShop returns shopID or, when empty, the stored shop id.
func (c *Commander) resolveShop(ctx context.Context, shopID string) (string, error) {
	if shopID != "" {
		return shopID, nil
	}

	cfg, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		return "", ErrNoShop
	case err != nil:
		return "", fmt.Errorf("load shop: %w", err)
	}

	return cfg.ShopID, nil
}

// push sends req, retrying transport failures every interval until ctx is done.
// A response is returned as is, even a failed one. A zero interval tries once.
func (c *Commander) push(ctx context.Context, req domain.Request) (domain.Response, error) {
	// attempt tries once to deliver the command.
	attempt := func() (domain.Response, error) {
		resp, err := c.sender.Send(ctx, req)
		if err != nil {
			logger.ErrorKV(ctx, "Send command failed", "action", string(req.Action), "error", err)
		}

		return resp, err
	}

	resp, err := attempt()
	if err == nil || c.interval <= 0 {
		return resp, err
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Response{}, fmt.Errorf("monitor daemon unreachable: %w", err)
		case <-ticker.C:
			if resp, err = attempt(); err == nil {
				return resp, nil
			}
		}
	}
}

// FormatStatus converts a monitor status to a readable line.
func FormatStatus(status *domain.Status) string {
	if status == nil {
		return "<nil status>"
	}

	if !status.Active {
		return "idle"
	}

	alert := "silent"

	switch {
	case status.IsLooping:
		alert = "alarm looping"
	case status.UserAcknowledged:
		alert = "acknowledged"
	}

	lastAlert := "never"
	if !status.LastAlertAt.IsZero() {
		lastAlert = status.LastAlertAt.Local().Format(time.RFC3339)
	}

	return fmt.Sprintf("monitoring %s: %d pending order(s), %s, last alert %s",
		status.ShopID, status.ObservedCount, alert, lastAlert)
}
