// Package platform isolates the engine from concrete platform
// capabilities: opening/sharing downloaded files, alerting the user,
// and the navigation side effects of fatal session states.
package platform

//go:generate mockgen -source=delivery.go -destination=mock_delivery.go -package=platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// Delivery hands downloaded files to the platform and alerts the user
// about new messages. The core engine depends only on this interface;
// tests substitute a recording mock.
type Delivery interface {
	// Share hands a local file to the platform's open/share capability.
	Share(ctx context.Context, path, mimeType string) error

	// Alert notifies the user (sound and haptics on mobile, terminal
	// bell here). Fired at most once per poll cycle.
	Alert()
}

// Navigator performs the one-time navigation side effects of fatal
// session conditions.
type Navigator interface {
	// SignOut forces re-authentication after the session token is
	// rejected.
	SignOut()

	// AwaitApproval moves the user to the waiting state when chat
	// access is not yet granted.
	AwaitApproval()
}

// ExecDelivery is the desktop implementation of Delivery: Share shells
// out to the platform opener, Alert rings the terminal bell.
type ExecDelivery struct {
	logger *slog.Logger
}

// NewExecDelivery creates an ExecDelivery.
func NewExecDelivery(logger *slog.Logger) *ExecDelivery {
	return &ExecDelivery{logger: logger}
}

// Share opens path with the platform's default handler.
func (d *ExecDelivery) Share(ctx context.Context, path, mimeType string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}

	cmd := exec.CommandContext(ctx, opener, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	d.logger.Debug("handed file to platform opener",
		slog.String("path", path),
		slog.String("mime", mimeType),
	)

	// The opener owns the file from here; don't hold the caller
	// hostage to a viewer process.
	go func() { _ = cmd.Wait() }()

	return nil
}

// Alert rings the terminal bell.
func (d *ExecDelivery) Alert() {
	fmt.Fprint(os.Stderr, "\a")
	d.logger.Debug("alert fired")
}

// LogNavigator is the headless implementation of Navigator: it records
// the transition and leaves acting on it to the operator.
type LogNavigator struct {
	logger *slog.Logger
}

// NewLogNavigator creates a LogNavigator.
func NewLogNavigator(logger *slog.Logger) *LogNavigator {
	return &LogNavigator{logger: logger}
}

// SignOut logs that the session must be re-established.
func (n *LogNavigator) SignOut() {
	n.logger.Warn("session rejected, re-authentication required")
}

// AwaitApproval logs that chat access is pending.
func (n *LogNavigator) AwaitApproval() {
	n.logger.Warn("chat locked, awaiting clinic approval")
}
