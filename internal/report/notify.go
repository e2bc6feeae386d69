package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Notifier delivers a short alert to the developer
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// CommandNotifier shows notifications by running a platform command
type CommandNotifier struct {
	path string
	args func(title, message string) []string
}

// Notify runs the notification command
func (n *CommandNotifier) Notify(ctx context.Context, title, message string) error {
	out, err := exec.CommandContext(ctx, n.path, n.args(title, message)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (%s)", n.path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ConsoleNotifier writes notifications to a stream
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier creates a notifier writing to w
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Notify prints the notification
func (n *ConsoleNotifier) Notify(_ context.Context, title, message string) error {
	_, err := fmt.Fprintf(n.w, "Notification: %s - %s\n", title, message)
	return err
}

// RateLimitedNotifier drops notifications that exceed a rate limit
type RateLimitedNotifier struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewRateLimitedNotifier allows burst notifications, refilling one per interval
func NewRateLimitedNotifier(next Notifier, interval time.Duration, burst int) *RateLimitedNotifier {
	return &RateLimitedNotifier{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// ErrRateLimited is returned when a notification is dropped
var ErrRateLimited = errors.New("notification rate limit exceeded")

// Notify forwards the notification if the limiter allows it
func (n *RateLimitedNotifier) Notify(ctx context.Context, title, message string) error {
	if !n.limiter.Allow() {
		return ErrRateLimited
	}
	return n.next.Notify(ctx, title, message)
}

// lookPath is replaced in tests
var lookPath = exec.LookPath

// NewNotifier picks a desktop notifier for the current platform and falls
// back to console output when none is installed. The result is rate limited
// to a burst of 3 and one notification every 10 seconds after that.
func NewNotifier(console io.Writer) Notifier {
	return NewRateLimitedNotifier(desktopNotifier(runtime.GOOS, console), 10*time.Second, 3)
}

func desktopNotifier(goos string, console io.Writer) Notifier {
	switch goos {
	case "darwin":
		if path, err := lookPath("osascript"); err == nil {
			return &CommandNotifier{path: path, args: func(title, message string) []string {
				script := fmt.Sprintf("display notification %s with title %s",
					appleScriptString(message), appleScriptString(title))
				return []string{"-e", script}
			}}
		}
	case "linux", "freebsd", "openbsd":
		if path, err := lookPath("notify-send"); err == nil {
			return &CommandNotifier{path: path, args: func(title, message string) []string {
				return []string{"--app-name=webcheck", title, message}
			}}
		}
	}
	return NewConsoleNotifier(console)
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
