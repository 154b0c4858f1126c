// Package notify delivers kitchen notifications: to the log, to a
// terminal, and as an audible chime on the host running the server.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = Multi(nil)
)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of fmt.Printf.
type PrintFunc func(format string, a ...any)

// LogNotifier writes notifications to the log and, when a PrintFunc is
// given, to a terminal with ANSI formatting.
type LogNotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewLogNotifier creates a log-based notifier. printFn may be nil.
func NewLogNotifier(log *logger.Logger, printFn PrintFunc) *LogNotifier {
	return &LogNotifier{log: log, printFn: printFn}
}

// Notify records a normal notification.
func (n *LogNotifier) Notify(ctx context.Context, message string) error {
	n.log.Info("notify: %s", message)
	if n.printFn != nil {
		n.printFn("%s%s%s%s", cyan, bold, message, reset)
	}
	return nil
}

// NotifyUrgent records an urgent notification, in bold red on a terminal.
func (n *LogNotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Warn("notify-urgent: %s", message)
	if n.printFn != nil {
		n.printFn("%s%s%s%s", red, bold, message, reset)
	}
	return nil
}

// Multi fans every notification out to all of its notifiers. Every
// notifier is tried; failures are joined.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for i, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyUrgent(ctx context.Context, message string) error {
	var errs []error
	for i, n := range m {
		if err := n.NotifyUrgent(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
