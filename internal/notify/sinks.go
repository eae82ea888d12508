package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"parrillas/internal/model"
)

// Cue is an audible signal for a new notification.
type Cue interface {
	Play() error
}

// Desktop raises an operating system notification.
type Desktop interface {
	// Permitted reports whether desktop notifications can be shown.
	Permitted() bool
	Notify(ctx context.Context, n model.Notification) error
}

// Toaster shows a transient in-app message.
type Toaster interface {
	Toast(n model.Notification)
}

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

func (b Bell) Play() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// NotifySend shows notifications through notify-send(1).
type NotifySend struct {
	path    string
	timeout time.Duration
}

// NewNotifySend finds notify-send on PATH. The result is never nil; Permitted is
// false when the binary is missing.
func NewNotifySend() *NotifySend {
	path, _ := exec.LookPath("notify-send")
	return &NotifySend{path: path, timeout: 5 * time.Second}
}

func (d *NotifySend) Permitted() bool { return d != nil && d.path != "" }

func (d *NotifySend) Notify(ctx context.Context, n model.Notification) error {
	if !d.Permitted() {
		return errors.New("notify-send not available")
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, d.path, notifySendArgs(n)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func notifySendArgs(n model.Notification) []string {
	urgency := "normal"
	switch n.Type {
	case model.NotificationError:
		urgency = "critical"
	case model.NotificationSuccess, model.NotificationInfo:
		urgency = "low"
	}
	return []string{"--app-name=parrillas", "--urgency=" + urgency, "--", n.Title, n.Message}
}

// ChanToaster queues toasts on C for a UI to consume. When the queue is full the
// oldest waiting toast is dropped.
type ChanToaster struct {
	C chan model.Notification
}

func NewChanToaster(size int) *ChanToaster {
	if size < 1 {
		size = 1
	}
	return &ChanToaster{C: make(chan model.Notification, size)}
}

func (t *ChanToaster) Toast(n model.Notification) {
	for {
		select {
		case t.C <- n:
			return
		default:
		}
		select {
		case <-t.C:
		default:
		}
	}
}
