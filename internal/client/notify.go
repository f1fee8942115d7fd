package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	SessionExpiredMessage = "Your session has expired. Please log in again."
	// NoticeTTL is how long a dismissible notice stays visible.
	NoticeTTL = 5 * time.Second
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message for the user. LoginRequired notices ask the UI to send
// the user to the login screen and do not expire on their own.
type Notice struct {
	ID            int
	Level         NoticeLevel
	Message       string
	LoginRequired bool
	At            time.Time
}

// Notifier receives user-visible notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	switch n.Level {
	case NoticeWarning:
		level = slog.LevelWarn
	case NoticeError:
		level = slog.LevelError
	}
	l.Logger.Log(ctx, level, n.Message, slog.Bool("login_required", n.LoginRequired))
}

// Notifiers fans a notice out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notice) {
	for _, x := range ns {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Notices keeps the notices currently shown to the user. Ordinary notices
// disappear NoticeTTL after they were raised; LoginRequired notices stay
// until dismissed.
type Notices struct {
	mu     sync.Mutex
	nextID int
	items  []Notice
	now    func() time.Time
}

func NewNotices() *Notices {
	return &Notices{now: time.Now}
}

func (n *Notices) Notify(_ context.Context, notice Notice) {
	n.Add(notice)
}

// Add stores a notice and returns its ID.
func (n *Notices) Add(notice Notice) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	notice.ID = n.nextID
	if notice.At.IsZero() {
		notice.At = n.now()
	}
	n.items = append(n.items, notice)
	return notice.ID
}

// Active returns the notices still visible, oldest first.
func (n *Notices) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	kept := n.items[:0]
	for _, it := range n.items {
		if it.LoginRequired || now.Sub(it.At) < NoticeTTL {
			kept = append(kept, it)
		}
	}
	n.items = kept

	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}

func (n *Notices) Dismiss(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// LoginRequired reports whether a visible notice asks for a new login.
func (n *Notices) LoginRequired() bool {
	for _, it := range n.Active() {
		if it.LoginRequired {
			return true
		}
	}
	return false
}
