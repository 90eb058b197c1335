package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/dmitrijs2005/ampcare/internal/notify"
	"github.com/dmitrijs2005/ampcare/internal/store"
	"github.com/google/uuid"
)

// ErrUnknownRef is returned when a command argument names no message.
var ErrUnknownRef = errors.New("no such message")

// MessageStore is the part of *store.Store the CLI drives.
type MessageStore interface {
	Party() string
	Messages() []*models.Message
	Active(party string) []*models.Message
	Drafts() []*models.Message
	Get(id uuid.UUID) (*models.Message, error)
	CreateOrUpdate(ctx context.Context, m *models.Message, saveAsDraft bool) (store.WriteResult, error)
	MarkRead(ctx context.Context, id uuid.UUID, viewer string) (store.WriteResult, error)
	MarkResolved(ctx context.Context, id uuid.UUID) (store.WriteResult, error)
	Archive(ctx context.Context, id uuid.UUID, party string) (store.WriteResult, error)
	Reply(ctx context.Context, id uuid.UUID, r store.Reply) (store.WriteResult, error)
	Rescan(ctx context.Context) ([]uuid.UUID, error)
}

// Alerts is the part of the notification coalescer the CLI drives.
type Alerts interface {
	Live() (notify.Notification, int, bool)
	Dismiss(ctx context.Context)
}

type App struct {
	store     MessageStore
	alerts    Alerts
	logger    logging.Logger
	partyName string
	clock     func() time.Time

	reader *bufio.Reader
	out    io.Writer

	// listed holds the IDs of the last listing so commands can refer to
	// them by number.
	listed []uuid.UUID
}

type Options struct {
	Store     MessageStore
	Alerts    Alerts
	Logger    logging.Logger
	PartyName string
	In        io.Reader
	Out       io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewApp(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.PartyName == "" {
		opts.PartyName = opts.Store.Party()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &App{
		store:     opts.Store,
		alerts:    opts.Alerts,
		logger:    opts.Logger,
		partyName: opts.PartyName,
		clock:     opts.Now,
		reader:    bufio.NewReader(opts.In),
		out:       opts.Out,
	}
}

// Run serves commands until EOF, "exit" or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "AMP messages for %s (type 'help' for commands)\n", a.partyName)
	runREPL(ctx, a, a.status, a.reader)
}

// status summarizes the active view and the live notification for the prompt.
func (a *App) status() string {
	s := fmt.Sprintf("(%s, %d active", a.store.Party(), len(a.store.Active(a.store.Party())))
	if a.alerts != nil {
		if _, count, ok := a.alerts.Live(); ok {
			s += fmt.Sprintf(", %d new", count)
		}
	}
	return s + ")"
}

func (a *App) party() string { return a.store.Party() }

func (a *App) now() time.Time { return a.clock().Local().Truncate(time.Second) }

// lookup resolves a list number, a full ID or a unique ID prefix.
func (a *App) lookup(ref string) (*models.Message, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(a.listed) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
		}
		return a.store.Get(a.listed[n-1])
	}
	if id, err := uuid.Parse(ref); err == nil {
		return a.store.Get(id)
	}

	var found *models.Message
	prefix := strings.ToLower(ref)
	for _, m := range a.store.Messages() {
		if !strings.HasPrefix(m.ID.String(), prefix) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("ambiguous reference %q", ref)
		}
		found = m
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	return found, nil
}

// fail reports err to the user and returns it.
func (a *App) fail(ctx context.Context, op string, err error) error {
	a.logger.Debug(ctx, "command failed", "command", op, "error", err)
	fmt.Fprintf(a.out, "%s: %v\n", op, err)
	return err
}

func (a *App) printResult(verb string, res store.WriteResult) {
	if !res.Changed {
		fmt.Fprintf(a.out, "%s: nothing to do\n", shortID(res.Message.ID))
		return
	}
	fmt.Fprintf(a.out, "%s %s (%s)\n", verb, shortID(res.Message.ID), res.Message.Status.Label())
	if res.Downgraded {
		fmt.Fprintln(a.out, "no recipient given, kept as draft")
	}
}

func shortID(id uuid.UUID) string { return id.String()[:8] }
