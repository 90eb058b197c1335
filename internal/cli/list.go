package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/dmitrijs2005/ampcare/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// List prints the messages not archived by the current party.
func (a *App) List(ctx context.Context) error {
	a.printList(a.store.Active(a.party()))
	return nil
}

// Drafts prints the unsent messages.
func (a *App) Drafts(ctx context.Context) error {
	a.printList(a.store.Drafts())
	return nil
}

func (a *App) printList(list []*models.Message) {
	a.listed = a.listed[:0]
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No messages")
		return
	}
	for i, m := range list {
		a.listed = append(a.listed, m.ID)
		fmt.Fprintf(a.out, "%3d  %s  %-9s %-11s %-12s %s\n",
			i+1,
			shortID(m.ID),
			m.Priority,
			m.Status.Label(),
			m.Counterpart(a.party()),
			m.ShortTitle(),
		)
	}
}

// Show prints one message in full.
func (a *App) Show(ctx context.Context, ref string) error {
	m, err := a.lookup(ref)
	if err != nil {
		return a.fail(ctx, "show", err)
	}

	fmt.Fprintf(a.out, "ID:        %s\n", m.ID)
	fmt.Fprintf(a.out, "Title:     %s\n", m.Title)
	fmt.Fprintf(a.out, "Priority:  %s\n", m.Priority)
	fmt.Fprintf(a.out, "Status:    %s\n", m.Status.Label())
	fmt.Fprintf(a.out, "From:      %s\n", party(m.Sender, m.SenderName))
	fmt.Fprintf(a.out, "To:        %s\n", party(m.Recipient, m.RecipientName))
	fmt.Fprintf(a.out, "Authored:  %s (%s)\n",
		m.AuthoredOn.Format(models.ConversationDateLayout), humanize.Time(m.AuthoredOn))

	if p := m.Patient; p.Name != "" {
		line := p.Name
		if !p.BirthDate.IsZero() {
			line += ", born " + p.BirthDate.Format("02.01.2006")
		}
		if g := p.Gender.String(); g != "" {
			line += ", " + g
		}
		fmt.Fprintf(a.out, "Patient:   %s\n", line)
	}
	if v := vitalsLine(m.Vitals); v != "" {
		fmt.Fprintf(a.out, "Vitals:    %s\n", v)
	}
	for _, med := range m.Medications {
		fmt.Fprintf(a.out, "Med:       %s %s %s  %s\n",
			med.Ingredient, med.Strength, med.Form, strings.Join(med.Doses()[:], "-"))
	}
	for _, att := range m.Attachments {
		fmt.Fprintf(a.out, "Attached:  %s [%s] %s\n", att.Name, att.Kind, fileSize(att.Path))
	}
	if p := m.Preview(); p != "" {
		fmt.Fprintf(a.out, "Latest:    %s\n", p)
	}
	return nil
}

func party(id, name string) string {
	switch {
	case id == "":
		return "-"
	case name == "" || name == id:
		return id
	default:
		return fmt.Sprintf("%s (%s)", name, id)
	}
}

func vitalsLine(v models.Vitals) string {
	var parts []string
	if v.BloodPressure.Present {
		parts = append(parts, fmt.Sprintf("BP %d/%d mmHg", v.BloodPressure.Systolic, v.BloodPressure.Diastolic))
	}
	if v.Pulse.Present {
		parts = append(parts, fmt.Sprintf("pulse %d/min", v.Pulse.Value))
	}
	if v.Temperature.Present {
		parts = append(parts, fmt.Sprintf("temp %s °C", humanize.Ftoa(v.Temperature.Value)))
	}
	if v.Glucose.Present {
		parts = append(parts, fmt.Sprintf("glucose %s mg/dl", humanize.Ftoa(v.Glucose.Value)))
	}
	if v.Weight.Present {
		parts = append(parts, fmt.Sprintf("weight %s kg", humanize.Ftoa(v.Weight.Value)))
	}
	return strings.Join(parts, ", ")
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "(missing)"
	}
	return humanize.Bytes(uint64(fi.Size()))
}

// Read marks the message as read by the current party.
func (a *App) Read(ctx context.Context, ref string) error {
	return a.apply(ctx, "read", "Read", ref, func(id uuid.UUID) (store.WriteResult, error) {
		return a.store.MarkRead(ctx, id, a.party())
	})
}

// Resolve closes the conversation.
func (a *App) Resolve(ctx context.Context, ref string) error {
	return a.apply(ctx, "resolve", "Resolved", ref, func(id uuid.UUID) (store.WriteResult, error) {
		return a.store.MarkResolved(ctx, id)
	})
}

// Archive hides the message from the current party's list.
func (a *App) Archive(ctx context.Context, ref string) error {
	return a.apply(ctx, "archive", "Archived", ref, func(id uuid.UUID) (store.WriteResult, error) {
		return a.store.Archive(ctx, id, a.party())
	})
}

func (a *App) apply(ctx context.Context, op, verb, ref string, fn func(uuid.UUID) (store.WriteResult, error)) error {
	m, err := a.lookup(ref)
	if err != nil {
		return a.fail(ctx, op, err)
	}
	res, err := fn(m.ID)
	if err != nil {
		return a.fail(ctx, op, err)
	}
	a.printResult(verb, res)
	return nil
}

// Rescan re-reads the whole tree and reports messages that were not known.
func (a *App) Rescan(ctx context.Context) error {
	fresh, err := a.store.Rescan(ctx)
	if err != nil {
		return a.fail(ctx, "rescan", err)
	}
	fmt.Fprintf(a.out, "%s new\n", humanize.Comma(int64(len(fresh))))
	return nil
}

// Dismiss closes the live notification.
func (a *App) Dismiss(ctx context.Context) error {
	if a.alerts == nil {
		return nil
	}
	if _, _, ok := a.alerts.Live(); !ok {
		fmt.Fprintln(a.out, "No notification")
		return nil
	}
	a.alerts.Dismiss(ctx)
	fmt.Fprintln(a.out, "Notification dismissed")
	return nil
}
