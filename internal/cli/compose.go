package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/dmitrijs2005/ampcare/internal/store"
)

// ErrBadInput is returned when an entered value cannot be parsed.
var ErrBadInput = errors.New("bad input")

// Compose collects a new message and saves it as draft or sends it.
func (a *App) Compose(ctx context.Context) error {
	m, err := a.inputMessage()
	if err != nil {
		return a.fail(ctx, "compose", err)
	}
	draft, err := GetConfirm(a.reader, "Save as draft?", a.out)
	if err != nil {
		return a.fail(ctx, "compose", err)
	}
	res, err := a.store.CreateOrUpdate(ctx, m, draft)
	if err != nil {
		return a.fail(ctx, "compose", err)
	}
	a.printResult("Saved", res)
	return nil
}

// inputMessage prompts for the fields of a new message. Optional values
// are skipped with an empty line.
func (a *App) inputMessage() (*models.Message, error) {
	m := models.New()
	m.Sender, m.SenderName = a.party(), a.partyName

	var err error
	ask := func(prompt string, dst *string) {
		if err == nil {
			*dst, err = GetSimpleText(a.reader, prompt, a.out)
		}
	}

	ask("Recipient (party folder, empty keeps a draft)", &m.Recipient)
	ask("Recipient name", &m.RecipientName)
	ask("Title", &m.Title)
	var priority, initials, pulse, temperature, bp string
	ask("Priority (0 info, 1 good, 2 urgent, 3 critical)", &priority)
	ask("Patient name", &m.Patient.Name)
	ask("Pulse (/min)", &pulse)
	ask("Temperature (°C)", &temperature)
	ask("Blood pressure (systolic/diastolic)", &bp)
	ask("Your initials", &initials)
	if err != nil {
		return nil, err
	}

	if m.Priority, err = parsePriority(priority); err != nil {
		return nil, err
	}
	now := a.now()
	if m.Vitals, err = parseVitals(pulse, temperature, bp, now); err != nil {
		return nil, err
	}
	m.Initials = initials

	text, err := GetMultiline(a.reader, "Message text", a.out)
	if err != nil {
		return nil, err
	}
	if text != "" {
		m.Note = models.ConversationRow(a.partyName, initials, text, now, true)
	}

	meds, err := GetLines(a.reader, "Medications, one per line: ingredient;brand;strength;form;morning;midday;evening;night;unit;note;instruction", a.out)
	if err != nil {
		return nil, err
	}
	for _, line := range meds {
		m.Medications = append(m.Medications, models.MedicationFromRow(strings.Split(line, ";")))
	}

	if err := a.inputAttachments(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *App) inputAttachments(m *models.Message) error {
	files, err := GetLines(a.reader, "Files to attach, one path per line", a.out)
	if err != nil {
		return err
	}
	for _, f := range files {
		m.Attach(strings.TrimSpace(f), a.party())
	}
	return nil
}

// Edit changes a draft of the current party and optionally sends it.
func (a *App) Edit(ctx context.Context, ref string) error {
	m, err := a.lookup(ref)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	if m.Status != models.StatusDraft {
		return a.fail(ctx, "edit", fmt.Errorf("%s is %s, only drafts can be edited", shortID(m.ID), m.Status.Label()))
	}

	title, err := GetSimpleText(a.reader, fmt.Sprintf("Title [%s]", m.Title), a.out)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	if title != "" {
		m.Title = title
	}
	recipient, err := GetSimpleText(a.reader, fmt.Sprintf("Recipient [%s]", m.Recipient), a.out)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	if recipient != "" {
		m.Recipient = recipient
	}

	drop, err := GetLines(a.reader, "Attachments to remove, one name per line", a.out)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	for _, name := range drop {
		if !m.Detach(strings.TrimSpace(name)) {
			fmt.Fprintf(a.out, "no attachment %q\n", name)
		}
	}
	if err := a.inputAttachments(m); err != nil {
		return a.fail(ctx, "edit", err)
	}

	send, err := GetConfirm(a.reader, "Send now?", a.out)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	res, err := a.store.CreateOrUpdate(ctx, m, !send)
	if err != nil {
		return a.fail(ctx, "edit", err)
	}
	a.printResult("Saved", res)
	return nil
}

// Reply adds an entry to the conversation.
func (a *App) Reply(ctx context.Context, ref string) error {
	m, err := a.lookup(ref)
	if err != nil {
		return a.fail(ctx, "reply", err)
	}

	initials, err := GetSimpleText(a.reader, "Your initials", a.out)
	if err != nil {
		return a.fail(ctx, "reply", err)
	}
	text, err := GetMultiline(a.reader, "Reply text", a.out)
	if err != nil {
		return a.fail(ctx, "reply", err)
	}
	if text == "" {
		return a.fail(ctx, "reply", fmt.Errorf("%w: empty reply", ErrBadInput))
	}
	files, err := GetLines(a.reader, "Files to attach, one path per line", a.out)
	if err != nil {
		return a.fail(ctx, "reply", err)
	}

	res, err := a.store.Reply(ctx, m.ID, store.Reply{Initials: initials, Text: text, Attachments: files})
	if err != nil {
		return a.fail(ctx, "reply", err)
	}
	a.printResult("Replied to", res)
	return nil
}

func parsePriority(s string) (models.Priority, error) {
	if s == "" {
		return models.PriorityInfo, nil
	}
	n, err := strconv.Atoi(s)
	p := models.Priority(n)
	if err != nil || !p.Valid() {
		return 0, fmt.Errorf("%w: priority %q", ErrBadInput, s)
	}
	return p, nil
}

func parseVitals(pulse, temperature, bp string, at time.Time) (models.Vitals, error) {
	var v models.Vitals
	if pulse != "" {
		n, err := strconv.Atoi(pulse)
		if err != nil {
			return v, fmt.Errorf("%w: pulse %q", ErrBadInput, pulse)
		}
		v.Pulse = models.Measured(n, at)
	}
	if temperature != "" {
		f, err := strconv.ParseFloat(strings.Replace(temperature, ",", ".", 1), 64)
		if err != nil {
			return v, fmt.Errorf("%w: temperature %q", ErrBadInput, temperature)
		}
		v.Temperature = models.Measured(f, at)
	}
	if bp != "" {
		sys, dia, ok := strings.Cut(bp, "/")
		s, err1 := strconv.Atoi(strings.TrimSpace(sys))
		d, err2 := strconv.Atoi(strings.TrimSpace(dia))
		if !ok || err1 != nil || err2 != nil {
			return v, fmt.Errorf("%w: blood pressure %q", ErrBadInput, bp)
		}
		v.BloodPressure = models.BloodPressure{Systolic: s, Diastolic: d, Present: true, TakenAt: at}
	}
	return v, nil
}
