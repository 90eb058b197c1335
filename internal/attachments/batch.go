package attachments

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/filex"
	"github.com/dmitrijs2005/ampcare/internal/logging"
	"github.com/dmitrijs2005/ampcare/internal/models"
)

type op struct {
	mode Mode
	src  string
	dst  string
}

// Batch is the journal of one Stage call.
type Batch struct {
	// Staged are the attachments as they now exist in the assets folder.
	Staged []models.Attachment

	ops    []op
	logger logging.Logger
}

// Rollback undoes the batch in reverse order: copies are deleted, moved
// files go back to their source. It is safe to call more than once.
func (b *Batch) Rollback() error {
	if b == nil {
		return nil
	}
	var errs []error
	for i := len(b.ops) - 1; i >= 0; i-- {
		o := b.ops[i]
		var err error
		switch o.mode {
		case ModeMove:
			err = filex.MoveFile(o.dst, o.src)
		default:
			err = os.Remove(o.dst)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn(context.Background(), "attachment rollback failed", "path", o.dst, "error", err)
			errs = append(errs, common.NewStorageError("rollback attachment", o.dst, err))
		}
	}
	b.ops = nil
	b.Staged = nil
	return errors.Join(errs...)
}
