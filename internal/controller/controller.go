// Package controller owns the state of one user's session: the current
// report, its strike flags, the active saved batch and the saved batch list.
package controller

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/logging"
	"github.com/cardinal-lookup/internal/store"
)

// Notification texts.
const (
	MsgSaved        = "Batch saved!"
	MsgUpdated      = "Batch updated!"
	MsgSaveFailed   = "Save failed."
	MsgUpdateFailed = "Update failed."
	MsgDeleted      = "Deleted."
	MsgDeleteFailed = "Error deleting."
	MsgSignIn       = "Sign in to save batches."
)

// Save button labels.
const (
	LabelSave   = "Save Batch"
	LabelUpdate = "Update Batch"
)

// Options wires a controller. Runner and Store are required.
type Options struct {
	Runner   *engine.Runner
	Store    store.Store
	Renderer Renderer
	Notifier Notifier
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Controller serializes the commands that mutate session state. Store and
// lookup I/O happen outside the lock.
type Controller struct {
	runner   *engine.Runner
	store    store.Store
	renderer Renderer
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	mu       sync.Mutex
	identity Identity
	grouper  *batch.Grouper
	activeID string
	batches  []batch.Batch
	running  bool
	gen      uint64 // bumped whenever the report is replaced

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// New builds a controller for a guest with an empty report.
func New(opts Options) *Controller {
	c := &Controller{
		runner:   opts.Runner,
		store:    opts.Store,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
		grouper:  batch.NewGrouper(nil),
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.renderer == nil {
		c.renderer = nopRenderer{}
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Log: c.log}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Report is a read-only view of the current report.
type Report struct {
	Records   []batch.Record `json:"records"`
	Strikes   []bool         `json:"groupStrikes"`
	Groups    []batch.Group  `json:"groups"`
	ActiveID  string         `json:"activeBatchId"`
	SaveLabel string         `json:"saveLabel"`
	Running   bool           `json:"running"`
}

// Report returns the current report state.
func (c *Controller) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Report{
		Records:   c.grouper.Records(),
		Strikes:   c.grouper.Strikes(),
		Groups:    c.grouper.Groups(),
		ActiveID:  c.activeID,
		SaveLabel: c.saveLabel(),
		Running:   c.running,
	}
}

// SaveLabel is "Update Batch" while a saved batch is active, else "Save Batch".
func (c *Controller) SaveLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLabel()
}

func (c *Controller) saveLabel() string {
	if c.activeID != "" {
		return LabelUpdate
	}
	return LabelSave
}

// Identity returns the current user.
func (c *Controller) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Batches returns the latest snapshot of saved batches, newest first.
func (c *Controller) Batches() []batch.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]batch.Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

// SetIdentity switches user. The previous subscription is torn down; a
// signed-in user gets a new one whose snapshots replace the batch list.
func (c *Controller) SetIdentity(ctx context.Context, id Identity) error {
	c.stopWatch()

	c.mu.Lock()
	c.identity = id
	c.batches = nil
	c.activeID = ""
	c.gen++
	c.mu.Unlock()
	c.renderer.RenderBatches(nil)

	if id.IsGuest() {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	ch, err := c.store.Watch(watchCtx, id.UserID)
	if err != nil {
		cancel()
		perr := &PersistenceError{Op: "watch", Err: err}
		c.log.WithError(err).WithField("user", id.UserID).Warn("failed to subscribe to batches")
		return perr
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.watchCancel = cancel
	c.watchDone = done
	c.mu.Unlock()

	go c.consume(ch, done)
	return nil
}

func (c *Controller) consume(ch <-chan []batch.Batch, done chan struct{}) {
	defer close(done)
	for snap := range ch {
		c.replaceBatches(snap)
	}
}

func (c *Controller) replaceBatches(snap []batch.Batch) {
	sort.SliceStable(snap, func(i, j int) bool {
		return snap[i].Timestamp.After(snap[j].Timestamp)
	})
	c.mu.Lock()
	c.batches = snap
	c.mu.Unlock()
	c.renderer.RenderBatches(snap)
}

// Refresh lists the user's batches from the store right away instead of
// waiting for the next snapshot. Guests have nothing to refresh.
func (c *Controller) Refresh(ctx context.Context) error {
	user := c.Identity()
	if user.IsGuest() {
		return nil
	}
	list, err := c.store.List(ctx, user.UserID)
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}
	c.replaceBatches(list)
	return nil
}

func (c *Controller) stopWatch() {
	c.mu.Lock()
	cancel, done := c.watchCancel, c.watchDone
	c.watchCancel, c.watchDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Close ends the store subscription.
func (c *Controller) Close() {
	c.stopWatch()
}

// RunLookup runs the pipeline over text and replaces the report with the
// result. Blank input does nothing. The active batch is cleared when the
// run starts and again when the result is installed, so a fresh result is
// never saved as an update; the report is only replaced once the run
// completes.
func (c *Controller) RunLookup(ctx context.Context, text string, opts engine.Options) (*engine.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrRunInProgress
	}
	c.running = true
	c.activeID = ""
	c.gen++
	c.mu.Unlock()

	res, err := c.runner.Run(ctx, text, opts)

	c.mu.Lock()
	c.running = false
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.grouper = batch.NewGrouper(res.Records)
	c.activeID = ""
	c.gen++
	records, strikes := c.grouper.Records(), c.grouper.Strikes()
	c.mu.Unlock()

	c.renderer.RenderReport(records, strikes)
	return res, nil
}

// ToggleStrike flips one group's strike flag and re-renders.
func (c *Controller) ToggleStrike(idx int) (bool, error) {
	c.mu.Lock()
	struck, err := c.grouper.ToggleStrike(idx)
	records, strikes := c.grouper.Records(), c.grouper.Strikes()
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	c.renderer.RenderReport(records, strikes)
	return struck, nil
}

// LoadBatch makes the batch at index of the latest snapshot the current
// report. Strikes of the wrong length are reset. Loading is refused while a
// run is in progress.
func (c *Controller) LoadBatch(index int) (batch.Batch, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return batch.Batch{}, ErrRunInProgress
	}
	if index < 0 || index >= len(c.batches) {
		c.mu.Unlock()
		return batch.Batch{}, ErrBatchOutOfRange
	}
	b := c.batches[index]
	c.grouper = batch.Restore(b.Records, b.GroupStrikes)
	c.activeID = b.ID
	c.gen++
	records, strikes := c.grouper.Records(), c.grouper.Strikes()
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"batch_id": b.ID, "records": len(records)}).Debug("batch loaded")
	c.renderer.RenderReport(records, strikes)
	return b, nil
}

// DefaultBatchName is "Batch M/D/YYYY" for t.
func DefaultBatchName(t time.Time) string {
	return "Batch " + t.Format("1/2/2006")
}

// SaveOrUpdate persists the current report. With an active batch the
// records and strikes of that batch are replaced; otherwise a new batch is
// created under name (or the default name) and becomes active. An empty
// report is not saved.
func (c *Controller) SaveOrUpdate(ctx context.Context, name string) error {
	c.mu.Lock()
	user := c.identity
	activeID := c.activeID
	gen := c.gen
	records, strikes := c.grouper.Records(), c.grouper.Strikes()
	c.mu.Unlock()

	if user.IsGuest() {
		c.notifier.Notify(Notification{Level: LevelError, Message: MsgSignIn, Err: ErrNotSignedIn})
		return ErrNotSignedIn
	}
	if len(records) == 0 {
		return nil
	}

	now := c.now()
	log := c.log.WithField("user", user.UserID)

	if activeID != "" {
		if err := c.store.Update(ctx, user.UserID, activeID, records, strikes, now); err != nil {
			log.WithError(err).WithField("batch_id", activeID).Warn("failed to update batch")
			perr := &PersistenceError{Op: "update", Err: err}
			c.notifier.Notify(Notification{Level: LevelError, Message: MsgUpdateFailed, Err: perr})
			return perr
		}
		c.notifier.Notify(Notification{Level: LevelSuccess, Message: MsgUpdated})
		return nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBatchName(now)
	}
	id, err := c.store.Create(ctx, user.UserID, batch.Batch{
		Name:         name,
		Timestamp:    now,
		Records:      records,
		GroupStrikes: strikes,
	})
	if err != nil {
		log.WithError(err).Warn("failed to save batch")
		perr := &PersistenceError{Op: "save", Err: err}
		c.notifier.Notify(Notification{Level: LevelError, Message: MsgSaveFailed, Err: perr})
		return perr
	}

	// the saved batch only becomes active if the report is still the one saved
	c.mu.Lock()
	if !c.running && c.gen == gen {
		c.activeID = id
	}
	c.mu.Unlock()

	log.WithField("batch_id", id).Info("batch saved")
	c.notifier.Notify(Notification{Level: LevelSuccess, Message: MsgSaved})
	return nil
}

// DeleteBatch removes a saved batch. If it was the active one the report
// becomes unsaved again.
func (c *Controller) DeleteBatch(ctx context.Context, id string) error {
	user := c.Identity()
	if user.IsGuest() {
		c.notifier.Notify(Notification{Level: LevelError, Message: MsgSignIn, Err: ErrNotSignedIn})
		return ErrNotSignedIn
	}

	if err := c.store.Delete(ctx, user.UserID, id); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"user": user.UserID, "batch_id": id}).Warn("failed to delete batch")
		perr := &PersistenceError{Op: "delete", Err: err}
		c.notifier.Notify(Notification{Level: LevelError, Message: MsgDeleteFailed, Err: perr})
		return perr
	}

	c.mu.Lock()
	if c.activeID == id {
		c.activeID = ""
	}
	c.mu.Unlock()

	c.notifier.Notify(Notification{Level: LevelSuccess, Message: MsgDeleted})
	return nil
}
