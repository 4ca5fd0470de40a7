package services

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// saveJob is one scheduled autosave. Every message change replaces the
// pending job, so only the last change of a burst reaches the store.
type saveJob struct {
	gen       uint64
	userID    string
	sessionID string
	title     string
	messages  []models.Message
	timer     *time.Timer

	// superseded and taken are guarded by ChatController.mu.
	superseded bool
	taken      bool
}

// scheduleSaveLocked (re)starts the autosave countdown for the current chat.
// Nothing is scheduled without a signed-in user or without messages.
func (c *ChatController) scheduleSaveLocked() {
	if c.closed || len(c.messages) == 0 {
		return
	}
	u := c.identity.CurrentUser()
	if u == nil {
		return
	}

	c.dropPendingLocked()

	job := &saveJob{
		gen:       c.gen,
		userID:    u.ID,
		sessionID: c.sessionID,
		title:     c.title,
		messages:  append([]models.Message{}, c.messages...),
	}
	c.wg.Add(1)
	job.timer = time.AfterFunc(c.delay, func() { c.fire(job) })
	c.pending = job
}

// dropPendingLocked cancels the pending job without saving it.
func (c *ChatController) dropPendingLocked() {
	job := c.pending
	if job == nil {
		return
	}
	c.pending = nil
	job.superseded = true
	if job.timer.Stop() {
		c.wg.Done()
	}
}

// flushLocked saves the pending job now, in the background. Used when the
// active chat is about to be replaced.
func (c *ChatController) flushLocked() {
	job := c.pending
	if job == nil || c.closed {
		return
	}
	c.pending = nil
	job.taken = true

	c.wg.Add(1)
	if job.timer.Stop() {
		c.wg.Done()
	}
	go func() {
		defer c.wg.Done()
		c.persist(job)
	}()
}

func (c *ChatController) fire(job *saveJob) {
	defer c.wg.Done()

	c.mu.Lock()
	if job.superseded || job.taken || c.closed {
		c.mu.Unlock()
		return
	}
	job.taken = true
	if c.pending == job {
		c.pending = nil
	}
	c.mu.Unlock()

	c.persist(job)
}

// persist writes job to the store: an update once the chat has an id, a
// create otherwise. Failures are logged and dropped.
func (c *ChatController) persist(job *saveJob) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	ctx := c.ctx
	id, title := job.sessionID, job.title

	c.mu.Lock()
	if c.gen == job.gen {
		// a rename or an earlier create may have landed since scheduling
		id, title = c.sessionID, c.title
	}
	if id == "" {
		id = c.created[job.gen]
	}
	c.mu.Unlock()

	if id != "" {
		if _, err := c.store.Update(ctx, id, title, job.messages); err != nil {
			c.logger.Warn(ctx, "autosave failed", "session_id", id, "err", err)
			return
		}
		c.logger.Debug(ctx, "chat saved", "session_id", id, "messages", len(job.messages))
		return
	}

	s, err := c.store.Create(ctx, job.userID, title, job.messages)
	if err != nil {
		c.logger.Warn(ctx, "autosave failed", "err", err)
		return
	}
	c.logger.Debug(ctx, "chat created", "session_id", s.ID, "messages", len(job.messages))

	c.mu.Lock()
	c.created[job.gen] = s.ID
	if c.gen == job.gen && c.sessionID == "" {
		c.sessionID = s.ID
	}
	c.mu.Unlock()
}
