package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/recommend"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// DefaultAutosaveDelay is the quiet period before a changed chat is saved.
const DefaultAutosaveDelay = 2 * time.Second

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being sent")
	ErrSuperseded   = errors.New("chat changed before the reply arrived")
	ErrClosed       = errors.New("chat controller closed")
	ErrEmptyTitle   = errors.New("title is empty")
)

// ChatAPI is the part of client.Client used for sending.
type ChatAPI interface {
	SendMessage(ctx context.Context, text string, history []models.HistoryItem) (*models.ChatReply, error)
	SendMessageWithImage(ctx context.Context, text string, image *models.Image, history []models.HistoryItem) (*models.ChatReply, error)
}

// IdentitySource reports who is signed in. AuthStateMachine implements it.
type IdentitySource interface {
	CurrentUser() *models.User
}

// ImageArchive keeps a copy of attached images. attachments.Archive
// implements it.
type ImageArchive interface {
	NewKey() string
	Put(ctx context.Context, key string, img *models.Image) error
}

// ChatOptions tune a ChatController. Zero values select defaults.
type ChatOptions struct {
	AutosaveDelay time.Duration
	// Archive, when set, receives every attached image.
	Archive   ImageArchive
	Heuristic recommend.Heuristic
	Now       func() time.Time
}

// ChatSnapshot is a copy of the controller's visible state.
type ChatSnapshot struct {
	SessionID       string
	Title           string
	Messages        []models.Message
	Recommendations []models.Recommendation
	// StagedImage is the name of the image attached to the next send.
	StagedImage string
	Busy        bool
}

// ChatController owns the active chat session.
type ChatController struct {
	api       ChatAPI
	store     sessions.Repository
	identity  IdentitySource
	archive   ImageArchive
	heuristic recommend.Heuristic
	delay     time.Duration
	now       func() time.Time
	logger    logging.Logger

	mu          sync.Mutex
	sessionID   string
	title       string
	titleSticky bool
	messages    []models.Message
	panel       []models.Recommendation
	image       *models.Image
	busy        bool
	gen         uint64
	owner       string
	closed      bool
	pending     *saveJob
	created     map[uint64]string

	// saveMu serializes writes to the store.
	saveMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewChatController returns a controller showing a new, empty chat.
func NewChatController(api ChatAPI, store sessions.Repository, identity IdentitySource, opts ChatOptions, logger logging.Logger) (*ChatController, error) {
	switch {
	case api == nil:
		return nil, fmt.Errorf("%w: chat api", common.ErrMissingDependency)
	case store == nil:
		return nil, fmt.Errorf("%w: session store", common.ErrMissingDependency)
	case identity == nil:
		return nil, fmt.Errorf("%w: identity source", common.ErrMissingDependency)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	c := &ChatController{
		api:       api,
		store:     store,
		identity:  identity,
		archive:   opts.Archive,
		heuristic: opts.Heuristic,
		delay:     opts.AutosaveDelay,
		now:       opts.Now,
		logger:    logger.With("component", "chat"),
		title:     common.DefaultChatTitle,
		messages:  []models.Message{},
		panel:     []models.Recommendation{},
		created:   make(map[uint64]string),
	}
	if c.delay <= 0 {
		c.delay = DefaultAutosaveDelay
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.heuristic.Now == nil {
		c.heuristic.Now = c.now
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

func (c *ChatController) stamp() string {
	return c.now().UTC().Format(timestampLayout)
}

// Snapshot returns a copy of the current state.
func (c *ChatController) Snapshot() ChatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := ChatSnapshot{
		SessionID:       c.sessionID,
		Title:           c.title,
		Messages:        append([]models.Message{}, c.messages...),
		Recommendations: append([]models.Recommendation{}, c.panel...),
		Busy:            c.busy,
	}
	if c.image != nil {
		s.StagedImage = c.image.Name
	}
	return s
}

// StartNewChat resets to an empty, unsaved chat. A pending save of the
// previous chat still runs.
func (c *ChatController) StartNewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushLocked()
	c.resetLocked()
	c.image = nil
}

func (c *ChatController) resetLocked() {
	c.gen++
	c.sessionID = ""
	c.title = common.DefaultChatTitle
	c.titleSticky = false
	c.messages = []models.Message{}
	c.panel = []models.Recommendation{}
}

// AttachImage stages img for the next send, replacing any staged image.
func (c *ChatController) AttachImage(img *models.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = img
}

// RemoveImage drops the staged image.
func (c *ChatController) RemoveImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
}

// SendMessage sends text (and the staged image, if any) and appends the
// reply. Empty input without an image yields ErrEmptyMessage and a send
// while another is in flight yields ErrBusy; neither changes anything.
//
// A failed API call is not an error for the caller: it appends an assistant
// message flagged IsError whose text comes from DescribeFailure. If the
// chat was switched or the controller closed while waiting, the reply is
// dropped and ErrSuperseded is returned.
func (c *ChatController) SendMessage(ctx context.Context, text string) (*models.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	img := c.image
	if strings.TrimSpace(text) == "" && img == nil {
		c.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	history := models.History(c.messages)
	userMsg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: c.stamp(),
		HasImage:  img != nil,
	}
	if img != nil && c.archive != nil {
		userMsg.ImageKey = c.archive.NewKey()
		c.archiveLocked(userMsg.ImageKey, img)
	}

	c.busy = true
	c.image = nil
	gen := c.gen
	c.appendLocked(userMsg)
	c.mu.Unlock()

	var reply *models.ChatReply
	var err error
	if img != nil {
		reply, err = c.api.SendMessageWithImage(ctx, text, img, history)
	} else {
		reply, err = c.api.SendMessage(ctx, text, history)
	}

	msg := models.Message{ID: uuid.NewString(), Role: models.RoleAssistant}
	if err != nil {
		c.logger.Warn(ctx, "chat request failed", "err", err)
		msg.Content = DescribeFailure(err)
		msg.Timestamp = c.stamp()
		msg.IsError = true
	} else {
		msg.Content = reply.Response
		msg.Timestamp = reply.Timestamp
		if msg.Timestamp == "" {
			msg.Timestamp = c.stamp()
		}
		msg.Recommendations = recommend.Merge(reply.Recommendations, c.heuristic.Suggest(text, reply.Response))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.busy = false
	if c.closed || c.gen != gen {
		c.logger.Debug(ctx, "reply dropped; chat switched")
		return nil, ErrSuperseded
	}
	c.appendLocked(msg)
	if !msg.IsError {
		c.panel = append([]models.Recommendation{}, msg.Recommendations...)
	}
	return &msg, nil
}

// archiveLocked uploads img in the background. Failures are logged only.
func (c *ChatController) archiveLocked(key string, img *models.Image) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.archive.Put(c.ctx, key, img); err != nil {
			c.logger.Warn(c.ctx, "image archive failed", "key", key, "err", err)
		}
	}()
}

func (c *ChatController) appendLocked(m models.Message) {
	c.messages = append(c.messages, m)
	if !c.titleSticky {
		c.title = DeriveTitle(c.messages)
	}
	c.scheduleSaveLocked()
}

// LoadSession replaces the active chat with s. The recommendation panel
// shows the list carried by the latest assistant message that has one.
// Loading does not schedule a save, so the stored updated_at is unchanged
// until the chat is continued.
func (c *ChatController) LoadSession(s models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushLocked()
	c.resetLocked()

	c.sessionID = s.ID
	if s.Title != "" {
		c.title = s.Title
	}
	c.titleSticky = c.title != common.DefaultChatTitle
	c.messages = append([]models.Message{}, s.Messages...)
	c.panel = lastRecommendations(c.messages)
}

// OpenSession makes the stored chat id the active chat, reading the current
// row from the store. Opening the active chat keeps its in-memory transcript,
// which may hold messages the store has not received yet.
func (c *ChatController) OpenSession(ctx context.Context, id string) error {
	c.mu.Lock()
	active := id != "" && id == c.sessionID
	c.mu.Unlock()
	if active {
		return nil
	}

	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.LoadSession(*s)
	return nil
}

func lastRecommendations(msgs []models.Message) []models.Recommendation {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == models.RoleAssistant && m.Recommendations != nil {
			return append([]models.Recommendation{}, m.Recommendations...)
		}
	}
	return []models.Recommendation{}
}

// ListSessions returns the signed-in user's chats, most recent first.
func (c *ChatController) ListSessions(ctx context.Context) ([]models.Session, error) {
	u := c.identity.CurrentUser()
	if u == nil {
		return nil, common.ErrNoUser
	}
	return c.store.ListByUser(ctx, u.ID)
}

// RenameSession stores a new title for session id right away. The active
// chat is saved with its current messages; any other chat keeps its stored
// messages. The local title changes only once the store accepted it, and
// then stays put when messages are added.
func (c *ChatController) RenameSession(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if id == "" {
		return common.ErrNotFound
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	active := id == c.sessionID
	msgs := append([]models.Message{}, c.messages...)
	gen := c.gen
	c.mu.Unlock()

	if !active {
		s, err := c.store.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load session %s: %w", id, err)
		}
		msgs = s.Messages
	}

	if _, err := c.store.Update(ctx, id, title, msgs); err != nil {
		c.logger.Error(ctx, "rename failed", "session_id", id, "err", err)
		return fmt.Errorf("rename session %s: %w", id, err)
	}

	c.mu.Lock()
	if c.gen == gen && c.sessionID == id {
		c.title = title
		c.titleSticky = true
	}
	c.mu.Unlock()
	return nil
}

// DeleteSession removes session id. Deleting the active chat resets to a
// new one and drops its pending save.
func (c *ChatController) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return common.ErrNotFound
	}

	c.saveMu.Lock()
	err := c.store.Delete(ctx, id)
	c.saveMu.Unlock()
	if err != nil {
		c.logger.Error(ctx, "delete failed", "session_id", id, "err", err)
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == id {
		c.dropPendingLocked()
		c.resetLocked()
	}
	return nil
}

// HandleAuthState follows the signed-in user. When the user signs out or
// changes, the chat is reset and its pending save dropped.
func (c *ChatController) HandleAuthState(st models.AuthState) {
	if st.Loading {
		return
	}
	uid := ""
	if st.User != nil {
		uid = st.User.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if uid == c.owner {
		return
	}
	prev := c.owner
	c.owner = uid
	if prev == "" {
		return
	}
	c.logger.Debug(c.ctx, "user changed; resetting chat", "signed_in", uid != "")
	c.dropPendingLocked()
	c.resetLocked()
	c.image = nil
}

// Close drops pending saves, cancels in-flight store and archive calls and
// waits for them to return. Later sends fail with ErrClosed.
func (c *ChatController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.dropPendingLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}
