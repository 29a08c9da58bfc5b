// Package workspace holds the per-user session controller: the selected
// document, the message thread being written, upload progress, the delete
// confirmation dialog and the single user-visible error.
package workspace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/answer"
	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/chat"
	chatservice "github.com/docsummarizer/go-services/internal/chat/service"
	"github.com/docsummarizer/go-services/internal/document"
	docservice "github.com/docsummarizer/go-services/internal/document/service"
	"github.com/docsummarizer/go-services/internal/mirror"
	"github.com/docsummarizer/go-services/pkg/logger"
)

type View string

const (
	ViewDocuments View = "documents"
	ViewChats     View = "chats"
)

const (
	MsgUploadFailed  = "Failed to upload document. Please try again."
	MsgDeleteFailed  = "Failed to delete document. Please try again."
	MsgSaveFailed    = "Failed to save chat. Please try again."
	MsgDeleteChat    = "Failed to delete chat. Please try again."
	MsgUpdateChat    = "Failed to update chat. Please try again."
	MsgSignOutFailed = "Failed to sign out. Please try again."
	MsgReplyFailed   = "Failed to get a response. Please try again."
	MsgLinkFailed    = "Failed to open document. Please try again."
)

var (
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNoSelection      = errors.New("no document selected")
	ErrNothingToSave    = errors.New("no messages to save")
	ErrUnknownDocument  = errors.New("document not in workspace")
	ErrUnknownChat      = errors.New("chat not in workspace")
	ErrNoPendingDelete  = errors.New("no delete awaiting confirmation")
	ErrUnknownView      = errors.New("unknown view")
)

// DeleteConfirmation is Closed when Pending is false.
type DeleteConfirmation struct {
	Pending    bool   `json:"pending"`
	TargetID   string `json:"targetId,omitempty"`
	TargetName string `json:"targetName,omitempty"`
}

type Snapshot struct {
	Identity           auth.Identity        `json:"identity"`
	View               View                 `json:"view"`
	SelectedDocumentID string               `json:"selectedDocumentId,omitempty"`
	CurrentMessages    []chat.Message       `json:"currentMessages"`
	Uploading          bool                 `json:"uploading"`
	UploadProgress     float64              `json:"uploadProgress"`
	DeleteConfirmation DeleteConfirmation   `json:"deleteConfirmation"`
	LastError          string               `json:"lastError,omitempty"`
	Documents          []*document.Document `json:"documents"`
	Chats              []*chat.Chat         `json:"chats"`
	DocumentsStatus    mirror.Status        `json:"documentsStatus"`
	ChatsStatus        mirror.Status        `json:"chatsStatus"`
}

type Controller struct {
	auth      auth.Authenticator
	docs      *docservice.DocumentStore
	chats     *chatservice.ChatStore
	responder answer.Responder
	now       func() time.Time

	mu        sync.Mutex
	view      View
	selected  string
	messages  []chat.Message
	uploading bool
	progress  float64
	confirm   DeleteConfirmation
	lastError string

	replies   sync.WaitGroup
	replyCtx  context.Context
	stopReply context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func NewController(a auth.Authenticator, docs *docservice.DocumentStore, chats *chatservice.ChatStore, r answer.Responder) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		auth:      a,
		docs:      docs,
		chats:     chats,
		responder: r,
		now:       time.Now,
		view:      ViewDocuments,
		messages:  []chat.Message{},
		replyCtx:  ctx,
		stopReply: cancel,
		done:      make(chan struct{}),
	}
}

// Load fills both mirrors. Each store keeps its own load error.
func (c *Controller) Load(ctx context.Context) error {
	_, derr := c.docs.Load(ctx)
	_, cerr := c.chats.Load(ctx)
	return errors.Join(derr, cerr)
}

func (c *Controller) Identity() auth.Identity { return c.auth.Identity() }

func (c *Controller) SelectDocument(id string) error {
	if _, ok := c.docs.Find(id); !ok {
		return ErrUnknownDocument
	}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	return nil
}

// DocumentLink resolves a download URL for a document in the workspace.
func (c *Controller) DocumentLink(ctx context.Context, id string) (docservice.Link, error) {
	d, ok := c.docs.Find(id)
	if !ok {
		return docservice.Link{}, ErrUnknownDocument
	}
	link, err := c.docs.Link(ctx, d)
	if err != nil {
		c.setError(MsgLinkFailed)
		return docservice.Link{}, err
	}
	return link, nil
}

// Upload runs one upload at a time. Validation failures surface their own
// message; every other failure gets the generic upload message.
func (c *Controller) Upload(ctx context.Context, f document.File) (*document.Document, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	c.uploading = true
	c.lastError = ""
	c.progress = 0
	c.mu.Unlock()

	d, err := c.docs.Add(ctx, f, func(pct float64) {
		c.mu.Lock()
		c.progress = pct
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	c.progress = 0
	if err != nil {
		c.lastError = uploadMessage(err)
		return nil, err
	}
	return d, nil
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, document.ErrFileTooLarge):
		return document.ErrFileTooLarge.Error()
	case errors.Is(err, document.ErrUnsupportedType):
		return document.ErrUnsupportedType.Error()
	}
	return MsgUploadFailed
}

// SendMessage appends the user's message right away and asks the responder
// for a reply in the background. The reply lands on whatever thread is
// current when it arrives.
func (c *Controller) SendMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	if c.selected == "" {
		c.mu.Unlock()
		return ErrNoSelection
	}
	selected := c.selected
	c.messages = append(c.messages, chat.Message{Text: text, Sender: chat.SenderUser, Timestamp: c.now().UTC()})
	c.mu.Unlock()

	if c.responder == nil {
		return nil
	}
	doc, _ := c.docs.Find(selected)
	c.replies.Add(1)
	go func() {
		defer c.replies.Done()
		msg, err := c.responder.Respond(c.replyCtx, doc, text)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warnf("reply for document %s: %v", selected, err)
				c.lastError = MsgReplyFailed
			}
			return
		}
		c.messages = append(c.messages, msg)
	}()
	return nil
}

// Wait blocks until every pending reply has landed.
func (c *Controller) Wait() { c.replies.Wait() }

// SaveChat stores the current thread as a new chat about the selected
// document and returns its id.
func (c *Controller) SaveChat(ctx context.Context) (string, error) {
	c.mu.Lock()
	msgs := chat.CloneMessages(c.messages)
	selected := c.selected
	c.mu.Unlock()

	if len(msgs) == 0 || selected == "" {
		return "", ErrNothingToSave
	}
	doc, ok := c.docs.Find(selected)
	if !ok {
		return "", ErrUnknownDocument
	}
	id, err := c.chats.Add(ctx, chat.Draft{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Title:        "Chat about " + doc.Name,
		Messages:     msgs,
		LastMessage:  chat.LastText(msgs),
		Timestamp:    c.now().UTC(),
	})
	if err != nil {
		c.setError(MsgSaveFailed)
		return "", err
	}
	return id, nil
}

// UpdateChat writes the current thread into an existing saved chat.
func (c *Controller) UpdateChat(ctx context.Context, chatID string) error {
	if _, ok := c.chats.Find(chatID); !ok {
		return ErrUnknownChat
	}
	c.mu.Lock()
	msgs := chat.CloneMessages(c.messages)
	c.mu.Unlock()
	if len(msgs) == 0 {
		return ErrNothingToSave
	}
	if err := c.chats.Update(ctx, chatID, msgs, chat.LastText(msgs)); err != nil {
		c.setError(MsgUpdateChat)
		return err
	}
	return nil
}

// LoadChat replaces the selection and thread with the saved chat and goes
// back to the documents view.
func (c *Controller) LoadChat(chatID string) error {
	saved, ok := c.chats.Find(chatID)
	if !ok {
		return ErrUnknownChat
	}
	c.mu.Lock()
	c.selected = saved.DocumentID
	c.messages = chat.CloneMessages(saved.Messages)
	c.view = ViewDocuments
	c.mu.Unlock()
	return nil
}

func (c *Controller) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.chats.Remove(ctx, chatID); err != nil {
		c.setError(MsgDeleteChat)
		return err
	}
	return nil
}

// RequestDeleteDocument opens the confirmation for a document in the mirror.
// Stale ids are ignored and report false.
func (c *Controller) RequestDeleteDocument(id string) bool {
	d, ok := c.docs.Find(id)
	if !ok {
		return false
	}
	c.mu.Lock()
	c.confirm = DeleteConfirmation{Pending: true, TargetID: d.ID, TargetName: d.Name}
	c.mu.Unlock()
	return true
}

// ConfirmDelete removes the pending target. On failure the dialog stays open
// so the user can retry or cancel.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	pending := c.confirm
	c.mu.Unlock()
	if !pending.Pending {
		return ErrNoPendingDelete
	}
	if err := c.docs.Remove(ctx, pending.TargetID); err != nil {
		c.setError(MsgDeleteFailed)
		return err
	}
	c.mu.Lock()
	if c.selected == pending.TargetID {
		c.selected = ""
		c.messages = []chat.Message{}
	}
	c.confirm = DeleteConfirmation{}
	c.mu.Unlock()
	return nil
}

func (c *Controller) CancelDelete() {
	c.mu.Lock()
	c.confirm = DeleteConfirmation{}
	c.mu.Unlock()
}

func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		logger.Warnf("sign out: %v", err)
		c.setError(MsgSignOutFailed)
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.GenericErr("sign out", err)
		}
		return err
	}
	c.stopReply()
	return nil
}

func (c *Controller) SetView(v View) error {
	if v != ViewDocuments && v != ViewChats {
		return ErrUnknownView
	}
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	return nil
}

func (c *Controller) DismissError() { c.setError("") }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		View:               c.view,
		SelectedDocumentID: c.selected,
		CurrentMessages:    chat.CloneMessages(c.messages),
		Uploading:          c.uploading,
		UploadProgress:     c.progress,
		DeleteConfirmation: c.confirm,
		LastError:          c.lastError,
	}
	c.mu.Unlock()
	if s.CurrentMessages == nil {
		s.CurrentMessages = []chat.Message{}
	}
	s.Identity = c.auth.Identity()
	s.Documents = c.docs.Documents()
	s.Chats = c.chats.Chats()
	s.DocumentsStatus = c.docs.Status()
	s.ChatsStatus = c.chats.Status()
	return s
}

// Close abandons pending replies and waits for their goroutines.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.stopReply()
		c.replies.Wait()
		close(c.done)
	})
}

// Done is closed once Close has finished.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}
