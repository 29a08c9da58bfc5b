package workspace

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docsummarizer/go-services/internal/apperr"
	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/chat"
	chatrepo "github.com/docsummarizer/go-services/internal/chat/repository"
	chatservice "github.com/docsummarizer/go-services/internal/chat/service"
	"github.com/docsummarizer/go-services/internal/document"
	docrepo "github.com/docsummarizer/go-services/internal/document/repository"
	docservice "github.com/docsummarizer/go-services/internal/document/service"
	"github.com/docsummarizer/go-services/internal/storage"
	"github.com/docsummarizer/go-services/internal/upload"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu      sync.Mutex
	id      auth.Identity
	err     error
	changes chan auth.Identity
}

func newFakeAuth(userID string) *fakeAuth {
	return &fakeAuth{id: auth.Identity{UserID: userID, Profile: auth.Profile{DisplayName: "User"}}, changes: make(chan auth.Identity, 1)}
}

func (f *fakeAuth) Identity() auth.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.id = auth.Identity{}
	f.changes <- f.id
	return nil
}

func (f *fakeAuth) Changes() <-chan auth.Identity { return f.changes }

// gatedResponder replies once release is closed.
type gatedResponder struct {
	release chan struct{}
	err     error
}

func (g *gatedResponder) Respond(ctx context.Context, doc *document.Document, q string) (chat.Message, error) {
	<-g.release
	if g.err != nil {
		return chat.Message{}, g.err
	}
	return chat.Message{Text: "answer to " + q, Sender: chat.SenderAssistant, Timestamp: time.Now()}, nil
}

// recordingStore counts transfers and can hold them until released.
type recordingStore struct {
	storage.ObjectStore
	mu      sync.Mutex
	uploads int
	hold    chan struct{}
	started chan struct{}
}

func (r *recordingStore) ResumableUpload(ctx context.Context, path string, rd io.Reader, size int64, ct string, p storage.ProgressFunc) (storage.Handle, error) {
	r.mu.Lock()
	r.uploads++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.hold != nil {
		<-r.hold
	}
	return r.ObjectStore.ResumableUpload(ctx, path, rd, size, ct, p)
}

type deleteFailRepo struct {
	docrepo.Repository
	inserts int
	fail    error
}

func (d *deleteFailRepo) Insert(ctx context.Context, doc *document.Document) (string, error) {
	d.inserts++
	return d.Repository.Insert(ctx, doc)
}

func (d *deleteFailRepo) Delete(ctx context.Context, id string) error {
	if d.fail != nil {
		return d.fail
	}
	return d.Repository.Delete(ctx, id)
}

type harness struct {
	ctrl      *Controller
	auth      *fakeAuth
	blobs     *recordingStore
	docs      *deleteFailRepo
	responder *gatedResponder
	atPersist []Snapshot
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		auth:      newFakeAuth("u1"),
		blobs:     &recordingStore{ObjectStore: storage.NewMemoryStorage("docs", 256<<10)},
		docs:      &deleteFailRepo{Repository: docrepo.NewMemoryRepo()},
		responder: &gatedResponder{release: make(chan struct{})},
	}
	p := upload.New(h.blobs, h.docs, upload.WithObserver(func(tr upload.Transition) {
		if tr.To == upload.Persisting {
			h.atPersist = append(h.atPersist, h.ctrl.Snapshot())
		}
	}))
	id := h.auth.Identity()
	h.ctrl = NewController(h.auth,
		docservice.NewDocumentStore(id, p, h.docs, h.blobs),
		chatservice.NewChatStore(id, chatrepo.NewMemoryRepo()),
		h.responder)
	require.NoError(t, h.ctrl.Load(context.Background()))
	t.Cleanup(func() {
		select {
		case <-h.responder.release:
		default:
			close(h.responder.release)
		}
		h.ctrl.Close()
	})
	return h
}

func textFile(name string, size int) document.File {
	return document.File{Name: name, MimeType: "text/plain", SizeBytes: int64(size), Content: bytes.NewReader(make([]byte, size))}
}

func TestEndToEndUploadMessageSave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.ctrl.Upload(ctx, textFile("notes.txt", 2<<20))
	require.NoError(t, err)
	require.Equal(t, 1, h.blobs.uploads)
	require.Equal(t, 1, h.docs.inserts)
	require.NotEmpty(t, d.ID)
	require.NotEmpty(t, d.URL)
	require.Equal(t, "notes.txt", d.Name)

	require.Len(t, h.atPersist, 1)
	require.Equal(t, 100.0, h.atPersist[0].UploadProgress)
	require.True(t, h.atPersist[0].Uploading)

	snap := h.ctrl.Snapshot()
	require.False(t, snap.Uploading)
	require.Zero(t, snap.UploadProgress)
	require.Len(t, snap.Documents, 1)

	require.NoError(t, h.ctrl.SelectDocument(d.ID))
	require.NoError(t, h.ctrl.SendMessage("Summarize page 1"))
	snap = h.ctrl.Snapshot()
	require.Len(t, snap.CurrentMessages, 1)
	require.Equal(t, chat.SenderUser, snap.CurrentMessages[0].Sender)

	id, err := h.ctrl.SaveChat(ctx)
	require.NoError(t, err)
	snap = h.ctrl.Snapshot()
	require.Len(t, snap.Chats, 1)
	require.Equal(t, id, snap.Chats[0].ID)
	require.Equal(t, "Chat about notes.txt", snap.Chats[0].Title)
	require.Equal(t, "Summarize page 1", snap.Chats[0].LastMessage)
	require.Equal(t, d.ID, snap.Chats[0].DocumentID)
}

func TestAssistantReplyArrivesAsynchronously(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d, err := h.ctrl.Upload(ctx, textFile("a.txt", 10))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SelectDocument(d.ID))

	require.NoError(t, h.ctrl.SendMessage("hello"))
	require.Len(t, h.ctrl.Snapshot().CurrentMessages, 1)

	close(h.responder.release)
	h.ctrl.Wait()
	msgs := h.ctrl.Snapshot().CurrentMessages
	require.Len(t, msgs, 2)
	require.Equal(t, chat.SenderAssistant, msgs[1].Sender)
	require.Equal(t, "answer to hello", msgs[1].Text)
}

func TestReplyFailureSetsError(t *testing.T) {
	h := newHarness(t)
	h.responder.err = errors.New("quota exceeded")
	d, err := h.ctrl.Upload(context.Background(), textFile("a.txt", 10))
	require.NoError(t, err)
	require.NoError(t, h.ctrl.SelectDocument(d.ID))
	require.NoError(t, h.ctrl.SendMessage("hello"))
	close(h.responder.release)
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	require.Equal(t, MsgReplyFailed, snap.LastError)
	require.Len(t, snap.CurrentMessages, 1)
}

func TestSendMessageGuards(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.ctrl.SendMessage("   "), ErrEmptyMessage)
	require.ErrorIs(t, h.ctrl.SendMessage("hi"), ErrNoSelection)
	require.ErrorIs(t, h.ctrl.SelectDocument("nope"), ErrUnknownDocument)
	require.Empty(t, h.ctrl.Snapshot().CurrentMessages)

	_, err := h.ctrl.SaveChat(context.Background())
	require.ErrorIs(t, err, ErrNothingToSave)
	require.Empty(t, h.ctrl.Snapshot().LastError)
}

func TestUploadValidationMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.Upload(ctx, document.File{Name: "big.pdf", MimeType: "application/pdf", SizeBytes: 6 << 20})
	require.True(t, apperr.Is(err, apperr.Validation))
	require.Equal(t, "File size should be less than 5MB", h.ctrl.Snapshot().LastError)

	_, err = h.ctrl.Upload(ctx, document.File{Name: "a.png", MimeType: "image/png", SizeBytes: 1})
	require.Error(t, err)
	require.Equal(t, "File type not supported. Please upload PDF, TXT, or DOC files.", h.ctrl.Snapshot().LastError)
	require.Equal(t, 0, h.blobs.uploads)

	// a new attempt clears the previous banner
	_, err = h.ctrl.Upload(ctx, textFile("ok.txt", 3))
	require.NoError(t, err)
	require.Empty(t, h.ctrl.Snapshot().LastError)
}

func TestUploadTransferFailureUsesGenericMessage(t *testing.T) {
	h := newHarness(t)
	f := textFile("short.txt", 10)
	f.SizeBytes = 20
	_, err := h.ctrl.Upload(context.Background(), f)
	require.True(t, apperr.Is(err, apperr.Transfer))
	snap := h.ctrl.Snapshot()
	require.Equal(t, MsgUploadFailed, snap.LastError)
	require.Empty(t, snap.Documents)
}

func TestSecondUploadRejectedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.blobs.hold = make(chan struct{})
	h.blobs.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Upload(context.Background(), textFile("a.txt", 10))
		done <- err
	}()
	<-h.blobs.started
	require.True(t, h.ctrl.Snapshot().Uploading)

	_, err := h.ctrl.Upload(context.Background(), textFile("b.txt", 10))
	require.ErrorIs(t, err, ErrUploadInProgress)

	close(h.blobs.hold)
	require.NoError(t, <-done)
	require.Len(t, h.ctrl.Snapshot().Documents, 1)
}

func TestDeleteConfirmationFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.ctrl.Upload(ctx, textFile("a.txt", 10))
	require.NoError(t, err)
	b, err := h.ctrl.Upload(ctx, textFile("b.txt", 10))
	require.NoError(t, err)

	require.False(t, h.ctrl.RequestDeleteDocument("stale"))
	require.False(t, h.ctrl.Snapshot().DeleteConfirmation.Pending)
	require.ErrorIs(t, h.ctrl.ConfirmDelete(ctx), ErrNoPendingDelete)

	require.True(t, h.ctrl.RequestDeleteDocument(a.ID))
	require.Equal(t, DeleteConfirmation{Pending: true, TargetID: a.ID, TargetName: "a.txt"}, h.ctrl.Snapshot().DeleteConfirmation)
	h.ctrl.CancelDelete()
	require.False(t, h.ctrl.Snapshot().DeleteConfirmation.Pending)
	require.Len(t, h.ctrl.Snapshot().Documents, 2)

	// deleting a document that is not selected keeps the thread
	require.NoError(t, h.ctrl.SelectDocument(b.ID))
	require.NoError(t, h.ctrl.SendMessage("about b"))
	require.True(t, h.ctrl.RequestDeleteDocument(a.ID))
	require.NoError(t, h.ctrl.ConfirmDelete(ctx))
	snap := h.ctrl.Snapshot()
	require.Equal(t, b.ID, snap.SelectedDocumentID)
	require.Len(t, snap.CurrentMessages, 1)
	require.Len(t, snap.Documents, 1)
	require.False(t, snap.DeleteConfirmation.Pending)

	// deleting the selected document clears selection and thread
	require.True(t, h.ctrl.RequestDeleteDocument(b.ID))
	require.NoError(t, h.ctrl.ConfirmDelete(ctx))
	snap = h.ctrl.Snapshot()
	require.Empty(t, snap.SelectedDocumentID)
	require.Empty(t, snap.CurrentMessages)
	require.Empty(t, snap.Documents)
}

func TestConfirmDeleteFailureStaysPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.ctrl.Upload(ctx, textFile("a.txt", 10))
	require.NoError(t, err)

	h.docs.fail = errors.New("unavailable")
	require.True(t, h.ctrl.RequestDeleteDocument(a.ID))
	require.Error(t, h.ctrl.ConfirmDelete(ctx))
	snap := h.ctrl.Snapshot()
	require.True(t, snap.DeleteConfirmation.Pending)
	require.Equal(t, MsgDeleteFailed, snap.LastError)
	require.Len(t, snap.Documents, 1)

	h.ctrl.DismissError()
	require.Empty(t, h.ctrl.Snapshot().LastError)
}

func TestLoadChatAndUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, _ := h.ctrl.Upload(ctx, textFile("a.txt", 10))
	b, _ := h.ctrl.Upload(ctx, textFile("b.txt", 10))

	require.NoError(t, h.ctrl.SelectDocument(a.ID))
	require.NoError(t, h.ctrl.SendMessage("first"))
	chatID, err := h.ctrl.SaveChat(ctx)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.SelectDocument(b.ID))
	require.NoError(t, h.ctrl.SetView(ViewChats))
	require.ErrorIs(t, h.ctrl.SetView("settings"), ErrUnknownView)

	require.NoError(t, h.ctrl.LoadChat(chatID))
	snap := h.ctrl.Snapshot()
	require.Equal(t, ViewDocuments, snap.View)
	require.Equal(t, a.ID, snap.SelectedDocumentID)
	require.Len(t, snap.CurrentMessages, 1)
	require.Equal(t, "first", snap.CurrentMessages[0].Text)

	require.NoError(t, h.ctrl.SendMessage("second"))
	require.NoError(t, h.ctrl.UpdateChat(ctx, chatID))
	saved := h.ctrl.Snapshot().Chats[0]
	require.Len(t, saved.Messages, 2)
	require.Equal(t, "second", saved.LastMessage)

	require.ErrorIs(t, h.ctrl.LoadChat("missing"), ErrUnknownChat)
	require.ErrorIs(t, h.ctrl.UpdateChat(ctx, "missing"), ErrUnknownChat)

	require.NoError(t, h.ctrl.DeleteChat(ctx, chatID))
	require.Empty(t, h.ctrl.Snapshot().Chats)
}

func TestSignOut(t *testing.T) {
	h := newHarness(t)
	h.auth.err = errors.New("network")
	err := h.ctrl.SignOut(context.Background())
	require.True(t, apperr.Is(err, apperr.Generic))
	require.Equal(t, MsgSignOutFailed, h.ctrl.Snapshot().LastError)

	h.auth.err = nil
	require.NoError(t, h.ctrl.SignOut(context.Background()))
	require.False(t, h.ctrl.Identity().SignedIn())
}
