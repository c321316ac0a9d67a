package audios

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/cryptox"
	"github.com/dmitrijs2005/pontos/internal/dbx"
	"github.com/dmitrijs2005/pontos/internal/logging"
	sc "github.com/dmitrijs2005/pontos/internal/server/config"
	"github.com/dmitrijs2005/pontos/internal/server/models"
	audiorepo "github.com/dmitrijs2005/pontos/internal/server/repositories/audios"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/pontos"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pontos/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pontoID = "6f1c2a4e-0d7b-4b8e-9a53-1c2d3e4f5a6b"
	owner   = "user-1"
)

// -------- test fakes --------

type memAudios struct {
	audiorepo.Repository

	mu        sync.Mutex
	byID      map[string]*models.AudioAsset
	marks     int
	createErr error
	markErr   error
	// dropLocation makes MarkUploaded return a row without bucket/path.
	dropLocation bool
}

func newMemAudios() *memAudios {
	return &memAudios{byID: map[string]*models.AudioAsset{}}
}

func (m *memAudios) Create(ctx context.Context, a *models.AudioAsset) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAudios) GetByID(ctx context.Context, id string) (*models.AudioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAudios) GetByTokenHash(ctx context.Context, hash string) (*models.AudioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.UploadTokenHash == hash {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memAudios) MarkUploaded(ctx context.Context, id string, f models.FinalizeFields) (*models.AudioAsset, error) {
	if m.markErr != nil {
		return nil, m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.UploadStatus != models.UploadPending {
		return nil, common.ErrInvalidState
	}
	if f.SizeBytes != nil {
		a.SizeBytes = f.SizeBytes
	}
	if f.DurationMs != nil {
		a.DurationMs = f.DurationMs
	}
	if f.ContentETag != nil {
		a.ContentETag = f.ContentETag
	}
	if f.SHA256 != nil {
		a.SHA256 = f.SHA256
	}
	a.UploadStatus = models.UploadUploaded
	m.marks++

	out := &models.AudioAsset{ID: a.ID, Bucket: a.Bucket, Path: a.Path, UploadStatus: a.UploadStatus}
	if m.dropLocation {
		out.Bucket, out.Path = "", ""
	}
	return out, nil
}

func (m *memAudios) get(t *testing.T, id string) *models.AudioAsset {
	t.Helper()
	a, err := m.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

type fakePontos struct {
	pontos.Repository
	known map[string]bool
	err   error
}

func (f *fakePontos) Exists(ctx context.Context, id string) (bool, error) {
	return f.known[id], f.err
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	p *fakePontos
	a *memAudios
}

func (m *fakeRepoManager) Pontos(db dbx.DBTX) pontos.Repository    { return m.p }
func (m *fakeRepoManager) Audios(db dbx.DBTX) audiorepo.Repository { return m.a }

type fakeStorage struct {
	mu         sync.Mutex
	presignErr error
	head       *storage.ObjectInfo
	headErr    error
	heads      int
}

func (f *fakeStorage) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (*storage.SignedUpload, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return &storage.SignedUpload{
		URL:       "http://minio/" + bucket + "/" + key,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (f *fakeStorage) Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads++
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.head == nil {
		return &storage.ObjectInfo{SizeBytes: 1}, nil
	}
	return f.head, nil
}

type fakeProbes struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeProbes) EnqueueProbe(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return f.err
}

// -------- helpers --------

type fixture struct {
	svc    *Service
	audios *memAudios
	store  *fakeStorage
	probes *fakeProbes
	cfg    *sc.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.VerifyOnComplete = false

	f := &fixture{
		audios: newMemAudios(),
		store:  &fakeStorage{},
		probes: &fakeProbes{},
		cfg:    cfg,
	}
	rm := &fakeRepoManager{p: &fakePontos{known: map[string]bool{pontoID: true}}, a: f.audios}
	f.svc = NewService(nil, rm, f.store, f.probes, cfg, logging.Nop{})
	return f
}

func (f *fixture) init(t *testing.T) *InitUploadOutput {
	t.Helper()
	out, err := f.svc.InitUpload(context.Background(), owner, InitUploadInput{
		PontoID:         pontoID,
		InterpreterName: "  Maria ",
		MimeType:        "audio/mpeg",
	})
	require.NoError(t, err)
	return out
}

func i64(v int64) *int64 { return &v }

// -------- InitUpload --------

func TestInitUpload_CreatesPendingAsset(t *testing.T) {
	f := newFixture(t)

	out := f.init(t)

	assert.Equal(t, "ponto-audios", out.Bucket)
	assert.True(t, strings.HasPrefix(out.Path, "pontos/"+pontoID+"/"+out.AssetID))
	assert.True(t, strings.HasSuffix(out.Path, ".mp3"))
	assert.Len(t, out.UploadToken, cryptox.UploadTokenBytes*2)
	assert.Equal(t, "PUT", out.Upload.Method)
	assert.Equal(t, "audio/mpeg", out.Upload.Headers["Content-Type"])

	a := f.audios.get(t, out.AssetID)
	assert.Equal(t, models.UploadPending, a.UploadStatus)
	assert.Equal(t, "Maria", a.InterpreterName)
	assert.Equal(t, owner, a.CreatedBy)
	assert.True(t, a.IsActive)
	assert.Equal(t, cryptox.DigestToken(out.UploadToken), a.UploadTokenHash)
	assert.NotEqual(t, out.UploadToken, a.UploadTokenHash)
}

func TestInitUpload_PathsAndTokensAreUnique(t *testing.T) {
	f := newFixture(t)

	first := f.init(t)
	second := f.init(t)

	assert.NotEqual(t, first.Path, second.Path)
	assert.NotEqual(t, first.UploadToken, second.UploadToken)
	assert.NotEqual(t, first.AssetID, second.AssetID)
}

func TestInitUpload_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		in      InitUploadInput
		wantErr error
	}{
		{
			name:    "anonymous",
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "Maria", MimeType: "audio/mpeg"},
			wantErr: common.ErrorUnauthorized,
		},
		{
			name:    "blank interpreter",
			userID:  owner,
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "   ", MimeType: "audio/mpeg"},
			wantErr: common.ErrValidation,
		},
		{
			name:    "missing mime",
			userID:  owner,
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "Maria"},
			wantErr: common.ErrValidation,
		},
		{
			name:    "not audio",
			userID:  owner,
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "Maria", MimeType: "image/png"},
			wantErr: common.ErrValidation,
		},
		{
			name:    "bad ponto id",
			userID:  owner,
			in:      InitUploadInput{PontoID: "song-1", InterpreterName: "Maria", MimeType: "audio/mpeg"},
			wantErr: common.ErrValidation,
		},
		{
			name:    "unknown ponto",
			userID:  owner,
			in:      InitUploadInput{PontoID: "00000000-0000-0000-0000-000000000001", InterpreterName: "Maria", MimeType: "audio/mpeg"},
			wantErr: common.ErrValidation,
		},
		{
			name:    "too large",
			userID:  owner,
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "Maria", MimeType: "audio/mpeg", SizeBytes: i64(common.MaxAudioSizeBytes + 1)},
			wantErr: common.ErrPayloadTooLarge,
		},
		{
			name:    "negative size",
			userID:  owner,
			in:      InitUploadInput{PontoID: pontoID, InterpreterName: "Maria", MimeType: "audio/mpeg", SizeBytes: i64(-1)},
			wantErr: common.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.InitUpload(context.Background(), tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.audios.byID)
		})
	}
}

func TestInitUpload_AcceptsMimeParameters(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.InitUpload(context.Background(), owner, InitUploadInput{
		PontoID: pontoID, InterpreterName: "Maria", MimeType: "Audio/MPEG; rate=44100", SizeBytes: i64(common.MaxAudioSizeBytes),
	})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", f.audios.get(t, out.AssetID).MimeType)
}

func TestInitUpload_PresignFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.presignErr = errors.New("no signer")

	_, err := f.svc.InitUpload(context.Background(), owner, InitUploadInput{
		PontoID: pontoID, InterpreterName: "Maria", MimeType: "audio/mpeg",
	})
	require.Error(t, err)
	assert.Empty(t, f.audios.byID)
}

// -------- CompleteUpload --------

func TestCompleteUpload_TransitionsPendingRow(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)

	out, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{
		UploadToken: session.UploadToken,
		SizeBytes:   i64(204800),
		DurationMs:  i64(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, session.AssetID, out.AssetID)
	assert.Equal(t, session.Bucket, out.Bucket)
	assert.Equal(t, session.Path, out.Path)
	assert.Equal(t, models.UploadUploaded, out.UploadStatus)
	assert.False(t, out.AlreadyUploaded)

	a := f.audios.get(t, session.AssetID)
	assert.Equal(t, models.UploadUploaded, a.UploadStatus)
	assert.Equal(t, int64(204800), *a.SizeBytes)
	assert.Equal(t, int64(5000), *a.DurationMs)
	assert.Equal(t, []string{session.AssetID}, f.probes.ids)
}

func TestCompleteUpload_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)
	in := CompleteInput{UploadToken: session.UploadToken, SizeBytes: i64(10)}

	first, err := f.svc.CompleteUpload(context.Background(), owner, in)
	require.NoError(t, err)
	second, err := f.svc.CompleteUpload(context.Background(), owner, in)
	require.NoError(t, err)

	assert.Equal(t, first.Bucket, second.Bucket)
	assert.Equal(t, first.Path, second.Path)
	assert.True(t, second.AlreadyUploaded)
	assert.Equal(t, 1, f.audios.marks)
	assert.Len(t, f.probes.ids, 1)
}

func TestCompleteUpload_Ownership(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)

	_, err := f.svc.CompleteUpload(context.Background(), "intruder", CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	require.NoError(t, err)

	// still forbidden once finalized
	_, err = f.svc.CompleteUpload(context.Background(), "intruder", CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, 1, f.audios.marks)
}

func TestCompleteUpload_Errors(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	_, err := f.svc.CompleteUpload(context.Background(), "", CompleteInput{UploadToken: "x"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: "  "})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: "unknown-token"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: "x", DurationMs: i64(-5)})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCompleteUpload_NonPendingIsInvalidState(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)
	f.audios.byID[session.AssetID].UploadStatus = models.UploadFailed

	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrInvalidState)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCompleteUpload_PathConflict(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)
	f.audios.markErr = common.ErrStoragePathTaken

	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrStoragePathTaken)
	assert.Empty(t, f.probes.ids)
}

func TestCompleteUpload_MissingLocationAfterUpdate(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)
	f.audios.dropLocation = true

	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestCompleteUpload_EnqueueFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)
	f.probes.err = errors.New("redis down")

	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	require.NoError(t, err)
}

func TestCompleteUpload_VerifiesObject(t *testing.T) {
	f := newFixture(t)
	f.cfg.VerifyOnComplete = true
	session := f.init(t)

	f.store.headErr = common.ErrorNotFound
	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken})
	assert.ErrorIs(t, err, common.ErrStorageObjectMissing)
	assert.Equal(t, models.UploadPending, f.audios.get(t, session.AssetID).UploadStatus)

	f.store.headErr = nil
	f.store.head = &storage.ObjectInfo{SizeBytes: 777, ETag: `"abc"`}
	_, err = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken, DurationMs: i64(1200)})
	require.NoError(t, err)

	a := f.audios.get(t, session.AssetID)
	assert.Equal(t, int64(777), *a.SizeBytes)
	assert.Equal(t, `"abc"`, *a.ContentETag)
	assert.Equal(t, int64(1200), *a.DurationMs)
}

func TestCompleteUpload_ClientSizeWinsOverHead(t *testing.T) {
	f := newFixture(t)
	f.cfg.VerifyOnComplete = true
	f.store.head = &storage.ObjectInfo{SizeBytes: 777}
	session := f.init(t)

	_, err := f.svc.CompleteUpload(context.Background(), owner, CompleteInput{UploadToken: session.UploadToken, SizeBytes: i64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), *f.audios.get(t, session.AssetID).SizeBytes)
}

func TestCompleteUpload_ConcurrentFirstFinalize(t *testing.T) {
	f := newFixture(t)
	session := f.init(t)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*CompleteOutput, callers)
	errs := make([]error, callers)

	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.svc.CompleteUpload(context.Background(), owner, CompleteInput{
				UploadToken: session.UploadToken,
				SizeBytes:   i64(int64(100 + i)),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	fresh := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], fmt.Sprintf("caller %d", i))
		assert.Equal(t, session.Path, results[i].Path)
		if !results[i].AlreadyUploaded {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, f.audios.marks)
}
