package uploader

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/pontos/internal/client/models"
	"github.com/dmitrijs2005/pontos/internal/client/probe"
	"github.com/dmitrijs2005/pontos/internal/client/transfer"
)

type fakeBackend struct {
	mu sync.Mutex

	initCalls     int
	completeCalls int
	submitCalls   int
	lastInit      models.InitUploadRequest
	lastComplete  models.CompleteUploadRequest
	lastSubmit    models.CreateSubmissionRequest

	initGate  chan struct{}
	initErr   error
	finErr    error
	submitErr error
}

func (f *fakeBackend) InitUpload(ctx context.Context, req models.InitUploadRequest) (*models.InitUploadResponse, error) {
	f.mu.Lock()
	f.initCalls++
	n := f.initCalls
	f.lastInit = req
	gate := f.initGate
	err := f.initErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	token := "tok-1"
	if n > 1 {
		token = "tok-2"
	}
	return &models.InitUploadResponse{
		PontoAudioID: "a1",
		Bucket:       "ponto-audios",
		Path:         "pontos/p1/a1.mp3",
		UploadToken:  token,
		Upload:       models.SignedUpload{URL: "http://s3/put", Method: "PUT"},
	}, nil
}

func (f *fakeBackend) CompleteUpload(ctx context.Context, req models.CompleteUploadRequest) (*models.CompleteUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	f.lastComplete = req
	if f.finErr != nil {
		return nil, f.finErr
	}
	return &models.CompleteUploadResponse{OK: true, PontoAudioID: "a1", Bucket: "ponto-audios", Path: "pontos/p1/a1.mp3", UploadStatus: "uploaded"}, nil
}

func (f *fakeBackend) CreateSubmission(ctx context.Context, req models.CreateSubmissionRequest) (*models.SubmissionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.lastSubmit = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.SubmissionResponse{SubmissionID: "s1", PontoAudioID: req.PontoAudioID, Status: "pending", Created: true}, nil
}

type fakeTransfer struct {
	mu    sync.Mutex
	calls int
	err   error
	steps []int64
	total int64
}

func (f *fakeTransfer) UploadBytes(ctx context.Context, up models.SignedUpload, path, mimeType string, onProgress transfer.Progress) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	for _, s := range f.steps {
		onProgress(s, f.total)
	}
	return f.err
}

func fixedProbe(info probe.Info) func(string) probe.Info {
	return func(string) probe.Info { return info }
}
