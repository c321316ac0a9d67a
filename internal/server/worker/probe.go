package worker

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhowden/tag"
	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/logging"
	"github.com/dmitrijs2005/pontos/internal/server/models"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/repomanager"
	"github.com/gabriel-vasile/mimetype"
	"github.com/hibiken/asynq"
)

// probeBytes is how much of the object is fetched for inspection.
const probeBytes = 512 * 1024

// ObjectReader fetches the head of a stored object.
type ObjectReader interface {
	ReadPrefix(ctx context.Context, bucket, key string, n int64) ([]byte, error)
}

// ProbeWorker sniffs the stored bytes of an uploaded asset and records the
// detected type and tags. It never changes upload_status.
type ProbeWorker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	objects     ObjectReader
	log         logging.Logger
}

func NewProbeWorker(db *sql.DB, rm repomanager.RepositoryManager, objects ObjectReader, log logging.Logger) *ProbeWorker {
	return &ProbeWorker{db: db, repomanager: rm, objects: objects, log: log.With("component", "probe-worker")}
}

func (w *ProbeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ProbePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad probe payload: %v: %w", err, asynq.SkipRetry)
	}

	repo := w.repomanager.Audios(w.db)

	asset, err := repo.GetByID(ctx, p.PontoAudioID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("asset %s: %v: %w", p.PontoAudioID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if !asset.Finalized() {
		return fmt.Errorf("asset %s is %s: %w", asset.ID, asset.UploadStatus, asynq.SkipRetry)
	}

	data, err := w.objects.ReadPrefix(ctx, asset.Bucket, asset.Path, probeBytes)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("object %s/%s: %v: %w", asset.Bucket, asset.Path, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	result := Inspect(data)
	if err := repo.UpdateProbe(ctx, asset.ID, result); err != nil {
		return err
	}

	w.log.Info(ctx, "audio probed", "ponto_audio_id", asset.ID,
		"declared", asset.MimeType, "detected", result.DetectedMimeType, "title", result.Title)
	return nil
}

// Inspect detects the content type of data and reads whatever tags it
// carries. Tag failures leave the tag fields empty.
func Inspect(data []byte) models.ProbeResult {
	res := models.ProbeResult{DetectedMimeType: mimetype.Detect(data).String()}

	md, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return res
	}
	res.Title = md.Title()
	res.Artist = md.Artist()
	return res
}
