package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/hajime-dev/devicekb/internal/repo"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
)

// VectorCleanupJob drops indexed chunks whose document record no longer
// exists. The index and the documents table are written in separate steps,
// so a crash between them can leave orphan vectors behind.
type VectorCleanupJob struct {
	devices *repo.DeviceRepo
	docs    *repo.DocumentRepo
	store   vectorstore.IStore
}

func NewVectorCleanupJob(devices *repo.DeviceRepo, docs *repo.DocumentRepo, store vectorstore.IStore) *VectorCleanupJob {
	return &VectorCleanupJob{devices: devices, docs: docs, store: store}
}

func (j *VectorCleanupJob) Name() string {
	return "vector_cleanup"
}

func (j *VectorCleanupJob) Run(ctx context.Context) error {
	if j.devices == nil || j.docs == nil || j.store == nil {
		return nil
	}
	devices, err := j.devices.List(ctx)
	if err != nil {
		return err
	}
	for i := range devices {
		if err := j.cleanDevice(ctx, &devices[i]); err != nil {
			logutil.GetLogger(ctx).Error("vector cleanup failed for device",
				zap.String("device_id", devices[i].ID), zap.Error(err))
		}
	}
	return nil
}

func (j *VectorCleanupJob) cleanDevice(ctx context.Context, device *model.Device) error {
	known, err := j.docs.ListIDsByDevice(ctx, device.ID)
	if err != nil {
		return err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}
	indexed, err := j.store.ListDocumentIDs(ctx, device.Namespace())
	if err != nil {
		return err
	}
	for _, id := range indexed {
		if _, ok := knownSet[id]; ok {
			continue
		}
		if err := j.store.DeleteDocument(ctx, device.Namespace(), id); err != nil {
			return err
		}
		logutil.GetLogger(ctx).Info("removed orphan document vectors",
			zap.String("device_id", device.ID), zap.String("document_id", id))
	}
	return nil
}
