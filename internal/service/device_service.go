package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/model"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/repo"
	"github.com/hajime-dev/devicekb/internal/vectorstore"
)

type DeviceService struct {
	devices *repo.DeviceRepo
	docs    *repo.DocumentRepo
	chats   *repo.ChatRepo
	store   vectorstore.IStore
}

func NewDeviceService(devices *repo.DeviceRepo, docs *repo.DocumentRepo, chats *repo.ChatRepo, store vectorstore.IStore) *DeviceService {
	return &DeviceService{devices: devices, docs: docs, chats: chats, store: store}
}

func (s *DeviceService) Create(ctx context.Context, name, description string) (*model.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	device := &model.Device{
		ID:          newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Ctime:       time.Now().UnixMilli(),
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *DeviceService) Get(ctx context.Context, id string) (*model.Device, error) {
	return s.devices.Get(ctx, id)
}

func (s *DeviceService) List(ctx context.Context) ([]model.Device, error) {
	return s.devices.List(ctx)
}

// Delete removes the device and everything scoped to it: document records,
// chat history and the whole vector namespace. Stored files stay behind
// for manual cleanup.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	device, err := s.devices.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNamespace(ctx, device.Namespace()); err != nil {
		return err
	}
	docs, err := s.docs.ListByDevice(ctx, id)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.docs.Delete(ctx, doc.ID); err != nil {
			logutil.GetLogger(ctx).Error("delete document record failed",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	if err := s.chats.DeleteByDevice(ctx, id); err != nil {
		return err
	}
	return s.devices.Delete(ctx, id)
}
