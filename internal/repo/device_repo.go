package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/hajime-dev/devicekb/internal/pkg/dbutil"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
)

type DeviceRepo struct {
	db *sql.DB
}

func NewDeviceRepo(db *sql.DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

var deviceFields = []string{"id", "name", "description", "ctime"}

func (r *DeviceRepo) Create(ctx context.Context, device *model.Device) error {
	data := map[string]interface{}{
		"id":          device.ID,
		"name":        device.Name,
		"description": device.Description,
		"ctime":       device.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("devices", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*model.Device, error) {
	sqlStr, args, err := builder.BuildSelect("devices", map[string]interface{}{"id": id}, deviceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var device model.Device
	if err := row.Scan(&device.ID, &device.Name, &device.Description, &device.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepo) List(ctx context.Context) ([]model.Device, error) {
	sqlStr, args, err := builder.BuildSelect("devices", map[string]interface{}{"_orderby": "ctime desc"}, deviceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var devices []model.Device
	for rows.Next() {
		var device model.Device
		if err := rows.Scan(&device.ID, &device.Name, &device.Description, &device.Ctime); err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("devices", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
