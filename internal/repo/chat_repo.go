package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/hajime-dev/devicekb/internal/model"
	"github.com/hajime-dev/devicekb/internal/pkg/dbutil"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Append(ctx context.Context, deviceID string, msg *model.ChatMessage) error {
	data := map[string]interface{}{
		"device_id": deviceID,
		"role":      msg.Role,
		"content":   msg.Content,
		"ctime":     msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("chat_messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListRecent returns the newest limit messages in chronological order.
func (r *ChatRepo) ListRecent(ctx context.Context, deviceID string, limit int) ([]model.ChatMessage, error) {
	where := map[string]interface{}{
		"device_id": deviceID,
		"_orderby":  "ctime desc",
		"_limit":    []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("chat_messages", where, []string{"role", "content", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Ctime); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *ChatRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	sqlStr, args, err := builder.BuildDelete("chat_messages", map[string]interface{}{"device_id": deviceID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
