package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// FindActiveByUserIDは作成しない版。無ければErrNotFound。
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 行ロック付き。チェックアウトの二重送信をここで直列化する。
	FindActiveByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
	// ACTIVEからの遷移だけ成功する。すでに閉じていればErrNotFound。
	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	// Clearは明細だけ消す。カート本体のstatusは触らない。
	Clear(ctx context.Context, cartID int64) error
}
