package postgres

import (
	"context"

	"live-shopping/internal/biddingerrors"
	model "live-shopping/internal/models"
)

const (
	showColumns    = `id, title, description, category, status, start_time, host_id, cover_image, created_at`
	itemColumns    = `id, show_id, title, description, start_price, image_url, status, created_at`
	messageColumns = `id, show_id, user_id, text, type, created_at`
)

func (s *Store) CreateShow(ctx context.Context, show model.Show) (model.Show, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	show.StartTime = dbTimePtr(show.StartTime)
	show.CreatedAt = dbTime(show.CreatedAt)
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO shows (`+showColumns+`)
		 VALUES (:id, :title, :description, :category, :status, :start_time, :host_id, :cover_image, :created_at)`,
		show,
	)
	if err != nil {
		return model.Show{}, storeErr("creating show", err, nil)
	}
	return show, nil
}

func (s *Store) GetShow(ctx context.Context, showID string) (model.Show, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var show model.Show
	err := s.db.GetContext(ctx, &show, `SELECT `+showColumns+` FROM shows WHERE id = $1`, showID)
	if err != nil {
		return model.Show{}, storeErr("getting show "+showID, err, biddingerrors.ErrShowNotFound)
	}
	return show, nil
}

func (s *Store) ListShows(ctx context.Context, status model.ShowStatus, limit int) ([]model.Show, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	shows := []model.Show{}
	err := s.db.SelectContext(ctx, &shows,
		`SELECT `+showColumns+` FROM shows
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`,
		string(status), limitOrAll(limit),
	)
	if err != nil {
		return nil, storeErr("listing shows", err, nil)
	}
	return shows, nil
}

func (s *Store) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	item.CreatedAt = dbTime(item.CreatedAt)
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (:id, :show_id, :title, :description, :start_price, :image_url, :status, :created_at)`,
		item,
	)
	if err != nil {
		return model.Item{}, storeErr("creating item", err, nil)
	}
	return item, nil
}

func (s *Store) ListItemsByShow(ctx context.Context, showID string, limit int) ([]model.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items := []model.Item{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items WHERE show_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`,
		showID, limitOrAll(limit),
	)
	if err != nil {
		return nil, storeErr("listing items for show "+showID, err, nil)
	}
	return items, nil
}

func (s *Store) CreateMessage(ctx context.Context, m model.Message) (model.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m.CreatedAt = dbTime(m.CreatedAt)
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`)
		 VALUES (:id, :show_id, :user_id, :text, :type, :created_at)`,
		m,
	)
	if err != nil {
		return model.Message{}, storeErr("creating message", err, nil)
	}
	return m, nil
}

// ListMessagesByShow returns the latest limit messages, oldest first.
func (s *Store) ListMessagesByShow(ctx context.Context, showID string, limit int) ([]model.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	messages := []model.Message{}
	err := s.db.SelectContext(ctx, &messages,
		`SELECT `+messageColumns+` FROM (
		     SELECT `+messageColumns+` FROM messages WHERE show_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) latest
		 ORDER BY created_at ASC, id ASC`,
		showID, limitOrAll(limit),
	)
	if err != nil {
		return nil, storeErr("listing messages for show "+showID, err, nil)
	}
	return messages, nil
}
