package dao

import (
	"context"

	"github.com/naiba/uptime/model"
)

func (s *Store) FindChannelsByIds(ctx context.Context, ids []uint64) ([]model.NotificationChannel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var channels []model.NotificationChannel
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&channels).Error
	return channels, translate(err)
}

func (s *Store) SaveChannel(ctx context.Context, n *model.NotificationChannel) error {
	return translate(s.db.WithContext(ctx).Save(n).Error)
}
