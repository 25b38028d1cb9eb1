package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naiba/uptime/model"
)

var (
	ErrUnknownChannelType = errors.New("unknown notification channel type")
	ErrMissingTarget      = errors.New("notification channel has no target configured")
)

type Store interface {
	FindChannelsByIds(ctx context.Context, ids []uint64) ([]model.NotificationChannel, error)
}

type Sender interface {
	Send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error
}

// Delivery 单个渠道的投递结果
type Delivery struct {
	ChannelID uint64
	Type      model.ChannelType
	Err       error
}

// TestResult 渠道测试结果，供界面展示
type TestResult struct {
	ChannelName string            `json:"channelName"`
	ChannelURL  string            `json:"channelUrl"`
	ChannelType model.ChannelType `json:"channelType"`
	Sent        bool              `json:"sent"`
	Error       string            `json:"error,omitempty"`
}

type Config struct {
	Workers         int
	ChannelCacheTTL time.Duration
	SendTimeout     time.Duration
}

type Notifier struct {
	store   Store
	senders map[model.ChannelType]Sender
	conf    Config
	log     *zap.Logger
	now     func() time.Time

	channels *cache.Cache
}

func NewNotifier(store Store, senders map[model.ChannelType]Sender, conf Config, log *zap.Logger) *Notifier {
	if conf.Workers <= 0 {
		conf.Workers = 4
	}
	if conf.ChannelCacheTTL <= 0 {
		conf.ChannelCacheTTL = 30 * time.Second
	}
	if conf.SendTimeout <= 0 {
		conf.SendTimeout = 30 * time.Second
	}
	return &Notifier{
		store:    store,
		senders:  senders,
		conf:     conf,
		log:      log,
		now:      time.Now,
		channels: cache.New(conf.ChannelCacheTTL, conf.ChannelCacheTTL*2),
	}
}

func cacheKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Forget 渠道被修改后清除缓存
func (n *Notifier) Forget(id uint64) {
	n.channels.Delete(cacheKey(id))
}

// resolve 按 id 顺序返回渠道，优先读缓存，未找到的 id 被忽略
func (n *Notifier) resolve(ctx context.Context, ids []uint64) ([]model.NotificationChannel, error) {
	found := make(map[uint64]model.NotificationChannel, len(ids))
	var missing []uint64
	for _, id := range ids {
		if v, ok := n.channels.Get(cacheKey(id)); ok {
			found[id] = v.(model.NotificationChannel)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		loaded, err := n.store.FindChannelsByIds(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, ch := range loaded {
			n.channels.SetDefault(cacheKey(ch.ID), ch)
			found[ch.ID] = ch
		}
	}

	channels := make([]model.NotificationChannel, 0, len(ids))
	for _, id := range ids {
		ch, ok := found[id]
		if !ok {
			n.log.Warn("notification channel not found", zap.Uint64("channel", id))
			continue
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func (n *Notifier) send(ctx context.Context, ch *model.NotificationChannel, alert model.Alert) error {
	s, ok := n.senders[ch.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannelType, ch.Type)
	}
	ctx, cancel := context.WithTimeout(ctx, n.conf.SendTimeout)
	defer cancel()
	return s.Send(ctx, ch, alert)
}

// Notify 异步向监控配置的所有启用渠道发送告警，各渠道互不影响；
// 全部投递结束后返回的 channel 收到结果并关闭
func (n *Notifier) Notify(ctx context.Context, m *model.Monitor, i *model.Incident) <-chan []Delivery {
	done := make(chan []Delivery, 1)
	ctx = context.WithoutCancel(ctx)
	alert := model.NewAlert(m, i, n.now())
	ids := append([]uint64(nil), m.NotificationChannels...)

	go func() {
		defer close(done)
		if len(ids) == 0 {
			done <- nil
			return
		}
		channels, err := n.resolve(ctx, ids)
		if err != nil {
			n.log.Error("resolve notification channels", zap.Uint64("monitor", m.ID), zap.Error(err))
			done <- nil
			return
		}

		var active []model.NotificationChannel
		var deliveries []Delivery
		for _, ch := range channels {
			if ch.IsActive {
				active = append(active, ch)
				deliveries = append(deliveries, Delivery{ChannelID: ch.ID, Type: ch.Type})
			}
		}

		var g errgroup.Group
		g.SetLimit(n.conf.Workers)
		for k := range active {
			ch := &active[k]
			d := &deliveries[k]
			g.Go(func() error {
				if err := n.send(ctx, ch, alert); err != nil {
					d.Err = err
					n.log.Warn("notification failed", zap.Uint64("monitor", m.ID),
						zap.Uint64("channel", ch.ID), zap.String("type", string(ch.Type)), zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()
		done <- deliveries
	}()
	return done
}

// Test 同步发送测试告警到单个渠道
func (n *Notifier) Test(ctx context.Context, ch *model.NotificationChannel) TestResult {
	r := TestResult{
		ChannelName: ch.Name,
		ChannelURL:  ch.Target(),
		ChannelType: ch.Type,
	}
	if err := n.send(ctx, ch, model.TestAlert(n.now())); err != nil {
		r.Error = err.Error()
		n.log.Warn("notification test failed", zap.Uint64("channel", ch.ID), zap.Error(err))
		return r
	}
	r.Sent = true
	return r
}

// TestMonitorChannels 测试监控配置的全部渠道
func (n *Notifier) TestMonitorChannels(ctx context.Context, m *model.Monitor) ([]TestResult, error) {
	channels, err := n.resolve(ctx, m.NotificationChannels)
	if err != nil {
		return nil, err
	}
	results := make([]TestResult, len(channels))
	var g errgroup.Group
	g.SetLimit(n.conf.Workers)
	for k := range channels {
		g.Go(func() error {
			results[k] = n.Test(ctx, &channels[k])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
