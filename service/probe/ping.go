package probe

import (
	"context"
	"time"

	"github.com/go-ping/ping"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

// icmpPing 发送一个 ICMP echo，pinger 不支持 context，取消时主动 Stop
func (p *Prober) icmpPing(ctx context.Context, host string) (bool, time.Duration, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return false, 0, err
	}
	pinger.Count = 1
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.pingPrivileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		pinger.Stop()
		<-done
		err = ctx.Err()
	}
	if err != nil {
		return false, 0, err
	}
	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, stats.AvgRtt, nil
}

func (p *Prober) requestPing(ctx context.Context, m *model.Monitor) (Result, error) {
	alive, rtt, err := p.ping(ctx, m.URL)
	o := Outcome{
		Status:       model.MonitorStatusDown,
		ResponseTime: utils.FiniteOrZero(utils.Milliseconds(rtt)),
		Message:      "Ping successful",
	}
	if alive {
		o.Status = model.MonitorStatusUp
	}
	if err != nil {
		o.ResponseTime = 0
		o.Message = err.Error()
	}
	return &Basic{Outcome: o}, nil
}
