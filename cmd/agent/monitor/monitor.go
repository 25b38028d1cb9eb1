package monitor

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
)

var (
	Version           = "dev"
	expectDiskFsTypes = []string{
		"apfs", "ext4", "ext3", "ext2", "f2fs", "reiserfs", "jfs", "btrfs",
		"fuseblk", "zfs", "simfs", "ntfs", "fat32", "exfat", "xfs", "fuse.rclone",
	}
	excludeNetInterfaces = []string{
		"lo", "tun", "docker", "veth", "br-", "vmbr", "vnet", "kube",
	}
)

// Collector 采集本机指标，输出 infrastructure 探测所需的报文
type Collector struct {
	Mode string
	Log  *zap.Logger
}

func (c *Collector) Capture(ctx context.Context) *model.CapturePayload {
	return &model.CapturePayload{
		Data: model.SystemInfo{
			CPU:    c.cpu(ctx),
			Memory: c.memory(ctx),
			Disk:   c.disks(ctx),
			Host:   c.host(ctx),
			Net:    c.net(ctx),
		},
		Capture: model.CaptureInfo{Version: Version, Mode: c.Mode},
	}
}

func (c *Collector) warn(what string, err error) {
	c.Log.Warn("collect "+what, zap.Error(err))
}

func (c *Collector) cpu(ctx context.Context) model.CPUInfo {
	var ret model.CPUInfo
	var err error
	if ret.PhysicalCore, err = cpu.CountsWithContext(ctx, false); err != nil {
		c.warn("cpu.Counts", err)
	}
	if ret.LogicalCore, err = cpu.CountsWithContext(ctx, true); err != nil {
		c.warn("cpu.Counts", err)
	}
	if ci, err := cpu.InfoWithContext(ctx); err != nil {
		c.warn("cpu.Info", err)
	} else if len(ci) > 0 {
		ret.Frequency = ci[0].Mhz
		ret.CurrentFrequency = ci[0].Mhz
	}
	if cp, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		c.warn("cpu.Percent", err)
	} else if len(cp) > 0 {
		ret.UsagePercent = cp[0] / 100
		ret.FreePercent = 1 - ret.UsagePercent
	}
	if temps, err := host.SensorsTemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			if strings.Contains(t.SensorKey, "core") || strings.Contains(t.SensorKey, "cpu") {
				ret.Temperature = append(ret.Temperature, t.Temperature)
			}
		}
	}
	return ret
}

func (c *Collector) memory(ctx context.Context) model.MemoryInfo {
	var ret model.MemoryInfo
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		c.warn("mem.VirtualMemory", err)
		return ret
	}
	ret.TotalBytes = vm.Total
	ret.AvailableBytes = vm.Available
	ret.UsedBytes = vm.Total - vm.Available
	ret.UsagePercent = vm.UsedPercent / 100
	return ret
}

func (c *Collector) disks(ctx context.Context) []model.DiskInfo {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		c.warn("disk.Partitions", err)
		return nil
	}
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		counters = nil
	}

	seen := make(map[string]bool)
	var ret []model.DiskInfo
	for _, p := range partitions {
		fsType := strings.ToLower(p.Fstype)
		// 不统计 K8s 的虚拟挂载点
		if seen[p.Device] || !isListContainsStr(expectDiskFsTypes, fsType) || strings.Contains(p.Mountpoint, "/var/lib/kubelet") {
			continue
		}
		seen[p.Device] = true
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		d := model.DiskInfo{
			Device:             p.Device,
			TotalBytes:         usage.Total,
			FreeBytes:          usage.Free,
			UsedBytes:          usage.Used,
			UsagePercent:       usage.UsedPercent / 100,
			TotalInodes:        usage.InodesTotal,
			FreeInodes:         usage.InodesFree,
			UsedInodes:         usage.InodesUsed,
			InodesUsagePercent: usage.InodesUsedPercent / 100,
		}
		if io, ok := counters[filepath.Base(p.Device)]; ok {
			d.ReadBytes = io.ReadBytes
			d.WriteBytes = io.WriteBytes
			d.ReadTime = io.ReadTime
			d.WriteTime = io.WriteTime
		}
		ret = append(ret, d)
	}
	return ret
}

func (c *Collector) host(ctx context.Context) model.HostInfo {
	ret := model.HostInfo{OS: runtime.GOOS}
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		c.warn("host.Info", err)
		return ret
	}
	ret.Platform = hi.Platform
	ret.KernelVersion = hi.KernelVersion
	ret.PrettyName = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
	return ret
}

func (c *Collector) net(ctx context.Context) []model.NetInfo {
	nc, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		c.warn("net.IOCounters", err)
		return nil
	}
	var ret []model.NetInfo
	for _, v := range nc {
		if isListContainsStr(excludeNetInterfaces, v.Name) {
			continue
		}
		ret = append(ret, model.NetInfo{
			Name:        v.Name,
			BytesSent:   v.BytesSent,
			BytesRecv:   v.BytesRecv,
			PacketsSent: v.PacketsSent,
			PacketsRecv: v.PacketsRecv,
			ErrIn:       v.Errin,
			ErrOut:      v.Errout,
			DropIn:      v.Dropin,
			DropOut:     v.Dropout,
			FifoIn:      v.Fifoin,
			FifoOut:     v.Fifoout,
		})
	}
	return ret
}

func isListContainsStr(list []string, str string) bool {
	for i := 0; i < len(list); i++ {
		if strings.Contains(str, list[i]) {
			return true
		}
	}
	return false
}
