package model

// CapturePayload infrastructure agent 返回的完整报文
type CapturePayload struct {
	Data    SystemInfo  `json:"data"`
	Capture CaptureInfo `json:"capture"`
}

type CaptureInfo struct {
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

type SystemInfo struct {
	CPU    CPUInfo    `json:"cpu"`
	Memory MemoryInfo `json:"memory"`
	Disk   []DiskInfo `json:"disk,omitempty"`
	Host   HostInfo   `json:"host"`
	Net    []NetInfo  `json:"net,omitempty"`
}

type CPUInfo struct {
	PhysicalCore     int       `json:"physical_core"`
	LogicalCore      int       `json:"logical_core"`
	Frequency        float64   `json:"frequency"`
	CurrentFrequency float64   `json:"current_frequency"`
	Temperature      []float64 `json:"temperature"`
	FreePercent      float64   `json:"free_percent"`
	UsagePercent     float64   `json:"usage_percent"`
}

type MemoryInfo struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

type DiskInfo struct {
	Device             string  `json:"device"`
	TotalBytes         uint64  `json:"total_bytes"`
	FreeBytes          uint64  `json:"free_bytes"`
	UsedBytes          uint64  `json:"used_bytes"`
	UsagePercent       float64 `json:"usage_percent"`
	TotalInodes        uint64  `json:"total_inodes"`
	FreeInodes         uint64  `json:"free_inodes"`
	UsedInodes         uint64  `json:"used_inodes"`
	InodesUsagePercent float64 `json:"inodes_usage_percent"`
	ReadBytes          uint64  `json:"read_bytes"`
	WriteBytes         uint64  `json:"write_bytes"`
	ReadTime           uint64  `json:"read_time"`
	WriteTime          uint64  `json:"write_time"`
}

type HostInfo struct {
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	PrettyName    string `json:"pretty_name"`
}

type NetInfo struct {
	Name        string `json:"name"`
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"err_in"`
	ErrOut      uint64 `json:"err_out"`
	DropIn      uint64 `json:"drop_in"`
	DropOut     uint64 `json:"drop_out"`
	FifoIn      uint64 `json:"fifo_in"`
	FifoOut     uint64 `json:"fifo_out"`
}
