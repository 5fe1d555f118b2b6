package utils

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v4/cpu"
)

var cpuUsageGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "system_cpu_usage_percent",
		Help: "Current CPU usage as a percentage",
	},
)

// GetCPUUsage returns the current CPU usage as a percentage
func GetCPUUsage() float64 {
	percentage, err := cpu.Percent(time.Second, false)
	if err != nil {
		log.Printf("Error getting CPU usage: %v", err)
		return 0
	}
	if len(percentage) > 0 {
		return percentage[0]
	}
	return 0
}

// StartSystemMetrics samples system metrics on the given interval until the
// process exits.
func StartSystemMetrics(interval time.Duration) {
	go func() {
		for {
			cpuUsageGauge.Set(GetCPUUsage())
			time.Sleep(interval)
		}
	}()
}
