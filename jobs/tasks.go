// Package jobs runs the background side of the system on asynq: the
// periodic replenishment scan that keeps auto-replenish finished goods above
// their configured minimum.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReplenishScan walks the auto-replenish goods and opens
	// make-to-stock production runs where stock fell to the minimum.
	TaskReplenishScan = "replenish:scan"
)

// ReplenishScanPayload selects the warehouse the scan produces into.
type ReplenishScanPayload struct {
	WarehouseID int64 `json:"warehouse_id"`
}

// NewReplenishScanTask constructs the scan task.
func NewReplenishScanTask(warehouseID int64) (*asynq.Task, error) {
	body, err := json.Marshal(ReplenishScanPayload{WarehouseID: warehouseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReplenishScan, body, asynq.Queue(QueueDefault)), nil
}
