package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadRoute = "routing.lead.route"

const TaskDistributionRefresh = "routing.distribution.refresh"

type LeadRoutePayload struct {
	LeadID string `json:"leadId"`
	Actor  string `json:"actor,omitempty"`
}

func NewLeadRouteTask(payload LeadRoutePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadRoute, data), nil
}

func ParseLeadRoutePayload(task *asynq.Task) (LeadRoutePayload, error) {
	var payload LeadRoutePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadRoutePayload{}, err
	}
	return payload, nil
}

// NewDistributionRefreshTask has no payload; the default window is used.
func NewDistributionRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskDistributionRefresh, nil)
}
