package models

type DependencyCondition string

const (
	ConditionServiceStarted DependencyCondition = "service_started"
	ConditionServiceHealthy DependencyCondition = "service_healthy"
)

type Dependency struct {
	Service   string              `json:"service" yaml:"service"`
	Condition DependencyCondition `json:"condition" yaml:"condition"`
}
