// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrFlowNotFound is a sentinel error
type ErrFlowNotFound struct {
	FlowID string
}

func (e *ErrFlowNotFound) Error() string {
	return fmt.Sprintf("flow with ID %s not found", e.FlowID)
}

func NewFlowNotFound(id string) error {
	return &ErrFlowNotFound{FlowID: id}
}

// ConfigurationError means a flow graph cannot be run at all, e.g. it has
// no trigger or start node.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "flow configuration error: " + e.Reason
}

func NewConfigurationError(reason string) error {
	return &ConfigurationError{Reason: reason}
}

// GatewayError wraps any failed gateway call. The message is opaque: the
// core never inspects it for retry classification.
type GatewayError struct {
	Op      string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %s", e.Op, e.Message)
}

func NewGatewayError(op string, err error) error {
	return &GatewayError{Op: op, Message: err.Error()}
}
