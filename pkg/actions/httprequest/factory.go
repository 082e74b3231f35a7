package httprequest

import (
	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/models"
)

// Factory builds http-request actions.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() string {
	return models.ActionHTTPRequest
}

func (f *Factory) Create(data models.NodeData) (actions.Action, error) {
	return NewAction(data)
}
