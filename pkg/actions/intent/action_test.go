package intent

import (
	"context"
	"testing"

	"github.com/radiflow/radiflow/pkg/actions"
	"github.com/radiflow/radiflow/pkg/log"
	"github.com/radiflow/radiflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_RecordsIntent(t *testing.T) {
	factory := NewFactory(models.ActionSendEmail)
	assert.Equal(t, models.ActionSendEmail, factory.Kind())

	action, err := factory.Create(models.NodeData{Label: "Welcome mail"})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), actions.Scope{
		Event:  &models.AutomationEvent{TriggerType: "user_registered", SubjectName: "ana"},
		Logger: log.WithModule("test"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ActionSendEmail, result.Output["action"])
	assert.Equal(t, "Welcome mail", result.Output["label"])
	assert.Equal(t, "ana", result.Output["subject"])
	assert.Equal(t, true, result.Output["recorded"])
}

func TestKinds_CoverBuiltins(t *testing.T) {
	kinds := Kinds()

	assert.Contains(t, kinds, models.ActionCreditWallet)
	assert.Contains(t, kinds, models.ActionApplyDiscount)
	assert.NotContains(t, kinds, models.ActionHTTPRequest)
	assert.NotContains(t, kinds, models.ActionSuspendUser)
}
