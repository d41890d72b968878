package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInformer_Inform(t *testing.T) {
	sendingError := errors.New("sending error")
	eventID, userID, registrationID := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name            string
		sender          *MockSender
		callsSendMethod bool
	}{
		{
			name:            "activity sent",
			sender:          &MockSender{},
			callsSendMethod: true,
		},
		{
			name:            "send error is swallowed",
			sender:          &MockSender{SendError: sendingError},
			callsSendMethod: true,
		},
		{
			name:            "nil sender",
			sender:          nil,
			callsSendMethod: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var i *informer
			if test.sender != nil {
				i = newInformer(test.sender, newClock().Now)
			} else {
				i = newInformer(nil, newClock().Now)
			}

			assert.NotPanics(t, func() {
				i.inform(context.Background(), model.ActivityRegistrationCreated, eventID, userID, registrationID)
			})
			if !test.callsSendMethod {
				return
			}

			require.Len(t, test.sender.activities, 1)
			a := test.sender.activities[0]
			assert.NotEqual(t, uuid.Nil, a.ID)
			assert.Equal(t, model.ActivityRegistrationCreated, a.Kind)
			assert.Equal(t, eventID, a.EventID)
			assert.Equal(t, userID, a.UserID)
			assert.Equal(t, registrationID, a.RegistrationID)
			assert.Equal(t, dummyTime, a.OccurredAt)
		})
	}
}
