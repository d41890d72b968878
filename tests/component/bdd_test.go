//go:build component

package component

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

type given = func() *ComponentTestSuite
type when = func() *ComponentTestSuite
type then = func() *ComponentTestSuite

func (s *ComponentTestSuite) gherkin() (given, when, then) {
	return func() *ComponentTestSuite { return s },
		func() *ComponentTestSuite { return s },
		func() *ComponentTestSuite { return s }
}

func (s *ComponentTestSuite) TestCreateEventSeatsTheOrganizer() {
	given, when, then := s.gherkin()

	given().anOrganizer()
	when().anEventWithCapacityIsCreated(2)
	then().theCreateEventResponseContainsTheOrganizerRegistration().
		and().theEventHasRegistrations(1).
		and().eventuallyAnActivity(model.ActivityEventCreated)
}

func (s *ComponentTestSuite) TestJoinUntilFull() {
	given, when, then := s.gherkin()

	given().anOrganizer().
		and().anEventWithCapacityIsCreated(2).
		and().players(2)
	when().playerJoins(0)
	then().theResponseStatusIs(http.StatusCreated).
		and().theEventHasRegistrations(2).
		and().eventuallyAnActivity(model.ActivityRegistrationCreated)
	when().playerJoins(1)
	then().theResponseStatusIs(http.StatusConflict).
		and().theErrorMessageIs(model.ErrEventFull.Error()).
		and().theEventHasRegistrations(2)
}

func (s *ComponentTestSuite) TestWithdrawFreesTheSeat() {
	given, when, then := s.gherkin()

	given().anOrganizer().
		and().anEventWithCapacityIsCreated(2).
		and().players(2).
		and().playerJoins(0)
	when().playerWithdraws(0)
	then().theResponseStatusIs(http.StatusNoContent).
		and().theEventHasRegistrations(1).
		and().eventuallyAnActivity(model.ActivityRegistrationRemoved)
	when().playerJoins(1)
	then().theResponseStatusIs(http.StatusCreated).
		and().theEventHasRegistrations(2)
}

func (s *ComponentTestSuite) TestCancelledEventRefusesJoins() {
	given, when, then := s.gherkin()

	given().anOrganizer().
		and().anEventWithCapacityIsCreated(3).
		and().players(1)
	when().theOrganizerCancelsTheEvent()
	then().theResponseStatusIs(http.StatusNoContent).
		and().eventuallyAnActivity(model.ActivityEventCancelled)
	when().playerJoins(0)
	then().theResponseStatusIs(http.StatusConflict).
		and().theErrorMessageIs(model.ErrEventCancelled.Error())
}

func (s *ComponentTestSuite) TestAuditRepairsMissingOrganizer() {
	given, when, then := s.gherkin()

	given().anOrganizer().
		and().anEventWithCapacityIsCreated(2).
		and().theOrganizerRegistrationIsLost()
	when().anAuditIsRequested()
	then().eventuallyTheOrganizerIsRegistered().
		and().eventuallyAnActivity(model.ActivityRegistrationRepaired)
}

func (s *ComponentTestSuite) and() *ComponentTestSuite {
	return s
}

func (s *ComponentTestSuite) anOrganizer() *ComponentTestSuite {
	s.organizerToken, s.organizerID = s.signUpAndLogin(fmt.Sprintf("organizer-%s@racketbuddy.io", uuid.NewString()))
	return s
}

func (s *ComponentTestSuite) players(n int) *ComponentTestSuite {
	for i := 0; i < n; i++ {
		token, _ := s.signUpAndLogin(fmt.Sprintf("player-%s@racketbuddy.io", uuid.NewString()))
		s.playerTokens = append(s.playerTokens, token)
	}
	return s
}

func (s *ComponentTestSuite) anEventWithCapacityIsCreated(capacity int) *ComponentTestSuite {
	var resp struct {
		Event        model.Event        `json:"event"`
		Registration model.Registration `json:"registration"`
	}
	status := s.call(http.MethodPost, "/api/events", s.organizerToken, map[string]any{
		"location":    model.Location{Name: "Central Courts", Latitude: 48.85, Longitude: 2.35},
		"starts_at":   time.Now().Add(72 * time.Hour).UTC(),
		"capacity":    capacity,
		"description": "doubles",
	}, &resp)
	s.Require().Equal(http.StatusCreated, status, s.lastError.Message)
	s.event = resp.Event
	s.organizerReg = resp.Registration
	return s
}

func (s *ComponentTestSuite) playerJoins(i int) *ComponentTestSuite {
	s.call(http.MethodPost, "/api/events/"+s.event.ID.String()+"/register", s.playerTokens[i], nil, nil)
	return s
}

func (s *ComponentTestSuite) playerWithdraws(i int) *ComponentTestSuite {
	s.call(http.MethodDelete, "/api/events/"+s.event.ID.String()+"/register", s.playerTokens[i], nil, nil)
	return s
}

func (s *ComponentTestSuite) theOrganizerCancelsTheEvent() *ComponentTestSuite {
	s.call(http.MethodDelete, "/api/events/"+s.event.ID.String(), s.organizerToken, nil, nil)
	return s
}

func (s *ComponentTestSuite) theOrganizerRegistrationIsLost() *ComponentTestSuite {
	res, err := s.db.Exec("DELETE FROM racketbuddy.registrations WHERE id = ?", s.organizerReg.ID.String())
	s.Require().NoError(err)
	s.Require().Equal(1, res.RowsAffected())
	return s.theEventHasRegistrations(0)
}

func (s *ComponentTestSuite) anAuditIsRequested() *ComponentTestSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.auditTopic.Publish(ctx, &pubsub.Message{Data: []byte(`{"dry_run":false}`)}).Get(ctx)
	s.Require().NoError(err)
	return s
}

func (s *ComponentTestSuite) theCreateEventResponseContainsTheOrganizerRegistration() *ComponentTestSuite {
	s.Require().NotEqual(uuid.Nil, s.event.ID)
	s.Require().Equal(s.organizerID, s.event.OrganizerID)
	s.Require().False(s.event.Cancelled)
	s.Require().Equal(s.event.ID, s.organizerReg.EventID)
	s.Require().Equal(s.organizerID, s.organizerReg.UserID)
	return s
}

func (s *ComponentTestSuite) theResponseStatusIs(status int) *ComponentTestSuite {
	s.Require().Equal(status, s.lastStatus, s.lastError.Message)
	return s
}

func (s *ComponentTestSuite) theErrorMessageIs(message string) *ComponentTestSuite {
	s.Require().Equal(message, s.lastError.Message)
	return s
}

func (s *ComponentTestSuite) registrations() []model.Registration {
	var resp struct {
		Registrations []model.Registration `json:"registrations"`
	}
	status := s.call(http.MethodGet, "/api/events/"+s.event.ID.String()+"/registrations", s.organizerToken, nil, &resp)
	s.Require().Equal(http.StatusOK, status, s.lastError.Message)
	return resp.Registrations
}

func (s *ComponentTestSuite) theEventHasRegistrations(n int) *ComponentTestSuite {
	s.Require().Len(s.registrations(), n)
	return s
}

func (s *ComponentTestSuite) eventuallyTheOrganizerIsRegistered() *ComponentTestSuite {
	s.Require().Eventually(func() bool {
		for _, r := range s.registrations() {
			if r.UserID == s.organizerID {
				return true
			}
		}
		return false
	}, 10*time.Second, 200*time.Millisecond, "organizer registration was not repaired")
	return s
}
