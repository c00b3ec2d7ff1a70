package intake

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/vetcare/intake/pkg/livetest"
	"github.com/vetcare/intake/pkg/protocol"
)

// scenario holds state for a single feature scenario.
type scenario struct {
	t       *testing.T
	backend *fakeBackend
	comp    *Component
	view    *livetest.View
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			initializeScenario(t, sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func initializeScenario(t *testing.T, sc *godog.ScenarioContext) {
	s := &scenario{t: t}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.backend = nil
		s.comp, s.view = nil, nil
		return ctx, nil
	})

	sc.Step(`^the case backend answers (\d+) with "([^"]*)"$`, s.backendAnswers)
	sc.Step(`^a fresh intake form$`, s.freshForm)
	sc.Step(`^I press next$`, s.pressNext)
	sc.Step(`^I have filled every required field$`, s.fillRequired)
	sc.Step(`^I walk to the review step$`, s.walkToReview)
	sc.Step(`^I confirm the case$`, s.confirm)
	sc.Step(`^I reset the form$`, s.reset)
	sc.Step(`^I am on step (\d+)$`, s.onStep)
	sc.Step(`^(\d+) fields show "([^"]*)"$`, s.fieldsShow)
	sc.Step(`^the review shows "([^"]*)" for "([^"]*)"$`, s.reviewShows)
	sc.Step(`^the status is "([^"]*)"$`, s.statusIs)
	sc.Step(`^the review section is hidden$`, s.reviewHidden)
	sc.Step(`^the page shows "([^"]*)"$`, s.pageShows)
	sc.Step(`^the backend received (\d+) cases?(?: with (\d+) fields)?$`, s.backendReceived)
	sc.Step(`^an alert says "([^"]*)"$`, s.alertSays)
	sc.Step(`^the confirm button reads "([^"]*)"$`, s.confirmReads)
	sc.Step(`^field "([^"]*)" is empty$`, s.fieldEmpty)
}

func (s *scenario) backendAnswers(status int, message string) error {
	body := fmt.Sprintf(`{"success":%t,"message":%q}`, status < 300, message)
	if s.backend == nil {
		s.backend = newFakeBackend(s.t, status, body)
		return nil
	}
	s.backend.mu.Lock()
	s.backend.status, s.backend.body = status, body
	s.backend.mu.Unlock()
	return nil
}

func (s *scenario) freshForm() error {
	if s.backend == nil {
		return fmt.Errorf("no backend configured")
	}
	s.comp, s.view = mountIntake(s.t, s.backend)
	return nil
}

func (s *scenario) pressNext() error {
	return s.view.Event(EventNext, nil)
}

func (s *scenario) fillRequired() error {
	values := [][2]string{
		{"ownerName", "Ada Lovelace"},
		{"ownerPhone", "0712345678"},
		{"ownerEmail", "ada@example.com"},
		{"ownerAddress", "Nairobi"},
		{"petName", "Rex"},
		{"petSpecies", "cat"},
		{"petGender", "female"},
	}
	for _, kv := range values {
		if err := s.view.Event(EventChange, map[string]any{"field": kv[0], "value": kv[1]}); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenario) walkToReview() error {
	for i := 0; i < ReviewStep; i++ {
		if err := s.view.Event(EventNext, nil); err != nil {
			return err
		}
	}
	return s.onStep(ReviewStep)
}

func (s *scenario) confirm() error {
	if err := s.view.Event(EventSubmit, nil); err != nil {
		return err
	}
	if s.comp.Wizard().Status() == StatusSubmitting {
		s.view.AwaitInfo(5 * time.Second)
	}
	return nil
}

func (s *scenario) reset() error {
	return s.view.Event(EventReset, nil)
}

func (s *scenario) onStep(step int) error {
	return s.assign("step", step)
}

func (s *scenario) fieldsShow(n int, message string) error {
	got := s.view.Count(fmt.Sprintf(`<div class="error-message">%s</div>`, message))
	if got != n {
		return fmt.Errorf("expected %d inline errors, found %d", n, got)
	}
	return nil
}

func (s *scenario) reviewShows(text, field string) error {
	return s.contains(fmt.Sprintf(`<dd id="review-%s">%s</dd>`, field, text))
}

func (s *scenario) statusIs(status string) error {
	return s.assign("status", status)
}

func (s *scenario) reviewHidden() error {
	return s.contains(`<div id="reviewSection" hidden>`)
}

func (s *scenario) pageShows(text string) error {
	return s.contains(text)
}

func (s *scenario) backendReceived(cases int, fields string) error {
	if got := s.backend.requests(); got != cases {
		return fmt.Errorf("expected %d requests, backend saw %d", cases, got)
	}
	if fields == "" || cases == 0 {
		return nil
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if want, got := fields, fmt.Sprint(len(s.backend.bodies[0])); want != got {
		return fmt.Errorf("expected %s payload keys, got %s", want, got)
	}
	return nil
}

func (s *scenario) alertSays(message string) error {
	for _, msg := range s.view.Pushed(protocol.EventAlert) {
		if msg.Payload["message"] == message {
			return nil
		}
	}
	return fmt.Errorf("no alert %q was pushed", message)
}

func (s *scenario) confirmReads(label string) error {
	return s.assign("submit_label", label)
}

func (s *scenario) fieldEmpty(id string) error {
	return s.contains(fmt.Sprintf(`id="%s" name="%s" value=""`, id, id))
}

func (s *scenario) contains(fragment string) error {
	if !strings.Contains(s.view.Rendered(), fragment) {
		return fmt.Errorf("rendered page does not contain %q", fragment)
	}
	return nil
}

func (s *scenario) assign(key string, want any) error {
	got := s.comp.Assigns().Get(key)
	if got != want {
		return fmt.Errorf("assign %s: expected %v, got %v", key, want, got)
	}
	return nil
}
